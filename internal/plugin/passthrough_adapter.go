package plugin

import (
	"bytes"
	"context"

	"github.com/mopria/printcore/internal/raster"
)

// passthroughEncoder carries a PDF document straight to the wire
// unmodified, for printers that advertise native PDF support and can
// fan a single source file out into copies=N on their own. Pages are
// already paginated inside the source file, so BeginPage/EndPage/Stripe
// are no-ops; the caller supplies the whole document via SetDocument.
type passthroughEncoder struct {
	doc bytes.Buffer
}

// NewPassthroughFactory returns a Factory producing pass-through
// encoders, registered against WireFormatPDF.
func NewPassthroughFactory() Factory {
	return func() Encoder { return &passthroughEncoder{} }
}

func (e *passthroughEncoder) Init(_ context.Context, _ string) error { return nil }
func (e *passthroughEncoder) StartJob(_ context.Context, _ JobEncodeParams) error { return nil }
func (e *passthroughEncoder) BeginPage(_ context.Context, _ int) error { return nil }
func (e *passthroughEncoder) Stripe(_ [][]raster.Pixel) error { return nil }
func (e *passthroughEncoder) EndPage(_ context.Context) error { return nil }
func (e *passthroughEncoder) PrintBlankPage(_ context.Context, _ int) error { return nil }

func (e *passthroughEncoder) EndJob(_ context.Context) ([]byte, error) {
	return e.doc.Bytes(), nil
}

// SetDocument installs the already-rendered PDF bytes this job streams
// verbatim. The Job Manager calls this instead of driving the
// Stripe/BeginPage path for passthrough jobs.
func (e *passthroughEncoder) SetDocument(data []byte) {
	e.doc.Reset()
	e.doc.Write(data)
}

// DocumentSetter is implemented by encoders that accept a whole
// pre-rendered document instead of per-stripe content, used by the Job
// Manager to detect the PDF-passthrough path without a type switch on a
// concrete type.
type DocumentSetter interface {
	SetDocument(data []byte)
}

var _ DocumentSetter = (*passthroughEncoder)(nil)
