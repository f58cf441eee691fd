package plugin

import (
	"context"
	"fmt"

	"github.com/mopria/printcore/internal/pwg"
	"github.com/mopria/printcore/internal/raster"
)

// pwgEncoder adapts internal/pwg.Encoder to the Encoder interface.
type pwgEncoder struct {
	enc    *pwg.Encoder
	params JobEncodeParams
}

// NewPWGFactory returns a Factory producing PWG-Raster encoder
// instances, registered against WireFormatPWG.
func NewPWGFactory() Factory {
	return func() Encoder { return &pwgEncoder{enc: pwg.NewEncoder()} }
}

func (e *pwgEncoder) Init(_ context.Context, _ string) error { return nil }

func (e *pwgEncoder) StartJob(_ context.Context, p JobEncodeParams) error {
	e.params = p
	return nil
}

func (e *pwgEncoder) pageHeader() pwg.Params {
	cs := pwg.ColorSpaceSRGB
	if e.params.Monochrome {
		cs = pwg.ColorSpaceSW
	}
	return pwg.Params{
		WidthPx: e.params.PageWidthPx, HeightPx: e.params.PageHeightPx,
		ResolutionX: e.params.DPI, ResolutionY: e.params.DPI,
		ColorSpace: cs,
		Duplex:     e.params.LongEdgeDuplex,
		FaceUp:     false,
	}
}

func (e *pwgEncoder) BeginPage(_ context.Context, _ int) error {
	if e.enc == nil {
		return fmt.Errorf("pwg: BeginPage called before StartJob")
	}
	e.enc.WritePageHeader(e.pageHeader())
	return nil
}

func (e *pwgEncoder) Stripe(rows [][]raster.Pixel) error {
	e.enc.WriteRows(rows, e.pageHeader().ColorSpace)
	return nil
}

func (e *pwgEncoder) EndPage(_ context.Context) error { return nil }

func (e *pwgEncoder) PrintBlankPage(_ context.Context, _ int) error {
	e.enc.WriteBlankPage(e.pageHeader())
	return nil
}

func (e *pwgEncoder) EndJob(_ context.Context) ([]byte, error) {
	return e.enc.Bytes(), nil
}
