package plugin

import (
	"context"
	"fmt"

	"github.com/mopria/printcore/internal/pclm"
	"github.com/mopria/printcore/internal/raster"
)

// pclmEncoder adapts internal/pclm.Encoder to the Encoder interface.
type pclmEncoder struct {
	enc        *pclm.Encoder
	pageIndex  int
}

// NewPCLmFactory returns a Factory producing PCLm encoder instances,
// registered against WireFormatPCLm.
func NewPCLmFactory() Factory {
	return func() Encoder { return &pclmEncoder{} }
}

func (e *pclmEncoder) Init(_ context.Context, _ string) error { return nil }

func (e *pclmEncoder) StartJob(_ context.Context, p JobEncodeParams) error {
	cs := pclm.ColorSpaceDeviceRGB
	if p.Monochrome {
		cs = pclm.ColorSpaceDeviceGray
	}
	e.enc = pclm.NewEncoder(pclm.Params{
		DPI:            p.DPI,
		PageWidthPx:    p.PageWidthPx,
		PageHeightPx:   p.PageHeightPx,
		ColorSpace:     cs,
		TopMarginPx:    p.TopMarginPx,
		LongEdgeDuplex: p.LongEdgeDuplex,
		MirrorBackside: p.MirrorBackside,
	})
	return nil
}

func (e *pclmEncoder) BeginPage(_ context.Context, pageNum int) error {
	if e.enc == nil {
		return fmt.Errorf("pclm: BeginPage called before StartJob")
	}
	e.pageIndex = pageNum
	e.enc.BeginPage(pageNum)
	return nil
}

func (e *pclmEncoder) Stripe(rows [][]raster.Pixel) error {
	return e.enc.Stripe(rows)
}

func (e *pclmEncoder) EndPage(_ context.Context) error {
	e.enc.EndPage()
	return nil
}

func (e *pclmEncoder) PrintBlankPage(ctx context.Context, pageNum int) error {
	if err := e.BeginPage(ctx, pageNum); err != nil {
		return err
	}
	return e.EndPage(ctx)
}

func (e *pclmEncoder) EndJob(_ context.Context) ([]byte, error) {
	return e.enc.Close(), nil
}
