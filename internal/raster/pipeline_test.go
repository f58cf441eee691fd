package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// fakeSink collects the stripes Pipeline.Run delivers, copying each since
// Run reuses its output buffer's backing array across stripe windows.
type fakeSink struct {
	rows [][]Pixel
}

func (s *fakeSink) Stripe(rows [][]Pixel) error {
	for _, row := range rows {
		cp := make([]Pixel, len(row))
		copy(cp, row)
		s.rows = append(s.rows, cp)
	}
	return nil
}

func encodePNG(t *testing.T, w, h int, fill color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestPipelineAutoFitPadsWithFillColor(t *testing.T) {
	// a 40x10 source fit into a 40x40 canvas must be letterboxed, not
	// stretched to fill the square.
	src := encodePNG(t, 40, 10, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	p := NewPipeline(40, 40, 8)
	p.AutoFit = true
	p.Pad = PadPolicy{CenterVertical: true, FillColor: Pixel{R: 255, G: 255, B: 255}}

	sink := &fakeSink{}
	if err := p.Run(bytes.NewReader(src), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.rows) != 40 {
		t.Fatalf("got %d output rows, want 40", len(sink.rows))
	}

	topRow := sink.rows[0]
	if topRow[0] != (Pixel{R: 255, G: 255, B: 255}) {
		t.Errorf("top padding row = %v, want white fill", topRow[0])
	}
	bottomRow := sink.rows[len(sink.rows)-1]
	if bottomRow[0] != (Pixel{R: 255, G: 255, B: 255}) {
		t.Errorf("bottom padding row = %v, want white fill", bottomRow[0])
	}
}

func TestPipelineAutoRotateMatchesCanvasOrientation(t *testing.T) {
	// a wide (landscape) source delivered into a tall (portrait) canvas
	// must be rotated 90deg so its long edge runs along the canvas's long
	// edge instead of being squeezed to fit unrotated.
	src := encodePNG(t, 40, 10, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	p := NewPipeline(10, 40, 8)
	p.AutoRotate = true

	sink := &fakeSink{}
	if err := p.Run(bytes.NewReader(src), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.rows) != 40 {
		t.Fatalf("got %d output rows, want 40", len(sink.rows))
	}
	if len(sink.rows[0]) != 10 {
		t.Fatalf("got %d columns, want 10", len(sink.rows[0]))
	}
}

func TestPipelineMemoryBudgetSubsamplesOversizedSource(t *testing.T) {
	src := encodePNG(t, 256, 256, color.RGBA{R: 7, G: 8, B: 9, A: 255})

	p := NewPipeline(16, 16, 4)
	p.MemoryBudgetBytes = 512 // 16x16x4 = 1024 bytes after decode, so clampToMemoryBudget halves it to 8x8

	sink := &fakeSink{}
	if err := p.Run(bytes.NewReader(src), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.rows) != 16 {
		t.Fatalf("got %d output rows, want 16", len(sink.rows))
	}
}
