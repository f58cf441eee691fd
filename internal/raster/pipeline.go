package raster

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
)

// alignQuantum is the pixel alignment margins and stripe heights are
// rounded to.
const alignQuantum = 16

// Rotation is a clockwise rotation applied before scaling.
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// PadPolicy describes how the pipeline fills the gap between the scaled
// image and the printable area.
type PadPolicy struct {
	// CenterHorizontal/CenterVertical place the image in the middle of
	// the printable area; otherwise it is anchored at the origin.
	CenterHorizontal bool
	CenterVertical   bool
	FillColor        Pixel
}

// PageRenderer describes an external PDF page rasterizer. Pipeline.Run
// does not call it: Run decodes only image streams (JPEG or PNG) with
// image.Decode, and nothing in this package rasterizes PDF pages.
type PageRenderer interface {
	// RenderPage rasterizes one page at the given DPI into an RGB888
	// image, used when the job's input is a PDF passthrough-ineligible
	// source (e.g. the printer lacks SupportsPDF).
	RenderPage(pageIndex int, dpi int) (image.Image, error)
	PageCount() (int, error)
}

// Pipeline drives the decode -> subsample -> rotate -> pad -> scale ->
// stripe chain for one page.
type Pipeline struct {
	OutWidth, OutHeight int
	Rotation            Rotation
	// AutoRotate rotates the decoded page 90deg when its orientation
	// (landscape/portrait) doesn't match OutWidth/OutHeight's, in place
	// of an explicit Rotation.
	AutoRotate bool
	// AutoFit scales the decoded page to fit within OutWidth x OutHeight
	// preserving aspect ratio and pads the remainder per Pad, instead of
	// stretching the source to exactly fill the canvas.
	AutoFit    bool
	Pad        PadPolicy
	StripeRows int // printer-preferred strip height, from Capabilities.PreferredStripHeight

	// MemoryBudgetBytes bounds the decoded pixel buffer rotate() and the
	// scaler operate on; a source image larger than this budget is
	// subsampled further before rotation, targeting a 1MB-4MB working set.
	MemoryBudgetBytes int

	// DebugDir, when non-empty, captures the fully composited page as a
	// BMP file before it is sliced into stripes.
	DebugDir string
	// DebugName names the dump file (without extension) for the current
	// page; defaults to "page" when empty.
	DebugName string
}

// NewPipeline applies the default 2MB memory-budget when one is not
// explicitly set.
func NewPipeline(outW, outH int, stripeRows int) *Pipeline {
	return &Pipeline{
		OutWidth: outW, OutHeight: outH,
		StripeRows:        stripeRows,
		MemoryBudgetBytes: 2 << 20,
	}
}

// decodeAndSubsample decodes an image stream, then, if the source is
// larger than the printable area, downsamples by the largest
// power-of-two factor that still leaves the image at or above the
// target size.
func decodeAndSubsample(r io.Reader, targetW, targetH int) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	factor := 1
	for srcW/(factor*2) >= targetW && srcH/(factor*2) >= targetH {
		factor *= 2
	}
	if factor == 1 {
		return img, nil
	}

	dstW, dstH := srcW/factor, srcH/factor
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst, nil
}

// clampToMemoryBudget subsamples img further, by the largest power-of-two
// factor needed, if its RGBA buffer would exceed budgetBytes (4 bytes/px).
func clampToMemoryBudget(img image.Image, budgetBytes int) image.Image {
	if budgetBytes <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	factor := 1
	for (w/factor)*(h/factor)*4 > budgetBytes {
		factor *= 2
	}
	if factor == 1 {
		return img
	}
	dstW, dstH := w/factor, h/factor
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// rotate applies a 0/90/180/270 clockwise rotation. For 90/270 the
// caller is expected to process the image in row-cached column passes in
// a streaming implementation; here the pipeline operates on a fully
// decoded page image, so rotation is expressed as a direct pixel remap
// bounded by MemoryBudgetBytes (checked by the caller after decode,
// before rotation).
func rotate(img image.Image, r Rotation) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch r {
	case Rotate90:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
		return dst
	case Rotate180:
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
		return dst
	case Rotate270:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(y, w-1-x, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
		return dst
	default:
		return img
	}
}

// alignDown rounds v down to the nearest multiple of alignQuantum.
func alignDown(v int) int { return (v / alignQuantum) * alignQuantum }

// toPlane converts a decoded image.Image into the Plane type the Scaler
// operates on.
func toPlane(img image.Image) *Plane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	p := &Plane{Pix: make([]Pixel, w*h), Width: w, Stride: w}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			p.Pix[y*w+x] = Pixel{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
		}
	}
	return p
}

// StripeSink receives successive stripes of OutWidth x stripeRows RGB888
// pixels, the terminal stripe possibly shorter per the alignment rules.
type StripeSink interface {
	Stripe(rows [][]Pixel) error
}

// Run executes the full pipeline for one already-opened image stream and
// delivers stripes to sink, releasing each stripe's memory before
// requesting the next (the caller holds no reference to prior stripes
// once Stripe returns).
func (p *Pipeline) Run(r io.Reader, sink StripeSink) error {
	decoded, err := decodeAndSubsample(r, p.OutWidth, p.OutHeight)
	if err != nil {
		return err
	}
	budget := p.MemoryBudgetBytes
	if budget <= 0 {
		budget = 2 << 20
	}
	decoded = clampToMemoryBudget(decoded, budget)

	rot := p.Rotation
	if p.AutoRotate && rot == Rotate0 {
		db := decoded.Bounds()
		srcLandscape := db.Dx() > db.Dy()
		outLandscape := p.OutWidth > p.OutHeight
		if srcLandscape != outLandscape {
			rot = Rotate90
		}
	}
	rotated := rotate(decoded, rot)

	fitW, fitH := p.OutWidth, p.OutHeight
	if p.AutoFit {
		srcW, srcH := rotated.Bounds().Dx(), rotated.Bounds().Dy()
		if srcW > 0 && srcH > 0 {
			scaleX := float64(p.OutWidth) / float64(srcW)
			scaleY := float64(p.OutHeight) / float64(srcH)
			scale := scaleX
			if scaleY < scale {
				scale = scaleY
			}
			if w := int(float64(srcW) * scale); w > 0 && w <= p.OutWidth {
				fitW = w
			}
			if h := int(float64(srcH) * scale); h > 0 && h <= p.OutHeight {
				fitH = h
			}
		}
	}

	cfg := NewConfig(rotated.Bounds().Dx(), rotated.Bounds().Dy(), fitW, fitH)
	src := toPlane(rotated)
	fitted := &Plane{Pix: make([]Pixel, fitW*fitH), Width: fitW, Stride: fitW}

	plan := cfg.PlanRows(0, fitH)
	var scratch *Plane
	if plan.TempBufferRows > 0 {
		scratch = &Plane{Pix: make([]Pixel, plan.TempBufferRows*max(cfg.SrcWidth, fitW)), Width: max(cfg.SrcWidth, fitW), Stride: max(cfg.SrcWidth, fitW)}
	}
	cfg.ScaleStripe(src, plan, 0, fitted, scratch)

	out := fitted
	if fitW != p.OutWidth || fitH != p.OutHeight {
		out = &Plane{Pix: make([]Pixel, p.OutWidth*p.OutHeight), Width: p.OutWidth, Stride: p.OutWidth}
		for i := range out.Pix {
			out.Pix[i] = p.Pad.FillColor
		}
		offsetX, offsetY := 0, 0
		if p.Pad.CenterHorizontal {
			offsetX = (p.OutWidth - fitW) / 2
		}
		if p.Pad.CenterVertical {
			offsetY = (p.OutHeight - fitH) / 2
		}
		for y := 0; y < fitH; y++ {
			destStart := (y+offsetY)*out.Stride + offsetX
			copy(out.Pix[destStart:destStart+fitW], fitted.Pix[y*fitted.Stride:y*fitted.Stride+fitW])
		}
	}

	if p.DebugDir != "" {
		name := p.DebugName
		if name == "" {
			name = "page"
		}
		if err := DumpBMP(p.DebugDir, name, out, p.OutHeight); err != nil {
			return fmt.Errorf("debug dump: %w", err)
		}
	}

	stripeRows := p.StripeRows
	if stripeRows <= 0 {
		stripeRows = 16
	}
	for start := 0; start < p.OutHeight; start += stripeRows {
		end := start + stripeRows
		if end > p.OutHeight {
			end = p.OutHeight
		}
		rows := make([][]Pixel, 0, end-start)
		for y := start; y < end; y++ {
			rows = append(rows, out.Pix[y*out.Stride:y*out.Stride+out.Width])
		}
		if err := sink.Stripe(rows); err != nil {
			return fmt.Errorf("emit stripe [%d:%d): %w", start, end, err)
		}
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
