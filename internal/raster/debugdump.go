package raster

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
)

// planeImage adapts a Plane to image.Image so it can be handed to any
// stdlib or x/image codec.
type planeImage struct {
	p      *Plane
	height int
}

func (i *planeImage) ColorModel() color.Model { return color.RGBAModel }

func (i *planeImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.p.Width, i.height)
}

func (i *planeImage) At(x, y int) color.Color {
	px := i.p.Pix[y*i.p.Stride+x]
	return color.RGBA{R: px.R, G: px.G, B: px.B, A: 0xff}
}

// DumpBMP writes the composited output plane to dir/<name>.bmp for
// visual inspection of the scale/rotate/pad stages. It is a no-op when
// dir is empty, so production jobs pay nothing for it.
func DumpBMP(dir, name string, p *Plane, height int) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("debug dump: mkdir %s: %w", dir, err)
	}
	f, err := os.Create(filepath.Join(dir, name+".bmp"))
	if err != nil {
		return fmt.Errorf("debug dump: create: %w", err)
	}
	defer f.Close()
	if err := bmp.Encode(f, &planeImage{p: p, height: height}); err != nil {
		return fmt.Errorf("debug dump: encode: %w", err)
	}
	return nil
}

// WriteJobStream captures the fully assembled wire document to
// dir/jobstream.<ext> for offline inspection. A no-op when dir is empty.
func WriteJobStream(dir, ext string, data []byte) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("debug dump: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, "jobstream."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("debug dump: write jobstream: %w", err)
	}
	return nil
}
