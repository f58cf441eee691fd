package raster

import "testing"

func TestNewConfigSelectsMode(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, outW, outH int
		want                   Mode
	}{
		{"both up", 100, 100, 200, 200, ModeUp},
		{"both down", 200, 200, 100, 100, ModeDown},
		{"x up y down", 100, 200, 200, 100, ModeMixedXUp},
		{"x down y up", 200, 100, 100, 200, ModeMixedYUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig(tt.srcW, tt.srcH, tt.outW, tt.outH)
			if c.Mode != tt.want {
				t.Errorf("Mode = %v, want %v", c.Mode, tt.want)
			}
		})
	}
}

func TestScaleUpDownRoundTrip(t *testing.T) {
	const srcW, srcH = 8, 8
	src := &Plane{Width: srcW, Stride: srcW, Pix: make([]Pixel, srcW*srcH)}
	for y := 0; y < srcH; y++ {
		for x := 0; x < srcW; x++ {
			v := uint8((x + y) * 10)
			src.Pix[y*srcW+x] = Pixel{R: v, G: v, B: v}
		}
	}

	up := NewConfig(srcW, srcH, srcW*4, srcH*4)
	upOut := &Plane{Width: up.OutWidth, Stride: up.OutWidth, Pix: make([]Pixel, up.OutWidth*up.OutHeight)}
	plan := up.PlanRows(0, up.OutHeight)
	up.ScaleStripe(src, plan, 0, upOut, nil)

	down := NewConfig(up.OutWidth, up.OutHeight, srcW, srcH)
	downOut := &Plane{Width: srcW, Stride: srcW, Pix: make([]Pixel, srcW*srcH)}
	downPlan := down.PlanRows(0, srcH)
	downScratch := newScratch(down, downPlan)
	down.ScaleStripe(upOut, downPlan, 0, downOut, downScratch)

	mismatches := 0
	for i := range src.Pix {
		d := int(src.Pix[i].R) - int(downOut.Pix[i].R)
		if d < -1 || d > 1 {
			mismatches++
		}
	}
	if mismatches > len(src.Pix)/100+1 {
		t.Errorf("round-trip mismatches = %d, want <= ~1%% of %d pixels", mismatches, len(src.Pix))
	}
}

// newScratch allocates the scratch buffer ScaleStripe needs for a given
// plan, mirroring Pipeline.Run's sizing.
func newScratch(c *Config, plan RowPlan) *Plane {
	if plan.TempBufferRows == 0 {
		return nil
	}
	w := c.SrcWidth
	if c.OutWidth > w {
		w = c.OutWidth
	}
	return &Plane{Width: w, Stride: w, Pix: make([]Pixel, plan.TempBufferRows*w)}
}

// TestScaleDownAveragesHighFrequencyContent downscales a fine
// checkerboard (alternating 0/255 columns and rows) by a large factor.
// Point-sampling two taps would alias onto whichever phase of the
// checkerboard a given output pixel happens to land on, producing a mix
// of near-0 and near-255 outputs; true area averaging should pull every
// output pixel close to the checkerboard's mean (~127).
func TestScaleDownAveragesHighFrequencyContent(t *testing.T) {
	const srcW, srcH = 64, 64
	src := &Plane{Width: srcW, Stride: srcW, Pix: make([]Pixel, srcW*srcH)}
	for y := 0; y < srcH; y++ {
		for x := 0; x < srcW; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			src.Pix[y*srcW+x] = Pixel{R: v, G: v, B: v}
		}
	}

	const outW, outH = 8, 8
	c := NewConfig(srcW, srcH, outW, outH)
	if c.Mode != ModeDown {
		t.Fatalf("Mode = %v, want ModeDown", c.Mode)
	}
	out := &Plane{Width: outW, Stride: outW, Pix: make([]Pixel, outW*outH)}
	plan := c.PlanRows(0, outH)
	scratch := newScratch(c, plan)
	c.ScaleStripe(src, plan, 0, out, scratch)

	for i, px := range out.Pix {
		if px.R < 100 || px.R > 155 {
			t.Errorf("pixel %d = %d, want near the checkerboard mean (~127); "+
				"point-sampling instead of area averaging would alias toward 0 or 255", i, px.R)
		}
	}
}

func TestAlignDown(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {15, 0}, {16, 16}, {17, 16}, {31, 16}, {32, 32},
	}
	for _, tt := range tests {
		if got := alignDown(tt.in); got != tt.want {
			t.Errorf("alignDown(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWeight256Bounds(t *testing.T) {
	f := toFixed(3) + fixed(1<<(fractBits-1)) // 3.5 in fixed point
	if w := f.weight256(); w < 120 || w > 136 {
		t.Errorf("weight256() for 3.5 = %d, want near 128", w)
	}
}
