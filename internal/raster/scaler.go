// Package raster implements the raster pipeline and its fixed-point
// bilinear Scaler. Grounded in the fixed-point factor math of
// wprint_scaler.c (PSCALER_FRACT_BITS_COUNT 24), rewritten as a single
// parameterized blend path instead of per-mode duplicated loops.
package raster

// fractBits is the number of fractional bits carried in every fixed-point
// position/factor accumulator, matching wprint_scaler.c's
// PSCALER_FRACT_BITS_COUNT.
const fractBits = 24

// fixed is a 24-bit fixed-point accumulator: bits [24:] are the integer
// part, bits [0:24) the fraction.
type fixed int64

func toFixed(n int) fixed { return fixed(n) << fractBits }

func (f fixed) intPart() int { return int(f >> fractBits) }

// weight256 returns the blend weight in [0,256) derived from the top 8
// bits of the fraction, mirroring "curr_weight = 256 - ((position>>24)&0xff)"
// style arithmetic from the original (there expressed against a 32-bit
// accumulator with the same 24 fraction bits).
func (f fixed) weight256() int {
	frac := int64(f) & (1<<fractBits - 1)
	return int(frac >> (fractBits - 8))
}

// Mode is the scaling strategy chosen for one axis pairing.
type Mode int

const (
	ModeUp Mode = iota + 1
	ModeDown
	ModeMixedXUp
	ModeMixedYUp
)

// Config is a scaler context built once per job for a fixed input/output
// size pairing, mirroring scaler_config_t / scaler_make_image_scaler_tables.
type Config struct {
	SrcWidth, SrcHeight int
	OutWidth, OutHeight int

	xFactor, xFactorInv fixed
	yFactor, yFactorInv fixed

	Mode Mode
}

// NewConfig computes the per-axis fixed-point factors and selects a Mode,
// "UP (bilinear) / DOWN (area-weighted box) /
// MIXED_{X,Y}UP (two-pass)" rule: an axis is "up" when output size exceeds
// source size.
func NewConfig(srcW, srcH, outW, outH int) *Config {
	c := &Config{SrcWidth: srcW, SrcHeight: srcH, OutWidth: outW, OutHeight: outH}
	c.xFactor = fixed(int64(srcW)<<fractBits) / fixed(outW)
	c.xFactorInv = fixed(int64(outW)<<fractBits) / fixed(srcW)
	c.yFactor = fixed(int64(srcH)<<fractBits) / fixed(outH)
	c.yFactorInv = fixed(int64(outH)<<fractBits) / fixed(srcH)

	xUp := outW > srcW
	yUp := outH > srcH
	switch {
	case xUp && yUp:
		c.Mode = ModeUp
	case !xUp && !yUp:
		c.Mode = ModeDown
	case xUp && !yUp:
		c.Mode = ModeMixedXUp
	default:
		c.Mode = ModeMixedYUp
	}
	return c
}

// RowPlan is the result of a pre-query for one output-row window: the
// span of input rows needed, and the size of the temp buffer required
// for mixed-axis or down-axis scaling.
type RowPlan struct {
	SrcStartRow, SrcEndRow int // inclusive input row span needed
	OutRowsGenerated        int
	TempBufferRows          int // scratch rows needed, each max(SrcWidth, OutWidth) wide; 0 for ModeUp
}

// PlanRows performs the pre-query for an output-row window
// [outStart,outEnd), mirroring scaler_calculate_scaling_rows.
func (c *Config) PlanRows(outStart, outEnd int) RowPlan {
	startPos := fixed(outStart) * c.yFactor
	endPos := fixed(outEnd) * c.yFactor

	plan := RowPlan{
		SrcStartRow:      startPos.intPart(),
		SrcEndRow:        endPos.intPart(),
		OutRowsGenerated: outEnd - outStart,
	}
	if plan.SrcEndRow >= c.SrcHeight {
		plan.SrcEndRow = c.SrcHeight - 1
	}
	if c.Mode == ModeMixedXUp || c.Mode == ModeDown {
		plan.TempBufferRows = plan.SrcEndRow - plan.SrcStartRow + 2
	}
	if c.Mode == ModeMixedYUp {
		plan.TempBufferRows = plan.OutRowsGenerated
	}
	return plan
}

// Pixel is one RGB888 sample.
type Pixel struct{ R, G, B uint8 }

// Plane is a row-major RGB888 buffer with an explicit stride, matching
// the source/output buffer width split the original carries
// (iSrcBufWidth vs iSrcWidth) to allow a stripe to be a sub-window of a
// wider decode buffer.
type Plane struct {
	Pix    []Pixel
	Width  int
	Stride int
}

func (p *Plane) at(x, y int) Pixel {
	if x < 0 {
		x = 0
	}
	if x >= p.Width {
		x = p.Width - 1
	}
	return p.Pix[y*p.Stride+x]
}

func (p *Plane) rows() int { return len(p.Pix) / p.Stride }

func clampIdx(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// areaWeights computes the inclusive source-index span [lo,hi] and the
// 256-scaled weight each index contributes to the output sample at
// index i under a box footprint of width factor (source/output ratio,
// fixed-point) — the area-weighted generalization of
// wprint_scaler.c's top_weight/curr_weight/bot_weight/weight_reciprocal
// accumulation, sized to however many taps the ratio actually spans
// instead of the original's per-ratio 2in..9in specializations.
func areaWeights(i int, factor fixed) (lo, hi int, weights []int, total int) {
	start := fixed(i) * factor
	end := fixed(i+1) * factor
	lo = start.intPart()
	hi = end.intPart()
	endFrac := end.weight256()
	if endFrac == 0 && hi > lo {
		hi--
	}
	if hi <= lo {
		return lo, lo, []int{256}, 256
	}
	n := hi - lo + 1
	weights = make([]int, n)
	weights[0] = 256 - start.weight256()
	for k := 1; k < n-1; k++ {
		weights[k] = 256
	}
	if endFrac == 0 {
		weights[n-1] = 256
	} else {
		weights[n-1] = endFrac
	}
	total = 0
	for _, w := range weights {
		total += w
	}
	return lo, hi, weights, total
}

// ScaleStripe writes one window of output rows into out, reading the
// input rows named by plan from src (whose row 0 corresponds to
// plan.SrcStartRow). scratch is supplied by the caller, sized by a
// prior PlanRows call, and never retained across calls.
func (c *Config) ScaleStripe(src *Plane, plan RowPlan, outStartRow int, out *Plane, scratch *Plane) {
	switch c.Mode {
	case ModeMixedXUp:
		// pass 1: scale X up into scratch at source resolution rows
		for sy := 0; sy < plan.SrcEndRow-plan.SrcStartRow+1; sy++ {
			c.scaleRowX(src, sy, c.OutWidth, scratch, sy)
		}
		// pass 2: area-average Y down from scratch into out
		c.scaleColumnYArea(scratch, plan, outStartRow, out)
	case ModeMixedYUp:
		// pass 1: scale Y up into scratch at source width
		c.scaleColumnYToScratch(src, plan, outStartRow, scratch)
		// pass 2: area-average X down from scratch into out
		for row := 0; row < plan.OutRowsGenerated; row++ {
			c.scaleRowXArea(scratch, row, c.OutWidth, out, row)
		}
	case ModeDown:
		// pass 1: area-average X down into scratch at source resolution rows
		maxSrcRow := c.SrcHeight - 1
		for sy := 0; sy < plan.TempBufferRows; sy++ {
			srcRow := clampIdx(plan.SrcStartRow+sy, maxSrcRow)
			c.scaleRowXArea(src, srcRow, c.OutWidth, scratch, sy)
		}
		// pass 2: area-average Y down from scratch into out
		c.scaleColumnYArea(scratch, plan, outStartRow, out)
	default: // ModeUp: bilinear blend in both axes, driven by the up factor
		maxSrcRow := src.rows() - 1
		for row := 0; row < plan.OutRowsGenerated; row++ {
			srcRowF := fixed(outStartRow+row) * c.yFactor
			sy := srcRowF.intPart() - plan.SrcStartRow
			c.scaleRowX(src, sy, c.OutWidth, out, row)
			if wy := srcRowF.weight256(); wy > 0 && sy < maxSrcRow {
				for ox := 0; ox < c.OutWidth; ox++ {
					posX := fixed(ox) * c.xFactor
					below := blend(src.at(posX.intPart(), sy+1), src.at(posX.intPart()+1, sy+1), posX.weight256())
					out.Pix[row*out.Stride+ox] = blend(out.Pix[row*out.Stride+ox], below, wy)
				}
			}
		}
	}
}

// scaleRowX produces outWidth pixels of one output row by blending along
// X from one input row, per the bilinear/box weighting in
// wprint_scaler.c's per-row loops ("curr_weight = 256 - ((position_x>>24)&0xff)").
func (c *Config) scaleRowX(src *Plane, srcRow int, outWidth int, out *Plane, outRow int) {
	for ox := 0; ox < outWidth; ox++ {
		posX := fixed(ox) * c.xFactor
		ix := posX.intPart()
		w := posX.weight256()

		left := src.at(ix, srcRow)
		right := src.at(ix+1, srcRow)
		out.Pix[outRow*out.Stride+ox] = blend(left, right, w)
	}
}

// scaleRowXArea produces outWidth pixels of one output row by area-
// averaging the span of input columns each output pixel covers, the
// box-filter counterpart to scaleRowX for a downscaled X axis.
func (c *Config) scaleRowXArea(src *Plane, srcRow int, outWidth int, out *Plane, outRow int) {
	maxCol := src.Width - 1
	for ox := 0; ox < outWidth; ox++ {
		lo, hi, weights, total := areaWeights(ox, c.xFactor)
		var accR, accG, accB int64
		for k := lo; k <= hi; k++ {
			px := src.at(clampIdx(k, maxCol), srcRow)
			w := int64(weights[k-lo])
			accR += int64(px.R) * w
			accG += int64(px.G) * w
			accB += int64(px.B) * w
		}
		out.Pix[outRow*out.Stride+ox] = Pixel{
			R: uint8(accR / int64(total)),
			G: uint8(accG / int64(total)),
			B: uint8(accB / int64(total)),
		}
	}
}

// scaleColumnYArea area-averages vertically from a scratch buffer
// already reduced along X, producing the final output rows for a
// DOWN/MIXED_XUP pass whose Y axis is being downscaled.
func (c *Config) scaleColumnYArea(scratch *Plane, plan RowPlan, outStartRow int, out *Plane) {
	maxRow := scratch.rows() - 1
	for row := 0; row < plan.OutRowsGenerated; row++ {
		lo, hi, weights, total := areaWeights(outStartRow+row, c.yFactor)
		lo -= plan.SrcStartRow
		hi -= plan.SrcStartRow
		for x := 0; x < out.Width; x++ {
			var accR, accG, accB int64
			for k := lo; k <= hi; k++ {
				px := scratch.at(x, clampIdx(k, maxRow))
				w := int64(weights[k-lo])
				accR += int64(px.R) * w
				accG += int64(px.G) * w
				accB += int64(px.B) * w
			}
			out.Pix[row*out.Stride+x] = Pixel{
				R: uint8(accR / int64(total)),
				G: uint8(accG / int64(total)),
				B: uint8(accB / int64(total)),
			}
		}
	}
}

// scaleColumnYToScratch scales the Y axis up into scratch at the source
// image's native width, the first pass of MIXED_YUP.
func (c *Config) scaleColumnYToScratch(src *Plane, plan RowPlan, outStartRow int, scratch *Plane) {
	maxSrcRow := src.rows() - 1
	for row := 0; row < plan.OutRowsGenerated; row++ {
		posY := fixed(outStartRow+row) * c.yFactor
		sy := posY.intPart() - plan.SrcStartRow
		w := posY.weight256()
		for x := 0; x < src.Width; x++ {
			top := src.at(x, sy)
			bot := src.at(x, clampIdx(sy+1, maxSrcRow))
			scratch.Pix[row*scratch.Stride+x] = blend(top, bot, w)
		}
	}
}

func blend(a, b Pixel, weight256 int) Pixel {
	inv := 256 - weight256
	return Pixel{
		R: uint8((int(a.R)*inv + int(b.R)*weight256) / 256),
		G: uint8((int(a.G)*inv + int(b.G)*weight256) / 256),
		B: uint8((int(a.B)*inv + int(b.B)*weight256) / 256),
	}
}
