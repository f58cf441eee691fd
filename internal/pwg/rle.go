package pwg

import "github.com/mopria/printcore/internal/raster"

// PackBitsRows encodes pixel rows using the same row/column run-length
// scheme as BlankPageData, generalized to arbitrary pixel content: runs
// of up to 256 identical consecutive rows are folded into a single
// row-repeat command, and within a row, runs of up to 128 identical
// pixels are folded into a single column-repeat command.
func PackBitsRows(rows [][]raster.Pixel, monochrome bool) []byte {
	var buf []byte
	y := 0
	for y < len(rows) {
		runLen := 1
		for y+runLen < len(rows) && runLen < 256 && rowsEqual(rows[y], rows[y+runLen]) {
			runLen++
		}
		buf = append(buf, byte(runLen-1))
		buf = append(buf, packBitsRow(rows[y], monochrome)...)
		y += runLen
	}
	return buf
}

func rowsEqual(a, b []raster.Pixel) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func packBitsRow(row []raster.Pixel, monochrome bool) []byte {
	var out []byte
	x := 0
	for x < len(row) {
		runLen := 1
		for x+runLen < len(row) && runLen < 128 && row[x+runLen] == row[x] {
			runLen++
		}
		out = append(out, byte(runLen-1))
		out = appendPixel(out, row[x], monochrome)
		x += runLen
	}
	return out
}

func appendPixel(out []byte, p raster.Pixel, monochrome bool) []byte {
	if monochrome {
		gray := uint8((int(p.R) + int(p.G) + int(p.B)) / 3)
		return append(out, gray)
	}
	return append(out, p.R, p.G, p.B)
}
