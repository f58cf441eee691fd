// Package pclm emits the PDF-Raster ("PCLm") subset described in
//, grounded in genPCLm.cpp's object numbering, xref
// byte-offset bookkeeping, and white-strip/back-side-mirror rules.
package pclm

import (
	"bytes"
	"fmt"

	"github.com/mopria/printcore/internal/raster"
)

// ColorSpace selects the PDF image object's /ColorSpace entry.
type ColorSpace int

const (
	ColorSpaceDeviceRGB ColorSpace = iota
	ColorSpaceDeviceGray
	ColorSpaceAdobeRGB
)

// Params configures one encoder instance for the lifetime of a job.
type Params struct {
	DPI            int
	PageWidthPx    int
	PageHeightPx   int
	ColorSpace     ColorSpace
	TopMarginPx    int // BeginPage rounds it up to a multiple of 16 rows
	LongEdgeDuplex bool
	MirrorBackside bool // printer lacks RotateableBack
}

const (
	catalogObjNumber = 1
	pagesObjNumber   = 2
	firstContentObj  = 3
)

// pageRecord tracks the object numbers produced for one page and whether
// its stripes are mirrored. Close writes the xref table from the recorded
// object offsets; it does not swap or reorder any objects for mirrored
// back sides.
type pageRecord struct {
	pageObjNum    int
	contentObjNum int
	imageObjNums  []int
	imageHeights  []int // row count of each stripe, parallel to imageObjNums
	mirrored      bool
}

// Encoder assembles a PCLm document incrementally: one stripe at a time,
// one page at a time, and a final xref/trailer on Close.
type Encoder struct {
	params Params
	buf    bytes.Buffer

	objOffsets []int64 // index 0 unused, object N at index N
	nextObj    int

	pages        []pageRecord
	curPage      *pageRecord
	curStripeIdx int
	firstStripe  bool
}

// NewEncoder writes the PCLm header and job-ticket comment block:
// `%PDF-1.7\n%PCLm 1.0\n` plus the print-settings comment.
func NewEncoder(p Params) *Encoder {
	e := &Encoder{params: p, nextObj: firstContentObj}
	e.objOffsets = make([]int64, firstContentObj+1)
	e.writeString("%PDF-1.7\n%PCLm 1.0\n")
	e.writeString(fmt.Sprintf("%%%%Settings: dpi=%d duplex=%v mirror=%v\n",
		p.DPI, p.LongEdgeDuplex, p.MirrorBackside))
	return e
}

func (e *Encoder) writeString(s string) { e.buf.WriteString(s) }

func (e *Encoder) recordObjOffset(objNum int) {
	for len(e.objOffsets) <= objNum {
		e.objOffsets = append(e.objOffsets, 0)
	}
	e.objOffsets[objNum] = int64(e.buf.Len())
}

// BeginPage starts a new page object and its Contents stream, injecting
// leading white stripes to cover the requested top margin.
func (e *Encoder) BeginPage(pageIndex int) {
	e.pages = append(e.pages, pageRecord{})
	e.curPage = &e.pages[len(e.pages)-1]
	e.firstStripe = true

	mirror := e.params.MirrorBackside && e.params.LongEdgeDuplex && pageIndex%2 == 1
	e.curPage.mirrored = mirror

	if e.params.TopMarginPx > 0 {
		marginRows := alignUp16(e.params.TopMarginPx)
		white := make([]raster.Pixel, e.params.PageWidthPx)
		for i := range white {
			white[i] = raster.Pixel{R: 255, G: 255, B: 255}
		}
		rows := make([][]raster.Pixel, marginRows)
		for i := range rows {
			rows[i] = white
		}
		e.emitStripeImage(rows, false) // first stripe on the page: never /WhiteStrip
		e.firstStripe = false
	}
}

func alignUp16(v int) int {
	if v%16 == 0 {
		return v
	}
	return v + (16 - v%16)
}

// isAllWhite reports whether every pixel in the stripe is pure white.
func isAllWhite(rows [][]raster.Pixel) bool {
	for _, row := range rows {
		for _, p := range row {
			if p.R != 255 || p.G != 255 || p.B != 255 {
				return false
			}
		}
	}
	return true
}

// Stripe emits one stripe's worth of pixel rows as a RunLengthDecode
// image XObject "Stripe image objects".
func (e *Encoder) Stripe(rows [][]raster.Pixel) error {
	if e.curPage.mirrored {
		rows = mirrorRows(rows)
	}
	// a stripe is only marked /WhiteStrip if it is not the first
	// stripe on the page
	whiteStrip := !e.firstStripe && isAllWhite(rows)
	e.emitStripeImage(rows, whiteStrip)
	e.firstStripe = false
	return nil
}

// mirrorRows reverses stripe row order and the pixel order of each row,
// the back-side mirror BeginPage enables for odd pages of a long-edge
// duplex job when MirrorBackside is set.
func mirrorRows(rows [][]raster.Pixel) [][]raster.Pixel {
	out := make([][]raster.Pixel, len(rows))
	for i, row := range rows {
		rev := make([]raster.Pixel, len(row))
		for x := range row {
			rev[len(row)-1-x] = row[x]
		}
		out[len(rows)-1-i] = rev
	}
	return out
}

func (e *Encoder) allocObj() int {
	n := e.nextObj
	e.nextObj++
	return n
}

func (e *Encoder) emitStripeImage(rows [][]raster.Pixel, whiteStrip bool) {
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	height := len(rows)

	raw := make([]byte, 0, width*height*3)
	for _, row := range rows {
		for _, p := range row {
			if e.params.ColorSpace == ColorSpaceDeviceGray {
				gray := uint8((int(p.R) + int(p.G) + int(p.B)) / 3)
				raw = append(raw, gray)
			} else {
				raw = append(raw, p.R, p.G, p.B)
			}
		}
	}
	packed := PackBits(raw)

	objNum := e.allocObj()
	e.curPage.imageObjNums = append(e.curPage.imageObjNums, objNum)
	e.curPage.imageHeights = append(e.curPage.imageHeights, height)
	e.recordObjOffset(objNum)

	e.writeString(fmt.Sprintf("%d 0 obj\n<<\n", objNum))
	e.writeString(fmt.Sprintf("/Width %d\n", width))
	switch e.params.ColorSpace {
	case ColorSpaceDeviceRGB:
		e.writeString("/ColorSpace /DeviceRGB\n")
	case ColorSpaceAdobeRGB:
		e.writeString("/ColorSpace /DeviceRGB\n") // ICC-based stream omitted in this subset
	default:
		e.writeString("/ColorSpace /DeviceGray\n")
	}
	e.writeString(fmt.Sprintf("/Height %d\n", height))
	e.writeString("/Filter /RunLengthDecode\n")
	e.writeString("/Subtype /Image\n")
	e.writeString(fmt.Sprintf("/Length %d\n", len(packed)))
	e.writeString("/Type /XObject\n")
	e.writeString("/BitsPerComponent 8\n")
	if whiteStrip {
		e.writeString("/Name /WhiteStrip\n")
	} else {
		e.writeString("/Name /ColorStrip\n")
	}
	e.writeString(">>\nstream\n")
	e.buf.Write(packed)
	e.writeString("\nendstream\nendobj\n")
}

// EndPage closes the current page's Contents stream and page object,
// mapping device pixels to PDF points at the job DPI.
func (e *Encoder) EndPage() {
	contentObj := e.allocObj()
	e.recordObjOffset(contentObj)
	e.curPage.contentObjNum = contentObj

	ptsPerPx := 72.0 / float64(e.params.DPI)
	w := float64(e.params.PageWidthPx) * ptsPerPx
	h := float64(e.params.PageHeightPx) * ptsPerPx

	var content bytes.Buffer
	rowOffset := 0
	for i, objNum := range e.curPage.imageObjNums {
		stripeRows := e.curPage.imageHeights[i]
		stripeH := float64(stripeRows) * ptsPerPx
		// PDF image space paints [0,1]x[0,1] scaled by the cm matrix with
		// the origin at the lower-left; stripes are produced top-down, so
		// each one is translated down from the page top by the rows
		// already emitted before it.
		y := h - float64(rowOffset)*ptsPerPx - stripeH
		fmt.Fprintf(&content, "q %f 0 0 %f 0 %f cm /Image%d Do Q\n", w, stripeH, y, objNum)
		rowOffset += stripeRows
	}
	e.writeString(fmt.Sprintf("%d 0 obj\n<<\n/Length %d\n>>\nstream\n", contentObj, content.Len()))
	e.buf.Write(content.Bytes())
	e.writeString("\nendstream\nendobj\n")

	pageObj := e.allocObj()
	e.recordObjOffset(pageObj)
	e.curPage.pageObjNum = pageObj

	e.writeString(fmt.Sprintf("%d 0 obj\n<<\n/Type /Page\n/Parent %d 0 R\n", pageObj, pagesObjNumber))
	e.writeString(fmt.Sprintf("/MediaBox [0 0 %f %f]\n", w, h))
	e.writeString(fmt.Sprintf("/Contents %d 0 R\n", contentObj))
	e.writeString("/Resources <<\n/XObject <<\n")
	for _, objNum := range e.curPage.imageObjNums {
		fmt.Fprintf(&e.buf, "/Image%d %d 0 R\n", objNum, objNum)
	}
	e.writeString(">>\n>>\n>>\nendobj\n")
}

// Close writes the Catalog, Pages tree, and a byte-accurate xref table
// plus trailer "PCLm xref byte-offset invariant", and
// returns the complete document.
func (e *Encoder) Close() []byte {
	e.recordObjOffset(catalogObjNumber)
	e.writeString(fmt.Sprintf("%d 0 obj\n<<\n/Type /Catalog\n/Pages %d 0 R\n>>\nendobj\n",
		catalogObjNumber, pagesObjNumber))

	e.recordObjOffset(pagesObjNumber)
	e.writeString(fmt.Sprintf("%d 0 obj\n<<\n/Count %d\n/Kids [ ", pagesObjNumber, len(e.pages)))
	for _, p := range e.pages {
		fmt.Fprintf(&e.buf, "%d 0 R ", p.pageObjNum)
	}
	e.writeString("]\n/Type /Pages\n>>\nendobj\n")

	xrefStart := e.buf.Len()
	total := len(e.objOffsets)
	e.writeString(fmt.Sprintf("xref\n0 %d\n", total))
	e.writeString("0000000000 65535 f \n")
	for i := 1; i < total; i++ {
		e.writeString(fmt.Sprintf("%010d %05d n \n", e.objOffsets[i], 0))
	}

	e.writeString("trailer\n<<\n")
	e.writeString(fmt.Sprintf("/Size %d\n", total))
	e.writeString(fmt.Sprintf("/Root %d 0 R\n", catalogObjNumber))
	e.writeString(">>\n")
	e.writeString(fmt.Sprintf("startxref\n%d\n", xrefStart))
	e.writeString("%%EOF\n")

	return e.buf.Bytes()
}
