// Package pwg emits the CUPS PWG-Raster container described in
//, grounded in lib_pwg.c's fixed page header layout and
// blank-page PackBits generator.
package pwg

import (
	"bytes"
	"encoding/binary"

	"github.com/mopria/printcore/internal/raster"
)

// syncWord is the PWG-Raster file magic, written once per document.
const syncWord = "RaS2"

const (
	mediaClassLen = 64
	mediaColorLen = 64
	mediaTypeLen  = 64
	outputTypeLen = 64
	markerLen     = 64
	intentLen     = 64
	pageSizeLen   = 64
)

// ColorSpace selects cupsColorSpace: sW (monochrome) or sRGB.
type ColorSpace int

const (
	ColorSpaceSRGB ColorSpace = iota
	ColorSpaceSW
)

// Params configures one page header field list.
type Params struct {
	WidthPx, HeightPx int
	ResolutionX       int
	ResolutionY       int
	ColorSpace        ColorSpace
	Duplex            bool
	FaceUp            bool
}

func (p Params) bitsPerPixel() int {
	if p.ColorSpace == ColorSpaceSW {
		return 8
	}
	return 24
}

func (p Params) bytesPerLine() int {
	return (p.bitsPerPixel()*p.WidthPx + 7) / 8
}

// Encoder writes a PWG-Raster document: a sync word once, then a fixed
// page header plus PackBits row data per page.
type Encoder struct {
	buf       bytes.Buffer
	wroteSync bool
}

// NewEncoder creates an empty PWG-Raster encoder.
func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) writeSyncOnce() {
	if !e.wroteSync {
		e.buf.WriteString(syncWord)
		e.wroteSync = true
	}
}

func putFixedString(buf *bytes.Buffer, s string, fieldLen int) {
	b := make([]byte, fieldLen)
	copy(b, s)
	buf.Write(b)
}

// WritePageHeader emits the fixed-size PWG page header: media class
// PwgRaster, HW resolution {x,y}, cupsWidth/Height, cupsBitsPerColor=8,
// cupsBitsPerPixel in {8,24}, cupsColorSpace in {sW,sRGB},
// cupsBytesPerLine, duplex and face-up flags.
func (e *Encoder) WritePageHeader(p Params) {
	e.writeSyncOnce()

	var h bytes.Buffer
	putFixedString(&h, "PwgRaster", mediaClassLen)
	putFixedString(&h, "", mediaColorLen)
	putFixedString(&h, "", mediaTypeLen)
	putFixedString(&h, "", outputTypeLen)

	binary.Write(&h, binary.BigEndian, uint32(0)) // AdvanceDistance
	binary.Write(&h, binary.BigEndian, uint32(0)) // AdvanceMedia = CUPS_ADVANCE_FILE
	binary.Write(&h, binary.BigEndian, uint32(0)) // Collate = false

	duplexU32 := uint32(0)
	if p.Duplex {
		duplexU32 = 1
	}
	binary.Write(&h, binary.BigEndian, duplexU32)

	faceUpU32 := uint32(0)
	if p.FaceUp {
		faceUpU32 = 1
	}
	binary.Write(&h, binary.BigEndian, faceUpU32)

	binary.Write(&h, binary.BigEndian, uint32(p.ResolutionX))
	binary.Write(&h, binary.BigEndian, uint32(p.ResolutionY))

	binary.Write(&h, binary.BigEndian, uint32(p.WidthPx))
	binary.Write(&h, binary.BigEndian, uint32(p.HeightPx))
	binary.Write(&h, binary.BigEndian, uint32(p.bitsPerPixel()))
	binary.Write(&h, binary.BigEndian, uint32(8)) // cupsBitsPerColor
	binary.Write(&h, binary.BigEndian, uint32(colorSpaceCode(p.ColorSpace)))
	binary.Write(&h, binary.BigEndian, uint32(p.bytesPerLine()))

	putFixedString(&h, "Marker Type", markerLen)
	putFixedString(&h, "Rendering Intent", intentLen)
	putFixedString(&h, "Letter", pageSizeLen)

	e.buf.Write(h.Bytes())
}

// Bytes returns the document assembled so far.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func colorSpaceCode(c ColorSpace) int {
	if c == ColorSpaceSW {
		return 18 // CUPS_CSPACE_SW
	}
	return 19 // CUPS_CSPACE_SRGB
}

// WriteRows PackBits-encodes and appends the given RGB888 (or grayscale,
// per ColorSpace) pixel rows using PWG-Raster's row+column run scheme.
func (e *Encoder) WriteRows(rows [][]raster.Pixel, cs ColorSpace) {
	e.buf.Write(PackBitsRows(rows, cs == ColorSpaceSW))
}

// WriteBlankPage synthesizes an all-white page using the run-length
// caps from: 256-row and 128-column run caps, grounded in
// lib_pwg.c's _generate_blank_data.
func (e *Encoder) WriteBlankPage(p Params) {
	e.WritePageHeader(p)
	e.buf.Write(BlankPageData(p.WidthPx, p.HeightPx, p.ColorSpace == ColorSpaceSW))
}
