package pwg

import (
	"bytes"
	"testing"

	"github.com/mopria/printcore/internal/raster"
)

func TestWritePageHeaderFixedSize(t *testing.T) {
	e := NewEncoder()
	e.WritePageHeader(Params{
		WidthPx: 2550, HeightPx: 3300,
		ResolutionX: 300, ResolutionY: 300,
		ColorSpace: ColorSpaceSRGB,
		Duplex:     true,
		FaceUp:     false,
	})
	got := e.buf.Bytes()
	if !bytes.HasPrefix(got, []byte(syncWord)) {
		t.Fatal("missing sync word")
	}
	// sync word + 4 string fields * 64 + 13 uint32s * 4 + 3 string fields * 64
	wantLen := len(syncWord) + 4*mediaClassLen + 13*4 + 3*pageSizeLen
	if len(got) != wantLen {
		t.Errorf("header length = %d, want %d", len(got), wantLen)
	}
}

func TestBlankPageDataExactMultiple(t *testing.T) {
	data := BlankPageData(256, 256, true)
	// exactly one full row-repeat, two full 128-column repeat chunks
	want := []byte{0xFF, 0x7F, 0xFF, 0x7F, 0xFF}
	if !bytes.Equal(data, want) {
		t.Errorf("BlankPageData(256,256,mono) = %v, want %v", data, want)
	}
}

func TestBlankPageDataRemainder(t *testing.T) {
	// width=130 -> one full 128-column chunk plus a 2-column remainder;
	// height=300 -> one full 256-row chunk plus a 44-row remainder.
	data := BlankPageData(130, 300, false)

	rowChunk := []byte{0x7F, 0xFF, 0xFF, 0xFF, byte((130 % 128) - 1), 0xFF, 0xFF, 0xFF}
	want := append([]byte{0xFF}, rowChunk...)
	want = append(want, byte((300%256)-1))
	want = append(want, rowChunk...)

	if !bytes.Equal(data, want) {
		t.Errorf("BlankPageData(130,300,color) = %v, want %v", data, want)
	}
}

func TestPackBitsRowsRoundTripShape(t *testing.T) {
	rows := [][]raster.Pixel{
		{{R: 1, G: 1, B: 1}, {R: 1, G: 1, B: 1}, {R: 2, G: 2, B: 2}},
		{{R: 1, G: 1, B: 1}, {R: 1, G: 1, B: 1}, {R: 2, G: 2, B: 2}},
	}
	packed := PackBitsRows(rows, false)
	// one row-repeat command (2 identical rows -> runLen-1=1), then row
	// content: run of 2 identical pixels (cmd=1,R,G,B) + run of 1 (cmd=0,R,G,B)
	want := []byte{1, 1, 1, 1, 1, 0, 2, 2, 2}
	if !bytes.Equal(packed, want) {
		t.Errorf("PackBitsRows = %v, want %v", packed, want)
	}
}

func TestPackBitsRowsMonochrome(t *testing.T) {
	rows := [][]raster.Pixel{
		{{R: 9, G: 9, B: 9}, {R: 9, G: 9, B: 9}},
	}
	packed := PackBitsRows(rows, true)
	want := []byte{0, 1, 9}
	if !bytes.Equal(packed, want) {
		t.Errorf("PackBitsRows(mono) = %v, want %v", packed, want)
	}
}
