package pclm

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/mopria/printcore/internal/raster"
)

func solidStripe(width, height int, c raster.Pixel) [][]raster.Pixel {
	rows := make([][]raster.Pixel, height)
	for y := range rows {
		row := make([]raster.Pixel, width)
		for x := range row {
			row[x] = c
		}
		rows[y] = row
	}
	return rows
}

func TestEncoderProducesParseableXref(t *testing.T) {
	e := NewEncoder(Params{DPI: 300, PageWidthPx: 32, PageHeightPx: 32, ColorSpace: ColorSpaceDeviceRGB})
	e.BeginPage(0)
	if err := e.Stripe(solidStripe(32, 16, raster.Pixel{R: 10, G: 20, B: 30})); err != nil {
		t.Fatalf("Stripe: %v", err)
	}
	if err := e.Stripe(solidStripe(32, 16, raster.Pixel{R: 10, G: 20, B: 30})); err != nil {
		t.Fatalf("Stripe: %v", err)
	}
	e.EndPage()
	doc := e.Close()

	if !bytes.HasPrefix(doc, []byte("%PDF-1.7\n%PCLm 1.0\n")) {
		t.Fatal("missing PCLm header")
	}
	if !bytes.Contains(doc, []byte("%%EOF")) {
		t.Fatal("missing EOF marker")
	}

	startxrefIdx := bytes.LastIndex(doc, []byte("startxref"))
	if startxrefIdx < 0 {
		t.Fatal("missing startxref")
	}
	rest := string(doc[startxrefIdx+len("startxref\n"):])
	line := strings.SplitN(rest, "\n", 2)[0]
	offset, err := strconv.Atoi(line)
	if err != nil {
		t.Fatalf("startxref value not an int: %q", line)
	}
	if offset <= 0 || offset >= len(doc) {
		t.Fatalf("startxref offset %d out of document bounds [0,%d)", offset, len(doc))
	}
	if !bytes.HasPrefix(doc[offset:], []byte("xref\n")) {
		t.Errorf("byte offset %d does not point at 'xref' keyword; points at %q", offset, doc[offset:offset+10])
	}
}

func TestFirstStripeNeverMarkedWhite(t *testing.T) {
	e := NewEncoder(Params{DPI: 300, PageWidthPx: 16, PageHeightPx: 16, ColorSpace: ColorSpaceDeviceRGB})
	e.BeginPage(0)
	if err := e.Stripe(solidStripe(16, 16, raster.Pixel{R: 255, G: 255, B: 255})); err != nil {
		t.Fatalf("Stripe: %v", err)
	}
	e.EndPage()
	doc := e.Close()

	firstImageIdx := bytes.Index(doc, []byte("/Subtype /Image"))
	if firstImageIdx < 0 {
		t.Fatal("no image object found")
	}
	nameIdx := bytes.Index(doc[:firstImageIdx+200], []byte("/Name /"))
	if nameIdx < 0 {
		t.Fatal("no /Name entry found on first image object")
	}
	if bytes.HasPrefix(doc[nameIdx:], []byte("/Name /WhiteStrip")) {
		t.Error("first stripe on page must never be marked /WhiteStrip")
	}
}

// TestStripeContentStreamTranslatesEachStripe checks that EndPage's
// per-stripe "cm" operator moves down the page by the preceding stripes'
// row heights rather than stacking every stripe at the same origin.
func TestStripeContentStreamTranslatesEachStripe(t *testing.T) {
	e := NewEncoder(Params{DPI: 300, PageWidthPx: 32, PageHeightPx: 32, ColorSpace: ColorSpaceDeviceRGB})
	e.BeginPage(0)
	if err := e.Stripe(solidStripe(32, 16, raster.Pixel{R: 10, G: 20, B: 30})); err != nil {
		t.Fatalf("Stripe: %v", err)
	}
	if err := e.Stripe(solidStripe(32, 16, raster.Pixel{R: 40, G: 50, B: 60})); err != nil {
		t.Fatalf("Stripe: %v", err)
	}
	e.EndPage()
	doc := e.Close()

	re := regexp.MustCompile(`q [\d.]+ 0 0 [\d.]+ 0 (-?[\d.]+) cm /Image\d+ Do Q`)
	matches := re.FindAllStringSubmatch(string(doc), -1)
	if len(matches) != 2 {
		t.Fatalf("found %d stripe cm operators in content stream, want 2", len(matches))
	}

	var ys [2]float64
	for i, m := range matches {
		y, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			t.Fatalf("cm y-translation %q not a float: %v", m[1], err)
		}
		ys[i] = y
	}

	if ys[0] == ys[1] {
		t.Errorf("both stripes painted at the same y-translation (%v); expected the second stripe "+
			"to be translated down the page by the first stripe's height instead of overlapping it", ys[0])
	}
	// page is 32px tall at 300dpi (7.68pt); each 16-row stripe is 3.84pt tall.
	// the last stripe emitted must sit flush with the page's bottom edge (y=0).
	if ys[1] < -0.01 || ys[1] > 0.01 {
		t.Errorf("final stripe y-translation = %v, want ~0 (flush with page bottom)", ys[1])
	}
}

func TestMirrorRows(t *testing.T) {
	rows := [][]raster.Pixel{
		{{R: 1}, {R: 2}, {R: 3}},
		{{R: 4}, {R: 5}, {R: 6}},
	}
	got := mirrorRows(rows)
	want := [][]raster.Pixel{
		{{R: 6}, {R: 5}, {R: 4}},
		{{R: 3}, {R: 2}, {R: 1}},
	}
	for y := range want {
		for x := range want[y] {
			if got[y][x] != want[y][x] {
				t.Errorf("mirrorRows()[%d][%d] = %v, want %v", y, x, got[y][x], want[y][x])
			}
		}
	}
}
