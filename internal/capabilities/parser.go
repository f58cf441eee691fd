package capabilities

import (
	"strconv"
	"strings"

	goipp "github.com/phin1x/go-ipp"
)

// requestedAttributes is the set of Get-Printer-Attributes keywords this
// parser understands, mirroring the original pattrs[] table in
// ippstatus_capabilities.c.
var requestedAttributes = []string{
	"ipp-versions-supported",
	"printer-make-and-model",
	"printer-info",
	"printer-dns-sd-name",
	"printer-name",
	"printer-location",
	"printer-uuid",
	"printer-uri-supported",
	"uri-security-supported",
	"uri-authentication-supported",
	"color-supported",
	"copies-supported",
	"document-format-supported",
	"media-col-default",
	"media-default",
	"media-left-margin-supported",
	"media-right-margin-supported",
	"media-top-margin-supported",
	"media-bottom-margin-supported",
	"media-size-supported",
	"media-supported",
	"media-type-supported",
	"output-bin-supported",
	"print-color-mode-supported",
	"printer-resolution-supported",
	"sides-supported",
	"printer-device-id",
	"epcl-version-supported",
	"pclm-raster-back-side",
	"pclm-strip-height-preferred",
	"pclm-compression-method-preferred",
	"pclm-source-resolution-supported",
	"document-format-details-supported",
}

// RequestedAttributes returns the requested-attributes list for the
// Get-Printer-Attributes call this parser expects to consume.
func RequestedAttributes() []string {
	out := make([]string, len(requestedAttributes))
	copy(out, requestedAttributes)
	return out
}

// attrGroup is the flattened view of a single IPP attribute group: name to
// list of raw values, a simple string-keyed lookup over a typed
// attribute tree.
type attrGroup map[string][]goipp.Attribute

func flatten(resp *goipp.Response) attrGroup {
	g := attrGroup{}
	for _, group := range resp.PrinterAttributes {
		for name, attrs := range group {
			g[name] = append(g[name], attrs...)
		}
	}
	return g
}

func (g attrGroup) strings(name string) []string {
	var out []string
	for _, a := range g[name] {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (g attrGroup) first(name string) (string, bool) {
	ss := g.strings(name)
	if len(ss) == 0 {
		return "", false
	}
	return ss[0], true
}

func (g attrGroup) bool(name string) bool {
	for _, a := range g[name] {
		if b, ok := a.Value.(bool); ok {
			return b
		}
	}
	return false
}

// asInt widens any of the integer tag widths go-ipp may decode an
// attribute value into.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}

// Parse builds a Capabilities value from a Get-Printer-Attributes response,
// httpResource is the URI path portion extracted from the
// connection the response came from (printer-uri-supported drives only the
// uri-security/uri-authentication selection, not the resource path itself).
func Parse(resp *goipp.Response, httpResource string) Capabilities {
	g := flatten(resp)
	caps := Capabilities{HTTPResource: httpResource}

	caps.Make, _ = g.first("printer-make-and-model")
	caps.Name = firstNonEmpty(firstOf(g, "printer-dns-sd-name"), firstOf(g, "printer-name"))
	caps.UUID, _ = g.first("printer-uuid")
	caps.Location, _ = g.first("printer-location")

	parseURISelection(g, &caps)
	parseIPPVersion(g, &caps)

	caps.Color = g.bool("color-supported")
	caps.CopiesSupported = hasCopiesAbove1(g)
	caps.CanCopy = caps.CopiesSupported

	formats := g.strings("document-format-supported")
	for _, f := range formats {
		switch strings.ToLower(f) {
		case "application/pdf":
			caps.SupportsPDF = true
		case "application/pclm":
			caps.SupportsPCLm = true
		case "image/pwg-raster":
			caps.SupportsPWG = true
		}
	}

	caps.Duplex = parseDuplex(g.strings("sides-supported"))
	caps.RotateableBack = parseBackSideRotate(g)

	parseMediaSizes(g, &caps)
	caps.MediaSizeNameOK = len(caps.MediaSizes) > 0
	parseMediaTypes(g, &caps)
	parseResolutions(g, &caps)
	parseMargins(g, &caps)
	parseOutputBins(g, &caps)

	caps.EPCLVersion, _ = g.first("epcl-version-supported")
	parseStripHeight(g, &caps)

	if _, ok := g.first("document-format-details-supported"); ok {
		caps.DocSource = DocSource{
			AppName:    globalAppName,
			AppVersion: globalAppVersion,
			OSName:     globalOSName,
			OSVersion:  globalOSVersion,
		}
	}

	return caps
}

// Process-wide doc-source identity, set via SetSourceInfo (mirrors
// internal/ipp.SetSourceInfo's pattern for a single immutable source set
// at startup).
var (
	globalAppName    string
	globalAppVersion string
	globalOSName     string
	globalOSVersion  string
)

// SetSourceInfo records the identity advertised in document-format-details
// when a printer supports that collection.
func SetSourceInfo(appName, appVersion, osName, osVersion string) {
	globalAppName, globalAppVersion, globalOSName, globalOSVersion = appName, appVersion, osName, osVersion
}

func firstOf(g attrGroup, name string) string {
	s, _ := g.first(name)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func hasCopiesAbove1(g attrGroup) bool {
	for _, a := range g["copies-supported"] {
		if n, ok := asInt(a.Value); ok && n > 1 {
			return true
		}
	}
	return false
}

// parseURISelection picks one printer-uri-supported entry, preferring an
// "ipps://" URI and then one whose uri-security-supported value at the
// same index is "tls"; on equal score the earliest entry wins.
// uri-authentication-supported is not read, and no entry is excluded.
func parseURISelection(g attrGroup, caps *Capabilities) {
	uris := g.strings("printer-uri-supported")
	securities := g.strings("uri-security-supported")
	if len(uris) == 0 {
		return
	}
	best := 0
	bestScore := -1
	for i, uri := range uris {
		score := 0
		if strings.HasPrefix(uri, "ipps://") {
			score += 2
		}
		if i < len(securities) && strings.EqualFold(securities[i], "tls") {
			score += 1
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	caps.URI = uris[best]
}

// parseIPPVersion picks the highest tier reported in ipp-versions-supported,
// negotiation order (2.0, then 1.1, then 1.0).
func parseIPPVersion(g attrGroup, caps *Capabilities) {
	versions := g.strings("ipp-versions-supported")
	caps.IPPVersionMajor, caps.IPPVersionMinor = 1, 1
	for _, v := range versions {
		switch v {
		case "2.0":
			caps.IPPVersionMajor, caps.IPPVersionMinor = 2, 0
			return
		}
	}
	for _, v := range versions {
		if v == "1.1" {
			caps.IPPVersionMajor, caps.IPPVersionMinor = 1, 1
			return
		}
	}
	for _, v := range versions {
		if v == "1.0" {
			caps.IPPVersionMajor, caps.IPPVersionMinor = 1, 0
			return
		}
	}
}

// parseDuplex checks the sides-supported keyword set for duplex support
// (two-sided-long-edge / two-sided-short-edge).
func parseDuplex(values []string) bool {
	for _, v := range values {
		v = strings.ToLower(v)
		if strings.Contains(v, "two-sided") {
			return true
		}
	}
	return false
}

func parseBackSideRotate(g attrGroup) bool {
	v, _ := g.first("pclm-raster-back-side")
	return strings.EqualFold(v, "rotated")
}

// parseMediaSizes matches media-supported keywords against the canonical
// table, then additively expands custom_min_*/custom_max_* ranges unless
// the reporting make is on the opt-out list
func parseMediaSizes(g attrGroup, caps *Capabilities) {
	seen := map[string]bool{}
	for _, kw := range g.strings("media-supported") {
		if strings.HasPrefix(kw, "custom_min_") || strings.HasPrefix(kw, "custom_max_") {
			continue
		}
		if size, ok := sizeByKeyword(kw); ok && !seen[size.Name] {
			seen[size.Name] = true
			caps.MediaSizes = append(caps.MediaSizes, size)
		}
		if len(caps.MediaSizes) >= maxMediaSizes {
			break
		}
	}

	if isOptedOutMake(caps.Make) {
		return
	}

	minW, minH, maxW, maxH, ok := customRange(g.strings("media-supported"))
	if !ok {
		return
	}
	for _, size := range canonicalSizes {
		if seen[size.Name] {
			continue
		}
		w, h := size.WidthMils, size.HeightMils
		if w == 0 {
			w = int(size.WidthMM / 25.4 * 1000)
		}
		if h == 0 {
			h = int(size.HeightMM / 25.4 * 1000)
		}
		if w >= minW && w <= maxW && h >= minH && h <= maxH {
			seen[size.Name] = true
			caps.MediaSizes = append(caps.MediaSizes, size)
			if len(caps.MediaSizes) >= maxMediaSizes {
				return
			}
		}
	}
}

// customRange parses custom_min_*in/custom_max_*in keywords into a
// [min,max] rectangle in mils. Returns ok=false if no usable range is
// present.
func customRange(keywords []string) (minW, minH, maxW, maxH int, ok bool) {
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		switch {
		case strings.HasPrefix(lower, "custom_min_"):
			w, h := parseDimensionPair(lower[len("custom_min_"):])
			minW, minH = w, h
			ok = true
		case strings.HasPrefix(lower, "custom_max_"):
			w, h := parseDimensionPair(lower[len("custom_max_"):])
			maxW, maxH = w, h
			ok = true
		}
	}
	return
}

// parseDimensionPair parses a "8.50x14.00in" or "210x297mm" suffix into
// mils (1/1000 inch).
func parseDimensionPair(s string) (int, int) {
	unit := "in"
	if strings.HasSuffix(s, "mm") {
		unit = "mm"
		s = strings.TrimSuffix(s, "mm")
	} else {
		s = strings.TrimSuffix(s, "in")
	}
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	w, _ := strconv.ParseFloat(parts[0], 64)
	h, _ := strconv.ParseFloat(parts[1], 64)
	if unit == "mm" {
		w = w / 25.4 * 1000
		h = h / 25.4 * 1000
	} else {
		w *= 1000
		h *= 1000
	}
	return int(w), int(h)
}

func parseMediaTypes(g attrGroup, caps *Capabilities) {
	seen := map[MediaType]bool{}
	for _, kw := range g.strings("media-type-supported") {
		t := bucketMediaType(kw)
		if !seen[t] {
			seen[t] = true
			caps.MediaTypes = append(caps.MediaTypes, t)
		}
		if len(caps.MediaTypes) >= maxMediaTypes {
			break
		}
	}
}

// parseResolutions keeps only square (x == y) resolutions; asymmetric
// resolutions are dropped.
func parseResolutions(g attrGroup, caps *Capabilities) {
	for _, a := range g["printer-resolution-supported"] {
		x, y, ok := asResolution(a.Value)
		if !ok || x != y {
			continue
		}
		caps.Resolutions = append(caps.Resolutions, Resolution{DPI: x})
		if len(caps.Resolutions) >= maxResolutions {
			break
		}
	}
}

func asResolution(v interface{}) (x, y int, ok bool) {
	switch r := v.(type) {
	case goipp.Resolution:
		return r.Width, r.Height, true
	default:
		return 0, 0, false
	}
}

// parseMargins computes the margin floor as the minimum supported margin on
// each edge, and derives Borderless when all four lists contain zero.
func parseMargins(g attrGroup, caps *Capabilities) {
	left := minInts(g["media-left-margin-supported"])
	right := minInts(g["media-right-margin-supported"])
	top := minInts(g["media-top-margin-supported"])
	bottom := minInts(g["media-bottom-margin-supported"])

	caps.MarginFloor = Margins{
		LeftMM100:   mils100ToMM100(left),
		RightMM100:  mils100ToMM100(right),
		TopMM100:    mils100ToMM100(top),
		BottomMM100: mils100ToMM100(bottom),
	}
	caps.Borderless = left == 0 && right == 0 && top == 0 && bottom == 0
}

func minInts(attrs []goipp.Attribute) int {
	min := -1
	for _, a := range attrs {
		if n, ok := asInt(a.Value); ok {
			if min == -1 || n < min {
				min = n
			}
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// mils100ToMM100 converts hundredths-of-a-mm IPP margin units (already
// IPP-native) straight through; kept as a named conversion point in case a
// future printer reports in a different unit.
func mils100ToMM100(v int) int { return v }

// parseOutputBins records the advertised output-bin-supported values and
// defaults FaceDownTray to true, per spec's "face-down by default"
// convention: a printer that advertises no bin hints at all, or only
// face-down ones, gets the default; only an advertised "face-up" value
// flips it off.
func parseOutputBins(g attrGroup, caps *Capabilities) {
	caps.FaceDownTray = true
	for _, bin := range g.strings("output-bin-supported") {
		caps.Trays = append(caps.Trays, bin)
		if strings.Contains(strings.ToLower(bin), "face-up") {
			caps.FaceDownTray = false
		}
		if len(caps.Trays) >= maxTrays {
			break
		}
	}
}

// parseStripHeight clamps pclm-strip-height-preferred to [16,256],
// coercing an absent or zero value up to 16 rather than treating it as
// "send the whole page in one stripe".
func parseStripHeight(g attrGroup, caps *Capabilities) {
	height := 0
	for _, a := range g["pclm-strip-height-preferred"] {
		if n, ok := asInt(a.Value); ok {
			height = n
			break
		}
	}
	if height <= 0 {
		height = 16
	}
	if height < 16 {
		height = 16
	}
	if height > 256 {
		height = 256
	}
	caps.PreferredStripHeight = height
}
