package capabilities

import "strings"

// canonicalSizes is the built-in table of ~15 recognized media sizes, each
// carrying imperial and (where applicable) metric dimensions plus the PWG
// self-describing name.
var canonicalSizes = []MediaSize{
	{Name: "Letter", PWGName: "na_letter_8.5x11in", WidthMils: 8500, HeightMils: 11000},
	{Name: "Legal", PWGName: "na_legal_8.5x14in", WidthMils: 8500, HeightMils: 14000},
	{Name: "Ledger", PWGName: "na_ledger_11x17in", WidthMils: 11000, HeightMils: 17000},
	{Name: "Executive", PWGName: "na_executive_7.25x10.5in", WidthMils: 7250, HeightMils: 10500},
	{Name: "A3", PWGName: "iso_a3_297x420mm", WidthMM: 297, HeightMM: 420},
	{Name: "A4", PWGName: "iso_a4_210x297mm", WidthMM: 210, HeightMM: 297},
	{Name: "A5", PWGName: "iso_a5_148x210mm", WidthMM: 148, HeightMM: 210},
	{Name: "A6", PWGName: "iso_a6_105x148mm", WidthMM: 105, HeightMM: 148},
	{Name: "B4", PWGName: "jis_b4_257x364mm", WidthMM: 257, HeightMM: 364},
	{Name: "B5", PWGName: "jis_b5_182x257mm", WidthMM: 182, HeightMM: 257},
	{Name: "4x6", PWGName: "na_index-4x6_4x6in", WidthMils: 4000, HeightMils: 6000},
	{Name: "5x7", PWGName: "na_5x7_5x7in", WidthMils: 5000, HeightMils: 7000},
	{Name: "Photo-L", PWGName: "oe_photo-l_3.5x5in", WidthMils: 3500, HeightMils: 5000},
	{Name: "Envelope-10", PWGName: "na_number-10_4.125x9.5in", WidthMils: 4125, HeightMils: 9500},
	{Name: "Oficio", PWGName: "om_folio_210x330mm", WidthMM: 210, HeightMM: 330},
}

// customRangeOptOutMakes lists the printer makes whose `custom_min_*` /
// `custom_max_*` ranges are known to over-report. Kept as a flat
// substring list rather than a per-driver quirks table (see DESIGN.md
// Open Question).
var customRangeOptOutMakes = []string{
	"Brother", "Epson", "Fuji Xerox", "Konica Minolta", "Kyocera", "Canon", "UTAX_TA",
}

func isOptedOutMake(make string) bool {
	lower := strings.ToLower(make)
	for _, m := range customRangeOptOutMakes {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// sizeByKeyword matches an IPP media keyword against the canonical table
// in table order: an entry matches when its PWG name equals the keyword
// (case-insensitive) or its canonical name appears anywhere in the keyword.
func sizeByKeyword(keyword string) (MediaSize, bool) {
	lower := strings.ToLower(keyword)
	for _, s := range canonicalSizes {
		if strings.EqualFold(s.PWGName, keyword) {
			return s, true
		}
		if strings.Contains(lower, strings.ToLower(s.Name)) {
			return s, true
		}
	}
	return MediaSize{}, false
}

func bucketMediaType(keyword string) MediaType {
	lower := strings.ToLower(keyword)
	switch {
	case strings.Contains(lower, "glossy"):
		return MediaPhotoGlossy
	case strings.Contains(lower, "photo"):
		return MediaPhoto
	default:
		return MediaPlain
	}
}
