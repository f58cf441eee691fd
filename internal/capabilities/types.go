// Package capabilities extracts printer capabilities from an IPP
// Get-Printer-Attributes response
package capabilities

// MediaType buckets an IPP media-type keyword into a coarse category.
type MediaType int

const (
	MediaPlain MediaType = iota
	MediaPhoto
	MediaPhotoGlossy
)

// MediaSize is one entry of the supported-size list.
type MediaSize struct {
	Name       string // canonical name, e.g. "Letter"
	PWGName    string // PWG self-describing name, e.g. "na_letter_8.5x11in"
	WidthMM    float64
	HeightMM   float64
	WidthMils  int // 1/1000 inch, imperial dimension
	HeightMils int
}

// Resolution is a square (x == y) DPI value.
type Resolution struct {
	DPI int
}

// Margins are in 100ths of a millimeter
type Margins struct {
	TopMM100, BottomMM100, LeftMM100, RightMM100 int
}

// DocSource carries the client-identity fields advertised in
// document-format-details when the printer supports that collection.
type DocSource struct {
	AppName, AppVersion, OSName, OSVersion string
}

// Capabilities is the parsed printer capability set
type Capabilities struct {
	Make, Name, UUID, Location, URI string

	Duplex            bool
	Borderless        bool
	Color             bool
	SupportsPDF       bool
	SupportsPCLm      bool
	SupportsPWG       bool
	FaceDownTray      bool
	RotateableBack    bool
	MediaSizeNameOK   bool
	CanCopy           bool

	MediaSizes      []MediaSize
	Trays           []string
	MediaTypes      []MediaType
	Resolutions     []Resolution

	IPPVersionMajor int
	IPPVersionMinor int
	EPCLVersion     string

	PreferredStripHeight int
	MarginFloor          Margins

	DocSource DocSource

	// HTTPResource is the URI path portion selected for subsequent
	// requests against this printer.
	HTTPResource string

	CopiesSupported bool
}

const (
	maxMediaSizes  = 50
	maxTrays       = 10
	maxMediaTypes  = 20
	maxResolutions = 10
)
