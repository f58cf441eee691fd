package jobmanager

import (
	"github.com/mopria/printcore/internal/capabilities"
	"github.com/mopria/printcore/internal/status"
)

// State is the Job State Machine:
// FREE -> QUEUED -> RUNNING <-> BLOCKED -> CANCEL_REQUEST ->
// {CANCELLED, COMPLETED, ERROR, CORRUPTED} -> FREE.
type State int

const (
	StateFree State = iota
	StateQueued
	StateRunning
	StateBlocked
	StateCancelRequest
	StateCancelled
	StateCompleted
	StateError
	StateCorrupted
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateQueued:
		return "QUEUED"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateCancelRequest:
		return "CANCEL_REQUEST"
	case StateCancelled:
		return "CANCELLED"
	case StateCompleted:
		return "COMPLETED"
	case StateError:
		return "ERROR"
	case StateCorrupted:
		return "CORRUPTED"
	default:
		return "UNKNOWN"
	}
}

func (s State) terminal() bool {
	switch s {
	case StateCancelled, StateCompleted, StateError, StateCorrupted:
		return true
	default:
		return false
	}
}

// DuplexMode mirrors duplex mode enum.
type DuplexMode int

const (
	DuplexNone DuplexMode = iota
	DuplexLongEdge
	DuplexShortEdge
)

// ColorMode mirrors color space enum.
type ColorMode int

const (
	ColorModeMono ColorMode = iota
	ColorModeSRGB
	ColorModeAdobeRGB
)

// RenderFlag is a bit in JobParams.RenderFlags
type RenderFlag uint32

const (
	RenderAutoRotate RenderFlag = 1 << iota
	RenderAutoScale
	RenderAutoFit
	RenderPortrait
	RenderLandscape
	RenderCenterH
	RenderCenterV
	RenderCenterOrient
	RenderRotateBackPage
	RenderDocumentScaling
)

// PrintFormat selects the wire encoding print_format.
type PrintFormat int

const (
	FormatAuto PrintFormat = iota
	FormatPDF
	FormatPCLm
	FormatPWG
)

// JobParams is the parameter bag a caller supplies to StartJob and that
// FinalizeParams refines against the queried Capabilities.
type JobParams struct {
	MediaSize   capabilities.MediaSize
	MediaType   capabilities.MediaType
	Duplex      DuplexMode
	Color       ColorMode
	Tray        string
	Copies      int
	Borderless  bool
	RenderFlags RenderFlag

	MarginTopPx, MarginLeftPx, MarginRightPx, MarginBottomPx int
	MarginTopIn, MarginLeftIn, MarginRightIn, MarginBottomIn float64

	DPI             int
	WidthPx         int
	HeightPx        int
	StripHeight     int
	Cancelled       bool
	PageNum         int
	CopyNum         int
	PageBackside    bool
	PrintFormat     PrintFormat
	CopiesSupported bool
	PageRange       string
	JobName         string
	UserName        string
	UserAgent       string
	DocCategory     string

	PDFRenderResolution int
}

// PageQueueEntry is one entry in a job's per-page queue
type PageQueueEntry struct {
	PageNum       int
	PDFPage       bool
	LastPage      bool
	Corrupted     bool
	Pathname      string
	MarginOverride *PageMargins
}

// PageMargins overrides a job's default margins for a single page.
type PageMargins struct {
	TopPx, LeftPx, RightPx, BottomPx int
}

// DoneResult is the terminal outcome carried in a StatusCallback once a
// job reaches a terminal State
type DoneResult int

const (
	DoneOK DoneResult = iota
	DoneError
	DoneCancelled
	DoneCorrupt
)

// CallbackEvent is delivered to the caller on every state transition.
type CallbackEvent struct {
	Handle        Handle
	State         State
	Done          DoneResult
	BlockedReasons []string
}

// StatusCallback is the caller-supplied sink for CallbackEvents.
type StatusCallback func(CallbackEvent)

// ConnectInfo mirrors connect_info.
type ConnectInfo struct {
	Addr      string
	Port      int
	URIPath   string
	Scheme    string
	TimeoutMS int
}

// blockReasonBit maps a status.State (the shared reason-code domain
// named in "Printer State") onto the caller-facing
// blocked_reasons bitmask.
func blockReasonBit(s status.State) uint32 { return 1 << uint(s) }
