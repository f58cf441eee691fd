package jobmanager

import (
	"github.com/mopria/printcore/internal/capabilities"
	"github.com/mopria/printcore/internal/ipp"
	"github.com/mopria/printcore/internal/plugin"
	"github.com/mopria/printcore/internal/queue"
	"github.com/mopria/printcore/internal/status"
)

// jobRecord is one slot of the fixed-size job table
// "Job Record". All mutation happens from the worker goroutine except
// where noted; reads from other goroutines (CancelJob, Page) happen
// under Manager.mu.
type jobRecord struct {
	handle     Handle
	generation uint32
	state      State

	connect  ConnectInfo
	mimeType string
	format   plugin.WireFormat

	params JobParams
	caps   capabilities.Capabilities

	debugDir string
	callback StatusCallback

	pageQueue *queue.Queue[PageQueueEntry]
	saveQueue []PageQueueEntry

	blockReasons   uint32
	cancelObserved bool
	cancelAcked    bool

	client    *ipp.Client
	monitor   *status.Monitor
	transport ipp.PrintJobTransport
	encoder   plugin.Encoder
	jobID     int

	// jobStartWait/jobEndWait are the counting-semaphore rendezvous of
	//, realized as single-slot buffered channels: a send
	// signals, a receive-with-timeout waits.
	jobStartWait chan struct{}
	jobEndWait   chan struct{}

	stopMonitor func()
}

func newJobRecord(h Handle, gen uint32) *jobRecord {
	return &jobRecord{
		handle:       h,
		generation:   gen,
		state:        StateFree,
		pageQueue:    queue.New[PageQueueEntry](1000), // "fixed 1000"
		jobStartWait: make(chan struct{}, 1),
		jobEndWait:   make(chan struct{}, 1),
	}
}

// setBlockReason adds s to the block-reason bitmask.
func (r *jobRecord) setBlockReason(s status.State) {
	r.blockReasons |= blockReasonBit(s)
}

// clearBlockReason removes s from the block-reason bitmask.
func (r *jobRecord) clearBlockReason(s status.State) {
	r.blockReasons &^= blockReasonBit(s)
}

func (r *jobRecord) hasBlockReason(s status.State) bool {
	return r.blockReasons&blockReasonBit(s) != 0
}

// blockedReasonNames renders the current bitmask into the caller-facing
// name set, reusing status.PrinterState's reason-name vocabulary since
// both bitmasks are drawn from the same domain.
func (r *jobRecord) blockedReasonNames() []string {
	return status.PrinterState{Reasons: r.blockReasons}.ReasonNames()
}
