// Package jobmanager implements the Job Manager: a bounded job queue
// plus a worker loop that owns job lifecycle, per-page dispatch,
// duplex/copy semantics, and coordination with the Status Monitor.
package jobmanager

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mopria/printcore/internal/capabilities"
	"github.com/mopria/printcore/internal/ipp"
	"github.com/mopria/printcore/internal/media"
	"github.com/mopria/printcore/internal/plugin"
	"github.com/mopria/printcore/internal/queue"
	"github.com/mopria/printcore/internal/raster"
	"github.com/mopria/printcore/internal/status"
)

const (
	maxIdleWait      = 5 * time.Minute
	jobStartTimeout  = 45 * time.Second
	jobEndTimeout    = 5 * time.Minute
)

// Manager is the Job Manager: exactly one worker goroutine drains the
// job queue; a Status Monitor goroutine runs per active job; all job
// table reads/writes are guarded by mu, the Go equivalent of the
// source's single recursive Q_LOCK — recursion is avoided
// here by never calling a locking method while mu is already held.
type Manager struct {
	mu    sync.Mutex
	slots [maxSlots]*jobRecord

	jobQueue *queue.Queue[Handle]
	registry *plugin.Registry
	log      zerolog.Logger

	// mediaProfiles supplies a per-make/model default media size for
	// printers whose Get-Printer-Attributes response omits one (label
	// printers in particular often under-report media-supported), nil
	// by default.
	mediaProfiles *media.Registry

	dataDir string

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewManager constructs a Job Manager bound to an encoder registry.
func NewManager(log zerolog.Logger, registry *plugin.Registry) *Manager {
	return &Manager{
		jobQueue: queue.New[Handle](0), // unbounded wait
		registry: registry,
		log:      log.With().Str("component", "job-manager").Logger(),
	}
}

// SetMediaProfiles installs the per-make/model default media size
// registry consulted by FinalizeParams. Optional; a nil registry (the
// zero-value Manager) skips the lookup entirely.
func (m *Manager) SetMediaProfiles(r *media.Registry) {
	m.mediaProfiles = r
}

// Init starts the worker goroutine and returns the number of registered
// encoder plugins; the callback sink is supplied per-job to StartJob
// instead of globally, since this core has no process-wide singleton
// caller.
func (m *Manager) Init(ctx context.Context, dataDir string) (pluginCount int, err error) {
	m.dataDir = dataDir
	workerCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go m.runWorker(workerCtx)
	return m.registry.Count(), nil
}

// Exit requests shutdown: the worker drains its queue and stops
// accepting new jobs, gracefully, with no further callbacks once it
// returns.
func (m *Manager) Exit() {
	m.jobQueue.Close()
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// GetCapabilities issues Get-Printer-Attributes and parses the result.
func (m *Manager) GetCapabilities(ctx context.Context, info ConnectInfo) (capabilities.Capabilities, error) {
	client := ipp.NewClient(ipp.ConnectInfo{
		Addr: info.Addr, Port: info.Port, URIPath: info.URIPath,
		Scheme: info.Scheme, TimeoutMS: info.TimeoutMS,
	}, m.log)
	resp, err := client.Do(ctx, ipp.OpGetPrinterAttributes, map[string]interface{}{
		"requested-attributes": capabilities.RequestedAttributes(),
	}, nil)
	if err != nil {
		return capabilities.Capabilities{}, err
	}
	return capabilities.Parse(resp, info.URIPath), nil
}

// GetDefaultParams returns a JobParams populated with the core's
// baseline defaults.
func (m *Manager) GetDefaultParams() JobParams {
	return JobParams{
		Color:       ColorModeSRGB,
		Copies:      1,
		DPI:         300,
		StripHeight: 16,
		PrintFormat: FormatAuto,
		RenderFlags: RenderAutoFit,
	}
}

// FinalizeParams refines a caller-supplied JobParams against the
// queried Capabilities.
func (m *Manager) FinalizeParams(params JobParams, caps capabilities.Capabilities) JobParams {
	out := params
	if out.StripHeight <= 0 {
		out.StripHeight = caps.PreferredStripHeight
	}
	if out.StripHeight <= 0 {
		out.StripHeight = 16
	}
	if out.Borderless && !caps.Borderless {
		out.Borderless = false
	}
	if out.Duplex != DuplexNone && !caps.Duplex {
		out.Duplex = DuplexNone
	}
	out.CopiesSupported = caps.CopiesSupported

	if out.MediaSize.Name == "" && m.mediaProfiles != nil {
		if profile := m.mediaProfiles.GetProfile(caps.Name, caps.Make); profile != nil {
			out.MediaSize = capabilities.MediaSize{
				Name:    profile.DefaultMedia,
				PWGName: profile.DefaultMedia,
			}
		}
	}
	return out
}

// allocateSlot finds a FREE slot (or the first unused array entry),
// bumps its generation, and returns the handle.
func (m *Manager) allocateSlot() (*jobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rec := range m.slots {
		if rec == nil {
			gen := uint32(1)
			rec = newJobRecord(encodeHandle(i, gen), gen)
			m.slots[i] = rec
			return rec, nil
		}
		if rec.state == StateFree {
			rec.generation++
			rec.handle = encodeHandle(i, rec.generation)
			return rec, nil
		}
	}
	return nil, fmt.Errorf("jobmanager: job table full (%d slots)", maxSlots)
}

func (m *Manager) lookup(h Handle) *jobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := h.slot()
	if slot < 0 || slot >= maxSlots {
		return nil
	}
	rec := m.slots[slot]
	if rec == nil || rec.generation != h.generation() || rec.state == StateFree {
		return nil
	}
	return rec
}

// StartJob allocates a job slot and enqueues it for the worker.
func (m *Manager) StartJob(connect ConnectInfo, mime string, params JobParams, caps capabilities.Capabilities, debugDir string, cb StatusCallback) (Handle, error) {
	rec, err := m.allocateSlot()
	if err != nil {
		return 0, err
	}

	rec.connect = connect
	rec.mimeType = mime
	rec.params = params
	rec.caps = caps
	rec.debugDir = debugDir
	rec.callback = cb
	rec.blockReasons = 0
	rec.cancelObserved = false
	rec.cancelAcked = false
	rec.saveQueue = nil
	rec.state = StateQueued

	rec.format = plugin.ResolveWireFormat(mime, caps.SupportsPDF, caps.SupportsPCLm, caps.SupportsPWG)
	switch params.PrintFormat {
	case FormatPDF:
		rec.format = plugin.WireFormatPDF
	case FormatPCLm:
		rec.format = plugin.WireFormatPCLm
	case FormatPWG:
		rec.format = plugin.WireFormatPWG
	}

	if err := m.jobQueue.Send(rec.handle); err != nil {
		return 0, fmt.Errorf("jobmanager: enqueue job: %w", err)
	}
	return rec.handle, nil
}

// Page enqueues one page onto the job's per-page queue. Pages for a
// single job are consumed in FIFO order.
func (m *Manager) Page(h Handle, entry PageQueueEntry) error {
	rec := m.lookup(h)
	if rec == nil {
		return fmt.Errorf("jobmanager: invalid handle %d", h)
	}
	return rec.pageQueue.Send(entry)
}

// EndJob frees a terminal job's slot.
func (m *Manager) EndJob(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := h.slot()
	if slot < 0 || slot >= maxSlots {
		return fmt.Errorf("jobmanager: invalid handle %d", h)
	}
	rec := m.slots[slot]
	if rec == nil || rec.generation != h.generation() {
		return fmt.Errorf("jobmanager: stale handle %d", h)
	}
	if !rec.state.terminal() {
		return fmt.Errorf("jobmanager: job %d not in a terminal state (%s)", h, rec.state)
	}
	rec.state = StateFree
	return nil
}

// cancelAckTimeout bounds how long CancelJob waits for the printer to
// acknowledge the device-side Get-Jobs/Cancel-Job exchange.
const cancelAckTimeout = 5 * time.Second

// CancelJob implements cooperative cancellation: marks cancelled, posts a
// sentinel page to unblock the page-queue receive, shortens the transport
// write deadline so a stuck send fails fast, and issues the device-side
// Get-Jobs/Cancel-Job request so the printer itself stops the job instead
// of only the local state machine giving up on it.
func (m *Manager) CancelJob(h Handle) error {
	rec := m.lookup(h)
	if rec == nil {
		return fmt.Errorf("jobmanager: invalid handle %d", h)
	}

	m.mu.Lock()
	rec.params.Cancelled = true
	if !rec.state.terminal() {
		rec.state = StateCancelRequest
	}
	transport := rec.transport
	monitor := rec.monitor
	user := rec.params.UserName
	m.mu.Unlock()

	if transport != nil {
		if c, ok := transport.(interface{ EnableCancelTimeout() }); ok {
			c.EnableCancelTimeout()
		}
	}

	if monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cancelAckTimeout)
		acked, err := monitor.Cancel(ctx, user)
		cancel()
		switch {
		case err != nil:
			m.log.Warn().Err(err).Uint32("handle", uint32(h)).Msg("cancel-job request failed")
		case acked:
			m.mu.Lock()
			rec.cancelAcked = true
			m.mu.Unlock()
		}
	}

	return rec.pageQueue.Send(PageQueueEntry{Pathname: ""})
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()
	for {
		h, err := m.jobQueue.Receive(ctx)
		if err != nil {
			return
		}
		m.runJob(ctx, h)
	}
}

func (m *Manager) deliver(rec *jobRecord, state State, done DoneResult, reasons []string) {
	if rec.callback == nil {
		return
	}
	rec.callback(CallbackEvent{Handle: rec.handle, State: state, Done: done, BlockedReasons: reasons})
}

// finish transitions rec into its terminal state and delivers exactly
// one terminal callback invariant.
func (m *Manager) finish(rec *jobRecord, final State, done DoneResult) {
	m.mu.Lock()
	rec.state = final
	m.mu.Unlock()
	if rec.stopMonitor != nil {
		rec.stopMonitor()
	}
	m.deliver(rec, final, done, rec.blockedReasonNames())
}

func (m *Manager) runJob(ctx context.Context, h Handle) {
	rec := m.lookup(h)
	if rec == nil || rec.state != StateQueued {
		return
	}

	log := m.log.With().Uint32("handle", uint32(h)).Logger()

	rec.client = ipp.NewClient(ipp.ConnectInfo{
		Addr: rec.connect.Addr, Port: rec.connect.Port, URIPath: rec.connect.URIPath,
		Scheme: rec.connect.Scheme, TimeoutMS: rec.connect.TimeoutMS,
	}, log)
	rec.monitor = status.New(rec.client, log)

	initial := rec.monitor.GetStatus(ctx)
	if initial.Status == status.StateUnableToConnect {
		rec.setBlockReason(status.StateUnableToConnect)
		m.finish(rec, StateError, DoneError)
		return
	}
	if initial.Status != status.StateIdle {
		if !m.waitForIdle(ctx, rec, initial) {
			rec.setBlockReason(status.StateBusy)
		}
	}

	factory, err := m.registry.Resolve(rec.mimeType, rec.format)
	if err != nil {
		log.Error().Err(err).Msg("no encoder available")
		m.finish(rec, StateError, DoneError)
		return
	}
	rec.encoder = factory()
	if err := rec.encoder.Init(ctx, rec.debugDir); err != nil {
		m.finish(rec, StateError, DoneError)
		return
	}

	encParams := plugin.JobEncodeParams{
		DPI: rec.params.DPI, PageWidthPx: rec.params.WidthPx, PageHeightPx: rec.params.HeightPx,
		Monochrome: rec.params.Color == ColorModeMono,
		LongEdgeDuplex: rec.params.Duplex == DuplexLongEdge,
		MirrorBackside: !rec.caps.RotateableBack,
		TopMarginPx: rec.params.MarginTopPx,
	}
	if err := rec.encoder.StartJob(ctx, encParams); err != nil {
		m.finish(rec, StateError, DoneError)
		return
	}

	m.mu.Lock()
	rec.state = StateRunning
	m.mu.Unlock()
	m.deliver(rec, StateRunning, DoneOK, nil)

	rec.stopMonitor = rec.monitor.Start(ctx, func(curr, prev status.PrinterState) {
		m.onStatusChange(rec, curr, prev)
	})

	corrupted := m.drivePages(ctx, rec)

	docBytes, err := rec.encoder.EndJob(ctx)
	if err != nil {
		m.finish(rec, StateError, DoneError)
		return
	}
	if rec.debugDir != "" {
		if err := raster.WriteJobStream(rec.debugDir, wireFormatExt(rec.format), docBytes); err != nil {
			log.Warn().Err(err).Msg("debug jobstream capture failed")
		}
	}

	var jobID int
	var reasons []string
	if !rec.cancelObserved {
		jobID, reasons, err = m.sendDocument(ctx, rec, docBytes)
		if err != nil {
			log.Warn().Err(err).Msg("document send failed")
		}
		rec.jobID = jobID
	}

	m.awaitRendezvous(rec)

	final, done := StateCompleted, DoneOK
	switch {
	case rec.cancelObserved:
		final, done = StateCancelled, DoneCancelled
		rec.setBlockReason(status.StateCancelled)
		if !rec.cancelAcked {
			rec.setBlockReason(status.StatePartialCancel)
		}
	case ipp.JobCanceledAtDevice(reasons):
		final, done = StateCancelled, DoneCancelled
	case corrupted:
		final, done = StateCorrupted, DoneCorrupt
	}
	m.finish(rec, final, done)
}

// drivePages runs the worker's per-page dispatch loop: FIFO page
// consumption, per-copy replay from the save queue, PDF-passthrough
// copy elision, and duplex odd-page blank injection. Returns whether
// any page failed to decode.
func (m *Manager) drivePages(ctx context.Context, rec *jobRecord) bool {
	copies := rec.params.Copies
	if copies < 1 {
		copies = 1
	}
	passthroughSkipCopies := rec.format == plugin.WireFormatPDF && rec.caps.CopiesSupported && rec.params.CopiesSupported

	corrupted := false
	pagesSent := 0

	for copyNum := 1; copyNum <= copies; copyNum++ {
		if copyNum > 1 && passthroughSkipCopies {
			continue
		}

		var entries []PageQueueEntry
		if copyNum == 1 {
			entries = m.drainFirstCopy(ctx, rec)
		} else {
			entries = rec.saveQueue
		}

		for _, entry := range entries {
			if rec.cancelObserved {
				return corrupted
			}
			if err := m.sendPage(ctx, rec, entry); err != nil {
				corrupted = true
			}
			pagesSent++
		}

		if rec.params.Duplex != DuplexNone && pagesSent%2 == 1 {
			if err := rec.encoder.PrintBlankPage(ctx, pagesSent+1); err == nil {
				pagesSent++
			}
		}
	}
	return corrupted
}

// drainFirstCopy receives pages from the per-job queue until the
// last-page entry or a cancel sentinel (empty pathname), saving each
// non-sentinel entry into the save queue for copy replay.
func (m *Manager) drainFirstCopy(ctx context.Context, rec *jobRecord) []PageQueueEntry {
	var out []PageQueueEntry
	for {
		entry, err := rec.pageQueue.Receive(ctx)
		if err != nil {
			return out
		}
		if entry.Pathname == "" {
			rec.cancelObserved = true
			return out
		}
		rec.saveQueue = append(rec.saveQueue, entry)
		out = append(out, entry)
		if entry.LastPage {
			return out
		}
	}
}

func (m *Manager) sendPage(ctx context.Context, rec *jobRecord, entry PageQueueEntry) error {
	if rec.format == plugin.WireFormatPDF {
		data, err := os.ReadFile(entry.Pathname)
		if err != nil {
			return err
		}
		if setter, ok := rec.encoder.(plugin.DocumentSetter); ok {
			setter.SetDocument(data)
			return nil
		}
		return fmt.Errorf("jobmanager: passthrough encoder missing DocumentSetter")
	}

	f, err := os.Open(entry.Pathname)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := rec.encoder.BeginPage(ctx, entry.PageNum); err != nil {
		return err
	}

	pipeline := raster.NewPipeline(rec.params.WidthPx, rec.params.HeightPx, rec.params.StripHeight)
	pipeline.AutoRotate = rec.params.RenderFlags&RenderAutoRotate != 0
	pipeline.AutoFit = rec.params.RenderFlags&RenderAutoFit != 0
	pipeline.Pad = raster.PadPolicy{
		CenterHorizontal: rec.params.RenderFlags&RenderCenterH != 0,
		CenterVertical:   rec.params.RenderFlags&RenderCenterV != 0,
		FillColor:        raster.Pixel{R: 255, G: 255, B: 255},
	}
	if rec.debugDir != "" {
		pipeline.DebugDir = rec.debugDir
		pipeline.DebugName = fmt.Sprintf("job%d-page%d", rec.handle.slot(), entry.PageNum)
	}
	if err := pipeline.Run(f, rec.encoder); err != nil {
		return err
	}
	return rec.encoder.EndPage(ctx)
}

// wireFormatExt names the file extension used when capturing a job's
// assembled wire document for debugging.
func wireFormatExt(f plugin.WireFormat) string {
	switch f {
	case plugin.WireFormatPDF:
		return "pdf"
	case plugin.WireFormatPCLm:
		return "pclm"
	case plugin.WireFormatPWG:
		return "pwg"
	default:
		return "bin"
	}
}

func (m *Manager) sendDocument(ctx context.Context, rec *jobRecord, data []byte) (int, []string, error) {
	transport := rec.client.NewPrintJobTransport()
	rec.transport = transport

	documentFormat := "application/octet-stream"
	switch rec.format {
	case plugin.WireFormatPDF:
		documentFormat = "application/pdf"
	case plugin.WireFormatPCLm:
		documentFormat = "application/PCLm"
	case plugin.WireFormatPWG:
		documentFormat = "image/pwg-raster"
	}

	attrs := map[string]interface{}{
		"requesting-user-name": rec.params.UserName,
		"job-name":             rec.params.JobName,
	}
	if rec.format == plugin.WireFormatPDF && rec.caps.CopiesSupported && rec.params.CopiesSupported {
		attrs["copies"] = rec.params.Copies
	}

	if err := transport.Open(ctx, documentFormat, attrs); err != nil {
		return 0, nil, err
	}
	if _, err := transport.Write(data); err != nil {
		return 0, nil, err
	}
	return transport.Close()
}

// waitForIdle polls once a second until the printer reports idle or
// maxIdleWait elapses, delivering BLOCKED callbacks whenever the
// observed reason set changes.
func (m *Manager) waitForIdle(ctx context.Context, rec *jobRecord, initial status.PrinterState) bool {
	deadline := time.Now().Add(maxIdleWait)
	ps := initial
	var lastReasons uint32 = ^uint32(0)

	for ps.Status != status.StateIdle {
		if time.Now().After(deadline) {
			return false
		}
		if ps.Reasons != lastReasons {
			rec.blockReasons = ps.Reasons
			m.mu.Lock()
			rec.state = StateBlocked
			m.mu.Unlock()
			m.deliver(rec, StateBlocked, DoneOK, rec.blockedReasonNames())
			lastReasons = ps.Reasons
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(1 * time.Second):
		}
		ps = rec.monitor.GetStatus(ctx)
	}
	rec.blockReasons = 0
	return true
}

// onStatusChange is the Status Monitor callback: it maps a printer
// state transition onto RUNNING/BLOCKED callbacks and signals the
// job-start/job-end rendezvous channels.
func (m *Manager) onStatusChange(rec *jobRecord, curr, prev status.PrinterState) {
	if curr.Status == status.StatePrinting {
		select {
		case rec.jobStartWait <- struct{}{}:
		default:
		}
	}
	if prev.Status == status.StatePrinting && curr.Status == status.StateIdle {
		select {
		case rec.jobEndWait <- struct{}{}:
		default:
		}
	}

	m.mu.Lock()
	running := rec.state == StateRunning || rec.state == StateBlocked
	m.mu.Unlock()
	if !running {
		return
	}

	blocking := curr.Status != status.StateIdle && curr.Status != status.StatePrinting
	if blocking {
		rec.blockReasons = curr.Reasons
		m.mu.Lock()
		rec.state = StateBlocked
		m.mu.Unlock()
		m.deliver(rec, StateBlocked, DoneOK, rec.blockedReasonNames())
	} else if rec.state == StateBlocked {
		rec.blockReasons = 0
		m.mu.Lock()
		rec.state = StateRunning
		m.mu.Unlock()
		m.deliver(rec, StateRunning, DoneOK, nil)
	}
}

// awaitRendezvous waits for the job-started and job-completed signals
// from the Status Monitor, bounded by 45s/5min.
func (m *Manager) awaitRendezvous(rec *jobRecord) {
	select {
	case <-rec.jobStartWait:
	case <-time.After(jobStartTimeout):
	}
	select {
	case <-rec.jobEndWait:
	case <-time.After(jobEndTimeout):
	}
}
