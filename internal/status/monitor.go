package status

import (
	"context"
	"fmt"
	"time"

	goipp "github.com/phin1x/go-ipp"
	"github.com/rs/zerolog"

	"github.com/mopria/printcore/internal/ipp"
)

// pollInterval is the monitor's fixed poll cadence
// ("every 1 s").
const pollInterval = 1 * time.Second

// Callback is invoked whenever the observed PrinterState changes, carrying
// the new and previous observation, matching the original status_cb
// signature in ippstatus_monitor.c.
type Callback func(curr, prev PrinterState)

// Monitor polls a single printer's Get-Printer-Attributes response on a
// fixed interval and delivers a Callback only when the derived
// PrinterState changes
type Monitor struct {
	client *ipp.Client
	log    zerolog.Logger

	cancelCh chan struct{}
	doneCh   chan struct{}
}

// New creates a Status Monitor bound to an already-connected IPP client.
func New(client *ipp.Client, log zerolog.Logger) *Monitor {
	return &Monitor{
		client: client,
		log:    log.With().Str("component", "status-monitor").Logger(),
	}
}

// GetStatus issues one Get-Printer-Attributes request and returns the
// parsed PrinterState, per the original _get_status.
func (m *Monitor) GetStatus(ctx context.Context) PrinterState {
	resp, err := m.client.Do(ctx, ipp.OpGetPrinterAttributes, map[string]interface{}{
		"requested-attributes": []string{
			"printer-state", "printer-state-reasons", "printer-state-message",
			"printer-make-and-model",
		},
	}, nil)
	if err != nil {
		m.log.Debug().Err(err).Msg("get-status request failed")
		return PrinterState{Status: StateUnableToConnect, Reasons: reasonBit(StateUnableToConnect)}
	}

	var stateStr string
	var reasons []string
	for _, group := range resp.PrinterAttributes {
		if attrs, ok := group["printer-state"]; ok && len(attrs) > 0 {
			stateStr = ippStateToKeyword(attrs[0].Value)
		}
		if attrs, ok := group["printer-state-reasons"]; ok {
			for _, a := range attrs {
				if s, ok := a.Value.(string); ok {
					reasons = append(reasons, s)
				}
			}
		}
	}
	return ParseAttributes(stateStr, reasons)
}

// ippStateToKeyword maps the IPP printer-state enum (3=idle, 4=processing,
// 5=stopped) to the keyword ParseAttributes expects.
func ippStateToKeyword(v interface{}) string {
	n, ok := v.(int)
	if !ok {
		if n8, ok8 := v.(int8); ok8 {
			n, ok = int(n8), true
		}
	}
	if !ok {
		return ""
	}
	switch n {
	case 3:
		return "idle"
	case 4:
		return "processing"
	case 5:
		return "stopped"
	default:
		return ""
	}
}

// Start begins the 1 Hz polling loop on its own goroutine, invoking cb
// only when the derived state changes. The returned Stop function blocks
// until the poll goroutine has exited, mirroring the original _stop's
// semaphore handshake.
func (m *Monitor) Start(ctx context.Context, cb Callback) (stop func()) {
	m.cancelCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go func() {
		defer close(m.doneCh)

		last := PrinterState{Status: StateInitializing}
		curr := PrinterState{Status: StateInitializing}

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				curr = PrinterState{Status: StateShuttingDown}
				if cb != nil {
					cb(curr, last)
				}
				return
			case <-m.cancelCh:
				curr = PrinterState{Status: StateShuttingDown}
				if cb != nil {
					cb(curr, last)
				}
				return
			case <-ticker.C:
				curr = m.GetStatus(ctx)
				if cb != nil && !curr.Equal(last) {
					cb(curr, last)
					last = curr
				}
			}
		}
	}()

	return func() {
		close(m.cancelCh)
		<-m.doneCh
	}
}

// Cancel issues Get-Jobs (filtered to the requesting user) followed by
// Cancel-Job for the first matching job-id cancel
// path grounded in the original _cancel. Returns true iff the printer
// acknowledged the cancel.
func (m *Monitor) Cancel(ctx context.Context, requestingUser string) (bool, error) {
	jobsResp, err := m.client.Do(ctx, ipp.OpGetJobs, map[string]interface{}{
		"my-jobs":              true,
		"requesting-user-name": requestingUser,
		"requested-attributes": []string{"job-id", "job-state", "job-state-reasons"},
	}, nil)
	if err != nil {
		return false, fmt.Errorf("get-jobs: %w", err)
	}

	jobID, ok := firstJobID(jobsResp)
	if !ok {
		return false, fmt.Errorf("no job-id returned by get-jobs")
	}

	cancelResp, err := m.client.Do(ctx, ipp.OpCancelJob, map[string]interface{}{
		"job-id":               jobID,
		"requesting-user-name": requestingUser,
	}, nil)
	if err != nil {
		if ierr, ok := err.(*ipp.Error); ok && ierr.Kind == ipp.KindBadResponse {
			return false, nil
		}
		return false, fmt.Errorf("cancel-job: %w", err)
	}
	_ = cancelResp
	return true, nil
}

func firstJobID(resp *goipp.Response) (int, bool) {
	for _, group := range resp.JobAttributes {
		if attrs, ok := group["job-id"]; ok && len(attrs) > 0 {
			if v, ok := attrs[0].Value.(int); ok {
				return v, true
			}
		}
	}
	return 0, false
}
