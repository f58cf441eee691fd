package ipp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goipp "github.com/phin1x/go-ipp"
)

// PrintJobTransport is the streaming-write abstraction the PCLm/PWG
// encoders drive per page, matching the "print-job interface" vtable
// named in
type PrintJobTransport interface {
	// Open sends the Print-Job headers with the given attributes and
	// begins a chunked body the caller streams bytes into.
	Open(ctx context.Context, documentFormat string, attrs map[string]interface{}) error
	// Write streams raster/PDF bytes into the open job body.
	Write(p []byte) (int, error)
	// Close sends the zero-byte terminator, awaits the response, and
	// returns the assigned job-id plus job-state-reasons.
	Close() (jobID int, reasons []string, err error)
}

// jobStream is the Client's PrintJobTransport implementation. It streams
// the document body over a pipe so the raster encoders can write stripes
// as they are produced "Streaming contract".
type jobStream struct {
	client *Client
	pw     *io.PipeWriter
	result chan streamResult
	// pageSendTimeout bounds each chunk write (20s).
	pageSendTimeout time.Duration
	writeDeadline   *atomicDeadline
}

type streamResult struct {
	resp *goipp.Response
	err  error
}

// atomicDeadline lets cancel() shorten the write timeout without racing
// ongoing writes, matching cancellation behavior ("enables
// the transport timeout so a stuck write fails fast").
type atomicDeadline struct {
	mu    sync.Mutex
	value time.Duration
}

func newAtomicDeadline(d time.Duration) *atomicDeadline {
	return &atomicDeadline{value: d}
}

func (a *atomicDeadline) get() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

func (a *atomicDeadline) Shorten(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d < a.value {
		a.value = d
	}
}

// NewPrintJobTransport creates a streaming Print-Job session.
func (c *Client) NewPrintJobTransport() PrintJobTransport {
	return &jobStream{
		client:          c,
		pageSendTimeout: 20 * time.Second,
		writeDeadline:   newAtomicDeadline(20 * time.Second),
	}
}

// EnableCancelTimeout shortens the per-write timeout, called when a
// cancel has been requested and the worker needs a stuck write to fail
// fast ( cancellation semantics).
func (j *jobStream) EnableCancelTimeout() {
	j.writeDeadline.Shorten(2 * time.Second)
}

func (j *jobStream) Open(ctx context.Context, documentFormat string, attrs map[string]interface{}) error {
	if !j.client.negotiated {
		if _, err := j.client.NegotiateVersion(ctx); err != nil {
			return err
		}
	}

	req := goipp.NewRequest(OpPrintJob, j.client.nextRequestID())
	req.OperationAttributes["attributes-charset"] = "utf-8"
	req.OperationAttributes["attributes-natural-language"] = "en-us"
	req.OperationAttributes["printer-uri"] = j.client.info.printerURI()
	req.OperationAttributes["document-format"] = documentFormat
	for k, v := range attrs {
		req.OperationAttributes[k] = v
	}

	header, err := req.Encode()
	if err != nil {
		return fmt.Errorf("encode print-job headers: %w", err)
	}
	header[0] = byte(j.client.version.Major)
	header[1] = byte(j.client.version.Minor)

	pr, pw := io.Pipe()
	j.pw = pw
	j.result = make(chan streamResult, 1)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.client.info.httpURL(), pr)
	if err != nil {
		return fmt.Errorf("build print-job request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/ipp")
	httpReq.Header.Set("Transfer-Encoding", "chunked")

	go func() {
		resp, err := j.client.http.Do(httpReq)
		if err != nil {
			j.result <- streamResult{err: fmt.Errorf("send print-job: %w", err)}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			j.result <- streamResult{err: fmt.Errorf("read print-job response: %w", err)}
			return
		}
		ippResp, err := goipp.NewResponseDecoder(bytes.NewReader(body)).Decode(nil)
		if err != nil {
			j.result <- streamResult{err: fmt.Errorf("decode print-job response: %w", err)}
			return
		}
		j.result <- streamResult{resp: ippResp}
	}()

	if _, err := j.Write(header); err != nil {
		return fmt.Errorf("write print-job headers: %w", err)
	}

	return nil
}

func (j *jobStream) Write(p []byte) (int, error) {
	errCh := make(chan error, 1)
	n := 0
	go func() {
		var err error
		n, err = j.pw.Write(p)
		errCh <- err
	}()
	select {
	case err := <-errCh:
		return n, err
	case <-time.After(j.writeDeadline.get()):
		j.pw.CloseWithError(fmt.Errorf("page-send timeout after %s", j.writeDeadline.get()))
		return 0, fmt.Errorf("page-send timeout after %s", j.writeDeadline.get())
	}
}

func (j *jobStream) Close() (int, []string, error) {
	if err := j.pw.Close(); err != nil {
		return 0, nil, err
	}

	select {
	case res := <-j.result:
		if res.err != nil {
			return 0, nil, res.err
		}
		jobID := extractJobID(res.resp)
		reasons := extractJobStateReasons(res.resp)
		return jobID, reasons, nil
	case <-time.After(5 * time.Minute):
		return 0, nil, newError(KindUnableToConnect, "Close", fmt.Errorf("timed out awaiting print-job response"))
	}
}

func extractJobID(resp *goipp.Response) int {
	if resp == nil {
		return 0
	}
	for _, group := range resp.JobAttributes {
		if attrs, ok := group["job-id"]; ok && len(attrs) > 0 {
			if v, ok := attrs[0].Value.(int); ok {
				return v
			}
		}
	}
	return 0
}

func extractJobStateReasons(resp *goipp.Response) []string {
	if resp == nil {
		return nil
	}
	var reasons []string
	for _, group := range resp.JobAttributes {
		if attrs, ok := group["job-state-reasons"]; ok {
			for _, a := range attrs {
				if s, ok := a.Value.(string); ok {
					reasons = append(reasons, s)
				}
			}
		}
	}
	return reasons
}

// JobCanceledAtDevice reports whether the response's job-state-reasons
// include "job-canceled-at-device", which promotes the local outcome to
// CANCELLED streaming contract.
func JobCanceledAtDevice(reasons []string) bool {
	for _, r := range reasons {
		if strings.EqualFold(r, "job-canceled-at-device") {
			return true
		}
	}
	return false
}
