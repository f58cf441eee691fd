package ipp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	goipp "github.com/phin1x/go-ipp"
	"github.com/rs/zerolog"
)

// ConnectInfo mirrors connect_info: addr, port, uri path,
// scheme, and per-request timeout.
type ConnectInfo struct {
	Addr      string
	Port      int
	URIPath   string
	Scheme    string // "ipp" or "ipps"
	TimeoutMS int
}

func (c ConnectInfo) printerURI() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "ipp"
	}
	path := c.URIPath
	if path == "" {
		path = "/ipp/print"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, c.Addr, c.Port, path)
}

func (c ConnectInfo) httpURL() string {
	port := c.Port
	if port == 0 {
		port = 631
	}
	scheme := "http"
	if c.Scheme == "ipps" {
		scheme = "https"
	}
	path := c.URIPath
	if path == "" {
		path = "/ipp/print"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, c.Addr, port, path)
}

// SourceInfo is the process-wide app/os/api identity set once via
// SetSourceInfo before any job is submitted ( "Global app/os/api
// version"). It is stored in globalSourceInfo; no request this package
// builds reads it, and document-format-details is not sent.
type SourceInfo struct {
	AppName    string
	AppVersion string
	OSName     string
	OSVersion  string
}

var globalSourceInfo SourceInfo

// SetSourceInfo records the process-wide source identity. Treated as
// immutable once init() has been called
func SetSourceInfo(info SourceInfo) { globalSourceInfo = info }

// Client is the IPP Protocol Engine: request assembly, version
// negotiation, response parsing, and retry discipline for transient
// faults
type Client struct {
	info    ConnectInfo
	http    *http.Client
	log     zerolog.Logger
	version    Version
	negotiated bool
	requestID  int16
}

// NewClient builds an IPP client for a single job's connection.
func NewClient(info ConnectInfo, log zerolog.Logger) *Client {
	timeout := 15 * time.Second
	if info.TimeoutMS > 0 {
		timeout = time.Duration(info.TimeoutMS) * time.Millisecond
	}
	transport := &http.Transport{}
	if info.Scheme == "ipps" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		info: info,
		http: &http.Client{Timeout: timeout, Transport: transport},
		log:  log.With().Str("component", "ipp-client").Logger(),
	}
}

func (c *Client) nextRequestID() int16 {
	c.requestID++
	return c.requestID
}

// NegotiateVersion probes the printer with a minimal Get-Printer-Attributes
// request, trying 2.0 -> 1.1 -> 1.0 and rewinding one tier on
// IPP_VERSION_NOT_SUPPORTED The resolved version is
// cached on the client for subsequent requests.
func (c *Client) NegotiateVersion(ctx context.Context) (Version, error) {
	if c.negotiated {
		return c.version, nil
	}
	var lastErr error
	for _, v := range versionTiers {
		_, status, err := c.doRaw(ctx, OpGetPrinterAttributes, v, map[string]interface{}{
			"requested-attributes": []string{"ipp-versions-supported"},
		}, nil, nil)
		if err != nil {
			lastErr = err
			continue
		}
		if status == StatusVersionNotSupported {
			c.log.Debug().Str("tried", v.String()).Msg("printer rejected ipp version, degrading")
			continue
		}
		c.version = v
		c.negotiated = true
		return v, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no ipp version accepted by printer")
	}
	return Version{}, newError(KindVersionMismatch, "NegotiateVersion", lastErr)
}

// Operation codes used by this engine, kept independent of whatever
// subset phin1x/go-ipp happens to export by name.
const (
	OpPrintJob             = 0x0002
	OpValidateJob          = 0x0004
	OpGetJobAttributes     = 0x0009
	OpGetJobs              = 0x000a
	OpGetPrinterAttributes = 0x000b
	OpCancelJob            = 0x0008
)

// retryBudget implements the per-status retry table of
func retryBudget(status int16) int {
	switch status {
	case StatusServerErrorUnavailable:
		return 3
	case StatusClientErrorBadRequest:
		return 2
	case StatusServerErrorInternalErr:
		return 1
	case StatusClientErrorNotFound:
		return 0
	default:
		return 0
	}
}

// Do issues an IPP operation with the negotiated version, the configured
// retry discipline, and an externally supplied shutdown signal (ctx.Done
// doubles as the "system has begun shutdown" early-exit of
func (c *Client) Do(ctx context.Context, op int16, attrs map[string]interface{}, body io.Reader) (*goipp.Response, error) {
	if !c.negotiated {
		if _, err := c.NegotiateVersion(ctx); err != nil {
			return nil, err
		}
	}

	var lastErr error
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return nil, newError(KindShutdown, "Do", ctx.Err())
		default:
		}

		resp, status, err := c.doRaw(ctx, op, c.version, attrs, body, nil)
		if err == nil && status == StatusVersionNotSupported {
			if degraded, ok := degrade(c.version); ok {
				c.version = degraded
				continue
			}
			return nil, newError(KindVersionMismatch, "Do", fmt.Errorf("no lower ipp version to try"))
		}
		if err != nil {
			lastErr = err
		} else if status != StatusOK {
			lastErr = fmt.Errorf("ipp status 0x%04x", status)
		} else {
			return resp, nil
		}

		budget := retryBudget(status)
		if err != nil {
			budget = 1 // transport errors: retry up to 1 extra time
		}
		if attempt >= budget {
			kind := KindBadResponse
			if err != nil {
				kind = KindUnableToConnect
			}
			return nil, newError(kind, "Do", lastErr)
		}
		attempt++
	}
}

func degrade(v Version) (Version, bool) {
	for i, tier := range versionTiers {
		if tier == v && i+1 < len(versionTiers) {
			return versionTiers[i+1], true
		}
	}
	return Version{}, false
}

// doRaw performs a single IPP request/response round trip over HTTP:
// build a go-ipp request, Encode it, optionally concatenate raw trailer
// bytes (for collections assembled by codec.go), POST it, and decode
// the response.
func (c *Client) doRaw(ctx context.Context, op int16, version Version, attrs map[string]interface{}, body io.Reader, trailer []byte) (*goipp.Response, int16, error) {
	req := goipp.NewRequest(op, c.nextRequestID())
	req.OperationAttributes["attributes-charset"] = "utf-8"
	req.OperationAttributes["attributes-natural-language"] = "en-us"
	req.OperationAttributes["printer-uri"] = c.info.printerURI()
	for k, v := range attrs {
		req.OperationAttributes[k] = v
	}

	payload, err := req.Encode()
	if err != nil {
		return nil, 0, fmt.Errorf("encode ipp request: %w", err)
	}
	payload[0] = byte(version.Major)
	payload[1] = byte(version.Minor)
	if len(trailer) > 0 {
		// insert trailer bytes just before the final end-of-attributes tag
		if n := len(payload); n > 0 && payload[n-1] == tagEnd {
			payload = append(payload[:n-1], append(trailer, tagEnd)...)
		} else {
			payload = append(payload, trailer...)
		}
	}

	full := payload
	if body != nil {
		data, rerr := io.ReadAll(body)
		if rerr != nil {
			return nil, 0, fmt.Errorf("read request body: %w", rerr)
		}
		full = append(payload, data...)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.info.httpURL(), bytes.NewReader(full))
	if err != nil {
		return nil, 0, fmt.Errorf("build http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/ipp")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("send ipp request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read ipp response: %w", err)
	}

	ippResp, err := goipp.NewResponseDecoder(bytes.NewReader(respBody)).Decode(nil)
	if err != nil {
		return nil, 0, fmt.Errorf("decode ipp response: %w", err)
	}

	return ippResp, ippResp.StatusCode, nil
}
