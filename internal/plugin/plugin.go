// Package plugin implements the encoder plugin registry: selection of
// an Encoder by (input MIME type, wire format) pair, by priority.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mopria/printcore/internal/raster"
)

// WireFormat names the document-format keyword sent on the wire.
type WireFormat string

const (
	WireFormatPDF WireFormat = "application/pdf"
	WireFormatPCLm WireFormat = "application/PCLm"
	WireFormatPWG WireFormat = "image/pwg-raster"
	WireFormatAuto WireFormat = "application/octet-stream"
)

// Encoder is the per-wire-format plugin contract. Encoder embeds
// raster.StripeSink so the image pipeline can feed it stripes directly
// via Pipeline.Run, matching the pull-free, lazy-release contract: the
// caller holds no reference to a stripe once Stripe returns.
type Encoder interface {
	raster.StripeSink

	// Init prepares encoder-local state; called once per job.
	Init(ctx context.Context, dataDir string) error
	// StartJob begins a document; called once per job before any page.
	StartJob(ctx context.Context, params JobEncodeParams) error
	// BeginPage opens a new page; the caller then drives Stripe (via
	// the Image Pipeline) for every stripe belonging to this page.
	BeginPage(ctx context.Context, pageNum int) error
	// EndPage closes out the current page.
	EndPage(ctx context.Context) error
	// PrintBlankPage synthesizes a trailing blank page (duplex odd-page
	// parity
	PrintBlankPage(ctx context.Context, pageNum int) error
	// EndJob finalizes the document and returns the encoded bytes.
	EndJob(ctx context.Context) ([]byte, error)
}

// JobEncodeParams carries the subset of JobParams an encoder needs to
// open a document: resolution, page size, color space, duplex mode.
type JobEncodeParams struct {
	DPI            int
	PageWidthPx    int
	PageHeightPx   int
	Monochrome     bool
	LongEdgeDuplex bool
	MirrorBackside bool
	TopMarginPx    int
}

// Factory constructs a fresh Encoder instance for one job.
type Factory func() Encoder

type registration struct {
	mime       string
	wireFormat WireFormat
	priority   int
	factory    Factory
}

// Registry maps (MIME, wire format) to the highest-priority matching
// Encoder factory Plugin Registry responsibility.
type Registry struct {
	mu   sync.RWMutex
	regs []registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Count returns the number of registered (mime, wireFormat, priority)
// entries `init` returning a plugin_count.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}

// Register adds a plugin for (mime, wireFormat). Higher priority wins
// ties; among equal priority, the earliest registered wins.
func (r *Registry) Register(mime string, wireFormat WireFormat, priority int, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, registration{mime: mime, wireFormat: wireFormat, priority: priority, factory: factory})
}

// Resolve selects the highest-priority Encoder factory registered for
// (mime, wireFormat), or an error if none matches.
func (r *Registry) Resolve(mime string, wireFormat WireFormat) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []registration
	for _, reg := range r.regs {
		if reg.mime == mime && reg.wireFormat == wireFormat {
			candidates = append(candidates, reg)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("plugin: no encoder registered for mime=%q format=%q", mime, wireFormat)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority > candidates[j].priority
	})
	return candidates[0].factory, nil
}

// ResolveWireFormat picks the best wire format for a given input MIME
// type from the printer's advertised support: PDF passthrough when the
// input is PDF and the printer advertises native PDF support, otherwise
// PWG over PCLm — PWG gives the widest device compatibility, PCLm is the
// fallback for legacy AirPrint-only devices — and WireFormatAuto when
// neither raster format is supported.
func ResolveWireFormat(mime string, printerSupportsPDF, printerSupportsPCLm, printerSupportsPWG bool) WireFormat {
	if mime == "application/pdf" && printerSupportsPDF {
		return WireFormatPDF
	}
	if printerSupportsPWG {
		return WireFormatPWG
	}
	if printerSupportsPCLm {
		return WireFormatPCLm
	}
	return WireFormatAuto
}
