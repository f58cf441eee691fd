package jobmanager

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mopria/printcore/internal/capabilities"
	"github.com/mopria/printcore/internal/plugin"
	"github.com/mopria/printcore/internal/raster"
	"github.com/mopria/printcore/internal/status"
)

func newTestManager() *Manager {
	return NewManager(zerolog.Nop(), plugin.NewRegistry())
}

func TestHandleRoundTrip(t *testing.T) {
	cases := []struct {
		slot int
		gen  uint32
	}{
		{0, 1}, {1, 1}, {63, 1}, {5, 12345}, {0, 0},
	}
	for _, c := range cases {
		h := encodeHandle(c.slot, c.gen)
		if got := h.slot(); got != c.slot {
			t.Errorf("encodeHandle(%d,%d).slot() = %d, want %d", c.slot, c.gen, got, c.slot)
		}
		if got := h.generation(); got != c.gen {
			t.Errorf("encodeHandle(%d,%d).generation() = %d, want %d", c.slot, c.gen, got, c.gen)
		}
	}
}

// TestHandleValidOnlyWhileNonFree pins invariant: decoding
// a handle returned by StartJob yields a slot whose job_handle equals
// the returned value while the job is non-FREE, and lookup fails once
// the slot is freed.
func TestHandleValidOnlyWhileNonFree(t *testing.T) {
	m := newTestManager()
	rec, err := m.allocateSlot()
	if err != nil {
		t.Fatalf("allocateSlot: %v", err)
	}
	rec.state = StateQueued
	h := rec.handle

	got := m.lookup(h)
	if got == nil || got.handle != h {
		t.Fatalf("lookup(%d) = %v, want record with matching handle", h, got)
	}

	rec.state = StateFree
	if got := m.lookup(h); got != nil {
		t.Errorf("lookup(%d) after FREE = %v, want nil", h, got)
	}
}

func TestAllocateSlotReusesFreeSlotWithNewGeneration(t *testing.T) {
	m := newTestManager()
	rec1, err := m.allocateSlot()
	if err != nil {
		t.Fatalf("allocateSlot: %v", err)
	}
	firstHandle := rec1.handle
	rec1.state = StateFree

	rec2, err := m.allocateSlot()
	if err != nil {
		t.Fatalf("allocateSlot: %v", err)
	}
	if rec2.handle.slot() != firstHandle.slot() {
		t.Fatalf("expected slot reuse, got slot %d want %d", rec2.handle.slot(), firstHandle.slot())
	}
	if rec2.handle == firstHandle {
		t.Error("reused slot must carry a new generation, not the same handle")
	}
}

func TestFinalizeParamsClampsToCapabilities(t *testing.T) {
	m := newTestManager()
	params := JobParams{Duplex: DuplexLongEdge, Borderless: true, StripHeight: 0}
	caps := capabilities.Capabilities{Duplex: false, Borderless: false, PreferredStripHeight: 32, CopiesSupported: true}

	got := m.FinalizeParams(params, caps)
	if got.Duplex != DuplexNone {
		t.Errorf("Duplex = %v, want DuplexNone (capability absent)", got.Duplex)
	}
	if got.Borderless {
		t.Error("Borderless = true, want false (capability absent)")
	}
	if got.StripHeight != 32 {
		t.Errorf("StripHeight = %d, want 32 (from capabilities)", got.StripHeight)
	}
	if !got.CopiesSupported {
		t.Error("CopiesSupported = false, want true (carried from capabilities)")
	}
}

func TestBlockedReasonNamesSharesStatusDomain(t *testing.T) {
	rec := newJobRecord(encodeHandle(0, 1), 1)
	rec.setBlockReason(status.StateOutOfPaper)
	rec.setBlockReason(status.StateJammed)

	names := rec.blockedReasonNames()
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["OUT_OF_PAPER"] || !found["JAMMED"] {
		t.Errorf("blockedReasonNames() = %v, want OUT_OF_PAPER and JAMMED", names)
	}

	rec.clearBlockReason(status.StateJammed)
	if rec.hasBlockReason(status.StateJammed) {
		t.Error("JAMMED reason still set after clearBlockReason")
	}
	if !rec.hasBlockReason(status.StateOutOfPaper) {
		t.Error("OUT_OF_PAPER reason cleared unexpectedly")
	}
}

// countingEncoder is a plugin.Encoder that only counts the blank pages
// it is asked to synthesize.
type countingEncoder struct{ blanks int }

func (e *countingEncoder) Stripe(rows [][]raster.Pixel) error                           { return nil }
func (e *countingEncoder) Init(ctx context.Context, dataDir string) error               { return nil }
func (e *countingEncoder) StartJob(ctx context.Context, p plugin.JobEncodeParams) error { return nil }
func (e *countingEncoder) BeginPage(ctx context.Context, pageNum int) error             { return nil }
func (e *countingEncoder) EndPage(ctx context.Context) error                            { return nil }
func (e *countingEncoder) EndJob(ctx context.Context) ([]byte, error)                   { return nil, nil }
func (e *countingEncoder) PrintBlankPage(ctx context.Context, pageNum int) error {
	e.blanks++
	return nil
}

// TestDuplexOddPageBlankInjectionParity pins invariant:
// duplex jobs always emit an even page count to the wire.
func TestDuplexOddPageBlankInjectionParity(t *testing.T) {
	m := newTestManager()
	enc := &countingEncoder{}
	rec := newJobRecord(encodeHandle(0, 1), 1)
	rec.params = JobParams{Duplex: DuplexLongEdge, Copies: 1}
	rec.format = plugin.WireFormatPCLm
	rec.encoder = enc
	// the page files do not exist, so each page fails to decode but is
	// still counted as sent by drivePages
	for i := 1; i <= 3; i++ {
		if err := rec.pageQueue.Send(PageQueueEntry{Pathname: "/nonexistent/page.png", PageNum: i, LastPage: i == 3}); err != nil {
			t.Fatalf("queue page %d: %v", i, err)
		}
	}

	m.drivePages(context.Background(), rec)

	pagesSent := 3 + enc.blanks
	if pagesSent%2 != 0 {
		t.Errorf("pagesSent = %d, want even after blank injection", pagesSent)
	}
}
