package config

import (
	"testing"
	"time"
)

func TestApplyOverridesOnlyNonZeroFields(t *testing.T) {
	cfg := DefaultConfig()
	var f File
	f.Printer.Addr = "printer.local"
	f.Monitor.PollInterval = "2s"
	f.Rendering.StripHeightMax = 64

	Apply(&cfg, &f)

	if cfg.PrinterAddr != "printer.local" {
		t.Errorf("PrinterAddr = %q, want %q", cfg.PrinterAddr, "printer.local")
	}
	if cfg.PrinterPort != 631 {
		t.Errorf("PrinterPort = %d, want unchanged default 631", cfg.PrinterPort)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.StripHeightMax != 64 {
		t.Errorf("StripHeightMax = %d, want 64", cfg.StripHeightMax)
	}
	if cfg.StripHeightMin != 1 {
		t.Errorf("StripHeightMin = %d, want unchanged default 1", cfg.StripHeightMin)
	}
}

func TestApplyIgnoresMalformedDuration(t *testing.T) {
	cfg := DefaultConfig()
	want := cfg.PollInterval
	var f File
	f.Monitor.PollInterval = "not-a-duration"

	Apply(&cfg, &f)

	if cfg.PollInterval != want {
		t.Errorf("PollInterval = %v, want unchanged %v on parse failure", cfg.PollInterval, want)
	}
}

func TestClampStripHeightCoercesZero(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ClampStripHeight(0); got != 16 {
		t.Errorf("ClampStripHeight(0) = %d, want 16", got)
	}
}

func TestClampStripHeightBoundsToRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StripHeightMin, cfg.StripHeightMax = 8, 32

	if got := cfg.ClampStripHeight(4); got != 8 {
		t.Errorf("ClampStripHeight(4) = %d, want floor 8", got)
	}
	if got := cfg.ClampStripHeight(100); got != 32 {
		t.Errorf("ClampStripHeight(100) = %d, want ceiling 32", got)
	}
	if got := cfg.ClampStripHeight(20); got != 20 {
		t.Errorf("ClampStripHeight(20) = %d, want 20 unchanged", got)
	}
}

func TestApplyAppendsOptOutMakes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OptOutMakes = []string{"Acme"}
	var f File
	f.OptOut.Makes = []string{"Globex"}

	Apply(&cfg, &f)

	if len(cfg.OptOutMakes) != 2 || cfg.OptOutMakes[0] != "Acme" || cfg.OptOutMakes[1] != "Globex" {
		t.Errorf("OptOutMakes = %v, want [Acme Globex]", cfg.OptOutMakes)
	}
}
