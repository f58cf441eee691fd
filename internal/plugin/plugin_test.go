package plugin

import "testing"

func TestRegistryResolvesHighestPriority(t *testing.T) {
	r := NewRegistry()
	r.Register("application/pdf", WireFormatPCLm, 1, func() Encoder { return nil })
	r.Register("application/pdf", WireFormatPCLm, 5, func() Encoder { return nil })
	r.Register("application/pdf", WireFormatPWG, 10, func() Encoder { return nil })

	f, err := r.Resolve("application/pdf", WireFormatPCLm)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f == nil {
		t.Fatal("expected a non-nil factory")
	}
}

func TestRegistryUnknownPairErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("image/jpeg", WireFormatPWG); err == nil {
		t.Fatal("expected error for unregistered pair")
	}
}

func TestResolveWireFormatPrefersPWG(t *testing.T) {
	got := ResolveWireFormat("image/jpeg", false, true, true)
	if got != WireFormatPWG {
		t.Errorf("ResolveWireFormat = %v, want PWG", got)
	}
}

func TestResolveWireFormatPassthroughPDF(t *testing.T) {
	got := ResolveWireFormat("application/pdf", true, true, true)
	if got != WireFormatPDF {
		t.Errorf("ResolveWireFormat = %v, want PDF passthrough", got)
	}
}

func TestResolveWireFormatFallsBackToPCLm(t *testing.T) {
	got := ResolveWireFormat("image/jpeg", false, true, false)
	if got != WireFormatPCLm {
		t.Errorf("ResolveWireFormat = %v, want PCLm", got)
	}
}
