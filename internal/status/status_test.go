package status

import (
	"reflect"
	"sort"
	"testing"
)

func TestParseAttributesIdle(t *testing.T) {
	got := ParseAttributes("idle", nil)
	if got.Status != StateIdle {
		t.Errorf("Status = %v, want StateIdle", got.Status)
	}
	if got.Reasons != 0 {
		t.Errorf("Reasons = %x, want 0", got.Reasons)
	}
}

func TestParseAttributesOutOfPaper(t *testing.T) {
	got := ParseAttributes("stopped", []string{"media-empty-error"})
	if !got.HasReason(StateOutOfPaper) {
		t.Errorf("expected StateOutOfPaper set in reasons, got %x", got.Reasons)
	}
}

func TestParseAttributesNoneReason(t *testing.T) {
	got := ParseAttributes("idle", []string{"none"})
	if got.Reasons != 0 {
		t.Errorf("Reasons = %x, want 0 for 'none' keyword", got.Reasons)
	}
}

func TestReasonNames(t *testing.T) {
	s := ParseAttributes("stopped", []string{"media-jam-error", "door-open-warning"})
	names := s.ReasonNames()
	sort.Strings(names)
	want := []string{"DOOR_OPEN", "JAMMED"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("ReasonNames() = %v, want %v", names, want)
	}
}

func TestEqual(t *testing.T) {
	a := ParseAttributes("idle", nil)
	b := ParseAttributes("idle", nil)
	if !a.Equal(b) {
		t.Error("expected identical observations to be Equal")
	}
	c := ParseAttributes("stopped", []string{"media-jam-error"})
	if a.Equal(c) {
		t.Error("expected differing observations to not be Equal")
	}
}

func TestIppStateToKeyword(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{3, "idle"},
		{4, "processing"},
		{5, "stopped"},
		{99, ""},
	}
	for _, tt := range tests {
		if got := ippStateToKeyword(tt.in); got != tt.want {
			t.Errorf("ippStateToKeyword(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
