package pclm

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestPackBitsRoundTrip(t *testing.T) {
	tests := [][]byte{
		{},
		{1},
		{1, 1, 1, 1, 1},
		{1, 2, 3, 4, 5},
		bytes.Repeat([]byte{0xff}, 300),
		append(bytes.Repeat([]byte{1, 2, 3}, 50), bytes.Repeat([]byte{9}, 200)...),
	}
	for i, data := range tests {
		packed := PackBits(data)
		got := UnpackBits(packed)
		if !bytes.Equal(got, data) {
			t.Errorf("case %d: round trip mismatch: got %v, want %v", i, got, data)
		}
	}
}

func TestPackBitsRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		n := r.Intn(500)
		data := make([]byte, n)
		for i := range data {
			if r.Intn(3) == 0 {
				data[i] = byte(r.Intn(4)) // bias toward runs
			} else {
				data[i] = byte(r.Intn(256))
			}
		}
		packed := PackBits(data)
		got := UnpackBits(packed)
		if !bytes.Equal(got, data) {
			t.Fatalf("trial %d: round trip mismatch for %d bytes", trial, n)
		}
	}
}

func TestPackBitsEndsWithEOD(t *testing.T) {
	packed := PackBits([]byte{1, 2, 3})
	if packed[len(packed)-1] != 128 {
		t.Errorf("last byte = %d, want 128 (EOD)", packed[len(packed)-1])
	}
}
