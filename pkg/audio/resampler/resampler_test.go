package resampler

import (
	"math"
	"testing"
)

func sineFrame(freq float64, rate, n int, phase *float64) []float32 {
	frame := make([]float32, n)
	step := 2 * math.Pi * freq / float64(rate)
	for i := range frame {
		frame[i] = float32(0.5 * math.Sin(*phase))
		*phase += step
	}
	return frame
}

func TestNewRejectsInvalidRates(t *testing.T) {
	if _, err := New(0, 16000); err == nil {
		t.Error("New(0, 16000) should fail")
	}
	if _, err := New(48000, -1); err == nil {
		t.Error("New(48000, -1) should fail")
	}
}

func TestPassthroughWhenRatesMatch(t *testing.T) {
	s, err := New(16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	in := []float32{0.1, -0.2, 0.3}
	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed: %v != %v", i, out[i], in[i])
		}
	}
}

func TestDownsample48kTo16k(t *testing.T) {
	s, err := New(48000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Feed 1s of 48kHz audio in 10ms frames; expect roughly 16000
	// output samples once the converter's startup latency settles.
	var phase float64
	var total int
	for i := 0; i < 100; i++ {
		frame := sineFrame(440, 48000, 480, &phase)
		out, err := s.Process(frame)
		if err != nil {
			t.Fatal(err)
		}
		total += len(out)
	}

	if total < 14000 || total > 17000 {
		t.Errorf("got %d output samples for 1s of input, want ~16000", total)
	}
}

func TestProcessAfterClose(t *testing.T) {
	s, err := New(48000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Process([]float32{0}); err == nil {
		t.Error("Process after Close should fail")
	}
}
