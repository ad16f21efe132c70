package pcm

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v", got)
	}

	// A full-scale square wave has RMS 1.
	square := []float32{1, -1, 1, -1}
	if got := RMS(square); math.Abs(got-1) > 1e-6 {
		t.Errorf("RMS(square) = %v, want 1", got)
	}

	// A sine wave has RMS amplitude/sqrt(2).
	sine := make([]float32, 16000)
	for i := range sine {
		sine[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	want := 0.5 / math.Sqrt2
	if got := RMS(sine); math.Abs(got-want) > 0.01 {
		t.Errorf("RMS(sine) = %v, want ~%v", got, want)
	}
}

func TestAvgMagnitude(t *testing.T) {
	if got := AvgMagnitude(nil); got != 0 {
		t.Errorf("AvgMagnitude(nil) = %v", got)
	}
	samples := []float32{0.5, -0.5, 1, -1}
	if got := AvgMagnitude(samples); math.Abs(got-0.75) > 1e-6 {
		t.Errorf("AvgMagnitude = %v, want 0.75", got)
	}
}
