package ui

import (
	"strings"
	"testing"
)

func TestVolumeBarEndpoints(t *testing.T) {
	tests := []struct {
		v      float64
		filled int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{-3, 0},
		{9, 10},
	}
	for _, tt := range tests {
		bar := VolumeBar(tt.v, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("VolumeBar(%v, 10) filled %d cells, want %d", tt.v, got, tt.filled)
		}
		if n := len([]rune(bar)); n != 10 {
			t.Errorf("VolumeBar(%v, 10) is %d cells wide", tt.v, n)
		}
	}
}

func TestVolumeBarZeroWidth(t *testing.T) {
	if got := VolumeBar(0.5, 0); got != "" {
		t.Errorf("VolumeBar(0.5, 0) = %q", got)
	}
}
