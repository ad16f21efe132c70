package pcm

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestFloat32ToInt16Boundaries(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{2, 32767},   // clamped
		{-2, -32768}, // clamped
		{0.5, 16383},
		{-0.5, -16384},
	}
	for _, c := range cases {
		if got := Float32ToInt16(c.in); got != c.want {
			t.Errorf("Float32ToInt16(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestInt16ToFloat32Boundaries(t *testing.T) {
	if got := Int16ToFloat32(0); got != 0 {
		t.Errorf("Int16ToFloat32(0) = %v, want 0", got)
	}
	if got := Int16ToFloat32(32767); got != 1 {
		t.Errorf("Int16ToFloat32(32767) = %v, want 1", got)
	}
	if got := Int16ToFloat32(-32768); got != -1 {
		t.Errorf("Int16ToFloat32(-32768) = %v, want -1", got)
	}
}

func TestConvertRoundTrip(t *testing.T) {
	// Every int16 value survives a float32 round trip exactly.
	for v := math.MinInt16; v <= math.MaxInt16; v++ {
		s := Int16ToFloat32(int16(v))
		if got := Float32ToInt16(s); got != int16(v) {
			t.Fatalf("round trip of %d produced %d", v, got)
		}
	}
}

func TestEncodeDecodeFloat32(t *testing.T) {
	src := []float32{0, 0.25, -0.25, 1, -1}
	buf := make([]byte, len(src)*2)
	out := EncodeFloat32(buf, src)
	if len(out) != len(src)*2 {
		t.Fatalf("encoded %d bytes, want %d", len(out), len(src)*2)
	}

	if got := int16(binary.LittleEndian.Uint16(out[6:])); got != 32767 {
		t.Errorf("sample 3 encoded to %d, want 32767", got)
	}
	if got := int16(binary.LittleEndian.Uint16(out[8:])); got != -32768 {
		t.Errorf("sample 4 encoded to %d, want -32768", got)
	}

	dst := make([]float32, len(src))
	back := DecodeFloat32(dst, out)
	for i := range src {
		if back[i] != src[i] {
			t.Errorf("sample %d decoded to %v, want %v", i, back[i], src[i])
		}
	}
}

func TestDecodeFloat32IgnoresOddTrailingByte(t *testing.T) {
	src := []byte{0, 0, 0xFF} // one full sample plus a stray byte
	dst := make([]float32, 2)
	out := DecodeFloat32(dst, src)
	if len(out) != 1 {
		t.Fatalf("decoded %d samples, want 1", len(out))
	}
}

func TestFormatMath(t *testing.T) {
	f := L16Mono24K
	if f.SampleRate() != 24000 {
		t.Errorf("SampleRate = %d", f.SampleRate())
	}
	// 100ms at 24kHz mono 16-bit = 2400 samples = 4800 bytes
	if n := f.BytesInDuration(100 * time.Millisecond); n != 4800 {
		t.Errorf("BytesInDuration(100ms) = %d, want 4800", n)
	}
	if d := f.Duration(4800); d.Milliseconds() != 100 {
		t.Errorf("Duration(4800) = %v, want 100ms", d)
	}
	if got := f.MimeType(); got != "audio/pcm;rate=24000" {
		t.Errorf("MimeType = %q", got)
	}
}

func TestFormatForRate(t *testing.T) {
	if f, ok := FormatForRate(16000); !ok || f != L16Mono16K {
		t.Errorf("FormatForRate(16000) = %v, %v", f, ok)
	}
	if _, ok := FormatForRate(44100); ok {
		t.Error("FormatForRate(44100) should not resolve")
	}
}
