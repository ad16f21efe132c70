package pcm

import "encoding/binary"

// Float32ToInt16 converts a float32 sample in [-1, 1] to a 16-bit
// signed sample. The input is clamped first; negative values scale by
// 32768 and non-negative values by 32767 so that 1.0 maps to 32767
// and -1.0 maps to -32768 without overflow.
func Float32ToInt16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s >= 0 {
		return int16(s * 32767)
	}
	return int16(s * 32768)
}

// Int16ToFloat32 converts a 16-bit signed sample to a float32 in
// [-1, 1], inverting the asymmetric scaling of Float32ToInt16.
func Int16ToFloat32(v int16) float32 {
	s := float32(v)
	if s >= 0 {
		return s / 32767
	}
	return s / 32768
}

// EncodeFloat32 converts float32 samples to little-endian PCM16 bytes.
// dst must hold at least len(src)*2 bytes; the written prefix of dst
// is returned.
func EncodeFloat32(dst []byte, src []float32) []byte {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(Float32ToInt16(s)))
	}
	return dst[:len(src)*2]
}

// DecodeFloat32 converts little-endian PCM16 bytes to float32 samples.
// dst must hold at least len(src)/2 samples; the written prefix of dst
// is returned. A trailing odd byte is ignored.
func DecodeFloat32(dst []float32, src []byte) []float32 {
	n := len(src) / 2
	for i := 0; i < n; i++ {
		dst[i] = Int16ToFloat32(int16(binary.LittleEndian.Uint16(src[i*2:])))
	}
	return dst[:n]
}
