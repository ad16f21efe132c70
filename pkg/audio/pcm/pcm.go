package pcm

import "time"

const (
	// L16Mono16K represents audio/pcm;rate=16000, the uplink capture format.
	L16Mono16K Format = iota
	// L16Mono24K represents audio/pcm;rate=24000, the downlink playback format.
	L16Mono24K
	// L16Mono48K represents audio/pcm;rate=48000, a common device rate.
	L16Mono48K
)

// Format represents a fixed mono 16-bit PCM configuration.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid format")
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes / 2
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * 2
}

// Duration returns the playing time of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * 2
}

// MimeType returns the wire mime type for this format,
// e.g. "audio/pcm;rate=16000".
func (f Format) MimeType() string {
	switch f {
	case L16Mono16K:
		return "audio/pcm;rate=16000"
	case L16Mono24K:
		return "audio/pcm;rate=24000"
	case L16Mono48K:
		return "audio/pcm;rate=48000"
	}
	panic("pcm: invalid format")
}

// FormatForRate returns the Format for a sample rate in Hz.
func FormatForRate(rate int) (Format, bool) {
	switch rate {
	case 16000:
		return L16Mono16K, true
	case 24000:
		return L16Mono24K, true
	case 48000:
		return L16Mono48K, true
	}
	return 0, false
}

// String returns a human-readable representation of the format.
func (f Format) String() string {
	return f.MimeType()
}
