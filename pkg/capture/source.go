package capture

import "time"

// Options configures how a capture session acquires its input device.
type Options struct {
	// SampleRate is the target uplink rate in Hz. Defaults to 16000.
	// Sources running at a different rate are resampled.
	SampleRate int

	// BufferDuration is the per-read frame size. Smaller buffers lower
	// latency, larger ones reduce overhead. Defaults to 20ms.
	BufferDuration time.Duration

	// Voice processing requested from the device. Sources apply these
	// best-effort; a source with no such processing ignores them.
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

func (o Options) withDefaults() Options {
	if o.SampleRate == 0 {
		o.SampleRate = 16000
	}
	if o.BufferDuration == 0 {
		o.BufferDuration = 20 * time.Millisecond
	}
	return o
}

// Source is a live mono audio input producing float32 samples in
// [-1, 1]. portaudio.InputStream satisfies it; tests use fakes.
type Source interface {
	// ReadFloats fills buf with up to one frame of samples and returns
	// the number of samples read. It blocks until samples are
	// available or the source is closed.
	ReadFloats(buf []float32) (int, error)

	// SampleRate returns the source's native rate in Hz.
	SampleRate() int

	// Close releases the device. ReadFloats calls unblock with an
	// error after Close.
	Close() error
}

// OpenSourceFunc acquires a Source for the given options. It is called
// once per capture session; a failure leaves the recorder unchanged.
type OpenSourceFunc func(Options) (Source, error)
