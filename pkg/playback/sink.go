package playback

// Sink is the audio rendering resource playback units are written to.
// portaudio.OutputStream satisfies it; tests use fakes. A real sink
// paces writes at the device rate.
type Sink interface {
	// WriteBytes renders little-endian PCM16 bytes, blocking until the
	// device has consumed them.
	WriteBytes(p []byte) (int, error)

	// Close releases the device.
	Close() error
}

// OpenSinkFunc acquires the rendering resource. The scheduler calls it
// lazily on first use (or eagerly from Unlock) and again after Clear
// has released the previous sink.
type OpenSinkFunc func() (Sink, error)
