package portaudio

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/storygear/storygear/pkg/audio/pcm"
)

// InputStream captures mono float32 audio from the default input
// device. It satisfies the capture pipeline's Source contract.
type InputStream struct {
	stream *Stream
	rate   int
	frames int
	mu     sync.Mutex
	closed bool
}

// NewInputStream opens the default input device for mono float32
// capture at the given rate. bufferDuration sets the per-read frame
// size (smaller buffers lower latency, larger reduce overhead).
func NewInputStream(rate int, bufferDuration time.Duration) (*InputStream, error) {
	framesPerBuffer := int(time.Duration(rate) * bufferDuration / time.Second)

	stream, err := openStream(1, 0, float64(rate), framesPerBuffer, formatFloat32)
	if err != nil {
		return nil, err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}

	return &InputStream{
		stream: stream,
		rate:   rate,
		frames: framesPerBuffer,
	}, nil
}

// ReadFloats reads one buffer of float32 samples in [-1, 1] into buf
// and returns the number of samples read.
func (is *InputStream) ReadFloats(buf []float32) (int, error) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.closed {
		return 0, io.EOF
	}
	return is.stream.ReadFloat32(buf, is.frames)
}

// SampleRate returns the device sample rate in Hz.
func (is *InputStream) SampleRate() int {
	return is.rate
}

// Close stops and closes the stream. Safe to call more than once.
func (is *InputStream) Close() error {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.closed {
		return nil
	}
	is.closed = true

	return is.stream.Close()
}

// OutputStream plays PCM16 audio on the default output device. It
// satisfies the playback scheduler's Sink contract.
type OutputStream struct {
	stream  *Stream
	format  pcm.Format
	samples []int16
	mu      sync.Mutex
	closed  bool
}

// NewOutputStream opens the default output device for mono PCM16
// playback in the given format. bufferDuration sets the device-side
// buffer size.
func NewOutputStream(format pcm.Format, bufferDuration time.Duration) (*OutputStream, error) {
	framesPerBuffer := int(format.SamplesInDuration(bufferDuration))

	stream, err := openStream(0, 1, float64(format.SampleRate()), framesPerBuffer, formatInt16)
	if err != nil {
		return nil, err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}

	return &OutputStream{
		stream: stream,
		format: format,
	}, nil
}

// WriteBytes writes little-endian PCM16 bytes to the device, blocking
// until the device has consumed them. A trailing odd byte is ignored.
func (os *OutputStream) WriteBytes(p []byte) (int, error) {
	os.mu.Lock()
	defer os.mu.Unlock()

	if os.closed {
		return 0, errors.New("portaudio: stream closed")
	}

	n := len(p) / 2
	if cap(os.samples) < n {
		os.samples = make([]int16, n)
	}
	samples := os.samples[:n]
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(p[i*2:]))
	}

	if err := os.stream.WriteInt16(samples); err != nil {
		return 0, err
	}
	return n * 2, nil
}

// Format returns the playback PCM format.
func (os *OutputStream) Format() pcm.Format {
	return os.format
}

// Close stops and closes the stream. Safe to call more than once.
func (os *OutputStream) Close() error {
	os.mu.Lock()
	defer os.mu.Unlock()

	if os.closed {
		return nil
	}
	os.closed = true

	return os.stream.Close()
}
