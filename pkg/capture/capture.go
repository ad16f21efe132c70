package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/storygear/storygear/pkg/audio/pcm"
	"github.com/storygear/storygear/pkg/audio/resampler"
)

// ErrUnavailable reports that the input device could not be acquired.
// Recording does not start and all other state is unaffected.
var ErrUnavailable = errors.New("capture: device unavailable")

// volumeInterval is the cadence of volume callbacks, roughly one
// animation frame. Independent of chunk emission.
const volumeInterval = 33 * time.Millisecond

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithChunkFunc sets the callback receiving each PCM16 chunk. The
// slice is owned by the callback.
func WithChunkFunc(fn func(chunk []byte)) RecorderOption {
	return func(r *Recorder) { r.chunkFn = fn }
}

// WithVolumeFunc sets the callback receiving the smoothed input
// volume in [0, 1] at animation-frame cadence.
func WithVolumeFunc(fn func(volume float64)) RecorderOption {
	return func(r *Recorder) { r.volumeFn = fn }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// Recorder owns a single capture session over an input Source.
type Recorder struct {
	open     OpenSourceFunc
	opts     Options
	chunkFn  func([]byte)
	volumeFn func(float64)
	logger   *slog.Logger

	// volume is the smoothed magnitude, stored as math.Float64bits.
	volume atomic.Uint64

	mu     sync.Mutex
	src    Source
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a Recorder that acquires its input through open.
func NewRecorder(open OpenSourceFunc, opts Options, ropts ...RecorderOption) *Recorder {
	r := &Recorder{
		open:   open,
		opts:   opts.withDefaults(),
		logger: slog.Default(),
	}
	for _, o := range ropts {
		o(r)
	}
	return r
}

// Recording reports whether a capture session is open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src != nil
}

// Start acquires the input device and begins emitting chunks. Calling
// Start while already recording is a no-op. If the device cannot be
// acquired it returns an error wrapping ErrUnavailable and leaves the
// recorder unchanged.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.src != nil {
		return nil
	}

	src, err := r.open(r.opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rs *resampler.Stream
	if src.SampleRate() != r.opts.SampleRate {
		rs, err = resampler.New(src.SampleRate(), r.opts.SampleRate)
		if err != nil {
			src.Close()
			return fmt.Errorf("capture: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	r.src = src
	r.cancel = cancel
	r.done = make(chan struct{})
	r.volume.Store(0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.readLoop(ctx, src, rs)
	}()
	go func() {
		defer wg.Done()
		r.volumeLoop(ctx)
	}()
	go func(done chan struct{}) {
		wg.Wait()
		close(done)
	}(r.done)

	r.logger.Info("capture started",
		"device_rate", src.SampleRate(),
		"target_rate", r.opts.SampleRate,
		"buffer", r.opts.BufferDuration)
	return nil
}

// Stop tears down the capture session. It is idempotent and blocks
// until the read loop and volume ticker have exited, so no callback
// fires after it returns. Must not be called from inside a callback.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.src == nil {
		r.mu.Unlock()
		return nil
	}
	src, cancel, done := r.src, r.cancel, r.done
	r.src, r.cancel, r.done = nil, nil, nil
	r.mu.Unlock()

	cancel()
	err := src.Close()
	<-done

	r.logger.Info("capture stopped")
	return err
}

func (r *Recorder) readLoop(ctx context.Context, src Source, rs *resampler.Stream) {
	if rs != nil {
		defer rs.Close()
	}

	frameLen := int(time.Duration(src.SampleRate()) * r.opts.BufferDuration / time.Second)
	frame := make([]float32, frameLen)
	encoded := make([]byte, 0, frameLen*2)

	for {
		n, err := src.ReadFloats(frame)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Error("capture read failed", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if n == 0 {
			continue
		}

		samples := frame[:n]
		if rs != nil {
			samples, err = rs.Process(samples)
			if err != nil {
				r.logger.Error("capture resample failed", "error", err)
				return
			}
			if len(samples) == 0 {
				continue
			}
		}

		r.updateVolume(pcm.AvgMagnitude(samples))

		if r.chunkFn != nil {
			if cap(encoded) < len(samples)*2 {
				encoded = make([]byte, 0, len(samples)*2)
			}
			chunk := pcm.EncodeFloat32(encoded[:len(samples)*2], samples)
			out := make([]byte, len(chunk))
			copy(out, chunk)
			r.chunkFn(out)
		}
	}
}

func (r *Recorder) volumeLoop(ctx context.Context) {
	if r.volumeFn == nil {
		return
	}
	ticker := time.NewTicker(volumeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.volumeFn(math.Float64frombits(r.volume.Load()))
		}
	}
}

// updateVolume folds a new magnitude sample into the smoothed
// estimate. The 0.2 blend keeps the meter responsive without jitter.
func (r *Recorder) updateVolume(mag float64) {
	prev := math.Float64frombits(r.volume.Load())
	next := prev*0.8 + mag*0.2
	r.volume.Store(math.Float64bits(next))
}
