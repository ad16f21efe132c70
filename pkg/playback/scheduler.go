package playback

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/storygear/storygear/pkg/audio/pcm"
)

// State is the scheduler's lifecycle state.
type State int

const (
	// Idle means no unit is scheduled or rendering.
	Idle State = iota
	// Active means units are queued or rendering.
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// DecodeError reports an undecodable audio payload. The chunk is
// skipped and the scheduler advances to the next queued chunk.
type DecodeError struct {
	Seq    int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("playback: chunk %d: %s", e.Seq, e.Reason)
}

// volumeInterval is the cadence of volume callbacks while active,
// roughly one animation frame.
const volumeInterval = 33 * time.Millisecond

// renderSlice is the granularity at which a unit is written to the
// sink, bounding how long Clear waits for an in-flight write.
const renderSlice = 20 * time.Millisecond

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock sets the rendering clock. Defaults to SystemClock().
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithVolumeFunc sets the callback receiving the current output
// loudness in [0, 1] at animation-frame cadence while active, and a
// final zero on the transition to idle.
func WithVolumeFunc(fn func(volume float64)) SchedulerOption {
	return func(s *Scheduler) { s.volumeFn = fn }
}

// WithErrorFunc sets the callback receiving per-chunk and sink errors.
// Errors are isolated per operation and never stall the queue.
func WithErrorFunc(fn func(err error)) SchedulerOption {
	return func(s *Scheduler) { s.errorFn = fn }
}

// WithSchedulerLogger sets the logger. Defaults to slog.Default().
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// unit is one queued chunk awaiting rendering.
type unit struct {
	seq  int
	data []byte
}

// run is one idle->active->idle span of the scheduler.
type run struct {
	stop chan struct{} // closed by Clear
	done chan struct{} // closed when playout exits
	wake chan struct{} // signaled when the queue changes mid-wait
}

// Scheduler owns the playback queue, the scheduling timeline, and the
// rendering sink. Enqueue, Clear, and Unlock are the only mutation
// surface; the sink is touched exclusively by the playout goroutine
// and by Clear.
type Scheduler struct {
	format   pcm.Format
	openSink OpenSinkFunc
	clock    Clock
	volumeFn func(float64)
	errorFn  func(error)
	logger   *slog.Logger

	// rms holds the loudness of the slice currently rendering, as
	// math.Float64bits.
	rms atomic.Uint64

	mu    sync.Mutex
	queue []unit // ascending by seq
	next  time.Duration
	state State
	sink  Sink
	run   *run
}

// NewScheduler creates a Scheduler rendering the given PCM format
// through sinks acquired from open.
func NewScheduler(format pcm.Format, open OpenSinkFunc, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		format:   format,
		openSink: open,
		clock:    SystemClock(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State reports whether the scheduler is idle or active.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the number of queued-but-not-yet-rendered chunks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// NextStartTime returns the clock position at which the next enqueued
// chunk would be scheduled, before clamping to the current time.
func (s *Scheduler) NextStartTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Enqueue inserts a PCM16 chunk in sequence order and transitions the
// scheduler to active if it was idle. Arrival order need not match
// sequence order; chunks enqueued before their slot elapses render in
// ascending sequence order.
func (s *Scheduler) Enqueue(seq int, pcm16 []byte) {
	s.mu.Lock()

	// Stable insert: equal sequences keep arrival order.
	i := len(s.queue)
	for i > 0 && s.queue[i-1].seq > seq {
		i--
	}
	s.queue = append(s.queue, unit{})
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = unit{seq: seq, data: pcm16}

	if s.run == nil {
		r := &run{
			stop: make(chan struct{}),
			done: make(chan struct{}),
			wake: make(chan struct{}, 1),
		}
		s.run = r
		s.state = Active
		s.mu.Unlock()
		go s.playout(r)
		go s.volumeLoop(r)
		return
	}

	r := s.run
	s.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Clear is the cancellation primitive implementing barge-in. It
// discards all queued chunks, aborts the in-flight unit, resets the
// timeline to the clock's current position, transitions to idle,
// zeroes the reported volume, and releases the sink so a subsequent
// Enqueue starts a fresh gapless timeline. Idempotent. Must not be
// called from inside a scheduler callback.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	s.queue = nil
	s.next = s.clock.Now()
	s.state = Idle
	s.rms.Store(0)
	r := s.run
	s.run = nil
	sink := s.sink
	s.sink = nil
	s.mu.Unlock()

	if r != nil {
		close(r.stop)
	}
	// Closing the sink unblocks a render stuck in a device write.
	if sink != nil {
		sink.Close()
	}
	if r != nil {
		<-r.done
	}
	if s.volumeFn != nil {
		s.volumeFn(0)
	}
}

// Unlock eagerly acquires the rendering sink. Platforms that gate
// audio output on a user gesture call this from the gesture handler.
// Idempotent.
func (s *Scheduler) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink != nil {
		return nil
	}
	sink, err := s.openSink()
	if err != nil {
		return fmt.Errorf("playback: unlock: %w", err)
	}
	s.sink = sink
	return nil
}

// playout is the single goroutine that commits units to the sink for
// one run. It peeks rather than pops before waiting, so a
// lower-sequence chunk arriving before the head's start time elapses
// still renders first.
func (s *Scheduler) playout(r *run) {
	defer close(r.done)

	for {
		s.mu.Lock()
		if s.run != r {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			// Final unit completed with an empty queue: back to idle.
			s.run = nil
			s.state = Idle
			s.rms.Store(0)
			s.mu.Unlock()
			if s.volumeFn != nil {
				s.volumeFn(0)
			}
			return
		}
		now := s.clock.Now()
		start := s.next
		if now > start {
			start = now
		}
		wait := start - now
		s.mu.Unlock()

		select {
		case <-s.clock.After(wait):
		case <-r.wake:
			continue
		case <-r.stop:
			return
		}

		s.mu.Lock()
		if s.run != r {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			continue
		}
		u := s.queue[0]
		s.queue = s.queue[1:]
		if len(u.data) == 0 || len(u.data)%2 != 0 {
			s.mu.Unlock()
			s.reportError(&DecodeError{Seq: u.seq, Reason: "undecodable pcm16 payload"})
			continue
		}
		now = s.clock.Now()
		start = s.next
		if now > start {
			start = now
		}
		s.next = start + s.format.Duration(int64(len(u.data)))
		sink := s.sink
		s.mu.Unlock()

		if sink == nil {
			var err error
			sink, err = s.openSink()
			if err != nil {
				s.reportError(fmt.Errorf("playback: open sink: %w", err))
				s.endRun(r)
				return
			}
			s.mu.Lock()
			if s.run != r {
				s.mu.Unlock()
				sink.Close()
				return
			}
			s.sink = sink
			s.mu.Unlock()
		}

		if !s.render(r, u, sink) {
			return
		}
	}
}

// render writes one unit to the sink in short slices, publishing the
// loudness of each slice for the volume tap. It returns false when the
// run must end (cleared mid-render or sink failure).
func (s *Scheduler) render(r *run, u unit, sink Sink) bool {
	slice := int(s.format.BytesInDuration(renderSlice))
	if slice%2 != 0 {
		slice++
	}
	samples := make([]float32, slice/2)

	for off := 0; off < len(u.data); off += slice {
		select {
		case <-r.stop:
			return false
		default:
		}

		end := off + slice
		if end > len(u.data) {
			end = len(u.data)
		}
		part := u.data[off:end]
		s.rms.Store(math.Float64bits(pcm.RMS(pcm.DecodeFloat32(samples[:len(part)/2], part))))

		if _, err := sink.WriteBytes(part); err != nil {
			select {
			case <-r.stop:
				// Clear closed the sink under us; not a failure.
			default:
				s.reportError(fmt.Errorf("playback: render chunk %d: %w", u.seq, err))
				s.dropSink(sink)
				s.endRun(r)
			}
			return false
		}
	}
	return true
}

// volumeLoop reports loudness at animation-frame cadence while the
// run is active. The run's terminal zero is reported by playout/Clear.
func (s *Scheduler) volumeLoop(r *run) {
	if s.volumeFn == nil {
		return
	}
	ticker := time.NewTicker(volumeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-r.done:
			return
		case <-ticker.C:
			s.volumeFn(math.Float64frombits(s.rms.Load()))
		}
	}
}

// endRun transitions to idle after a sink failure, keeping queued
// chunks out of a broken pipeline.
func (s *Scheduler) endRun(r *run) {
	s.mu.Lock()
	if s.run == r {
		s.run = nil
		s.state = Idle
		s.queue = nil
		s.rms.Store(0)
	}
	s.mu.Unlock()
	if s.volumeFn != nil {
		s.volumeFn(0)
	}
}

// dropSink releases a failed sink so the next run reopens a fresh one.
func (s *Scheduler) dropSink(sink Sink) {
	s.mu.Lock()
	if s.sink == sink {
		s.sink = nil
	}
	s.mu.Unlock()
	sink.Close()
}

func (s *Scheduler) reportError(err error) {
	s.logger.Warn("playback error", "error", err)
	if s.errorFn != nil {
		s.errorFn(err)
	}
}
