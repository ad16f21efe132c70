package resampler

import (
	"fmt"
	"io"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Stream converts mono float32 audio frames from one sample rate to
// another. It is a stateful streaming converter: each call to Process
// may return more or fewer samples than it was given, depending on the
// converter's internal buffering. Not safe for concurrent use.
type Stream struct {
	inRate  int
	outRate int

	rs     resampling.Resampler
	in     []float64
	out    []float32
	closed bool
}

// New creates a Stream converting from inRate to outRate Hz. Rates
// must be positive. When the rates are equal, Process passes frames
// through unchanged.
func New(inRate, outRate int) (*Stream, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", inRate, outRate)
	}

	s := &Stream{inRate: inRate, outRate: outRate}
	if inRate == outRate {
		return s, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	s.rs = rs
	return s, nil
}

// Process converts one frame of samples. The returned slice is only
// valid until the next call. When no conversion is needed the input
// frame is returned as-is.
func (s *Stream) Process(frame []float32) ([]float32, error) {
	if s.closed {
		return nil, fmt.Errorf("resampler: %w", io.ErrClosedPipe)
	}
	if s.rs == nil {
		return frame, nil
	}

	if cap(s.in) < len(frame) {
		s.in = make([]float64, len(frame))
	}
	in := s.in[:len(frame)]
	for i, v := range frame {
		in[i] = float64(v)
	}

	out, err := s.rs.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}

	if cap(s.out) < len(out) {
		s.out = make([]float32, len(out))
	}
	res := s.out[:len(out)]
	for i, v := range out {
		res[i] = float32(v)
	}
	return res, nil
}

// Close releases the converter. Subsequent Process calls fail.
func (s *Stream) Close() error {
	s.closed = true
	s.rs = nil
	return nil
}
