// Package capture implements the microphone side of the story
// pipeline: it acquires a mono float32 stream from an input source,
// normalizes it to the fixed 16 kHz uplink rate, converts samples to
// little-endian PCM16, and emits periodic binary chunks plus a
// smoothed volume estimate for UI indicators.
//
// A Recorder owns at most one open capture session. Start while
// recording is a no-op; Stop is idempotent and guarantees that no
// callback fires after it returns.
package capture
