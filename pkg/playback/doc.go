// Package playback implements the receive side of the story pipeline:
// a scheduler that buffers incoming PCM16 chunks, reorders them by
// sender-assigned sequence number, and commits them back-to-back on a
// rendering clock so consecutive chunks play with no audible gap.
//
// Each unit's start time derives from the cumulative end time of all
// prior units rather than from wall-clock "now", so bursty arrival
// does not introduce gaps as long as production stays ahead of the
// clock. There is no underrun padding: a chunk that arrives after its
// slot has elapsed simply plays immediately, which can produce an
// audible gap. That is a documented property of the pipeline, not a
// bug to smooth over with buffering.
//
// Clear is the barge-in primitive: it discards everything pending,
// resets the timeline to the clock's current position, and releases
// the sink so the next Enqueue starts fresh.
package playback
