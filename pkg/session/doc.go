// Package session orchestrates one story conversation over a websocket:
// it owns the connection state machine, decodes incoming frames and
// routes them (text and images to the storyboard, audio to the playback
// scheduler, status and errors to callbacks), and drives the uplink
// side (text messages, press-to-talk capture, barge-in).
//
// Barge-in ordering is load-bearing: Interrupt clears local playback
// before the interrupt frame is sent, so stale audio stops rendering
// even if the peer keeps streaming for a moment.
package session
