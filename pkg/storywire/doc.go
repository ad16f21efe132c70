// Package storywire defines the framed messages exchanged with the
// story peer over the duplex channel.
//
// The protocol is message-oriented: each frame is a complete,
// independently parseable JSON record of the shape
//
//	{"type": "...", "data": "...", "mime_type": "...", "sequence": 0}
//
// Outgoing client frames carry text, base64 PCM16 audio at 16 kHz, or
// an interrupt control. Incoming peer frames interleave partial text,
// base64 images, sequenced audio chunks, status hints, and errors.
// Decode never panics on malformed input; it reports a *DecodeError
// so the receive loop can drop the frame and keep running.
package storywire
