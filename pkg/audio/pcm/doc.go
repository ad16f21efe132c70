// Package pcm provides types and utilities for 16-bit mono PCM audio.
//
// The package defines the fixed formats used by the story pipeline
// (16 kHz capture, 24 kHz playback), duration/byte math on those
// formats, conversion between float32 samples in [-1, 1] and
// little-endian PCM16 bytes, and loudness metering for volume
// indicators.
//
// Key types:
//   - Format: sample rate / channel / depth configuration
//   - EncodeFloat32 / DecodeFloat32: sample conversion
//   - RMS / AvgMagnitude: loudness estimates normalized to [0, 1]
package pcm
