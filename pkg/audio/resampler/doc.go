// Package resampler provides streaming sample-rate conversion for the
// capture pipeline.
//
// The capture device may run at a rate other than the fixed 16 kHz
// uplink rate (48 kHz is common); a Stream converts mono float32
// frames from the device rate to the target rate as they arrive.
// When the rates match, frames pass through untouched.
package resampler
