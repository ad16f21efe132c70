// Package audio is the umbrella for the audio sub-packages:
//
//   - pcm: mono 16-bit PCM formats, sample conversion, loudness metering
//   - resampler: streaming sample-rate conversion for capture input
//   - portaudio: cgo PortAudio device layer (input/output streams)
package audio
