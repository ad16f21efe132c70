package pcm

import "math"

// RMS returns the root-mean-square loudness of float32 samples,
// normalized to [0, 1]. An empty slice reports 0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// AvgMagnitude returns the mean absolute amplitude of float32 samples,
// normalized to [0, 1]. An empty slice reports 0.
func AvgMagnitude(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return sum / float64(len(samples))
}
