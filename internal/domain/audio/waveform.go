package audio

import "math"

// Summarize reduces a sample stream to a fixed-length peak amplitude
// envelope for chart rendering. Each bucket holds the maximum absolute
// amplitude of its slice of samples, so short transients stay visible.
// Pure; an empty input yields an all-zero envelope.
func Summarize(samples []float64, buckets int) []float64 {
	if buckets <= 0 {
		return nil
	}
	env := make([]float64, buckets)
	if len(samples) == 0 {
		return env
	}

	per := float64(len(samples)) / float64(buckets)
	for b := 0; b < buckets; b++ {
		start := int(float64(b) * per)
		end := int(float64(b+1) * per)
		if b == buckets-1 {
			end = len(samples)
		}
		if start >= len(samples) {
			break
		}
		var peak float64
		for _, s := range samples[start:end] {
			if a := math.Abs(s); a > peak {
				peak = a
			}
		}
		if peak > 1 {
			peak = 1
		}
		env[b] = peak
	}
	return env
}
