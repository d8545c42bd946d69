// Package waveform produces placeholder amplitude sequences for audio
// visualization. The samples carry no analytical meaning; they only need the
// right length and range for a client to render a plausible waveform.
package waveform

import "math/rand/v2"

// Generate returns one normalized amplitude sample per second of duration.
// Samples are uniform in [0.2, 1.0] so the rendered waveform never collapses
// to a flat line.
func Generate(seconds int) []float64 {
	if seconds < 0 {
		seconds = 0
	}
	samples := make([]float64, seconds)
	for i := range samples {
		samples[i] = rand.Float64()*0.8 + 0.2
	}
	return samples
}
