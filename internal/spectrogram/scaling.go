// SPDX-License-Identifier: MIT
package spectrogram

import "math"

// Scaling maps the magnitude of a bin at freq (a fraction of the sampling
// rate) to a value in [0, 1] for the gradient.
type Scaling func(freq, mag float64) float64

// DefaultFloorDB is the decibel floor used when Parameters leaves Scale
// unset.
const DefaultFloorDB = -96

// Decibel maps magnitudes logarithmically: floorDB (negative) and below map
// to 0, 0 dB and above map to 1. A zero magnitude always maps to 0.
func Decibel(floorDB float64) Scaling {
	if floorDB >= 0 {
		floorDB = DefaultFloorDB
	}
	return func(_, mag float64) float64 {
		if mag <= 0 {
			return 0
		}
		db := 20 * math.Log10(mag)
		return clamp01(1 - db/floorDB)
	}
}

// Linear multiplies magnitudes by gain.
func Linear(gain float64) Scaling {
	return func(_, mag float64) float64 {
		return clamp01(mag * gain)
	}
}

// Tilt boosts s by dbPerOctave for every octave above ref, compensating for
// the downward slope of natural sound spectra.
func Tilt(s Scaling, ref, dbPerOctave float64) Scaling {
	return func(freq, mag float64) float64 {
		if freq > 0 && ref > 0 {
			mag *= math.Pow(10, dbPerOctave*math.Log2(freq/ref)/20)
		}
		return s(freq, mag)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
