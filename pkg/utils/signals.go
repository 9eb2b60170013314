// SPDX-License-Identifier: MIT
// Package utils holds signal generators and fakes shared by tests and the
// tone command.
package utils

import "math"

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*float64(i)/sampleRate)
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with its second and
// third harmonics, peaking below 1.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = 0.9 * (math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2)
	}
	return buffer
}

// GenerateChirp sweeps linearly from f0 to f1 Hz over size samples.
func GenerateChirp(size int, sampleRate, f0, f1, amplitude float64) []float64 {
	buffer := make([]float64, size)
	duration := float64(size) / sampleRate
	k := (f1 - f0) / duration
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*(f0*tm+k*tm*tm/2))
	}
	return buffer
}

// Interleave merges equally long channels into frames.
func Interleave(channels ...[]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]float64, 0, n*len(channels))
	for i := range n {
		for _, ch := range channels {
			out = append(out, ch[i])
		}
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin], clamped to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(magnitudes)-1)

	peakBin := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > magnitudes[peakBin] {
			peakBin = bin
		}
	}
	return peakBin
}
