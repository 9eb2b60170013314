// SPDX-License-Identifier: MIT
// Package window builds normalized window coefficient arrays for spectral
// analysis.
package window

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Func selects a window function.
type Func int

// Available window functions. Rectangular, Hann and Hamming are evaluated
// in closed form on (-1/2, 1/2); the others are sampled by gonum.
const (
	Rectangular Func = iota
	Hann
	Hamming
	BartlettHann
	Blackman
	BlackmanNuttall
	Lanczos
	Nuttall
)

var names = map[Func]string{
	Rectangular:     "rectangular",
	Hann:            "hann",
	Hamming:         "hamming",
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
}

func (f Func) String() string {
	if name, ok := names[f]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(f))
}

// Parse converts a window name (case-insensitive) to a Func. Unknown names
// return Hann and an error.
func Parse(name string) (Func, error) {
	switch strings.ToLower(name) {
	case "rectangular", "rect", "boxcar":
		return Rectangular, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// Shape evaluates a closed-form window at x in (-1/2, 1/2). ok is false for
// windows that are only available as sampled tables.
func (f Func) Shape(x float64) (v float64, ok bool) {
	if x <= -0.5 || x >= 0.5 {
		return 0, f == Rectangular || f == Hann || f == Hamming
	}
	switch f {
	case Rectangular:
		return 1, true
	case Hann:
		return 0.5 + 0.5*math.Cos(2*math.Pi*x), true
	case Hamming:
		return 0.54 + 0.46*math.Cos(2*math.Pi*x), true
	default:
		return 0, false
	}
}

// Create samples the window into size coefficients that sum to 1. Closed
// forms are sampled at the centers of size equal cells spanning (-1/2, 1/2).
// A table whose raw samples sum to zero (for example Blackman of size 2)
// degrades to a rectangular window. Create panics when size is not
// positive.
func (f Func) Create(size int) []float64 {
	if size <= 0 {
		panic(fmt.Sprintf("window: empty window (size %d)", size))
	}

	coeffs := make([]float64, size)
	if _, closed := f.Shape(0); closed || size == 1 {
		for i := range coeffs {
			coeffs[i], _ = f.Shape((float64(i)+0.5)/float64(size) - 0.5)
		}
		if size == 1 {
			coeffs[0] = 1
		}
	} else {
		for i := range coeffs {
			coeffs[i] = 1
		}
		sampleTable(coeffs, f)
	}

	sum := floats.Sum(coeffs)
	if sum == 0 || math.IsNaN(sum) {
		for i := range coeffs {
			coeffs[i] = 1
		}
		sum = float64(size)
	}
	floats.Scale(1/sum, coeffs)
	return coeffs
}

func sampleTable(coeffs []float64, f Func) {
	switch f {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		panic(fmt.Sprintf("window: unknown window function %d", int(f)))
	}
}

// Pad centers coeffs in a zero buffer of the given length.
func Pad(coeffs []float64, length int) []float64 {
	if length < len(coeffs) {
		panic(fmt.Sprintf("window: cannot pad %d coefficients into %d", len(coeffs), length))
	}
	out := make([]float64, length)
	copy(out[(length-len(coeffs))/2:], coeffs)
	return out
}

// Wrap lays coeffs out circularly in a buffer of the given length with the
// window's center on index 0; the left half wraps to the end of the buffer.
func Wrap(coeffs []float64, length int) []float64 {
	if length < len(coeffs) {
		panic(fmt.Sprintf("window: cannot wrap %d coefficients into %d", len(coeffs), length))
	}
	out := make([]float64, length)
	center := len(coeffs) / 2
	for i, c := range coeffs {
		out[(i-center+length)%length] = c
	}
	return out
}

// Apply writes src weighted by coeffs into dst. All slices must have the
// same length.
func Apply(dst, src, coeffs []float64) {
	floats.MulTo(dst, src, coeffs)
}
