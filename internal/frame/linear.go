// SPDX-License-Identifier: MIT
package frame

import (
	"fmt"
	"math"

	"spectro/internal/window"
	"spectro/pkg/bitint"
)

// minKernelLength is the smallest transform the DFT engine builds from its
// 4-point unit.
const minKernelLength = 4

// Linear is a kernel family with evenly spaced center frequencies. Kernel i
// is the windowed complex exponential w(t)·e^(2πi·f_i·t) with
// f_i = i·span/count, where span is 1 for the full spectrum and 1/2 up to
// Nyquist.
type Linear struct {
	coeffs []float64
	count  int
	length int
	span   float64
}

var _ KernelProvider = (*Linear)(nil)

// NewLinear builds count kernels from a window of windowSize samples. The
// kernel length is windowSize rounded up to the next power of two.
func NewLinear(win window.Func, windowSize, count int, half bool) *Linear {
	if count <= 0 {
		panic(fmt.Sprintf("frame: invalid kernel count %d", count))
	}
	span := 1.0
	if half {
		span = 0.5
	}
	return &Linear{
		coeffs: win.Create(windowSize),
		count:  count,
		length: bitint.NextPowerOfTwo(max(windowSize, minKernelLength)),
		span:   span,
	}
}

// LinearFrame is shorthand for New(NewLinear(...)).
func LinearFrame(win window.Func, windowSize, count int, half bool) *Frame {
	return New(NewLinear(win, windowSize, count, half))
}

func (l *Linear) Count() int { return l.count }

func (l *Linear) Length() int { return l.length }

func (l *Linear) Domain() Domain { return Temporal }

// Frequency returns the center frequency of kernel i as a fraction of the
// sampling rate.
func (l *Linear) Frequency(i int) float64 {
	return float64(i) * l.span / float64(l.count)
}

func (l *Linear) Kernel(i int, dst []complex128) {
	if i < 0 || i >= l.count {
		panic(fmt.Sprintf("frame: kernel %d out of range [0, %d)", i, l.count))
	}
	clear(dst)
	f := l.Frequency(i)
	center := len(l.coeffs) / 2
	for j, w := range l.coeffs {
		t := j - center
		s, c := math.Sincos(2 * math.Pi * f * float64(t))
		dst[(t+l.length)%l.length] = complex(w*c, w*s)
	}
}
