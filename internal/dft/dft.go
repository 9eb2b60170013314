// SPDX-License-Identifier: MIT
/*
Package dft implements discrete Fourier transforms of fixed size.

A transform is built from a unit method of size U that is evaluated
directly (QuickDFT for U = 4, DirectDFT for any U) and composed by
CooleyTukey into sizes N = U·2^r through radix-2 decimation-in-time rounds.
Engines are immutable after construction, never allocate while
transforming and may be shared by any number of goroutines.

Conventions:

	Forward:  X[k] = sum_t x[t]·e^(-2πi·k·t/N)
	Inverse:  x[t] = 1/N · sum_k X[k]·e^(+2πi·k·t/N)
*/
package dft

import (
	"fmt"
	"math/cmplx"

	"spectro/pkg/bitint"
)

// Method is a DFT of one fixed size. Slices passed to a Method must have
// exactly Size() elements and dst must not alias src.
type Method interface {
	// Size returns the transform length N.
	Size() int

	// Forward computes the DFT of complex input.
	Forward(dst, src []complex128)

	// ForwardReal computes the full N-bin DFT of real input.
	ForwardReal(dst []complex128, src []float64)

	// Inverse computes the scaled inverse DFT of complex input.
	Inverse(dst, src []complex128)

	// InverseReal computes the inverse DFT and keeps the real part. work is
	// caller-provided scratch of length N.
	InverseReal(dst []float64, src, work []complex128)

	// forwardStrided transforms src[offset], src[offset+stride], ...
	// optionally conjugating each input item.
	forwardStrided(dst, src []complex128, offset, stride int, conj bool)

	// forwardRealStrided is forwardStrided for real input.
	forwardRealStrided(dst []complex128, src []float64, offset, stride int)
}

// New returns a transform of size n. Powers of two from 4 up are built on
// QuickDFT; every other size uses a DirectDFT unit of the odd part of n.
func New(n int) Method {
	if n <= 0 {
		panic(fmt.Sprintf("dft: invalid transform size %d", n))
	}
	if n >= 4 && bitint.IsPowerOfTwo(n) {
		return NewCooleyTukey(QuickDFT{}, n)
	}
	unit, _ := bitint.SplitPowerOfTwo(n)
	return NewCooleyTukey(NewDirectDFT(unit), n)
}

// Magnitudes writes |spectrum[i]| into dst.
func Magnitudes(dst []float64, spectrum []complex128) {
	for i, c := range spectrum[:len(dst)] {
		dst[i] = cmplx.Abs(c)
	}
}

// inverse runs the conjugation identity IDFT(x) = conj(DFT(conj(x)))/N
// without touching src.
func inverse(m Method, dst, src []complex128) {
	checkLen(m, len(dst), len(src))
	m.forwardStrided(dst, src, 0, 1, true)
	scale := 1 / float64(len(dst))
	for i, v := range dst {
		dst[i] = complex(real(v)*scale, -imag(v)*scale)
	}
}

func inverseReal(m Method, dst []float64, src, work []complex128) {
	checkLen(m, len(dst), len(work))
	inverse(m, work, src)
	for i, v := range work {
		dst[i] = real(v)
	}
}

func forward(m Method, dst, src []complex128) {
	checkLen(m, len(dst), len(src))
	m.forwardStrided(dst, src, 0, 1, false)
}

func forwardReal(m Method, dst []complex128, src []float64) {
	checkLen(m, len(dst), len(src))
	m.forwardRealStrided(dst, src, 0, 1)
}

func checkLen(m Method, lengths ...int) {
	for _, l := range lengths {
		if l != m.Size() {
			panic(fmt.Sprintf("dft: buffer length %d does not match transform size %d", l, m.Size()))
		}
	}
}

func input(src []complex128, i int, conj bool) complex128 {
	if conj {
		return cmplx.Conj(src[i])
	}
	return src[i]
}
