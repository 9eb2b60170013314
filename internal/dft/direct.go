// SPDX-License-Identifier: MIT
package dft

import (
	"fmt"
	"math"
)

// DirectDFT evaluates an n-point DFT by direct O(n²) summation over a
// precomputed table of roots of unity. It serves as the unit of transforms
// whose size is not a power of two times four.
type DirectDFT struct {
	n     int
	roots []complex128 // roots[k] = e^(-2πik/n)
}

var _ Method = (*DirectDFT)(nil)

// NewDirectDFT builds a direct transform of size n.
func NewDirectDFT(n int) *DirectDFT {
	if n <= 0 {
		panic(fmt.Sprintf("dft: invalid direct transform size %d", n))
	}
	roots := make([]complex128, n)
	for k := range roots {
		s, c := math.Sincos(-2 * math.Pi * float64(k) / float64(n))
		roots[k] = complex(c, s)
	}
	return &DirectDFT{n: n, roots: roots}
}

func (d *DirectDFT) Size() int { return d.n }

func (d *DirectDFT) Forward(dst, src []complex128) { forward(d, dst, src) }

func (d *DirectDFT) ForwardReal(dst []complex128, src []float64) { forwardReal(d, dst, src) }

func (d *DirectDFT) Inverse(dst, src []complex128) { inverse(d, dst, src) }

func (d *DirectDFT) InverseReal(dst []float64, src, work []complex128) {
	inverseReal(d, dst, src, work)
}

func (d *DirectDFT) forwardStrided(dst, src []complex128, offset, stride int, conj bool) {
	for k := range d.n {
		var sum complex128
		idx := 0
		for t := range d.n {
			sum += input(src, offset+t*stride, conj) * d.roots[idx]
			if idx += k; idx >= d.n {
				idx -= d.n
			}
		}
		dst[k] = sum
	}
}

func (d *DirectDFT) forwardRealStrided(dst []complex128, src []float64, offset, stride int) {
	for k := range d.n {
		var re, im float64
		idx := 0
		for t := range d.n {
			x := src[offset+t*stride]
			re += x * real(d.roots[idx])
			im += x * imag(d.roots[idx])
			if idx += k; idx >= d.n {
				idx -= d.n
			}
		}
		dst[k] = complex(re, im)
	}
}
