// SPDX-License-Identifier: MIT
package dft

// QuickDFT evaluates the 4-point DFT in closed form:
//
//	X0 = (x0+x2) + (x1+x3)
//	X1 = (x0-x2) - i(x1-x3)
//	X2 = (x0+x2) - (x1+x3)
//	X3 = (x0-x2) + i(x1-x3)
type QuickDFT struct{}

var _ Method = QuickDFT{}

// Size returns 4.
func (QuickDFT) Size() int { return 4 }

func (q QuickDFT) Forward(dst, src []complex128) { forward(q, dst, src) }

func (q QuickDFT) ForwardReal(dst []complex128, src []float64) { forwardReal(q, dst, src) }

func (q QuickDFT) Inverse(dst, src []complex128) { inverse(q, dst, src) }

func (q QuickDFT) InverseReal(dst []float64, src, work []complex128) {
	inverseReal(q, dst, src, work)
}

func (QuickDFT) forwardStrided(dst, src []complex128, offset, stride int, conj bool) {
	x0 := input(src, offset, conj)
	x1 := input(src, offset+stride, conj)
	x2 := input(src, offset+2*stride, conj)
	x3 := input(src, offset+3*stride, conj)

	a, b := x0+x2, x0-x2
	c, d := x1+x3, x1-x3
	// -i·d
	nd := complex(imag(d), -real(d))

	dst[0] = a + c
	dst[1] = b + nd
	dst[2] = a - c
	dst[3] = b - nd
}

func (QuickDFT) forwardRealStrided(dst []complex128, src []float64, offset, stride int) {
	x0 := src[offset]
	x1 := src[offset+stride]
	x2 := src[offset+2*stride]
	x3 := src[offset+3*stride]

	a, b := x0+x2, x0-x2
	c, d := x1+x3, x1-x3

	dst[0] = complex(a+c, 0)
	dst[1] = complex(b, -d)
	dst[2] = complex(a-c, 0)
	dst[3] = complex(b, d)
}
