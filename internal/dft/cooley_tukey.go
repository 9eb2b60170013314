// SPDX-License-Identifier: MIT
package dft

import (
	"fmt"
	"math"

	"spectro/pkg/bitint"
)

// CooleyTukey composes a unit method of size U into a transform of size
// N = U·2^r.
//
// Construction precomputes the bit-reversal permutation of the N/U unit
// blocks and N/2 twiddle factors e^(-iπk/(N/2)). A forward transform runs
// the unit DFT on the N/U strided sub-sequences (stride N/U, offset = the
// bit-reversed block index) to produce N/U contiguous blocks, then applies r
// butterfly rounds. Each round pairs blocks of length h into blocks of
// length 2h as (even + w·odd, even - w·odd), reading twiddles with stride
// (N/2)/h.
type CooleyTukey struct {
	unit    Method
	n       int
	u       int
	units   int
	rounds  int
	perm    []int
	twiddle []complex128
}

var _ Method = (*CooleyTukey)(nil)

// NewCooleyTukey builds a size-n transform on top of unit. It panics unless
// n is unit.Size() times a power of two.
func NewCooleyTukey(unit Method, n int) *CooleyTukey {
	u := unit.Size()
	if u <= 0 || n < u || n%u != 0 || !bitint.IsPowerOfTwo(n/u) {
		panic(fmt.Sprintf("dft: size %d is not %d·2^r", n, u))
	}

	units := n / u
	rounds := bitint.Log2(units)
	half := n / 2

	twiddle := make([]complex128, half)
	for k := range twiddle {
		s, c := math.Sincos(-math.Pi * float64(k) / float64(half))
		twiddle[k] = complex(c, s)
	}

	return &CooleyTukey{
		unit:    unit,
		n:       n,
		u:       u,
		units:   units,
		rounds:  rounds,
		perm:    bitint.BitReversalPermutation(rounds),
		twiddle: twiddle,
	}
}

func (ct *CooleyTukey) Size() int { return ct.n }

// Unit returns the base method the transform is composed from.
func (ct *CooleyTukey) Unit() Method { return ct.unit }

// Rounds returns r in N = U·2^r.
func (ct *CooleyTukey) Rounds() int { return ct.rounds }

func (ct *CooleyTukey) Forward(dst, src []complex128) { forward(ct, dst, src) }

func (ct *CooleyTukey) ForwardReal(dst []complex128, src []float64) { forwardReal(ct, dst, src) }

func (ct *CooleyTukey) Inverse(dst, src []complex128) { inverse(ct, dst, src) }

func (ct *CooleyTukey) InverseReal(dst []float64, src, work []complex128) {
	inverseReal(ct, dst, src, work)
}

func (ct *CooleyTukey) forwardStrided(dst, src []complex128, offset, stride int, conj bool) {
	for j, p := range ct.perm {
		ct.unit.forwardStrided(dst[j*ct.u:(j+1)*ct.u], src, offset+p*stride, stride*ct.units, conj)
	}
	ct.butterflies(dst[:ct.n])
}

func (ct *CooleyTukey) forwardRealStrided(dst []complex128, src []float64, offset, stride int) {
	for j, p := range ct.perm {
		ct.unit.forwardRealStrided(dst[j*ct.u:(j+1)*ct.u], src, offset+p*stride, stride*ct.units)
	}
	ct.butterflies(dst[:ct.n])
}

func (ct *CooleyTukey) butterflies(dst []complex128) {
	half := ct.n / 2
	for h := ct.u; h < ct.n; h <<= 1 {
		step := half / h
		for base := 0; base < ct.n; base += 2 * h {
			even := dst[base : base+h]
			odd := dst[base+h : base+2*h]
			for k := range even {
				o := ct.twiddle[k*step] * odd[k]
				e := even[k]
				even[k] = e + o
				odd[k] = e - o
			}
		}
	}
}
