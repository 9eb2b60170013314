// SPDX-License-Identifier: MIT
// Package frame models time-frequency frames: ordered families of
// convolution kernels, each isolating one frequency band of a signal.
package frame

import (
	"fmt"
	"sync"

	"spectro/internal/dft"
)

// Domain names the form a provider defines its kernels in.
type Domain int

const (
	// Temporal kernels are impulse responses laid out circularly with their
	// support centered on sample 0.
	Temporal Domain = iota
	// Spectral kernels are frequency responses over Length() DFT bins.
	Spectral
)

// KernelProvider defines an indexed kernel family. Kernel 0 is the lowest
// frequency band. All kernels share one length.
type KernelProvider interface {
	Count() int
	Length() int
	Domain() Domain

	// Kernel writes kernel i, in the provider's domain, into dst.
	Kernel(i int, dst []complex128)
}

type kernel struct {
	once     sync.Once
	temporal []complex128
	spectral []complex128
}

// Frame exposes both forms of every kernel of a provider. The form the
// provider does not define is derived through the DFT on first use, once per
// kernel. A Frame is safe for concurrent use.
type Frame struct {
	provider KernelProvider
	length   int
	method   dft.Method
	kernels  []kernel
}

// New wraps provider in a Frame. It panics when the provider is empty.
func New(provider KernelProvider) *Frame {
	count, length := provider.Count(), provider.Length()
	if count <= 0 || length <= 0 {
		panic(fmt.Sprintf("frame: invalid kernel family (%d kernels of length %d)", count, length))
	}
	return &Frame{
		provider: provider,
		length:   length,
		method:   dft.New(length),
		kernels:  make([]kernel, count),
	}
}

// Count returns the number of kernels.
func (f *Frame) Count() int { return len(f.kernels) }

// Length returns the shared kernel length.
func (f *Frame) Length() int { return f.length }

// Temporal returns the impulse response of kernel i. The slice is shared
// and must not be modified.
func (f *Frame) Temporal(i int) []complex128 {
	return f.kernel(i).temporal
}

// Spectral returns the frequency response of kernel i. The slice is shared
// and must not be modified.
func (f *Frame) Spectral(i int) []complex128 {
	return f.kernel(i).spectral
}

func (f *Frame) kernel(i int) *kernel {
	k := &f.kernels[i]
	k.once.Do(func() {
		defined := make([]complex128, f.length)
		derived := make([]complex128, f.length)
		f.provider.Kernel(i, defined)
		switch f.provider.Domain() {
		case Temporal:
			f.method.Forward(derived, defined)
			k.temporal, k.spectral = defined, derived
		case Spectral:
			f.method.Inverse(derived, defined)
			k.temporal, k.spectral = derived, defined
		default:
			panic(fmt.Sprintf("frame: unknown kernel domain %d", f.provider.Domain()))
		}
	})
	return k
}

// Analyze convolves signal circularly with every kernel by multiplying
// spectra, and returns one coefficient sequence per kernel. signal must be
// exactly Length() samples long.
func (f *Frame) Analyze(signal []float64) [][]complex128 {
	if len(signal) != f.length {
		panic(fmt.Sprintf("frame: signal length %d does not match kernel length %d", len(signal), f.length))
	}

	spectrum := make([]complex128, f.length)
	product := make([]complex128, f.length)
	f.method.ForwardReal(spectrum, signal)

	out := make([][]complex128, len(f.kernels))
	for i := range f.kernels {
		h := f.Spectral(i)
		for k, x := range spectrum {
			product[k] = x * h[k]
		}
		out[i] = make([]complex128, f.length)
		f.method.Inverse(out[i], product)
	}
	return out
}

// Synthesize sums per-kernel coefficient sequences back into a real signal.
// Reconstruction is exact only when the kernel spectra sum to one across
// the analyzed band.
func (f *Frame) Synthesize(coeffs [][]complex128) []float64 {
	out := make([]float64, f.length)
	for i, c := range coeffs {
		if len(c) != f.length {
			panic(fmt.Sprintf("frame: coefficient row %d has length %d, want %d", i, len(c), f.length))
		}
		for t, v := range c {
			out[t] += real(v)
		}
	}
	return out
}
