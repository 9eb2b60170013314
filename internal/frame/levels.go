// SPDX-License-Identifier: MIT
package frame

import (
	"context"
	"math"

	"spectro/internal/stream"
)

// Levels analyzes data in consecutive blocks of Length() samples and
// returns the level of every kernel band: twice the RMS magnitude of its
// coefficients, so a full-scale sinusoid centered on a unit-gain kernel
// reads 1. The last block is zero-padded.
func (f *Frame) Levels(ctx context.Context, data stream.Data[float64]) ([]float64, error) {
	energy := make([]float64, f.Count())
	block := make([]float64, f.length)

	s, err := data.Read(0, data.Size())
	if err != nil {
		return nil, err
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.ReadBatch(block)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		clear(block[n:])

		for i, c := range f.Analyze(block) {
			for _, v := range c {
				energy[i] += real(v)*real(v) + imag(v)*imag(v)
			}
		}
		total += f.length
		if n < len(block) {
			break
		}
	}

	if total == 0 {
		return energy, nil
	}
	for i, e := range energy {
		energy[i] = 2 * math.Sqrt(e/float64(total))
	}
	return energy, nil
}
