// SPDX-License-Identifier: MIT
package frame

import (
	"context"
	"errors"
	"math"
	"testing"

	"spectro/internal/stream"
	"spectro/internal/window"
	"spectro/pkg/utils"
)

func TestLevelsFindsTone(t *testing.T) {
	const amplitude = 0.5
	// 0.25 of the sampling rate lands on kernel 4 of 8 up to Nyquist.
	f := LinearFrame(window.Hann, 64, 8, true)
	signal := utils.GenerateSineWave(1024, 1, 0.25, amplitude)

	levels, err := f.Levels(context.Background(), stream.FromSlice(signal))
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if len(levels) != 8 {
		t.Fatalf("got %d levels, want 8", len(levels))
	}
	for i, l := range levels {
		if i == 4 {
			if math.Abs(l-amplitude) > 0.02 {
				t.Errorf("level[4] = %.4f, want %.2f", l, amplitude)
			}
			continue
		}
		if l > 0.05 {
			t.Errorf("level[%d] = %.4f leaks from the tone", i, l)
		}
	}
}

func TestLevelsEdgeCases(t *testing.T) {
	f := LinearFrame(window.Rectangular, 16, 4, true)

	levels, err := f.Levels(context.Background(), stream.FromSlice([]float64{}))
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	for i, l := range levels {
		if l != 0 {
			t.Errorf("empty level[%d] = %g", i, l)
		}
	}

	// A partial block is zero-padded rather than rejected.
	if _, err := f.Levels(context.Background(), stream.FromSlice(make([]float64, 20))); err != nil {
		t.Errorf("partial block: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Levels(ctx, stream.FromSlice(make([]float64, 64))); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v, want context.Canceled", err)
	}
}
