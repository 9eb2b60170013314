// SPDX-License-Identifier: MIT
package playback

import (
	"errors"
	"testing"
	"time"

	"spectro/internal/stream"
)

const (
	testSampleRate = 1000
	testFrameSize  = 4
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i+1) / 1024
	}
	return out
}

func newTestPlayer(t *testing.T, samples stream.Data[float64], channels int) *Player {
	t.Helper()
	p, err := newPlayer(samples, Options{
		SampleRate:      testSampleRate,
		Channels:        channels,
		FramesPerBuffer: testFrameSize,
	})
	if err != nil {
		t.Fatalf("newPlayer: %v", err)
	}
	p.Resume()
	return p
}

func TestProcessCopiesFramesAndAdvances(t *testing.T) {
	src := ramp(20)
	p := newTestPlayer(t, stream.FromSlice(src), 2)
	out := make([]float32, testFrameSize*2)

	p.process(out)
	for i, v := range out {
		if v != float32(src[i]) {
			t.Fatalf("out[%d] = %g, want %g", i, v, src[i])
		}
	}
	if p.Position() != 4 {
		t.Errorf("Position() = %d, want 4", p.Position())
	}

	p.process(out)
	p.process(out)
	// 20 samples hold 10 frames; the third buffer runs out after 2 frames.
	if p.Position() != 10 || !p.Finished() {
		t.Errorf("Position() = %d, Finished() = %v, want 10, true", p.Position(), p.Finished())
	}
	for i, v := range out[4:] {
		if v != 0 {
			t.Errorf("out[%d] = %g past the end, want silence", i+4, v)
		}
	}
	if p.Elapsed() != 10*time.Millisecond {
		t.Errorf("Elapsed() = %v, want 10ms", p.Elapsed())
	}
}

func TestPausedPlayerIsSilent(t *testing.T) {
	p := newTestPlayer(t, stream.FromSlice(ramp(16)), 1)
	p.Pause()

	out := []float32{1, 1, 1, 1}
	p.process(out)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %g while paused", i, v)
		}
	}
	if p.Position() != 0 {
		t.Errorf("Position() advanced while paused")
	}
}

func TestSeek(t *testing.T) {
	src := ramp(32)
	p := newTestPlayer(t, stream.FromSlice(src), 1)
	out := make([]float32, testFrameSize)

	p.process(out)
	p.Seek(20)
	if p.Position() != 20 {
		t.Errorf("Position() after Seek = %d, want 20", p.Position())
	}
	p.process(out)
	if out[0] != float32(src[20]) {
		t.Errorf("out[0] after seek = %g, want %g", out[0], src[20])
	}
	if p.Position() != 24 {
		t.Errorf("Position() = %d, want 24", p.Position())
	}
}

func TestSeekAheadOfDecoderWaits(t *testing.T) {
	mem := stream.FromSlice(ramp(4))
	p := newTestPlayer(t, mem, 1)
	out := make([]float32, testFrameSize)

	p.Seek(8)
	p.process(out)
	if out[0] != 0 {
		t.Errorf("played %g before the target was decoded", out[0])
	}

	mem.Append(ramp(12)...)
	p.process(out)
	if out[0] != float32(ramp(12)[4]) {
		t.Errorf("out[0] = %g, want sample 8", out[0])
	}
}

func TestGate(t *testing.T) {
	quiet := []float64{0.01, -0.02, 0.01, 0.0}
	loud := []float64{0.01, -0.5, 0.2, 0.0}
	p := newTestPlayer(t, stream.FromSlice(append(quiet, loud...)), 1)
	p.SetGateThreshold(0.1)
	out := make([]float32, testFrameSize)

	p.process(out)
	for i, v := range out {
		if v != 0 {
			t.Errorf("quiet buffer passed the gate: out[%d] = %g", i, v)
		}
	}
	p.process(out)
	if out[1] != -0.5 {
		t.Errorf("loud buffer was gated: %v", out)
	}

	p.SetGateThreshold(3)
	if p.GateThreshold() != 1 {
		t.Errorf("GateThreshold() = %g, want clamp to 1", p.GateThreshold())
	}
}

type brokenData struct{}

func (brokenData) Size() int { return 64 }
func (brokenData) Read(int, int) (stream.Stream[float64], error) {
	return brokenStream{}, nil
}

type brokenStream struct{}

func (brokenStream) Read() (float64, bool, error) { return 0, false, errors.New("bad sector") }
func (brokenStream) ReadBatch([]float64) (int, error) {
	return 0, errors.New("bad sector")
}

func TestReadFailuresPlaySilence(t *testing.T) {
	p := newTestPlayer(t, brokenData{}, 1)
	out := []float32{1, 1, 1, 1}
	p.process(out)

	if p.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", p.Failures())
	}
	for _, v := range out {
		if v != 0 {
			t.Fatalf("out = %v, want silence", out)
		}
	}
}

func TestProcessHotPathZeroAllocs(t *testing.T) {
	p := newTestPlayer(t, stream.FromSlice(make([]float64, 1<<20)), 2)
	out := make([]float32, testFrameSize*2)
	p.process(out)

	allocs := testing.AllocsPerRun(100, func() {
		p.process(out)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in output callback, got %.1f", allocs)
	}
}

func TestInvalidOptions(t *testing.T) {
	for _, opts := range []Options{
		{SampleRate: 0, Channels: 1, FramesPerBuffer: 64},
		{SampleRate: 44100, Channels: 0, FramesPerBuffer: 64},
		{SampleRate: 44100, Channels: 2, FramesPerBuffer: 0},
	} {
		if _, err := newPlayer(stream.FromSlice([]float64{}), opts); err == nil {
			t.Errorf("newPlayer(%+v) should fail", opts)
		}
	}
}

func TestDeviceKind(t *testing.T) {
	tests := []struct {
		in, out int
		want    string
	}{
		{2, 2, "Input/Output"},
		{1, 0, "Input"},
		{0, 2, "Output"},
		{0, 0, "None"},
	}
	for _, tt := range tests {
		d := Device{MaxInputChannels: tt.in, MaxOutputChannels: tt.out}
		if got := d.Kind(); got != tt.want {
			t.Errorf("Kind(%d in, %d out) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
	}
}
