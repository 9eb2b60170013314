// SPDX-License-Identifier: MIT
/*
Package playback plays a sample store through PortAudio and publishes the
playhead the spectrogram view follows.

The output callback runs on PortAudio's audio thread. It owns the read
cursor and performs no allocation except when servicing a seek; the
playhead, seek requests and gate threshold cross threads through atomics.
*/
package playback

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"spectro/internal/log"
	"spectro/internal/stream"
)

// Options configure a Player.
type Options struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	DeviceID        int
	LowLatency      bool
}

const noSeek = -1

// Player streams interleaved samples to an output device.
type Player struct {
	opts    Options
	samples stream.Data[float64]

	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream

	// Callback-owned.
	cursor  stream.Stream[float64]
	scratch []float64
	played  int64 // samples consumed from the cursor

	playing  atomic.Bool
	position atomic.Int64 // frames already handed to the device
	seek     atomic.Int64 // pending seek target in frames, or noSeek
	gate     atomic.Uint64
	failures atomic.Int64
}

// NewPlayer prepares playback of samples, which holds interleaved frames of
// opts.Channels. PortAudio must be initialized.
func NewPlayer(samples stream.Data[float64], opts Options) (*Player, error) {
	p, err := newPlayer(samples, opts)
	if err != nil {
		return nil, err
	}

	if p.device, err = outputDevice(opts.DeviceID); err != nil {
		return nil, err
	}
	if opts.LowLatency {
		p.latency = p.device.DefaultLowOutputLatency
	} else {
		p.latency = p.device.DefaultHighOutputLatency
	}
	return p, nil
}

func newPlayer(samples stream.Data[float64], opts Options) (*Player, error) {
	if opts.Channels <= 0 || opts.SampleRate <= 0 || opts.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("playback: invalid options %+v", opts)
	}
	p := &Player{
		opts:    opts,
		samples: samples,
		scratch: make([]float64, opts.FramesPerBuffer*opts.Channels),
	}
	p.seek.Store(0)
	return p, nil
}

// Start opens the output stream and begins playing from the playhead.
func (p *Player) Start() error {
	if p.stream != nil {
		return errors.New("playback: already started")
	}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   p.device,
			Channels: p.opts.Channels,
			Latency:  p.latency,
		},
		SampleRate:      float64(p.opts.SampleRate),
		FramesPerBuffer: p.opts.FramesPerBuffer,
	}

	s, err := portaudio.OpenStream(params, p.process)
	if err != nil {
		return fmt.Errorf("playback: open stream on %s: %w", p.device.Name, err)
	}
	p.playing.Store(true)
	if err := s.Start(); err != nil {
		s.Close()
		p.playing.Store(false)
		return fmt.Errorf("playback: start stream: %w", err)
	}
	p.stream = s
	log.Infof("Playing on %s (%d Hz, %d ch, latency %v)", p.device.Name, p.opts.SampleRate, p.opts.Channels, p.latency)
	return nil
}

// Stop halts the device and releases the stream. The playhead is kept.
func (p *Player) Stop() error {
	p.playing.Store(false)
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("playback: stop stream: %w", err)
	}
	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("playback: close stream: %w", err)
	}
	p.stream = nil
	return nil
}

// Pause silences output without closing the device; Resume continues.
func (p *Player) Pause()  { p.playing.Store(false) }
func (p *Player) Resume() { p.playing.Store(true) }

// Playing reports whether the callback is producing audio.
func (p *Player) Playing() bool { return p.playing.Load() }

// Seek moves the playhead to frame. The callback applies it on its next
// buffer.
func (p *Player) Seek(frame int64) {
	p.seek.Store(max(frame, 0))
	p.position.Store(max(frame, 0))
}

// Position returns the playhead in frames.
func (p *Player) Position() int64 { return p.position.Load() }

// Elapsed returns the playhead as a duration.
func (p *Player) Elapsed() time.Duration {
	return time.Duration(float64(p.Position()) / float64(p.opts.SampleRate) * float64(time.Second))
}

// Finished reports whether the playhead has passed the populated samples.
func (p *Player) Finished() bool {
	return p.Position()*int64(p.opts.Channels) >= int64(p.samples.Size())
}

// SetGateThreshold silences buffers whose peak stays below threshold, a
// linear amplitude clamped to [0, 1]. Zero disables the gate.
func (p *Player) SetGateThreshold(threshold float64) {
	p.gate.Store(math.Float64bits(max(0, min(1, threshold))))
}

// GateThreshold returns the current gate threshold.
func (p *Player) GateThreshold() float64 { return math.Float64frombits(p.gate.Load()) }

// Failures counts buffers that could not be read from the source.
func (p *Player) Failures() int64 { return p.failures.Load() }

// process fills one device buffer. Unavailable samples play as silence.
func (p *Player) process(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !p.playing.Load() {
		clear(out)
		return
	}

	if target := p.seek.Swap(noSeek); target != noSeek {
		p.cursor = nil
		p.played = target * int64(p.opts.Channels)
		index := int(p.played)
		if index <= p.samples.Size() {
			s, err := p.samples.Read(index, len(p.scratch))
			if err != nil {
				p.failures.Add(1)
			}
			p.cursor = s
		} else {
			// Not decoded yet; retry unless a newer seek arrived.
			p.seek.CompareAndSwap(noSeek, target)
		}
	}

	buf := p.scratch[:min(len(out), len(p.scratch))]
	n := 0
	if p.cursor != nil {
		var err error
		if n, err = p.cursor.ReadBatch(buf); err != nil {
			p.failures.Add(1)
		}
	}
	clear(buf[n:])

	if threshold := p.GateThreshold(); threshold > 0 && peak(buf[:n]) < threshold {
		clear(buf[:n])
	}

	for i, v := range buf {
		out[i] = float32(v)
	}
	clear(out[len(buf):])
	p.played += int64(n)
	p.position.Store(p.played / int64(p.opts.Channels))
}

func peak(samples []float64) float64 {
	var m float64
	for _, v := range samples {
		m = max(m, math.Abs(v))
	}
	return m
}
