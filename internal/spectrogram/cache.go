// SPDX-License-Identifier: MIT
/*
Package spectrogram renders a signal as a quad-tree of time/frequency
image tiles.

A Cache holds the immutable rendering parameters together with the shared
normalized window and one DFT engine per transform size. Tiles are a cheap
tree skeleton over the cache: the root spans every sample and the band
[0, 0.5) of the sampling rate, and each tile splits into four quadrants at
the midpoints of its sample range and frequency band. Pixels are computed on
demand in the background and handed to a callback; the engine keeps no
rendered images.
*/
package spectrogram

import (
	"fmt"
	"image"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"spectro/internal/dft"
	"spectro/internal/log"
	"spectro/internal/stream"
	"spectro/internal/task"
	"spectro/internal/window"
)

// DefaultMaxDFTSize caps the transform length when Parameters leaves
// MaxDFTSize unset.
const DefaultMaxDFTSize = 1 << 16

// Parameters describe how a source is rendered. They are read concurrently
// by every render and must not change after the cache is built.
type Parameters struct {
	Source     stream.Data[float64]
	Window     window.Func
	WindowSize int
	Scale      Scaling
	Gradient   Gradient

	// SampleRate converts tile coordinates to seconds and hertz. It does not
	// affect rendering.
	SampleRate int

	// MaxDFTSize bounds the transform length a narrow band may ask for.
	MaxDFTSize int
}

type engine struct {
	method dft.Method
	window []float64 // the normalized window centered in Size() samples
}

// Cache is shared by all tiles of one spectrogram. It is safe for
// concurrent use.
type Cache struct {
	params Parameters
	sched  task.Scheduler

	window func() []float64

	mu          sync.Mutex
	engines     map[int]*engine
	constructed atomic.Int64
}

// NewCache validates p, fills defaults for unset scaling, gradient and DFT
// cap, and returns a cache that renders on sched. It panics when the source
// is missing or the window size is not positive.
func NewCache(p Parameters, sched task.Scheduler) *Cache {
	if p.Source == nil {
		panic("spectrogram: nil sample source")
	}
	if p.WindowSize <= 0 {
		panic(fmt.Sprintf("spectrogram: invalid window size %d", p.WindowSize))
	}
	if sched == nil {
		panic("spectrogram: nil scheduler")
	}
	if p.Scale == nil {
		p.Scale = Decibel(DefaultFloorDB)
	}
	if p.Gradient == nil {
		p.Gradient = mustPreset(DefaultGradient)
	}
	if p.MaxDFTSize <= 0 {
		p.MaxDFTSize = DefaultMaxDFTSize
	}

	c := &Cache{
		params:  p,
		sched:   sched,
		engines: make(map[int]*engine),
	}
	c.window = sync.OnceValue(func() []float64 {
		return p.Window.Create(p.WindowSize)
	})
	return c
}

// Parameters returns the effective parameters, defaults included.
func (c *Cache) Parameters() Parameters { return c.params }

// Window returns the shared normalized window. It must not be modified.
func (c *Cache) Window() []float64 { return c.window() }

// Method returns the DFT engine of size n, building it on first use.
func (c *Cache) Method(n int) dft.Method { return c.engine(n).method }

// Sizes lists the transform sizes built so far.
func (c *Cache) Sizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.engines))
}

func (c *Cache) engine(n int) *engine {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.engines[n]; ok {
		return e
	}
	e := &engine{
		method: dft.New(n),
		window: window.Pad(c.window(), n),
	}
	c.engines[n] = e
	c.constructed.Add(1)
	log.Debugf("Built %d-point DFT engine (%d cached)", n, len(c.engines))
	return e
}

// Root returns the tile covering every sample of the source over [0, 0.5),
// drawn into bounds.
func (c *Cache) Root(bounds image.Rectangle) *Tile {
	return &Tile{
		cache:   c,
		Start:   0,
		Count:   c.params.Source.Size(),
		MinFreq: 0,
		MaxFreq: 0.5,
		Bounds:  bounds,
	}
}
