// SPDX-License-Identifier: MIT
package spectrogram

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/cmplx"
	"time"

	"spectro/internal/stream"
	"spectro/pkg/bitint"
)

// ErrInvalidSize is returned for image requests with a non-positive
// dimension.
var ErrInvalidSize = errors.New("spectrogram: invalid image size")

// Tile is one node of the time/frequency quad-tree. It covers samples
// [Start, Start+Count) and the band [MinFreq, MaxFreq) as fractions of the
// sampling rate, and is drawn into Bounds on screen with the highest
// frequency at the top.
type Tile struct {
	cache *Cache

	Start, Count     int
	MinFreq, MaxFreq float64
	Bounds           image.Rectangle
	Depth            int
}

// Children splits the tile at the midpoints of its sample range and band
// into [early-low, late-low, early-high, late-high]. The children's bounds
// partition the parent's. A tile of a single sample has no children.
func (t *Tile) Children() []*Tile {
	if t.Count <= 1 {
		return nil
	}

	half := t.Count / 2
	midFreq := (t.MinFreq + t.MaxFreq) / 2
	midX := t.Bounds.Min.X + t.Bounds.Dx()/2
	midY := t.Bounds.Min.Y + t.Bounds.Dy()/2
	b := t.Bounds

	child := func(start, count int, lo, hi float64, r image.Rectangle) *Tile {
		return &Tile{
			cache:   t.cache,
			Start:   start,
			Count:   count,
			MinFreq: lo,
			MaxFreq: hi,
			Bounds:  r,
			Depth:   t.Depth + 1,
		}
	}
	return []*Tile{
		child(t.Start, half, t.MinFreq, midFreq, image.Rect(b.Min.X, midY, midX, b.Max.Y)),
		child(t.Start+half, t.Count-half, t.MinFreq, midFreq, image.Rect(midX, midY, b.Max.X, b.Max.Y)),
		child(t.Start, half, midFreq, t.MaxFreq, image.Rect(b.Min.X, b.Min.Y, midX, midY)),
		child(t.Start+half, t.Count-half, midFreq, t.MaxFreq, image.Rect(midX, b.Min.Y, b.Max.X, midY)),
	}
}

// Walk calls fn for t and its descendants down to depth levels below t,
// parents before children.
func (t *Tile) Walk(depth int, fn func(*Tile)) {
	fn(t)
	if depth <= 0 {
		return
	}
	for _, c := range t.Children() {
		c.Walk(depth-1, fn)
	}
}

// Span returns the tile's time range given the cache's sample rate.
func (t *Tile) Span() (from, to time.Duration) {
	rate := t.cache.params.SampleRate
	if rate <= 0 {
		return 0, 0
	}
	at := func(sample int) time.Duration {
		return time.Duration(float64(sample) / float64(rate) * float64(time.Second))
	}
	return at(t.Start), at(t.Start + t.Count)
}

// Band returns the tile's frequency band in hertz given the cache's sample
// rate.
func (t *Tile) Band() (lo, hi float64) {
	rate := float64(t.cache.params.SampleRate)
	return t.MinFreq * rate, t.MaxFreq * rate
}

func (t *Tile) String() string {
	return fmt.Sprintf("tile(d%d samples=[%d,%d) band=[%.4f,%.4f))",
		t.Depth, t.Start, t.Start+t.Count, t.MinFreq, t.MaxFreq)
}

// RequestImage renders the tile at size on the cache's scheduler and hands
// the result to callback. It returns immediately. callback runs exactly
// once, on a background goroutine, with either an image or an error.
func (t *Tile) RequestImage(size image.Point, callback func(*image.RGBA, error)) {
	t.cache.sched.Schedule(func() {
		img, err := t.safeRender(size)
		callback(img, err)
	})
}

func (t *Tile) safeRender(size image.Point) (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("spectrogram: rendering %s: %v", t, r)
		}
	}()
	return t.Render(size)
}

// Render computes the tile's image synchronously.
func (t *Tile) Render(size image.Point) (*image.RGBA, error) {
	return t.render(size, placementAuto)
}

type placement int

const (
	placementAuto placement = iota
	placementContiguous
	placementPerColumn
)

func (t *Tile) render(size image.Point, mode placement) (*image.RGBA, error) {
	width, height := size.X, size.Y
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	p := &t.cache.params
	ws := p.WindowSize
	n := t.transformSize(height)
	e := t.cache.engine(n)
	pad := (n - ws) / 2
	coeffs := e.window[pad : pad+ws]

	stride := float64(t.Count) / float64(width)
	starts := make([]int, width)
	for x := range starts {
		center := float64(t.Start) + (float64(x)+0.5)*stride
		starts[x] = int(math.Floor(center)) - ws/2
	}

	// Overlapping windows share one read; sparse ones are read one by one.
	if mode == placementAuto {
		mode = placementPerColumn
		if float64(ws) > stride {
			mode = placementContiguous
		}
	}

	var contiguous []float64
	if mode == placementContiguous {
		contiguous = make([]float64, starts[width-1]-starts[0]+ws)
		if err := readZeroFilled(p.Source, starts[0], contiguous); err != nil {
			return nil, fmt.Errorf("reading %s: %w", t, err)
		}
	}

	segment := make([]float64, ws)
	input := make([]float64, n)
	spectrum := make([]complex128, n)

	band := t.MaxFreq - t.MinFreq
	freqs := make([]float64, height)
	bins := make([]int, height)
	for y := range height {
		freqs[y] = t.MaxFreq - (float64(y)+0.5)*band/float64(height)
		bins[y] = min(max(int(math.Round(freqs[y]*float64(n))), 0), n-1)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x, start := range starts {
		if contiguous != nil {
			off := start - starts[0]
			copy(segment, contiguous[off:off+ws])
		} else if err := readZeroFilled(p.Source, start, segment); err != nil {
			return nil, fmt.Errorf("reading %s column %d: %w", t, x, err)
		}

		for i := range input[:pad] {
			input[i] = 0
		}
		for i := range input[pad+ws:] {
			input[pad+ws+i] = 0
		}
		for i, c := range coeffs {
			input[pad+i] = segment[i] * c
		}
		e.method.ForwardReal(spectrum, input)

		for y, bin := range bins {
			c := p.Gradient.At(p.Scale(freqs[y], cmplx.Abs(spectrum[bin])))
			i := img.PixOffset(x, y)
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
	}
	return img, nil
}

// transformSize picks the DFT length for an image of the given height: long
// enough for the window and to resolve one bin per row across the band,
// capped by MaxDFTSize but never shorter than the window.
func (t *Tile) transformSize(height int) int {
	p := &t.cache.params
	want := p.WindowSize
	if band := t.MaxFreq - t.MinFreq; band > 0 {
		want = max(want, int(math.Ceil(float64(height)/band)))
	}
	n := bitint.NextPowerOfTwo(max(want, 4))
	limit := max(bitint.NextPowerOfTwo(p.MaxDFTSize), bitint.NextPowerOfTwo(max(p.WindowSize, 4)))
	return min(n, limit)
}

// readZeroFilled fills dst with source samples starting at index from.
// Positions before the start, and any tail the source cannot supply yet,
// read as silence. A source that failed before reaching the range reports
// its error.
func readZeroFilled(src stream.Data[float64], from int, dst []float64) error {
	clear(dst)
	lo, end := max(from, 0), from+len(dst)
	if lo >= end {
		return nil
	}
	at := min(lo, src.Size())
	s, err := src.Read(at, end-at)
	if err != nil {
		return err
	}
	if at < lo {
		// The range lies past the populated end; one read tells a source
		// still filling from one that failed.
		var next [1]float64
		_, err = s.ReadBatch(next[:])
		return err
	}
	_, err = s.ReadBatch(dst[lo-from:])
	return err
}
