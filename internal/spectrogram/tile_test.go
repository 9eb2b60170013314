// SPDX-License-Identifier: MIT
package spectrogram

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"sync"
	"testing"

	"spectro/internal/stream"
	"spectro/internal/task"
	"spectro/internal/window"
)

// levels encodes the scaled magnitude in the red channel.
type levels struct{}

func (levels) At(v float64) color.RGBA {
	return color.RGBA{R: uint8(math.Round(clamp01(v) * 255)), A: 0xff}
}

func sine(freq float64, rate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return out
}

// request runs RequestImage and waits for its callback.
func request(t *testing.T, tile *Tile, size image.Point) (*image.RGBA, error) {
	t.Helper()
	type result struct {
		img *image.RGBA
		err error
	}
	done := make(chan result, 1)
	tile.RequestImage(size, func(img *image.RGBA, err error) {
		done <- result{img, err}
	})
	r := <-done
	return r.img, r.err
}

func TestZeroSourceRendersUniformColor(t *testing.T) {
	grad := mustPreset("magma")
	cache := NewCache(Parameters{
		Source:     stream.FromSlice(make([]float64, 65536)),
		Window:     window.Hann,
		WindowSize: 1024,
		Gradient:   grad,
	}, task.NewPool(4))

	img, err := request(t, cache.Root(image.Rect(0, 0, 256, 128)), image.Pt(256, 128))
	if err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(256, 128) {
		t.Fatalf("image size = %v, want 256x128", got)
	}

	want := grad.At(0)
	for y := range 128 {
		for x := range 256 {
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestSineConcentratesNearItsFrequency(t *testing.T) {
	const (
		rate = 8000
		f0   = 1000
	)

	// 256 rows over [0, 0.5) resolve 512 bins; f0/rate = 0.125 lands on
	// bin 64, drawn in row 192.
	const wantRow = 192

	for _, width := range []int{16, 64} {
		t.Run(fmt.Sprint(width), func(t *testing.T) {
			cache := NewCache(Parameters{
				Source:     stream.FromSlice(sine(f0, rate, rate)),
				Window:     window.Hann,
				WindowSize: 256,
				Scale:      Linear(2),
				Gradient:   levels{},
				SampleRate: rate,
			}, task.Inline{})

			// Keep every window inside the signal so edges do not leak.
			tile := &Tile{cache: cache, Start: 1000, Count: 6000, MaxFreq: 0.5}
			img, err := tile.Render(image.Pt(width, 256))
			if err != nil {
				t.Fatalf("Render: %v", err)
			}

			for x := range width {
				peak := 0
				for y := range 256 {
					if img.RGBAAt(x, y).R > img.RGBAAt(x, peak).R {
						peak = y
					}
				}
				if d := peak - wantRow; d < -2 || d > 2 {
					t.Fatalf("column %d peaks at row %d, want near %d", x, peak, wantRow)
				}
				if v := img.RGBAAt(x, wantRow).R; v < 200 {
					t.Errorf("column %d: level at f0 = %d, want >= 200", x, v)
				}
				for y := range 256 {
					if math.Abs(float64(y-wantRow)) > 24 && img.RGBAAt(x, y).R > 3 {
						t.Fatalf("column %d row %d leaks level %d", x, y, img.RGBAAt(x, y).R)
					}
				}
			}
		})
	}
}

func TestPlacementModesAgree(t *testing.T) {
	cache := NewCache(Parameters{
		Source:     stream.FromSlice(sine(440, 8000, 5000)),
		Window:     window.Hamming,
		WindowSize: 200,
		Gradient:   levels{},
	}, task.Inline{})

	// Columns run past both ends of the source.
	tile := &Tile{cache: cache, Start: -300, Count: 5600, MinFreq: 0.02, MaxFreq: 0.3}
	for _, width := range []int{7, 40, 300} {
		t.Run(fmt.Sprint(width), func(t *testing.T) {
			a, err := tile.render(image.Pt(width, 50), placementContiguous)
			if err != nil {
				t.Fatal(err)
			}
			b, err := tile.render(image.Pt(width, 50), placementPerColumn)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(a.Pix, b.Pix) {
				t.Error("contiguous and per-column placement disagree")
			}
		})
	}
}

func TestReadZeroFilled(t *testing.T) {
	src := stream.FromSlice([]float64{1, 2, 3, 4, 5})
	tests := []struct {
		from int
		n    int
		want []float64
	}{
		{0, 5, []float64{1, 2, 3, 4, 5}},
		{-2, 4, []float64{0, 0, 1, 2}},
		{3, 4, []float64{4, 5, 0, 0}},
		{-1, 8, []float64{0, 1, 2, 3, 4, 5, 0, 0}},
		{9, 3, []float64{0, 0, 0}},
		{-10, 3, []float64{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d+%d", tt.from, tt.n), func(t *testing.T) {
			dst := slices.Repeat([]float64{-1}, tt.n)
			if err := readZeroFilled(src, tt.from, dst); err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(dst, tt.want) {
				t.Errorf("got %v, want %v", dst, tt.want)
			}
		})
	}
}

// failingAfter serves silence below limit bytes and fails beyond it.
type failingAfter struct {
	limit int64
}

func (f failingAfter) ReadAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > f.limit {
		return 0, errors.New("bad sector")
	}
	clear(p)
	return len(p), nil
}

func TestIOFailureReachesOnlyAffectedTiles(t *testing.T) {
	const samples = 4096
	src := stream.NewFile[float64](failingAfter{limit: 8 * samples / 2}, 8*samples)
	pool := task.NewPool(4)
	cache := NewCache(Parameters{
		Source:     src,
		Window:     window.Hann,
		WindowSize: 16,
	}, pool)

	children := cache.Root(image.Rect(0, 0, 64, 64)).Children()
	errs := make([]error, len(children))
	var wg sync.WaitGroup
	for i, c := range children {
		wg.Add(1)
		c.RequestImage(image.Pt(8, 8), func(img *image.RGBA, err error) {
			defer wg.Done()
			if err == nil && img == nil {
				err = errors.New("nil image without error")
			}
			errs[i] = err
		})
	}
	wg.Wait()

	for i, err := range errs {
		late := i == 1 || i == 3
		switch {
		case late && !errors.Is(err, stream.ErrIOFailure):
			t.Errorf("child %d err = %v, want ErrIOFailure", i, err)
		case !late && err != nil:
			t.Errorf("child %d err = %v, want success", i, err)
		}
	}
}

func TestFailedDecodeReachesTilesPastIt(t *testing.T) {
	const samples = 4096
	decoded := stream.NewMemory[float64](samples)
	decoded.Append(make([]float64, samples/2)...)
	cache := NewCache(Parameters{
		Source:     decoded,
		Window:     window.Hann,
		WindowSize: 16,
	}, task.NewPool(4))

	// The root spans the announced length; only the first half arrived
	// before the decoder gave up.
	root := cache.Root(image.Rect(0, 0, 64, 64))
	root.Count = samples
	decoded.Fail(errors.New("unexpected EOF"))

	for i, c := range root.Children() {
		_, err := request(t, c, image.Pt(8, 8))
		late := i == 1 || i == 3
		switch {
		case late && !errors.Is(err, stream.ErrIOFailure):
			t.Errorf("child %d err = %v, want ErrIOFailure", i, err)
		case !late && err != nil:
			t.Errorf("child %d err = %v, want success", i, err)
		}
	}

	// Without a failure the missing tail is only not decoded yet.
	pending := stream.NewMemory[float64](8)
	pending.Append(1, 2)
	dst := make([]float64, 4)
	if err := readZeroFilled(pending, 4, dst); err != nil {
		t.Errorf("pending store: %v", err)
	}
	pending.Fail(errors.New("bad sector"))
	if err := readZeroFilled(pending, 4, dst); !errors.Is(err, stream.ErrIOFailure) {
		t.Errorf("failed store err = %v, want ErrIOFailure", err)
	}
}

func TestInvalidImageSize(t *testing.T) {
	cache := NewCache(Parameters{
		Source:     stream.FromSlice(make([]float64, 64)),
		WindowSize: 8,
	}, task.Inline{})

	for _, size := range []image.Point{{0, 8}, {8, 0}, {-1, -1}} {
		if _, err := request(t, cache.Root(image.Rect(0, 0, 8, 8)), size); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("size %v: err = %v, want ErrInvalidSize", size, err)
		}
	}
}

type explodingGradient struct{}

func (explodingGradient) At(float64) color.RGBA { panic("palette missing") }

func TestRenderPanicReachesCallback(t *testing.T) {
	cache := NewCache(Parameters{
		Source:     stream.FromSlice(make([]float64, 64)),
		WindowSize: 8,
		Gradient:   explodingGradient{},
	}, task.Inline{})

	img, err := request(t, cache.Root(image.Rect(0, 0, 4, 4)), image.Pt(4, 4))
	if err == nil || img != nil {
		t.Fatalf("got (%v, %v), want an error", img, err)
	}
}

func TestTransformSize(t *testing.T) {
	cache := NewCache(Parameters{
		Source:     stream.FromSlice(make([]float64, 1<<20)),
		Window:     window.Hann,
		WindowSize: 1000,
		MaxDFTSize: 4096,
	}, task.Inline{})

	tests := []struct {
		name   string
		band   float64
		height int
		want   int
	}{
		{"window bound", 0.5, 128, 1024},
		{"rows bound", 0.5, 1500, 4096},
		{"narrow band", 0.0625, 128, 2048},
		{"capped", 0.001, 128, 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tile := &Tile{cache: cache, Count: 1 << 20, MaxFreq: tt.band}
			if got := tile.transformSize(tt.height); got != tt.want {
				t.Errorf("transformSize(%d) = %d, want %d", tt.height, got, tt.want)
			}
		})
	}
}

func TestEnginesBuiltOncePerSize(t *testing.T) {
	pool := task.NewPool(8)
	cache := NewCache(Parameters{
		Source:     stream.FromSlice(sine(300, 8000, 8000)),
		Window:     window.Hann,
		WindowSize: 64,
	}, pool)

	var wg sync.WaitGroup
	cache.Root(image.Rect(0, 0, 256, 256)).Walk(3, func(tile *Tile) {
		wg.Add(1)
		tile.RequestImage(image.Pt(32, 32), func(_ *image.RGBA, err error) {
			defer wg.Done()
			if err != nil {
				t.Errorf("%s: %v", tile, err)
			}
		})
	})
	wg.Wait()

	sizes := cache.Sizes()
	if int(cache.constructed.Load()) != len(sizes) {
		t.Errorf("constructed %d engines for %d sizes", cache.constructed.Load(), len(sizes))
	}
	for _, n := range sizes {
		if cache.Method(n) != cache.Method(n) {
			t.Errorf("size %d returned different engines", n)
		}
	}
	if !slices.Equal(sizes, []int{64, 128, 256, 512}) {
		t.Errorf("sizes = %v", sizes)
	}
}

func TestChildrenPartitionParent(t *testing.T) {
	cache := NewCache(Parameters{
		Source:     stream.FromSlice(make([]float64, 37)),
		WindowSize: 4,
	}, task.Inline{})

	var check func(parent *Tile)
	check = func(parent *Tile) {
		children := parent.Children()
		if parent.Count <= 1 {
			if children != nil {
				t.Fatalf("%s: single-sample tile has children", parent)
			}
			return
		}
		if len(children) != 4 {
			t.Fatalf("%s: %d children", parent, len(children))
		}
		early, late, low, high := children[0], children[1], children[0], children[2]

		if early.Start != parent.Start || early.Start+early.Count != late.Start ||
			late.Start+late.Count != parent.Start+parent.Count {
			t.Fatalf("%s: sample ranges do not partition", parent)
		}
		if low.MinFreq != parent.MinFreq || low.MaxFreq != high.MinFreq || high.MaxFreq != parent.MaxFreq {
			t.Fatalf("%s: bands do not partition", parent)
		}
		if children[2].Start != early.Start || children[3].Start != late.Start ||
			children[1].MinFreq != low.MinFreq || children[3].MinFreq != high.MinFreq {
			t.Fatalf("%s: quadrant order is wrong", parent)
		}

		area := 0
		for i, c := range children {
			if !c.Bounds.Empty() && !c.Bounds.In(parent.Bounds) {
				t.Fatalf("%s: child %d bounds %v escape %v", parent, i, c.Bounds, parent.Bounds)
			}
			area += c.Bounds.Dx() * c.Bounds.Dy()
			for _, o := range children[i+1:] {
				if c.Bounds.Overlaps(o.Bounds) {
					t.Fatalf("%s: bounds %v and %v overlap", parent, c.Bounds, o.Bounds)
				}
			}
			if c.Depth != parent.Depth+1 {
				t.Fatalf("%s: child depth %d", parent, c.Depth)
			}
		}
		if area != parent.Bounds.Dx()*parent.Bounds.Dy() {
			t.Fatalf("%s: children cover %d pixels of %d", parent, area, parent.Bounds.Dx()*parent.Bounds.Dy())
		}
		// High frequencies are drawn above low ones.
		if high.Bounds.Max.Y > low.Bounds.Min.Y {
			t.Fatalf("%s: high band drawn below low band", parent)
		}

		for _, c := range children {
			check(c)
		}
	}

	root := cache.Root(image.Rect(10, 20, 138, 84))
	if root.Start != 0 || root.Count != 37 || root.MinFreq != 0 || root.MaxFreq != 0.5 {
		t.Fatalf("root = %s", root)
	}
	check(root)
}

func TestTileUnits(t *testing.T) {
	cache := NewCache(Parameters{
		Source:     stream.FromSlice(make([]float64, 48000)),
		WindowSize: 512,
		SampleRate: 48000,
	}, task.Inline{})

	late := cache.Root(image.Rect(0, 0, 64, 64)).Children()[3]
	from, to := late.Span()
	if from.Milliseconds() != 500 || to.Milliseconds() != 1000 {
		t.Errorf("Span() = (%v, %v), want (500ms, 1s)", from, to)
	}
	lo, hi := late.Band()
	if lo != 12000 || hi != 24000 {
		t.Errorf("Band() = (%g, %g), want (12000, 24000)", lo, hi)
	}
}

func TestNewCachePanicsOnBadParameters(t *testing.T) {
	src := stream.FromSlice(make([]float64, 8))
	tests := []struct {
		name string
		p    Parameters
		s    task.Scheduler
	}{
		{"no source", Parameters{WindowSize: 4}, task.Inline{}},
		{"no window", Parameters{Source: src}, task.Inline{}},
		{"no scheduler", Parameters{Source: src, WindowSize: 4}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewCache(tt.p, tt.s)
		})
	}
}
