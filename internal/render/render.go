// SPDX-License-Identifier: MIT
// Package render drives a tile quad-tree to a fixed depth and collects or
// stores the images.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"spectro/internal/log"
	"spectro/internal/spectrogram"
)

// Result is the outcome of one tile request.
type Result struct {
	Tile  *spectrogram.Tile
	Image *image.RGBA
	Err   error
}

// Layout returns the bounds of a root tile whose tiles at depth are each
// exactly tile pixels.
func Layout(tile image.Point, depth int) image.Rectangle {
	return image.Rect(0, 0, tile.X<<depth, tile.Y<<depth)
}

// Tree requests every tile of root down to depth levels, each rendered at
// size, and delivers the results on the returned channel in completion
// order. The channel is closed after the last result. It is buffered for
// every tile, so abandoning it does not leak the renders.
func Tree(root *spectrogram.Tile, depth int, size image.Point) <-chan Result {
	var tiles []*spectrogram.Tile
	root.Walk(depth, func(t *spectrogram.Tile) { tiles = append(tiles, t) })

	out := make(chan Result, len(tiles))
	var wg sync.WaitGroup
	wg.Add(len(tiles))
	for _, t := range tiles {
		t.RequestImage(size, func(img *image.RGBA, err error) {
			defer wg.Done()
			out <- Result{Tile: t, Image: img, Err: err}
		})
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	log.Debugf("Render: requested %d tiles to depth %d at %v", len(tiles), depth, size)
	return out
}

// Collect drains results, stopping early when ctx is done. Failed tiles are
// reported together in the returned error; their results are still
// included.
func Collect(ctx context.Context, results <-chan Result) ([]Result, error) {
	var all []Result
	var errs []error
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return all, errors.Join(errs...)
			}
			if r.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.Tile, r.Err))
			}
			all = append(all, r)
		case <-ctx.Done():
			return all, ctx.Err()
		}
	}
}

// Mosaic draws the successful results at depth into one image covering
// bounds. Each image is scaled 1:1 into its tile's bounds, so it is meant
// for tiles rendered at their own bounds' size.
func Mosaic(bounds image.Rectangle, depth int, results []Result) *image.RGBA {
	canvas := image.NewRGBA(bounds)
	for _, r := range results {
		if r.Err != nil || r.Tile.Depth != depth {
			continue
		}
		draw.Draw(canvas, r.Tile.Bounds, r.Image, r.Image.Bounds().Min, draw.Src)
	}
	return canvas
}

// Name returns the file name a tile is stored under.
func Name(t *spectrogram.Tile) string {
	return fmt.Sprintf("d%d-x%d-y%d.png", t.Depth, t.Bounds.Min.X, t.Bounds.Min.Y)
}

// SaveTiles writes each successful result to dir as PNG, up to workers
// files at a time.
func SaveTiles(ctx context.Context, dir string, results []Result, workers int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return WritePNG(filepath.Join(dir, Name(r.Tile)), r.Image)
		})
	}
	return g.Wait()
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("render: encode %s: %w", path, err)
	}
	return f.Close()
}
