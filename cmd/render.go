// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"spectro/internal/config"
	"spectro/internal/log"
	"spectro/internal/render"
	"spectro/internal/source"
	"spectro/internal/spectrogram"
	"spectro/internal/stream"
	"spectro/internal/task"
)

// spectrogramFlags are the rendering settings a command may override.
type spectrogramFlags struct {
	window     string
	windowSize int
	tileWidth  int
	tileHeight int
	depth      int
	floorDB    float64
	gradient   string
	channel    int
}

func (f *spectrogramFlags) register(cmd *cobra.Command) {
	def := config.Default().Spectrogram
	flags := cmd.Flags()
	flags.StringVar(&f.window, "window", def.Window, "Window function")
	flags.IntVar(&f.windowSize, "window-size", def.WindowSize, "Samples per analysis window")
	flags.IntVar(&f.tileWidth, "tile-width", def.TileWidth, "Tile width in pixels")
	flags.IntVar(&f.tileHeight, "tile-height", def.TileHeight, "Tile height in pixels")
	flags.IntVarP(&f.depth, "depth", "d", def.Depth, "Quad-tree levels below the root")
	flags.Float64Var(&f.floorDB, "floor-db", def.FloorDB, "Magnitude at the bottom of the gradient, in dB")
	flags.StringVar(&f.gradient, "gradient", def.Gradient, "Gradient preset")
	flags.IntVar(&f.channel, "channel", -1, "Channel to analyze (-1 mixes all channels)")
}

// apply copies explicitly set flags into cfg and revalidates it.
func (f *spectrogramFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	s := &cfg.Spectrogram
	flags := cmd.Flags()
	if flags.Changed("window") {
		s.Window = f.window
	}
	if flags.Changed("window-size") {
		s.WindowSize = f.windowSize
	}
	if flags.Changed("tile-width") {
		s.TileWidth = f.tileWidth
	}
	if flags.Changed("tile-height") {
		s.TileHeight = f.tileHeight
	}
	if flags.Changed("depth") {
		s.Depth = f.depth
	}
	if flags.Changed("floor-db") {
		s.FloorDB = f.floorDB
	}
	if flags.Changed("gradient") {
		s.Gradient = f.gradient
	}
	return cfg.Validate()
}

// signal selects the analyzed samples of track.
func (f *spectrogramFlags) signal(track *source.Track) (stream.Data[float64], error) {
	if f.channel < 0 {
		return track.Mono(), nil
	}
	if f.channel >= track.Channels {
		return nil, fmt.Errorf("channel %d out of range, %s has %d", f.channel, track.Path, track.Channels)
	}
	return track.Channel(f.channel), nil
}

// newCache builds the tile cache for samples from the spectrogram section.
func newCache(cfg *config.Config, samples stream.Data[float64], sampleRate int, sched task.Scheduler) (*spectrogram.Cache, error) {
	s := cfg.Spectrogram
	grad, err := spectrogram.Preset(s.Gradient)
	if err != nil {
		return nil, err
	}
	return spectrogram.NewCache(spectrogram.Parameters{
		Source:     samples,
		Window:     s.WindowFunc(),
		WindowSize: s.WindowSize,
		Scale:      s.Scaling(),
		Gradient:   grad,
		SampleRate: sampleRate,
		MaxDFTSize: s.MaxDFTSize,
	}, sched), nil
}

func newRenderCommand(opts *options) *cobra.Command {
	var (
		sf     spectrogramFlags
		outDir string
		tiles  bool
	)

	cmd := &cobra.Command{
		Use:   "render <file.wav>",
		Short: "Render a WAV file to spectrogram PNG tiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := sf.apply(cmd, cfg); err != nil {
				return err
			}

			track, err := source.Open(args[0])
			if err != nil {
				return err
			}
			defer track.Close()

			started := time.Now()
			if err := track.Load(cmd.Context()); err != nil {
				return err
			}
			samples, err := sf.signal(track)
			if err != nil {
				return err
			}

			pool := task.NewPool(cfg.Workers)
			cache, err := newCache(cfg, samples, track.SampleRate, pool)
			if err != nil {
				return err
			}

			s := cfg.Spectrogram
			size := image.Pt(s.TileWidth, s.TileHeight)
			root := cache.Root(render.Layout(size, s.Depth))

			results, err := render.Collect(cmd.Context(), render.Tree(root, s.Depth, size))
			if err != nil {
				// Individual tile failures still leave a usable mosaic.
				log.Errorf("Render: %v", err)
				if cmd.Context().Err() != nil {
					return err
				}
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			mosaic := filepath.Join(outDir, "spectrogram.png")
			if err := render.WritePNG(mosaic, render.Mosaic(root.Bounds, s.Depth, results)); err != nil {
				return err
			}
			if tiles {
				if err := render.SaveTiles(cmd.Context(), filepath.Join(outDir, "tiles"), results, cfg.Workers); err != nil {
					return err
				}
			}

			printDetails(cmd.OutOrStdout(), "Rendered "+filepath.Base(track.Path), []field{
				{"Output", mosaic},
				{"Tiles", fmt.Sprintf("%d to depth %d at %dx%d", len(results), s.Depth, size.X, size.Y)},
				{"Image", fmt.Sprintf("%dx%d", root.Bounds.Dx(), root.Bounds.Dy())},
				{"Window", fmt.Sprintf("%s, %d samples", s.Window, s.WindowSize)},
				{"DFT sizes", fmt.Sprint(cache.Sizes())},
				{"Elapsed", time.Since(started).Round(time.Millisecond).String()},
			})
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Directory for the rendered images")
	cmd.Flags().BoolVar(&tiles, "tiles", false, "Also write every tile as its own PNG")
	return cmd
}
