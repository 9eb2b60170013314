// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"spectro/internal/frame"
	"spectro/internal/source"
	"spectro/internal/window"
)

const barWidth = 40

func newBandsCommand() *cobra.Command {
	var (
		count      int
		windowName string
		windowSize int
		channel    int
	)

	cmd := &cobra.Command{
		Use:   "bands <file.wav>",
		Short: "Report the level of evenly spaced frequency bands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 || windowSize <= 0 {
				return fmt.Errorf("bands and window size must be positive")
			}
			win, err := window.Parse(windowName)
			if err != nil {
				return err
			}

			track, err := source.Open(args[0])
			if err != nil {
				return err
			}
			defer track.Close()
			if err := track.Load(cmd.Context()); err != nil {
				return err
			}
			sf := spectrogramFlags{channel: channel}
			samples, err := sf.signal(track)
			if err != nil {
				return err
			}

			linear := frame.NewLinear(win, windowSize, count, true)
			levels, err := frame.New(linear).Levels(cmd.Context(), samples)
			if err != nil {
				return err
			}

			centers := make([]float64, count)
			for i := range centers {
				centers[i] = linear.Frequency(i) * float64(track.SampleRate)
			}
			printBands(cmd.OutOrStdout(), filepath.Base(track.Path), centers, levels)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&count, "bands", "n", 16, "Number of bands up to Nyquist")
	flags.StringVar(&windowName, "window", window.Hann.String(), "Window function")
	flags.IntVar(&windowSize, "window-size", 256, "Samples per analysis window")
	flags.IntVar(&channel, "channel", -1, "Channel to analyze (-1 mixes all channels)")
	return cmd
}

// printBands draws one bar per band, scaled from -96 dBFS to 0 dBFS.
func printBands(w io.Writer, title string, centers, levels []float64) {
	fmt.Fprintf(w, "%s\n\n", titleStyle.Render("Band levels of "+title))
	loudest := 0
	for i, l := range levels {
		if l > levels[loudest] {
			loudest = i
		}
	}

	for i, l := range levels {
		db := math.Inf(-1)
		if l > 0 {
			db = 20 * math.Log10(l)
		}
		fill := int(math.Round(max(0, min(1, 1+db/96)) * barWidth))
		bar := strings.Repeat("█", fill) + strings.Repeat("·", barWidth-fill)

		row := fmt.Sprintf("%8.0f Hz %s %6.1f dBFS", centers[i], bar, db)
		if i == loudest && l > 0 {
			row = highlightStyle.Render(row)
		} else {
			row = infoStyle.Render(row)
		}
		fmt.Fprintln(w, row)
	}
}
