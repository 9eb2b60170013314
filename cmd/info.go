// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"spectro/internal/source"
	"spectro/internal/stream"
)

func newInfoCommand() *cobra.Command {
	var levels bool

	cmd := &cobra.Command{
		Use:   "info <file.wav>",
		Short: "Show the format of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, err := source.Open(args[0])
			if err != nil {
				return err
			}
			defer track.Close()

			fields := []field{
				{"Sample rate", fmt.Sprintf("%d Hz", track.SampleRate)},
				{"Channels", fmt.Sprint(track.Channels)},
				{"Bit depth", fmt.Sprint(track.BitDepth)},
				{"Frames", fmt.Sprint(track.Frames)},
				{"Duration", track.Duration().String()},
			}

			if levels {
				if err := track.Load(cmd.Context()); err != nil {
					return err
				}
				for ch := range track.Channels {
					samples, err := stream.Collect(track.Channel(ch))
					if err != nil {
						return err
					}
					fields = append(fields, field{
						fmt.Sprintf("Channel %d", ch),
						channelLevels(samples),
					})
				}
			}

			printDetails(cmd.OutOrStdout(), filepath.Base(track.Path), fields)
			return nil
		},
	}
	cmd.Flags().BoolVar(&levels, "levels", false, "Decode the file and report peak and RMS levels per channel")
	return cmd
}

// channelLevels summarizes peak and RMS in dBFS.
func channelLevels(samples []float64) string {
	if len(samples) == 0 {
		return "empty"
	}
	peak := math.Max(floats.Max(samples), -floats.Min(samples))
	rms := floats.Norm(samples, 2) / math.Sqrt(float64(len(samples)))
	dc := stat.Mean(samples, nil)
	return fmt.Sprintf("peak %s, rms %s, dc %+.4f", dBFS(peak), dBFS(rms), dc)
}

func dBFS(v float64) string {
	if v <= 0 {
		return "-inf dBFS"
	}
	return fmt.Sprintf("%.1f dBFS", 20*math.Log10(v))
}
