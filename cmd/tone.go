// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"spectro/internal/source"
	"spectro/pkg/utils"
)

func newToneCommand() *cobra.Command {
	var (
		freq      float64
		sweepTo   float64
		duration  time.Duration
		rate      int
		bitDepth  int
		channels  int
		amplitude float64
	)

	cmd := &cobra.Command{
		Use:   "tone <out.wav>",
		Short: "Write a sine tone or linear sweep to a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 || rate <= 0 || channels <= 0 {
				return fmt.Errorf("duration, rate and channels must be positive")
			}
			if amplitude < 0 || amplitude > 1 {
				return fmt.Errorf("amplitude %g outside [0, 1]", amplitude)
			}

			frames := int(math.Round(duration.Seconds() * float64(rate)))
			var mono []float64
			if sweepTo > 0 {
				mono = utils.GenerateChirp(frames, float64(rate), freq, sweepTo, amplitude)
			} else {
				mono = utils.GenerateSineWave(frames, float64(rate), freq, amplitude)
			}
			chans := make([][]float64, channels)
			for i := range chans {
				chans[i] = mono
			}

			format := source.Format{SampleRate: rate, BitDepth: bitDepth, Channels: channels}
			if err := source.WriteFile(args[0], format, utils.Interleave(chans...)); err != nil {
				return err
			}

			signal := fmt.Sprintf("%.1f Hz sine", freq)
			if sweepTo > 0 {
				signal = fmt.Sprintf("%.1f Hz to %.1f Hz sweep", freq, sweepTo)
			}
			printDetails(cmd.OutOrStdout(), "Wrote "+args[0], []field{
				{"Signal", signal},
				{"Duration", duration.String()},
				{"Format", fmt.Sprintf("%d Hz, %d-bit, %d ch", rate, bitDepth, channels)},
			})
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64VarP(&freq, "frequency", "f", 440, "Tone frequency (or sweep start) in Hz")
	flags.Float64Var(&sweepTo, "sweep-to", 0, "Sweep linearly to this frequency in Hz (0 for a steady tone)")
	flags.DurationVarP(&duration, "duration", "t", 2*time.Second, "Length of the file")
	flags.IntVarP(&rate, "sample-rate", "s", 44100, "Sample rate in Hz")
	flags.IntVarP(&bitDepth, "bit-depth", "b", 16, "Bits per sample: 8, 16, 24 or 32")
	flags.IntVar(&channels, "channels", 1, "Number of channels")
	flags.Float64VarP(&amplitude, "amplitude", "a", 0.5, "Peak amplitude in [0, 1]")
	return cmd
}
