// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"spectro/internal/log"
	"spectro/internal/playback"
)

func newDevicesCommand() *cobra.Command {
	var outputsOnly bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := playback.Initialize(); err != nil {
				return err
			}
			defer func() {
				if err := playback.Terminate(); err != nil {
					log.Warnf("%v", err)
				}
			}()

			devices, err := playback.Devices()
			if err != nil {
				return err
			}
			if outputsOnly {
				kept := devices[:0]
				for _, d := range devices {
					if d.MaxOutputChannels > 0 {
						kept = append(kept, d)
					}
				}
				devices = kept
			}
			printDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
	cmd.Flags().BoolVar(&outputsOnly, "outputs", false, "Only list devices that can play audio")
	return cmd
}

// printDevices formats the device list, highlighting the default output.
func printDevices(w io.Writer, devices []playback.Device) {
	fmt.Fprintf(w, "%s\n\n", titleStyle.Render("Audio Device List"))
	if len(devices) == 0 {
		fmt.Fprintln(w, warnStyle.Render("No audio devices found."))
		return
	}

	var sb strings.Builder
	for _, d := range devices {
		entry := fmt.Sprintf("[%d] %s (%s, %s)\n", d.ID, d.Name, d.Kind(), d.HostAPI)
		entry += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			d.MaxInputChannels, d.MaxOutputChannels)
		entry += fmt.Sprintf("    Default sample rate: %.0f Hz, output latency %v to %v\n",
			d.DefaultSampleRate, d.LowLatency, d.HighLatency)

		if d.IsDefaultOutput {
			entry = highlightStyle.Render(entry)
		} else {
			entry = infoStyle.Render(entry)
		}
		sb.WriteString(entry)
		sb.WriteString("\n")
	}
	fmt.Fprint(w, sb.String())
	fmt.Fprintln(w, infoStyle.Render("Use the device index as playback.output_device."))
}
