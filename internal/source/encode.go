// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format describes the PCM layout written by Encode.
type Format struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// Encode writes interleaved samples in [-1, 1] to w as a PCM WAV stream.
// Out-of-range samples are clipped.
func Encode(w io.WriteSeeker, f Format, samples []float64) error {
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("source: unsupported bit depth %d", f.BitDepth)
	}
	if f.Channels <= 0 || f.SampleRate <= 0 {
		return fmt.Errorf("source: invalid format %+v", f)
	}
	if len(samples)%f.Channels != 0 {
		return fmt.Errorf("source: %d samples do not fill %d-channel frames", len(samples), f.Channels)
	}

	enc := wav.NewEncoder(w, f.SampleRate, f.BitDepth, f.Channels, 1)

	peak := math.Pow(2, float64(f.BitDepth-1)) - 1
	offset := 0
	if f.BitDepth == 8 {
		offset = 128
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		Data:           make([]int, min(len(samples), chunkFrames*f.Channels)),
		SourceBitDepth: f.BitDepth,
	}
	for len(samples) > 0 {
		n := min(len(samples), len(buf.Data))
		buf.Data = buf.Data[:n]
		for i, v := range samples[:n] {
			buf.Data[i] = int(math.Round(max(-1, min(1, v))*peak)) + offset
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("source: write samples: %w", err)
		}
		samples = samples[n:]
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("source: finish WAV stream: %w", err)
	}
	return nil
}

// WriteFile encodes samples into a new WAV file at path.
func WriteFile(path string, f Format, samples []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("source: create %s: %w", path, err)
	}
	if err := Encode(file, f, samples); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
