// SPDX-License-Identifier: MIT
/*
Package source decodes audio files into sample stores for the spectrogram
and playback.

A Track decodes its file in the background into a growing in-memory store.
Streams opened on the store while decoding is in progress report short
reads at the current end and continue once more samples arrive, so tiles
can be requested before the whole file is available. When decoding fails,
or the file ends before the frame count its header announces, the store is
failed and readers past the decoded samples get stream.ErrIOFailure.
*/
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectro/internal/log"
	"spectro/internal/stream"
)

var (
	// ErrInvalidFile is returned for files that are not PCM WAV.
	ErrInvalidFile = errors.New("source: not a PCM WAV file")

	// ErrTruncated is returned when the PCM data ends before the header's
	// frame count.
	ErrTruncated = errors.New("source: truncated PCM data")
)

// chunkFrames is the number of frames decoded per append.
const chunkFrames = 8192

// Track is a decoded (or decoding) WAV file. Samples are normalized to
// [-1, 1) and stored interleaved.
type Track struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int

	// Frames is the frame count announced by the file header.
	Frames int

	file    *os.File
	decoder *wav.Decoder
	samples *stream.Memory[float64]

	loadOnce sync.Once
	done     chan struct{}
	err      error

	splitOnce sync.Once
	split     []stream.Data[float64]
}

// Open reads the header of the WAV file at path. Samples are decoded by
// Load or Start.
func Open(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, path)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("source: seek to PCM data in %s: %w", path, err)
	}

	format := dec.Format()
	bitDepth := int(dec.SampleBitDepth())
	if bitDepth == 0 || format == nil || format.NumChannels <= 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s has no usable format", ErrInvalidFile, path)
	}

	bytesPerSample := (bitDepth-1)/8 + 1
	frames := int(dec.PCMLen()) / bytesPerSample / format.NumChannels

	return &Track{
		Path:       path,
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
		BitDepth:   bitDepth,
		Frames:     frames,
		file:       f,
		decoder:    dec,
		samples:    stream.NewMemory[float64](frames * format.NumChannels),
		done:       make(chan struct{}),
	}, nil
}

// Load decodes the whole file on the calling goroutine and closes it. Later
// calls wait for the first to finish and return its result.
func (t *Track) Load(ctx context.Context) error {
	t.loadOnce.Do(func() {
		t.err = t.decode(ctx)
		if cerr := t.file.Close(); t.err == nil && cerr != nil {
			t.err = fmt.Errorf("source: close %s: %w", t.Path, cerr)
		}
		t.samples.Fail(t.err)
		close(t.done)
	})
	<-t.done
	return t.err
}

// Start decodes the file in the background. Use Wait to collect the result.
func (t *Track) Start(ctx context.Context) {
	go func() {
		if err := t.Load(ctx); err != nil {
			log.Errorf("Decoding %s failed: %v", t.Path, err)
		}
	}()
}

// Wait blocks until decoding has finished.
func (t *Track) Wait() error {
	<-t.done
	return t.err
}

// Loaded reports whether decoding has finished.
func (t *Track) Loaded() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Track) decode(ctx context.Context) error {
	buf := &audio.IntBuffer{
		Format:         t.decoder.Format(),
		Data:           make([]int, chunkFrames*t.Channels),
		SourceBitDepth: t.BitDepth,
	}
	chunk := make([]float64, len(buf.Data))
	scale := 1 / math.Pow(2, float64(t.BitDepth-1))

	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := t.decoder.PCMBuffer(buf)
		if err != nil {
			return fmt.Errorf("source: decode %s: %w", t.Path, err)
		}
		if n == 0 {
			break
		}
		// 8-bit WAV is unsigned.
		offset := 0
		if t.BitDepth == 8 {
			offset = 128
		}
		for i, v := range buf.Data[:n] {
			chunk[i] = float64(v-offset) * scale
		}
		t.samples.Append(chunk[:n]...)
	}

	decoded := t.samples.Size() / t.Channels
	if decoded < t.Frames {
		log.Warnf("%s ends after %d of %d frames", t.Path, decoded, t.Frames)
		return fmt.Errorf("%w: %s has %d of %d frames", ErrTruncated, t.Path, decoded, t.Frames)
	}
	log.Debugf("Decoded %s: %d samples in %v", t.Path, t.samples.Size(), time.Since(start))
	return nil
}

// Samples returns the interleaved sample store.
func (t *Track) Samples() stream.Data[float64] { return t.samples }

// Channel returns the samples of channel i.
func (t *Track) Channel(i int) stream.Data[float64] {
	t.splitOnce.Do(func() {
		t.split = stream.Split[float64](t.samples, t.Channels)
	})
	return t.split[i]
}

// Mono returns the average of all channels.
func (t *Track) Mono() stream.Data[float64] {
	if t.Channels == 1 {
		return t.samples
	}
	return stream.MapFrames(stream.Data[float64](t.samples), t.Channels, func(frame []float64) float64 {
		var sum float64
		for _, v := range frame {
			sum += v
		}
		return sum / float64(len(frame))
	})
}

// Duration returns the length announced by the header.
func (t *Track) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(t.Frames) / float64(t.SampleRate) * float64(time.Second))
}

// Close releases the file if decoding never ran.
func (t *Track) Close() error {
	var err error
	t.loadOnce.Do(func() {
		t.err = errors.New("source: track closed before loading")
		t.samples.Fail(t.err)
		err = t.file.Close()
		close(t.done)
	})
	return err
}
