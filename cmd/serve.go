// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"spectro/internal/config"
	"spectro/internal/log"
	"spectro/internal/playback"
	"spectro/internal/render"
	"spectro/internal/source"
	"spectro/internal/task"
	"spectro/internal/transport"
	"spectro/internal/transport/udp"
)

// clockPlayhead advances in real time when no audio device is used.
type clockPlayhead struct {
	start  time.Time
	rate   int
	frames int64
}

func (c *clockPlayhead) Position() int64 {
	f := int64(time.Since(c.start).Seconds() * float64(c.rate))
	return min(f, c.frames)
}

func (c *clockPlayhead) Playing() bool { return c.Position() < c.frames }

// tileStore keeps delivered tiles for viewers that connect later.
type tileStore struct {
	mu    sync.Mutex
	tiles []any
}

func (s *tileStore) add(msg *transport.TileMessage) {
	s.mu.Lock()
	s.tiles = append(s.tiles, msg)
	s.mu.Unlock()
}

func (s *tileStore) snapshot() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.tiles...)
}

// openTransports starts every transport enabled in cfg, or the logging
// transport when none is.
func openTransports(cfg *config.Config, store *tileStore) ([]transport.Transport, error) {
	var sinks []transport.Transport
	t := cfg.Transport
	if t.WebSocketEnabled {
		wst := transport.NewWebSocketTransport()
		wst.OnConnect(store.snapshot)
		if err := wst.Listen(t.WebSocketAddress); err != nil {
			wst.Close()
			return nil, fmt.Errorf("websocket: %w", err)
		}
		sinks = append(sinks, wst)
	}
	if t.UDPEnabled {
		sender, err := udp.NewSender(t.UDPAddress)
		if err != nil {
			closeTransports(sinks)
			return nil, err
		}
		sinks = append(sinks, sender)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, transport.NewLoggingTransport())
	}
	return sinks, nil
}

func closeTransports(sinks []transport.Transport) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Warnf("Closing %T: %v", s, err)
		}
	}
}

// broadcast sends msg to every transport that can carry it.
func broadcast(sinks []transport.Transport, msg any) {
	for _, s := range sinks {
		if err := s.Send(msg); err != nil && !errors.Is(err, transport.ErrUnsupportedMessage) {
			log.Warnf("Sending to %T: %v", s, err)
		}
	}
}

func newServeCommand(opts *options) *cobra.Command {
	var (
		sf         spectrogramFlags
		addr       string
		udpAddr    string
		noPlayback bool
	)

	cmd := &cobra.Command{
		Use:   "serve <file.wav>",
		Short: "Play a WAV file and stream its spectrogram and playhead to viewers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Transport.WebSocketEnabled = addr != ""
				cfg.Transport.WebSocketAddress = addr
			}
			if flags.Changed("udp") {
				cfg.Transport.UDPEnabled = udpAddr != ""
				cfg.Transport.UDPAddress = udpAddr
			}
			if noPlayback {
				cfg.Playback.Enabled = false
			}
			if err := sf.apply(cmd, cfg); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, &sf, args[0])
		},
	}

	sf.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "", "WebSocket listen address (empty disables)")
	flags.StringVar(&udpAddr, "udp", "", "Also send the playhead as UDP datagrams to this address")
	flags.BoolVar(&noPlayback, "no-playback", false, "Advance the playhead by the clock instead of playing audio")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, sf *spectrogramFlags, path string) error {
	track, err := source.Open(path)
	if err != nil {
		return err
	}
	defer track.Close()
	samples, err := sf.signal(track)
	if err != nil {
		return err
	}
	track.Start(ctx)

	store := &tileStore{}
	sinks, err := openTransports(cfg, store)
	if err != nil {
		return err
	}
	defer closeTransports(sinks)

	var playhead transport.Playhead
	if cfg.Playback.Enabled {
		if err := playback.Initialize(); err != nil {
			return err
		}
		defer playback.Terminate()

		player, err := playback.NewPlayer(track.Samples(), playback.Options{
			SampleRate:      track.SampleRate,
			Channels:        track.Channels,
			FramesPerBuffer: cfg.Playback.FramesPerBuffer,
			DeviceID:        cfg.Playback.OutputDevice,
			LowLatency:      cfg.Playback.LowLatency,
		})
		if err != nil {
			return err
		}
		if err := player.Start(); err != nil {
			return err
		}
		defer func() {
			if err := player.Stop(); err != nil {
				log.Warnf("%v", err)
			}
		}()
		playhead = player
	} else {
		playhead = &clockPlayhead{start: time.Now(), rate: track.SampleRate, frames: int64(track.Frames)}
	}

	pub, err := transport.NewPublisher(cfg.Transport.PositionInterval, playhead, track.SampleRate, sinks...)
	if err != nil {
		return err
	}
	pub.Start()
	defer pub.Close()

	// Tiles cover the whole file, so they wait for decoding to finish.
	if err := track.Wait(); err != nil {
		return err
	}

	pool := task.NewPool(cfg.Workers)
	defer pool.Wait()
	cache, err := newCache(cfg, samples, track.SampleRate, pool)
	if err != nil {
		return err
	}

	s := cfg.Spectrogram
	size := image.Pt(s.TileWidth, s.TileHeight)
	root := cache.Root(render.Layout(size, s.Depth))
	results := render.Tree(root, s.Depth, size)

	delivered := 0
deliver:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break deliver
			}
			if r.Err != nil {
				log.Errorf("Render %s: %v", r.Tile, r.Err)
				continue
			}
			msg, err := transport.NewTileMessage(r.Tile, r.Image)
			if err != nil {
				log.Errorf("%v", err)
				continue
			}
			store.add(msg)
			broadcast(sinks, msg)
			delivered++
		case <-ctx.Done():
			return nil
		}
	}
	log.Infof("Delivered %d tiles of %s, serving until interrupted", delivered, track.Path)

	<-ctx.Done()
	return nil
}
