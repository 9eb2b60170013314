// SPDX-License-Identifier: MIT
// Package transport delivers rendered tiles and the playhead to viewers.
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"spectro/internal/spectrogram"
)

// Transport sends messages to whoever listens. Implementations are safe for
// concurrent use and must not block the caller for long.
type Transport interface {
	Send(msg any) error
	Close() error
}

// ErrUnsupportedMessage is returned by transports that cannot carry a
// message type.
var ErrUnsupportedMessage = errors.New("transport: unsupported message")

// Message types.
const (
	TypeTile     = "tile"
	TypePosition = "position"
)

// TileMessage carries one rendered tile as PNG.
type TileMessage struct {
	Type    string  `json:"type"`
	Depth   int     `json:"depth"`
	Start   int     `json:"start"`
	Count   int     `json:"count"`
	MinFreq float64 `json:"minFreq"`
	MaxFreq float64 `json:"maxFreq"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	PNG     []byte  `json:"png"`
}

// NewTileMessage encodes img as the content of tile.
func NewTileMessage(tile *spectrogram.Tile, img image.Image) (*TileMessage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("transport: encode %s: %w", tile, err)
	}
	return &TileMessage{
		Type:    TypeTile,
		Depth:   tile.Depth,
		Start:   tile.Start,
		Count:   tile.Count,
		MinFreq: tile.MinFreq,
		MaxFreq: tile.MaxFreq,
		X:       tile.Bounds.Min.X,
		Y:       tile.Bounds.Min.Y,
		Width:   tile.Bounds.Dx(),
		Height:  tile.Bounds.Dy(),
		PNG:     buf.Bytes(),
	}, nil
}

// PositionMessage reports the playhead.
type PositionMessage struct {
	Type     string    `json:"type"`
	Sequence uint32    `json:"seq"`
	Sent     time.Time `json:"sent"`
	Frame    int64     `json:"frame"`
	Seconds  float64   `json:"seconds"`
	Playing  bool      `json:"playing"`
}
