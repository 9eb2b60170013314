// SPDX-License-Identifier: MIT
package spectrogram

import (
	"fmt"
	"image/color"
	"maps"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Gradient maps a scaled magnitude in [0, 1] to a pixel color.
type Gradient interface {
	At(v float64) color.RGBA
}

// Stop is one anchor of a Stops gradient.
type Stop struct {
	Pos   float64
	Color colorful.Color
}

// Stops is a multi-stop gradient blended in HCL space. Stops must be sorted
// by position. Values at or below the first stop yield exactly the first
// color, values at or above the last stop yield the last color.
type Stops []Stop

var _ Gradient = Stops(nil)

// NewGradient spaces the given hex colors evenly over [0, 1].
func NewGradient(hexes ...string) (Stops, error) {
	if len(hexes) == 0 {
		return nil, fmt.Errorf("spectrogram: gradient needs at least one color")
	}
	stops := make(Stops, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("spectrogram: gradient stop %d: %w", i, err)
		}
		pos := 0.0
		if len(hexes) > 1 {
			pos = float64(i) / float64(len(hexes)-1)
		}
		stops[i] = Stop{Pos: pos, Color: c}
	}
	return stops, nil
}

func (s Stops) At(v float64) color.RGBA {
	if len(s) == 0 {
		return color.RGBA{A: 0xff}
	}
	if v <= s[0].Pos || v != v {
		return rgba(s[0].Color)
	}
	for i := 1; i < len(s); i++ {
		lo, hi := s[i-1], s[i]
		if v == hi.Pos {
			return rgba(hi.Color)
		}
		if v < hi.Pos {
			t := (v - lo.Pos) / (hi.Pos - lo.Pos)
			return rgba(lo.Color.BlendHcl(hi.Color, t).Clamped())
		}
	}
	return rgba(s[len(s)-1].Color)
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

var presets = map[string][]string{
	"gray":    {"#000000", "#ffffff"},
	"magma":   {"#000004", "#3b0f70", "#8c2981", "#de4968", "#fe9f6d", "#fcfdbf"},
	"viridis": {"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"},
	"inferno": {"#000004", "#420a68", "#932667", "#dd513a", "#fca50a", "#fcffa4"},
}

// DefaultGradient is the gradient used when Parameters leaves it unset.
const DefaultGradient = "magma"

// Preset returns a named built-in gradient.
func Preset(name string) (Stops, error) {
	hexes, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("spectrogram: unknown gradient %q (have %s)", name, strings.Join(PresetNames(), ", "))
	}
	return NewGradient(hexes...)
}

// PresetNames lists the built-in gradients in sorted order.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(presets))
}

func mustPreset(name string) Stops {
	g, err := Preset(name)
	if err != nil {
		panic(err)
	}
	return g
}
