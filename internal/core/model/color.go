package model

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is an RGBA value with channels in [0,1]. Only RGB take part in the
// hex form; opacity travels separately where the API wants it.
type Color struct {
	R, G, B, A float64
}

var (
	Black = Color{A: 1}
	Red   = Color{R: 1, A: 1}
	// DavysGray is the default stroke and fill of path overlays (#555).
	DavysGray = ColorFromHex("555")
)

// RGB builds an opaque color from 8-bit channels.
func RGB(r, g, b uint8) Color {
	return Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255, A: 1}
}

// ColorFrom converts any image/color value, keeping alpha.
func ColorFrom(c color.Color) Color {
	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return Color{
		R: float64(n.R) / 0xffff,
		G: float64(n.G) / 0xffff,
		B: float64(n.B) / 0xffff,
		A: float64(n.A) / 0xffff,
	}
}

// RGBA implements color.Color (alpha-premultiplied, 16-bit).
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA64{
		R: uint16(clamp01(c.R) * 0xffff),
		G: uint16(clamp01(c.G) * 0xffff),
		B: uint16(clamp01(c.B) * 0xffff),
		A: uint16(clamp01(c.A) * 0xffff),
	}.RGBA()
}

// WithAlpha returns a copy with alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// Hex renders "rrggbb" in lowercase. Channels are scaled to 0..255 and
// truncated; error below 1e-9 is absorbed so n/255 inputs map back to n.
func (c Color) Hex() string {
	return fmt.Sprintf("%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	return int(clamp01(v)*255 + 1e-9)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ColorFromHex parses "#rgb", "rgb", "#rrggbb" or "rrggbb". Anything else
// yields opaque black. The result is always opaque.
func ColorFromHex(s string) Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return Black
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Black
	}
	return RGB(uint8(n>>16), uint8(n>>8), uint8(n))
}
