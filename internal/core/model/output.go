package model

import (
	"fmt"
	"strings"
)

// Format is an image format understood by the tileset endpoint.
type Format string

const (
	PNG    Format = "png"
	PNG32  Format = "png32"
	PNG64  Format = "png64"
	PNG128 Format = "png128"
	PNG256 Format = "png256"
	JPEG   Format = "jpg"
	JPEG70 Format = "jpg70"
	JPEG80 Format = "jpg80"
	JPEG90 Format = "jpg90"
)

var formats = []Format{PNG, PNG32, PNG64, PNG128, PNG256, JPEG, JPEG70, JPEG80, JPEG90}

// Formats lists every supported tileset format.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// ParseFormat accepts the extension form ("png256", "jpg80") and the long
// "jpeg" spelling.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PNG, nil
	}
	s = strings.Replace(s, "jpeg", "jpg", 1)
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	for _, k := range formats {
		if k == f {
			return true
		}
	}
	return false
}

// Output describes the rendered image: logical size in points, a 1x or 2x
// scale and, for the tileset endpoint, the format.
type Output struct {
	Width  int
	Height int
	Scale  int
	Format Format
}

// EffectiveScale treats an unset scale as 1.
func (o Output) EffectiveScale() int {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// Retina reports whether the "@2x" suffix applies.
func (o Output) Retina() bool { return o.EffectiveScale() > 1 }

func (o Output) EffectiveFormat() Format {
	if o.Format == "" {
		return PNG
	}
	return o.Format
}

// Validate checks positive size, a scale of 1 or 2 and the pixel limit.
func (o Output) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("size %dx%d must be positive", o.Width, o.Height)
	}
	s := o.EffectiveScale()
	if s != 1 && s != 2 {
		return fmt.Errorf("scale %d must be 1 or 2", o.Scale)
	}
	if o.Width*s > MaxPixels {
		return fmt.Errorf("width %d at @%dx exceeds %d pixels", o.Width, s, MaxPixels)
	}
	if o.Height*s > MaxPixels {
		return fmt.Errorf("height %d at @%dx exceeds %d pixels", o.Height, s, MaxPixels)
	}
	if !o.EffectiveFormat().Valid() {
		return fmt.Errorf("unsupported image format %q", o.Format)
	}
	return nil
}

// SizeToken renders "{w}x{h}" plus "@2x" when retina.
func (o Output) SizeToken() string {
	t := fmt.Sprintf("%dx%d", o.Width, o.Height)
	if o.Retina() {
		t += "@2x"
	}
	return t
}
