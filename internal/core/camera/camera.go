// Package camera models where a snapshot looks from and renders it as the
// position segment of a Static API path.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
)

const (
	// EarthRadius is the WGS84 equatorial radius in meters.
	EarthRadius = 6378137.0
	// TileSize is the width of a zoom 0 world in pixels.
	TileSize = 512.0
	// FieldOfView is the vertical field of view used for altitude, in degrees.
	FieldOfView = 30.0
)

// Viewpoint is Explicit, Camera or Auto. A nil Viewpoint means Auto.
type Viewpoint interface {
	viewpoint()
}

// Explicit is a plain center and zoom.
type Explicit struct {
	Center model.Coordinate
	Zoom   float64
}

// Camera is a center with either a zoom or an altitude, plus tilt and
// rotation. Zoom wins when both are set.
type Camera struct {
	Center   model.Coordinate
	Zoom     *float64
	Altitude float64 // meters above the center
	Pitch    float64 // degrees toward the horizon
	Heading  float64 // degrees clockwise from north
}

// Auto lets the service fit the overlays.
type Auto struct{}

func (Explicit) viewpoint() {}
func (Camera) viewpoint()   {}
func (Auto) viewpoint()     {}

// Zoom is a convenience for Camera.Zoom.
func Zoom(z float64) *float64 { return &z }

var errNoZoom = errors.New("camera needs a zoom or a positive altitude")

// ZoomForAltitude converts a viewer altitude into the zoom level that shows
// the same ground extent in a viewport heightPoints tall.
func ZoomForAltitude(altitude, pitch, latitude float64, heightPoints int) float64 {
	eye := altitude / math.Sin(math.Pi/2-radians(pitch)) * math.Sin(math.Pi/2)
	metersTall := 2 * eye * math.Tan(radians(FieldOfView)/2)
	metersPerPixel := metersTall / float64(heightPoints)
	worldWidth := math.Cos(radians(latitude)) * 2 * math.Pi * EarthRadius / metersPerPixel
	return math.Log2(worldWidth / TileSize)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Resolved is a validated viewpoint ready to render.
type Resolved struct {
	Auto    bool
	Center  model.Coordinate
	Zoom    float64
	Pitch   float64
	Heading float64
}

// Resolve derives any missing zoom and checks every range. Out-of-range
// values are rejected, never clamped.
func Resolve(vp Viewpoint, out model.Output) (Resolved, error) {
	switch v := vp.(type) {
	case nil, Auto:
		return Resolved{Auto: true}, nil
	case Explicit:
		r := Resolved{Center: v.Center, Zoom: v.Zoom}
		return r, r.validate()
	case Camera:
		r := Resolved{Center: v.Center, Pitch: v.Pitch, Heading: v.Heading}
		switch {
		case v.Zoom != nil:
			r.Zoom = *v.Zoom
		case v.Altitude > 0:
			if out.Height <= 0 {
				return Resolved{}, fmt.Errorf("altitude needs a positive output height")
			}
			if err := checkPitch(v.Pitch); err != nil {
				return Resolved{}, err
			}
			r.Zoom = ZoomForAltitude(v.Altitude, v.Pitch, v.Center.Lat, out.Height)
		default:
			return Resolved{}, errNoZoom
		}
		return r, r.validate()
	}
	return Resolved{}, fmt.Errorf("unsupported viewpoint %T", vp)
}

func (r Resolved) validate() error {
	if err := r.Center.Validate(); err != nil {
		return err
	}
	if !(r.Zoom >= model.MinZoom && r.Zoom <= model.MaxZoom) {
		return fmt.Errorf("zoom %v must be in [%d,%d]", r.Zoom, model.MinZoom, model.MaxZoom)
	}
	if err := checkPitch(r.Pitch); err != nil {
		return err
	}
	if !(r.Heading >= 0 && r.Heading < 360) {
		return fmt.Errorf("heading %v must be in [0,360)", r.Heading)
	}
	return nil
}

func checkPitch(p float64) error {
	if !(p >= 0 && p <= model.MaxPitch) {
		return fmt.Errorf("pitch %v must be in [0,%d]", p, model.MaxPitch)
	}
	return nil
}

// Token renders "auto" or "lon,lat,zoom[,heading][,pitch]". Zoom is
// rounded to two decimals. A pitched view without rotation writes a 0
// heading to keep pitch in its position.
func (r Resolved) Token() string {
	if r.Auto {
		return "auto"
	}
	s := r.Center.String() + "," + model.FormatNumber(math.Round(r.Zoom*100)/100)
	switch {
	case r.Heading > 0:
		s += "," + model.FormatNumber(r.Heading)
	case r.Pitch > 0:
		s += ",0"
	}
	if r.Pitch > 0 {
		s += "," + model.FormatNumber(r.Pitch)
	}
	return s
}
