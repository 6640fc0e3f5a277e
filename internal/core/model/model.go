// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

const (
	// MaxPixels is the largest edge of a rendered image, in pixels.
	MaxPixels = 1280
	// MaxOverlays is the largest number of overlays a single request may carry.
	MaxOverlays = 100
	MinZoom     = 0
	MaxZoom     = 20
	MaxPitch    = 60
)

// Coordinate is a longitude/latitude pair in degrees.
type Coordinate struct {
	Lon float64
	Lat float64
}

func Coord(lon, lat float64) Coordinate { return Coordinate{Lon: lon, Lat: lat} }

// CoordinateFromPoint converts an orb point ([lon, lat]).
func CoordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Lon: p.Lon(), Lat: p.Lat()}
}

func (c Coordinate) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

// Validate checks longitude in [-180,180] and latitude in [-90,90].
func (c Coordinate) Validate() error {
	if !(c.Lon >= -180 && c.Lon <= 180) {
		return fmt.Errorf("longitude %v must be in [-180,180]", c.Lon)
	}
	if !(c.Lat >= -90 && c.Lat <= 90) {
		return fmt.Errorf("latitude %v must be in [-90,90]", c.Lat)
	}
	return nil
}

// String renders "lon,lat" with the shortest exact decimal form of each value.
func (c Coordinate) String() string {
	return FormatNumber(c.Lon) + "," + FormatNumber(c.Lat)
}

// FormatNumber formats v with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	if v == 0 {
		// avoid "-0"
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Bound returns the bounding box of the coordinates as an orb.Bound.
func Bound(coords []Coordinate) orb.Bound {
	if len(coords) == 0 {
		return orb.Bound{}
	}
	b := coords[0].Point().Bound()
	for _, c := range coords[1:] {
		b = b.Extend(c.Point())
	}
	return b
}
