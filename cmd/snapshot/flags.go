package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/static-snapshot/internal/core/staticapi"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, " ") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	style       string
	tilesets    string
	center      string
	zoom        float64
	altitude    float64
	pitch       float64
	heading     float64
	width       int
	height      int
	scale       int
	format      string
	markers     listFlag
	paths       listFlag
	h3          string
	noLogo      bool
	noAttrib    bool
	beforeLayer string
}

// envelope turns the single-request flags into the same shape a batch file
// carries. A negative zoom means unset.
func (o options) envelope() (staticapi.Envelope, error) {
	e := staticapi.Envelope{
		Style:       strings.TrimSpace(o.style),
		Width:       o.width,
		Height:      o.height,
		Scale:       o.scale,
		Format:      o.format,
		Altitude:    o.altitude,
		Pitch:       o.pitch,
		Heading:     o.heading,
		BeforeLayer: o.beforeLayer,
	}
	if o.tilesets != "" {
		for _, id := range strings.Split(o.tilesets, ",") {
			if id = strings.TrimSpace(id); id != "" {
				e.Tilesets = append(e.Tilesets, id)
			}
		}
	}
	if o.center != "" {
		lon, lat, err := parseLonLat(o.center)
		if err != nil {
			return e, fmt.Errorf("-center: %w", err)
		}
		e.Center = &staticapi.LonLat{Lon: lon, Lat: lat}
	}
	if o.zoom >= 0 {
		z := o.zoom
		e.Zoom = &z
	}
	if o.noLogo {
		f := false
		e.Logo = &f
	}
	if o.noAttrib {
		f := false
		e.Attribution = &f
	}
	for _, m := range o.markers {
		spec, err := parseMarker(m)
		if err != nil {
			return e, fmt.Errorf("-marker %q: %w", m, err)
		}
		e.Overlays = append(e.Overlays, spec)
	}
	for _, p := range o.paths {
		spec, err := parsePath(p)
		if err != nil {
			return e, fmt.Errorf("-path %q: %w", p, err)
		}
		e.Overlays = append(e.Overlays, spec)
	}
	if o.h3 != "" {
		spec, err := parseH3(o.h3)
		if err != nil {
			return e, fmt.Errorf("-h3 %q: %w", o.h3, err)
		}
		e.Overlays = append(e.Overlays, spec)
	}
	return e, nil
}

func parseLonLat(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want lon,lat")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	return lon, lat, nil
}

// parseMarker reads lon,lat[,size[,label[,hex]]].
func parseMarker(s string) (staticapi.OverlaySpec, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 5 {
		return staticapi.OverlaySpec{}, fmt.Errorf("want lon,lat[,size[,label[,hex]]]")
	}
	lon, lat, err := parseLonLat(parts[0] + "," + parts[1])
	if err != nil {
		return staticapi.OverlaySpec{}, err
	}
	spec := staticapi.OverlaySpec{Type: "marker", Lon: lon, Lat: lat}
	if len(parts) > 2 {
		spec.Size = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		spec.Label = strings.TrimSpace(parts[3])
	}
	if len(parts) > 4 {
		spec.Color = strings.TrimSpace(parts[4])
	}
	return spec, nil
}

// parsePath reads lon,lat;lon,lat;...
func parsePath(s string) (staticapi.OverlaySpec, error) {
	spec := staticapi.OverlaySpec{Type: "path"}
	for _, pt := range strings.Split(s, ";") {
		if strings.TrimSpace(pt) == "" {
			continue
		}
		lon, lat, err := parseLonLat(pt)
		if err != nil {
			return spec, err
		}
		spec.Points = append(spec.Points, [2]float64{lon, lat})
	}
	if len(spec.Points) < 2 {
		return spec, fmt.Errorf("a path needs at least two points")
	}
	return spec, nil
}

// parseH3 reads lon,lat,resolution[,rings].
func parseH3(s string) (staticapi.OverlaySpec, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 3 || len(parts) > 4 {
		return staticapi.OverlaySpec{}, fmt.Errorf("want lon,lat,resolution[,rings]")
	}
	lon, lat, err := parseLonLat(parts[0] + "," + parts[1])
	if err != nil {
		return staticapi.OverlaySpec{}, err
	}
	spec := staticapi.OverlaySpec{Type: "h3", Lon: lon, Lat: lat}
	if spec.Resolution, err = strconv.Atoi(strings.TrimSpace(parts[2])); err != nil {
		return spec, fmt.Errorf("resolution: %w", err)
	}
	if len(parts) == 4 {
		if spec.Rings, err = strconv.Atoi(strings.TrimSpace(parts[3])); err != nil {
			return spec, fmt.Errorf("rings: %w", err)
		}
	}
	return spec, nil
}
