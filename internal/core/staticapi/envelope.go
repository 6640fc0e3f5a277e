package staticapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/static-snapshot/internal/core/camera"
	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
	"github.com/mohammed-shakir/static-snapshot/internal/core/overlay"
)

// Envelope is the JSON form of a Request, shared by the proxy service and
// the CLI batch file.
type Envelope struct {
	Style       string        `json:"style,omitempty"`
	Tilesets    []string      `json:"tilesets,omitempty"`
	Center      *LonLat       `json:"center,omitempty"`
	Zoom        *float64      `json:"zoom,omitempty"`
	Altitude    float64       `json:"altitude,omitempty"`
	Pitch       float64       `json:"pitch,omitempty"`
	Heading     float64       `json:"heading,omitempty"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Scale       int           `json:"scale,omitempty"`
	Format      string        `json:"format,omitempty"`
	Overlays    []OverlaySpec `json:"overlays,omitempty"`
	Logo        *bool         `json:"logo,omitempty"`
	Attribution *bool         `json:"attribution,omitempty"`
	BeforeLayer string        `json:"before_layer,omitempty"`
}

type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// OverlaySpec is one overlay. Type selects which fields apply:
//
//	marker         lon, lat, size, label, color
//	custom_marker  lon, lat, url
//	geojson        geojson
//	path           points, stroke_*, fill_*
//	h3             cells or lon, lat, resolution, rings; stroke_*, fill_*
type OverlaySpec struct {
	Type string `json:"type"`

	Lon   float64 `json:"lon,omitempty"`
	Lat   float64 `json:"lat,omitempty"`
	Size  string  `json:"size,omitempty"`
	Label string  `json:"label,omitempty"`
	Color string  `json:"color,omitempty"`
	URL   string  `json:"url,omitempty"`

	GeoJSON json.RawMessage `json:"geojson,omitempty"`

	Points        [][2]float64 `json:"points,omitempty"`
	StrokeWidth   *int         `json:"stroke_width,omitempty"`
	StrokeColor   string       `json:"stroke_color,omitempty"`
	StrokeOpacity *float64     `json:"stroke_opacity,omitempty"`
	FillColor     string       `json:"fill_color,omitempty"`
	FillOpacity   *float64     `json:"fill_opacity,omitempty"`

	Cells      []string `json:"cells,omitempty"`
	Resolution int      `json:"resolution,omitempty"`
	Rings      int      `json:"rings,omitempty"`
}

// DecodeEnvelope reads exactly one envelope and rejects unknown fields.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return Envelope{}, configErr("body", err)
	}
	if dec.More() {
		return Envelope{}, configErr("body", errors.New("trailing data after envelope"))
	}
	return e, nil
}

// Request converts the envelope. Errors are *ConfigError; the result still
// goes through BuildPath validation when used.
func (e Envelope) Request() (Request, error) {
	var req Request

	switch {
	case e.Style != "" && len(e.Tilesets) > 0:
		return Request{}, configErr("source", errors.New("style and tilesets are mutually exclusive"))
	case e.Style != "":
		s, err := ParseStyleURL(e.Style)
		if err != nil {
			return Request{}, err
		}
		req.Source = s
	case len(e.Tilesets) > 0:
		req.Source = TilesetSource{IDs: append([]string(nil), e.Tilesets...)}
	default:
		return Request{}, configErr("source", errors.New("either style or tilesets is required"))
	}

	vp, err := e.viewpoint()
	if err != nil {
		return Request{}, err
	}
	req.Viewpoint = vp

	f, err := model.ParseFormat(e.Format)
	if err != nil {
		return Request{}, configErr("format", err)
	}
	req.Output = model.Output{Width: e.Width, Height: e.Height, Scale: e.Scale, Format: f}

	for i, s := range e.Overlays {
		ovs, err := s.overlays()
		if err != nil {
			return Request{}, configErr(fmt.Sprintf("overlays[%d]", i), err)
		}
		req.Overlays = append(req.Overlays, ovs...)
		if len(req.Overlays) > model.MaxOverlays {
			return Request{}, configErr("overlays", fmt.Errorf("%d overlays exceeds the maximum of %d", len(req.Overlays), model.MaxOverlays))
		}
	}

	req.HideLogo = e.Logo != nil && !*e.Logo
	req.HideAttribution = e.Attribution != nil && !*e.Attribution
	req.BeforeLayer = e.BeforeLayer
	return req, nil
}

func (e Envelope) viewpoint() (camera.Viewpoint, error) {
	cameraSet := e.Altitude != 0 || e.Pitch != 0 || e.Heading != 0
	if e.Center == nil {
		if e.Zoom != nil || cameraSet {
			return nil, configErr("center", errors.New("zoom and camera fields need a center"))
		}
		return camera.Auto{}, nil
	}
	center := model.Coord(e.Center.Lon, e.Center.Lat)
	if !cameraSet && e.Zoom != nil {
		return camera.Explicit{Center: center, Zoom: *e.Zoom}, nil
	}
	return camera.Camera{
		Center:   center,
		Zoom:     e.Zoom,
		Altitude: e.Altitude,
		Pitch:    e.Pitch,
		Heading:  e.Heading,
	}, nil
}

func (s OverlaySpec) overlays() ([]overlay.Overlay, error) {
	at := model.Coord(s.Lon, s.Lat)
	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case "marker":
		m := overlay.NewMarker(at)
		size, err := overlay.ParseSize(s.Size)
		if err != nil {
			return nil, err
		}
		m.Size = size
		if s.Label != "" {
			m.Label = overlay.ParseLabel(s.Label)
		}
		if s.Color != "" {
			m.Color = model.ColorFromHex(s.Color)
		}
		return []overlay.Overlay{m}, nil

	case "custom_marker":
		return []overlay.Overlay{overlay.CustomMarker{Coordinate: at, URL: s.URL}}, nil

	case "geojson":
		var buf bytes.Buffer
		if len(s.GeoJSON) == 0 {
			return nil, errors.New("geojson is empty")
		}
		if err := json.Compact(&buf, s.GeoJSON); err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		return []overlay.Overlay{overlay.GeoJSONString(buf.String())}, nil

	case "path":
		pts := make([]model.Coordinate, 0, len(s.Points))
		for _, p := range s.Points {
			pts = append(pts, model.Coord(p[0], p[1]))
		}
		return []overlay.Overlay{overlay.Path{Points: pts, PathStyle: s.style()}}, nil

	case "h3":
		cells := s.Cells
		if len(cells) == 0 {
			var err error
			if cells, err = overlay.CellsAround(at, s.Resolution, s.Rings); err != nil {
				return nil, err
			}
		}
		paths, err := overlay.CellOutlines(cells, s.style())
		if err != nil {
			return nil, err
		}
		out := make([]overlay.Overlay, 0, len(paths))
		for _, p := range paths {
			out = append(out, p)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown overlay type %q", s.Type)
}

func (s OverlaySpec) style() overlay.PathStyle {
	st := overlay.DefaultPathStyle()
	if s.StrokeWidth != nil {
		st.StrokeWidth = *s.StrokeWidth
	}
	if s.StrokeColor != "" {
		st.StrokeColor = model.ColorFromHex(s.StrokeColor)
	}
	if s.StrokeOpacity != nil {
		st.StrokeOpacity = *s.StrokeOpacity
	}
	if s.FillColor != "" {
		st.FillColor = model.ColorFromHex(s.FillColor)
	}
	if s.FillOpacity != nil {
		st.FillOpacity = *s.FillOpacity
	}
	return st
}
