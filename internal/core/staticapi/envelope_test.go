package staticapi

import (
	"errors"
	"testing"

	"github.com/mohammed-shakir/static-snapshot/internal/core/camera"
	"github.com/mohammed-shakir/static-snapshot/internal/core/overlay"
)

func mustEnvelopeRequest(t *testing.T, body string) Request {
	t.Helper()
	e, err := DecodeEnvelope([]byte(body))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	req, err := e.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	return req
}

func TestEnvelope_TilesetExplicit(t *testing.T) {
	req := mustEnvelopeRequest(t, `{"tilesets":["mapbox.satellite"],"center":{"lon":-77.04,"lat":38.9},"zoom":13,"width":300,"height":200,"format":"jpeg80"}`)
	if _, ok := req.Viewpoint.(camera.Explicit); !ok {
		t.Fatalf("expected explicit viewpoint, got %T", req.Viewpoint)
	}
	p, err := BuildPath(req)
	if err != nil {
		t.Fatalf("BuildPath: %v", err)
	}
	if p != "/v4/mapbox.satellite/-77.04,38.9,13/300x200.jpg80" {
		t.Fatalf("path got %q", p)
	}
}

func TestEnvelope_StyleCameraAndMarker(t *testing.T) {
	req := mustEnvelopeRequest(t, `{
		"style": "mapbox://styles/mapbox/streets-v9",
		"center": {"lon": -122.681944, "lat": 45.52},
		"zoom": 13, "pitch": 60,
		"width": 200, "height": 200, "scale": 2,
		"overlays": [{"type": "marker", "lon": -122.681944, "lat": 45.52, "color": "ff0000"}],
		"logo": false
	}`)
	if _, ok := req.Viewpoint.(camera.Camera); !ok {
		t.Fatalf("pitch should select a camera, got %T", req.Viewpoint)
	}
	if !req.HideLogo || req.HideAttribution {
		t.Fatalf("logo/attribution flags got %v/%v", req.HideLogo, req.HideAttribution)
	}
	p, err := BuildPath(req)
	if err != nil {
		t.Fatalf("BuildPath: %v", err)
	}
	want := "/styles/v1/mapbox/streets-v9/static/pin-s+ff0000(-122.681944,45.52)/-122.681944,45.52,13,0,60/200x200@2x"
	if p != want {
		t.Fatalf("path got %q want %q", p, want)
	}
}

func TestEnvelope_AutoAndOverlayKinds(t *testing.T) {
	req := mustEnvelopeRequest(t, `{
		"tilesets": ["mapbox.streets"],
		"width": 400, "height": 300,
		"overlays": [
			{"type": "custom_marker", "lon": 1, "lat": 2, "url": "https://example.com/pin.png"},
			{"type": "geojson", "geojson": {"type": "Point", "coordinates": [1, 2]}},
			{"type": "path", "points": [[0, 0], [1, 1]], "stroke_width": 3, "fill_opacity": 0.5},
			{"type": "h3", "lon": 11.97, "lat": 57.7, "resolution": 8, "rings": 1}
		]
	}`)
	if _, ok := req.Viewpoint.(camera.Auto); !ok {
		t.Fatalf("no center should mean auto, got %T", req.Viewpoint)
	}
	if n := len(req.Overlays); n != 3+7 {
		t.Fatalf("overlay count got %d want 10", n)
	}
	g, ok := req.Overlays[1].(overlay.GeoJSON)
	if !ok || g.Text != `{"type":"Point","coordinates":[1,2]}` {
		t.Fatalf("geojson overlay got %#v", req.Overlays[1])
	}
	p, ok := req.Overlays[2].(overlay.Path)
	if !ok || p.StrokeWidth != 3 || p.FillOpacity != 0.5 || p.StrokeOpacity != 1 {
		t.Fatalf("path overlay got %#v", req.Overlays[2])
	}
	if _, err := BuildPath(req); err != nil {
		t.Fatalf("BuildPath: %v", err)
	}
}

func TestEnvelope_Rejects(t *testing.T) {
	cases := map[string]string{
		"both sources":     `{"style":"mapbox://styles/a/b","tilesets":["x"],"width":1,"height":1}`,
		"no source":        `{"width":1,"height":1}`,
		"bad style":        `{"style":"https://styles/a/b","width":1,"height":1}`,
		"zoom no center":   `{"tilesets":["x"],"zoom":3,"width":1,"height":1}`,
		"bad format":       `{"tilesets":["x"],"format":"gif","width":1,"height":1}`,
		"unknown overlay":  `{"tilesets":["x"],"width":1,"height":1,"overlays":[{"type":"circle"}]}`,
		"empty geojson":    `{"tilesets":["x"],"width":1,"height":1,"overlays":[{"type":"geojson"}]}`,
		"bad marker size":  `{"tilesets":["x"],"width":1,"height":1,"overlays":[{"type":"marker","size":"xl"}]}`,
		"bad h3 cell":      `{"tilesets":["x"],"width":1,"height":1,"overlays":[{"type":"h3","cells":["nope"]}]}`,
		"unknown field":    `{"tilesets":["x"],"width":1,"height":1,"colour":"red"}`,
		"trailing garbage": `{"tilesets":["x"],"width":1,"height":1} {}`,
	}
	for name, body := range cases {
		e, err := DecodeEnvelope([]byte(body))
		if err == nil {
			_, err = e.Request()
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestEnvelope_OverlayBudget(t *testing.T) {
	e := Envelope{
		Tilesets: []string{"mapbox.streets"},
		Width:    100,
		Height:   100,
		Overlays: []OverlaySpec{{Type: "h3", Lon: 11.97, Lat: 57.7, Resolution: 8, Rings: 300}},
	}
	if _, err := e.Request(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for 300 rings, got %v", err)
	}

	e.Overlays = nil
	for i := 0; i < 20; i++ {
		e.Overlays = append(e.Overlays, OverlaySpec{Type: "marker", Lon: 1, Lat: 2})
	}
	e.Overlays = append(e.Overlays, OverlaySpec{Type: "h3", Lon: 11.97, Lat: 57.7, Resolution: 8, Rings: overlay.MaxRings})
	_, err := e.Request()
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "overlays" {
		t.Fatalf("expected overlays budget error, got %v", err)
	}
}
