package overlay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/static-snapshot/internal/core/encoding"
	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
)

// GeoJSON is a raw GeoJSON document. Its content is not checked beyond
// being non-empty; the service rejects invalid GeoJSON.
type GeoJSON struct {
	Text string
}

// GeoJSONString wraps pre-serialized GeoJSON text.
func GeoJSONString(s string) GeoJSON { return GeoJSON{Text: s} }

// GeoJSONObject serializes any JSON-encodable value to compact text. Key
// order follows encoding/json and is not meant to match other serializers.
func GeoJSONObject(v any) (GeoJSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return GeoJSON{}, fmt.Errorf("geojson: marshal object: %w", err)
	}
	return GeoJSON{Text: string(b)}, nil
}

// GeoJSONGeometry serializes a bare orb geometry.
func GeoJSONGeometry(g orb.Geometry) (GeoJSON, error) {
	b, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return GeoJSON{}, fmt.Errorf("geojson: marshal geometry: %w", err)
	}
	return GeoJSON{Text: string(b)}, nil
}

// GeoJSONFeatureCollection serializes a feature collection, keeping its
// simplestyle properties.
func GeoJSONFeatureCollection(fc *geojson.FeatureCollection) (GeoJSON, error) {
	if fc == nil {
		return GeoJSON{}, fmt.Errorf("geojson: nil feature collection")
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return GeoJSON{}, fmt.Errorf("geojson: marshal feature collection: %w", err)
	}
	return GeoJSON{Text: string(b)}, nil
}

func (GeoJSON) overlay() {}

func (g GeoJSON) Validate() error {
	if strings.TrimSpace(g.Text) == "" {
		return fmt.Errorf("geojson: empty document")
	}
	return nil
}

// Token renders geojson({escaped text}).
func (g GeoJSON) Token() string {
	return "geojson(" + encoding.PercentEncode(g.Text, encoding.PathSafe) + ")"
}

// Coordinates parses the document when possible; unparseable text covers
// nothing.
func (g GeoJSON) Coordinates() []model.Coordinate {
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(g.Text), &hdr); err != nil {
		return nil
	}
	var b orb.Bound
	switch hdr.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection([]byte(g.Text))
		if err != nil {
			return nil
		}
		seen := false
		for _, f := range fc.Features {
			if f.Geometry == nil {
				continue
			}
			if !seen {
				b, seen = f.Geometry.Bound(), true
				continue
			}
			b = b.Union(f.Geometry.Bound())
		}
		if !seen {
			return nil
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature([]byte(g.Text))
		if err != nil || f.Geometry == nil {
			return nil
		}
		b = f.Geometry.Bound()
	default:
		geom, err := geojson.UnmarshalGeometry([]byte(g.Text))
		if err != nil || geom.Coordinates == nil {
			return nil
		}
		b = geom.Coordinates.Bound()
	}
	return []model.Coordinate{model.CoordinateFromPoint(b.Min), model.CoordinateFromPoint(b.Max)}
}
