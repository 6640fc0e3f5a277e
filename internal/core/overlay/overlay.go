// Package overlay renders the drawable features composited by the Static API
// (pins, custom images, GeoJSON and paths) into path-segment tokens.
package overlay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
)

// Overlay is one drawable feature. The set of implementations is closed.
type Overlay interface {
	// Token renders the overlay as it appears in the request path.
	Token() string
	// Validate checks the overlay's numeric ranges.
	Validate() error
	// Coordinates returns the positions the overlay covers, for bounds.
	Coordinates() []model.Coordinate
	overlay()
}

// Join validates every overlay and joins their tokens with ",". Order is
// preserved; later overlays draw on top.
func Join(list []Overlay) (string, error) {
	if len(list) > model.MaxOverlays {
		return "", fmt.Errorf("%d overlays exceeds the maximum of %d", len(list), model.MaxOverlays)
	}
	tokens := make([]string, 0, len(list))
	for i, o := range list {
		if o == nil {
			return "", fmt.Errorf("overlay %d is nil", i)
		}
		if err := o.Validate(); err != nil {
			return "", fmt.Errorf("overlay %d: %w", i, err)
		}
		tokens = append(tokens, o.Token())
	}
	return strings.Join(tokens, ","), nil
}

// Coordinates gathers the coordinates of every overlay in order.
func Coordinates(list []Overlay) []model.Coordinate {
	var out []model.Coordinate
	for _, o := range list {
		if o != nil {
			out = append(out, o.Coordinates()...)
		}
	}
	return out
}

// Bounds is the box covering every overlay as [minLon, minLat, maxLon,
// maxLat], or nil when no overlay has a position.
func Bounds(list []Overlay) []float64 {
	coords := Coordinates(list)
	if len(coords) == 0 {
		return nil
	}
	b := model.Bound(coords)
	return []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
}

func validateOpacity(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%s %v must be in [0,1]", name, v)
	}
	return nil
}

var errNoCoordinates = errors.New("path needs at least one coordinate")
