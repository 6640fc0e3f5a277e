package overlay

import (
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
)

// MaxRings is the widest disk whose 3k(k+1)+1 cells still fit in one
// request's overlay limit.
const MaxRings = 5

// CellOutlines turns each H3 cell id into a closed path tracing the cell
// boundary, drawn with the given style. Duplicate ids are dropped. More ids
// than a request may carry as overlays are rejected before any parsing.
func CellOutlines(cells []string, style PathStyle) ([]Path, error) {
	if len(cells) > model.MaxOverlays {
		return nil, fmt.Errorf("%d cells exceeds the maximum of %d", len(cells), model.MaxOverlays)
	}
	seen := make(map[string]struct{}, len(cells))
	out := make([]Path, 0, len(cells))
	for _, id := range cells {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		var c h3.Cell
		if err := c.UnmarshalText([]byte(id)); err != nil {
			return nil, fmt.Errorf("parse cell: %w", err)
		}
		if !c.IsValid() {
			return nil, fmt.Errorf("invalid h3 cell %q", id)
		}
		b, err := c.Boundary()
		if err != nil {
			return nil, fmt.Errorf("boundary: %w", err)
		}
		if len(b) < 3 {
			return nil, fmt.Errorf("degenerate boundary for %s", id)
		}
		ring := make([]model.Coordinate, 0, len(b)+1)
		for _, ll := range b {
			ring = append(ring, model.Coord(ll.Lng, ll.Lat))
		}
		ring = append(ring, ring[0])
		out = append(out, Path{Points: ring, PathStyle: style})
	}
	return out, nil
}

// CellsAround returns the cell containing center at resolution res plus
// every cell within rings grid steps of it, sorted.
func CellsAround(center model.Coordinate, res, rings int) ([]string, error) {
	if res < 0 || res > 15 {
		return nil, fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	if rings < 0 || rings > MaxRings {
		return nil, fmt.Errorf("ring count %d must be in [0,%d]", rings, MaxRings)
	}
	if err := center.Validate(); err != nil {
		return nil, err
	}
	origin, err := h3.LatLngToCell(h3.LatLng{Lat: center.Lat, Lng: center.Lon}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 cell: %w", err)
	}
	disk, err := origin.GridDisk(rings)
	if err != nil {
		return nil, fmt.Errorf("h3 grid disk: %w", err)
	}
	out := make([]string, 0, len(disk))
	for _, c := range disk {
		out = append(out, c.String())
	}
	sort.Strings(out)
	return out, nil
}
