package overlay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/static-snapshot/internal/core/encoding"
	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
)

// PathStyle is the stroke and fill of a path overlay.
type PathStyle struct {
	StrokeWidth   int
	StrokeColor   model.Color
	StrokeOpacity float64
	FillColor     model.Color
	FillOpacity   float64
	// OmitClearFill drops the "+{fill}-{opacity}" component when the fill
	// opacity is exactly 0. Off by default: the fill is always written.
	OmitClearFill bool
}

// DefaultPathStyle is a 1 point opaque #555 stroke with a transparent fill.
func DefaultPathStyle() PathStyle {
	return PathStyle{
		StrokeWidth:   1,
		StrokeColor:   model.DavysGray,
		StrokeOpacity: 1,
		FillColor:     model.DavysGray,
		FillOpacity:   0,
	}
}

// Path is a polyline, or a polygon when the first and last coordinates
// match.
type Path struct {
	Points []model.Coordinate
	PathStyle
}

// NewPath returns a path with the default style.
func NewPath(coords []model.Coordinate) Path {
	return Path{Points: coords, PathStyle: DefaultPathStyle()}
}

func (Path) overlay() {}

func (p Path) Coordinates() []model.Coordinate { return p.Points }

func (p Path) Validate() error {
	if len(p.Points) == 0 {
		return errNoCoordinates
	}
	for i, c := range p.Points {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("path vertex %d: %w", i, err)
		}
	}
	if p.StrokeWidth < 0 {
		return fmt.Errorf("path stroke width %d must be >= 0", p.StrokeWidth)
	}
	if err := validateOpacity("path stroke opacity", p.StrokeOpacity); err != nil {
		return err
	}
	return validateOpacity("path fill opacity", p.FillOpacity)
}

// Token renders path-{w}+{stroke}-{opacity}+{fill}-{opacity}({polyline}).
func (p Path) Token() string {
	var b strings.Builder
	b.WriteString("path-")
	b.WriteString(strconv.Itoa(p.StrokeWidth))
	b.WriteByte('+')
	b.WriteString(p.StrokeColor.Hex())
	b.WriteByte('-')
	b.WriteString(model.FormatNumber(p.StrokeOpacity))
	if !(p.OmitClearFill && p.FillOpacity == 0) {
		b.WriteByte('+')
		b.WriteString(p.FillColor.Hex())
		b.WriteByte('-')
		b.WriteString(model.FormatNumber(p.FillOpacity))
	}
	b.WriteByte('(')
	b.WriteString(encoding.PercentEncode(encoding.EncodePolyline(p.Points), encoding.PathSafe))
	b.WriteByte(')')
	return b.String()
}
