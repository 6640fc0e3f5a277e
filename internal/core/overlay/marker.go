package overlay

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mohammed-shakir/static-snapshot/internal/core/encoding"
	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
)

// Size of a pin marker.
type Size int

const (
	Small Size = iota
	Medium
	Large
)

func (s Size) String() string {
	switch s {
	case Medium:
		return "m"
	case Large:
		return "l"
	default:
		return "s"
	}
}

// ParseSize accepts "s"/"small", "m"/"medium", "l"/"large".
func ParseSize(s string) (Size, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "s", "small":
		return Small, nil
	case "m", "medium":
		return Medium, nil
	case "l", "large":
		return Large, nil
	}
	return Small, fmt.Errorf("unknown marker size %q", s)
}

// Label is drawn atop a pin: a letter, a number or a Maki icon name.
type Label interface {
	label() string
	validate() error
}

// Letter is an English letter; uppercase is lowered.
type Letter rune

// Number is 0 through 99.
type Number int

// Icon is the name of a Maki icon, used verbatim.
type Icon string

func (l Letter) label() string { return strings.ToLower(string(rune(l))) }

func (l Letter) validate() error {
	s := l.label()
	if utf8.RuneCountInString(s) != 1 || s[0] < 'a' || s[0] > 'z' {
		return fmt.Errorf("label letter %q must be a-z", rune(l))
	}
	return nil
}

func (n Number) label() string { return strconv.Itoa(int(n)) }

func (n Number) validate() error {
	if n < 0 || n > 99 {
		return fmt.Errorf("label number %d must be in [0,99]", int(n))
	}
	return nil
}

func (i Icon) label() string { return string(i) }

func (i Icon) validate() error {
	if i == "" {
		return fmt.Errorf("icon name is empty")
	}
	return nil
}

// ParseLabel maps a single letter, a number or anything else to its label
// kind. Empty input means no label.
func ParseLabel(s string) Label {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Number(n)
	}
	if r := []rune(s); len(r) == 1 {
		return Letter(r[0])
	}
	return Icon(s)
}

// Marker is a pin placed at a coordinate.
type Marker struct {
	Coordinate model.Coordinate
	Size       Size
	Label      Label
	Color      model.Color
}

// NewMarker returns a small red pin without a label.
func NewMarker(c model.Coordinate) Marker {
	return Marker{Coordinate: c, Size: Small, Color: model.Red}
}

func (Marker) overlay() {}

func (m Marker) Coordinates() []model.Coordinate { return []model.Coordinate{m.Coordinate} }

func (m Marker) Validate() error {
	if err := m.Coordinate.Validate(); err != nil {
		return fmt.Errorf("marker: %w", err)
	}
	if m.Label != nil {
		if err := m.Label.validate(); err != nil {
			return fmt.Errorf("marker: %w", err)
		}
	}
	return nil
}

// Token renders pin-{size}[-{label}]+{hex}({lon},{lat}).
func (m Marker) Token() string {
	var b strings.Builder
	b.WriteString("pin-")
	b.WriteString(m.Size.String())
	if m.Label != nil {
		b.WriteByte('-')
		b.WriteString(encoding.PercentEncode(m.Label.label(), encoding.PathSafe))
	}
	b.WriteByte('+')
	b.WriteString(m.Color.Hex())
	b.WriteByte('(')
	b.WriteString(m.Coordinate.String())
	b.WriteByte(')')
	return b.String()
}

// CustomMarker is an online image centred on a coordinate.
type CustomMarker struct {
	Coordinate model.Coordinate
	URL        string
}

func (CustomMarker) overlay() {}

func (m CustomMarker) Coordinates() []model.Coordinate { return []model.Coordinate{m.Coordinate} }

func (m CustomMarker) Validate() error {
	if err := m.Coordinate.Validate(); err != nil {
		return fmt.Errorf("custom marker: %w", err)
	}
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("custom marker: image url is empty")
	}
	return nil
}

// Token renders url-{escaped url}({lon},{lat}).
func (m CustomMarker) Token() string {
	return "url-" + encoding.PercentEncode(m.URL, encoding.PathSafe) + "(" + m.Coordinate.String() + ")"
}
