// Package staticapi turns a snapshot request into the path and query of a
// Static API URL. Everything here is pure; no I/O happens.
package staticapi

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mohammed-shakir/static-snapshot/internal/core/camera"
	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
	"github.com/mohammed-shakir/static-snapshot/internal/core/overlay"
)

// ErrConfiguration marks a request that can never succeed as written.
var ErrConfiguration = errors.New("invalid snapshot request")

// ConfigError names the offending part of a request.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrConfiguration, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

func configErr(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}

// Source is TilesetSource or StyleSource.
type Source interface {
	source()
}

// TilesetSource is the legacy endpoint: tileset ids composited in order,
// the first one at the back.
type TilesetSource struct {
	IDs []string
}

// StyleSource is a style owned by Owner.
type StyleSource struct {
	Owner string
	ID    string
}

func (TilesetSource) source() {}
func (StyleSource) source()   {}

// ParseStyleURL reads "mapbox://styles/{owner}/{id}".
func ParseStyleURL(s string) (StyleSource, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return StyleSource{}, configErr("style", err)
	}
	if u.Scheme != "mapbox" || u.Host != "styles" {
		return StyleSource{}, configErr("style", fmt.Errorf("%q is not a mapbox://styles/ URL", s))
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return StyleSource{}, configErr("style", fmt.Errorf("%q must name an owner and a style id", s))
	}
	return StyleSource{Owner: parts[0], ID: parts[1]}, nil
}

// Endpoint names the endpoint family in logs and metrics.
const (
	EndpointTileset = "tileset"
	EndpointStyle   = "style"
)

// Request is everything needed to build one snapshot URL. Treat it as
// immutable once handed to a builder.
type Request struct {
	Source    Source
	Viewpoint camera.Viewpoint
	Output    model.Output
	Overlays  []overlay.Overlay

	// Style endpoint only.
	HideLogo        bool
	HideAttribution bool
	BeforeLayer     string
}

// Endpoint returns EndpointTileset or EndpointStyle.
func (r Request) Endpoint() string {
	if _, ok := r.Source.(StyleSource); ok {
		return EndpointStyle
	}
	return EndpointTileset
}

// Validate runs every check BuildPath runs.
func (r Request) Validate() error {
	_, err := BuildPath(r)
	return err
}
