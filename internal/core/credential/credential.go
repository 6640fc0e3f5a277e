// Package credential resolves the access token sent with every snapshot
// request.
package credential

import (
	"context"
	"errors"
	"os"
	"strings"
)

// EnvVar is read by EnvSource.
const EnvVar = "MAPBOX_ACCESS_TOKEN"

var ErrMissingToken = errors.New("no access token configured")

// Source supplies a fallback token when none is given explicitly.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static always returns the same token.
type Static string

func (s Static) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrMissingToken
	}
	return string(s), nil
}

// EnvSource reads the token from the environment on each call.
type EnvSource struct {
	// Var defaults to EnvVar.
	Var string
}

func (e EnvSource) Token(context.Context) (string, error) {
	name := e.Var
	if name == "" {
		name = EnvVar
	}
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", ErrMissingToken
	}
	return v, nil
}

// Resolve prefers explicit, then src. An empty result is ErrMissingToken.
func Resolve(ctx context.Context, explicit string, src Source) (string, error) {
	if t := strings.TrimSpace(explicit); t != "" {
		return t, nil
	}
	if src == nil {
		return "", ErrMissingToken
	}
	t, err := src.Token(ctx)
	if err != nil {
		return "", err
	}
	if t = strings.TrimSpace(t); t == "" {
		return "", ErrMissingToken
	}
	return t, nil
}
