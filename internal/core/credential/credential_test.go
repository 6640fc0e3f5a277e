package credential

import (
	"context"
	"errors"
	"testing"
)

func TestResolve_Precedence(t *testing.T) {
	ctx := context.Background()
	t.Setenv(EnvVar, "pk.env")

	got, err := Resolve(ctx, "pk.explicit", EnvSource{})
	if err != nil || got != "pk.explicit" {
		t.Fatalf("explicit must win: %q %v", got, err)
	}
	got, err = Resolve(ctx, "", EnvSource{})
	if err != nil || got != "pk.env" {
		t.Fatalf("env fallback: %q %v", got, err)
	}
	got, err = Resolve(ctx, "  ", Static("pk.static"))
	if err != nil || got != "pk.static" {
		t.Fatalf("static fallback: %q %v", got, err)
	}
}

func TestResolve_Missing(t *testing.T) {
	ctx := context.Background()
	t.Setenv("SNAPSHOT_TEST_TOKEN", "")
	if _, err := Resolve(ctx, "", nil); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("nil source: %v", err)
	}
	if _, err := Resolve(ctx, "", EnvSource{Var: "SNAPSHOT_TEST_TOKEN"}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("empty env: %v", err)
	}
	if _, err := Resolve(ctx, "", Static("")); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("empty static: %v", err)
	}
}

type blankSource struct{}

func (blankSource) Token(context.Context) (string, error) { return " ", nil }

func TestResolve_BlankSourceIsMissing(t *testing.T) {
	if _, err := Resolve(context.Background(), "", blankSource{}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("blank token from source must be ErrMissingToken, got %v", err)
	}
}
