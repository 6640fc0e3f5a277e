package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/static-snapshot/internal/core/snapshot"
	"github.com/mohammed-shakir/static-snapshot/internal/core/staticapi"
	"github.com/mohammed-shakir/static-snapshot/internal/metrics"
)

type stubSnapshots struct{}

func (stubSnapshots) RedactedURL(req staticapi.Request) (string, error) {
	p, err := staticapi.BuildPath(req)
	return "https://api.mapbox.com" + p + "?access_token=REDACTED", err
}

func (stubSnapshots) Fetch(context.Context, staticapi.Request) (*snapshot.Result, error) {
	return &snapshot.Result{Format: "png", ContentType: "image/png", Data: []byte("img")}, nil
}

func TestNewRouter_Routes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(NewRouter(logger, Deps{
		Snapshots: stubSnapshots{},
		Metrics:   metrics.New(metrics.Build{Version: "test"}).Handler(logger),
	}))
	defer ts.Close()

	for _, p := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(ts.URL + p)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status=%d", p, resp.StatusCode)
		}
	}

	body := `{"tilesets":["mapbox.streets"],"width":10,"height":10}`
	resp, err := http.Post(ts.URL+"/v1/snapshot", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(b) != "img" {
		t.Fatalf("snapshot status=%d body=%q", resp.StatusCode, b)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}

	resp, err = http.Get(ts.URL + "/v1/snapshot")
	if err != nil {
		t.Fatalf("GET snapshot: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /v1/snapshot status=%d want 405", resp.StatusCode)
	}
}

func TestNewRouter_MetricsRoute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	get := func(h http.Handler, path string) (int, string) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr.Code, rr.Body.String()
	}

	h := NewRouter(logger, Deps{Snapshots: stubSnapshots{}})
	if code, _ := get(h, "/metrics"); code != http.StatusNotFound {
		t.Fatalf("metrics without a handler: status=%d want 404", code)
	}

	h = NewRouter(logger, Deps{
		Snapshots:   stubSnapshots{},
		Metrics:     metrics.New(metrics.Build{Version: "test"}).Handler(logger),
		MetricsPath: "/internal/metrics",
	})
	code, body := get(h, "/internal/metrics")
	if code != http.StatusOK || !strings.Contains(body, "app_build_details") || !strings.Contains(body, "go_goroutines") {
		t.Fatalf("custom metrics path: status=%d body=%.200s", code, body)
	}
	if code, _ := get(h, "/metrics"); code != http.StatusNotFound {
		t.Fatalf("default path still served: status=%d", code)
	}
}
