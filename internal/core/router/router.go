// Package router holds the HTTP handlers of the snapshot proxy.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mohammed-shakir/static-snapshot/internal/core/observability"
	"github.com/mohammed-shakir/static-snapshot/internal/core/overlay"
	"github.com/mohammed-shakir/static-snapshot/internal/core/snapshot"
	"github.com/mohammed-shakir/static-snapshot/internal/core/staticapi"
	"github.com/mohammed-shakir/static-snapshot/internal/events"
	mylog "github.com/mohammed-shakir/static-snapshot/internal/logger"
)

const (
	RouteURL      = "/v1/snapshot/url"
	RouteSnapshot = "/v1/snapshot"

	maxEnvelope = 1 << 20
)

// Snapshotter is the part of *snapshot.Client the handlers use.
type Snapshotter interface {
	RedactedURL(req staticapi.Request) (string, error)
	Fetch(ctx context.Context, req staticapi.Request) (*snapshot.Result, error)
}

// EventSink receives one event per proxied fetch. *events.Publisher
// satisfies it.
type EventSink interface {
	Publish(ev events.SnapshotEvent)
}

// URLResponse answers RouteURL. Bounds covers the overlays as
// [minLon, minLat, maxLon, maxLat] and is omitted without overlays.
type URLResponse struct {
	URL    string    `json:"url"`
	Path   string    `json:"path"`
	Bounds []float64 `json:"bounds,omitempty"`
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message    string `json:"message"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// HandleURL answers with the redacted URL and the path for an envelope.
func HandleURL(logger *slog.Logger, s Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, RouteURL, sw.code, time.Since(start).Seconds())
		}()

		req, err := readRequest(w, r)
		if err != nil {
			writeError(sw, http.StatusBadRequest, ErrorBody{Message: err.Error()})
			return
		}
		path, err := staticapi.BuildPath(req)
		if err != nil {
			writeError(sw, http.StatusBadRequest, ErrorBody{Message: err.Error()})
			return
		}
		u, err := s.RedactedURL(req)
		if err != nil {
			writeError(sw, http.StatusBadRequest, ErrorBody{Message: err.Error()})
			return
		}
		logger.DebugContext(r.Context(), "snapshot url built", "endpoint", req.Endpoint(), "path", path)
		writeJSON(sw, http.StatusOK, URLResponse{URL: u, Path: path, Bounds: overlay.Bounds(req.Overlays)})
	}
}

// HandleSnapshot fetches the image and streams it back with the upstream
// content type. sink may be nil.
func HandleSnapshot(logger *slog.Logger, s Snapshotter, sink EventSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, RouteSnapshot, sw.code, time.Since(start).Seconds())
		}()

		req, err := readRequest(w, r)
		if err != nil {
			writeError(sw, http.StatusBadRequest, ErrorBody{Message: err.Error()})
			return
		}
		ctx := mylog.WithEndpoint(r.Context(), req.Endpoint())

		res, err := s.Fetch(ctx, req)
		ev := events.SnapshotEvent{
			Endpoint:   req.Endpoint(),
			Outcome:    snapshot.Outcome(err),
			DurationMS: time.Since(start).Milliseconds(),
			Overlays:   len(req.Overlays),
		}
		if path, perr := staticapi.BuildPath(req); perr == nil {
			ev.Fingerprint = snapshot.Fingerprint(path)
		}

		if err != nil {
			status, body := errorResponse(err)
			ev.Status = upstreamStatus(err)
			publish(sink, ev)
			logger.InfoContext(ctx, "snapshot failed", "status", status, "outcome", ev.Outcome, "err", err)
			writeError(sw, status, body)
			return
		}
		ev.Status = http.StatusOK
		publish(sink, ev)

		ct := res.ContentType
		if ct == "" {
			ct = "image/" + res.Format
		}
		sw.Header().Set("Content-Type", ct)
		sw.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
		sw.WriteHeader(http.StatusOK)
		_, _ = sw.Write(res.Data)
	}
}

func readRequest(w http.ResponseWriter, r *http.Request) (staticapi.Request, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEnvelope))
	if err != nil {
		return staticapi.Request{}, err
	}
	env, err := staticapi.DecodeEnvelope(b)
	if err != nil {
		return staticapi.Request{}, err
	}
	return env.Request()
}

// errorResponse maps a fetch error onto the proxy's status. Client errors
// from the service pass through; everything else upstream is a 502, or a
// 504 when the deadline ran out.
func errorResponse(err error) (int, ErrorBody) {
	var (
		se *snapshot.ServiceError
		te *snapshot.TransportError
	)
	body := ErrorBody{Message: err.Error()}
	switch {
	case errors.Is(err, staticapi.ErrConfiguration):
		return http.StatusBadRequest, body
	case errors.As(err, &se):
		if se.Message != "" {
			body.Message = se.Message
		}
		body.Reason = se.Reason
		body.Suggestion = se.Suggestion
		if se.StatusCode >= 400 && se.StatusCode < 500 {
			return se.StatusCode, body
		}
		return http.StatusBadGateway, body
	case errors.As(err, &te) && errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, body
	default:
		return http.StatusBadGateway, body
	}
}

func upstreamStatus(err error) int {
	var se *snapshot.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func publish(sink EventSink, ev events.SnapshotEvent) {
	if sink != nil {
		sink.Publish(ev)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, body ErrorBody) {
	writeJSON(w, code, body)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
