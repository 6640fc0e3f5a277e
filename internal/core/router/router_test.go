package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mohammed-shakir/static-snapshot/internal/core/snapshot"
	"github.com/mohammed-shakir/static-snapshot/internal/core/staticapi"
	"github.com/mohammed-shakir/static-snapshot/internal/events"
)

type fakeSnapshotter struct {
	lastReq staticapi.Request
	res     *snapshot.Result
	err     error
}

func (f *fakeSnapshotter) RedactedURL(req staticapi.Request) (string, error) {
	p, err := staticapi.BuildPath(req)
	if err != nil {
		return "", err
	}
	return "https://api.mapbox.com" + p + "?access_token=REDACTED", nil
}

func (f *fakeSnapshotter) Fetch(_ context.Context, req staticapi.Request) (*snapshot.Result, error) {
	f.lastReq = req
	return f.res, f.err
}

type sinkRecorder struct {
	mu  sync.Mutex
	evs []events.SnapshotEvent
}

func (s *sinkRecorder) Publish(ev events.SnapshotEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, ev)
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const tilesetBody = `{"tilesets":["mapbox.streets"],"width":200,"height":100}`

func post(h http.HandlerFunc, route, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHandleURL_ReturnsRedactedURL(t *testing.T) {
	rr := post(HandleURL(discardLogger(), &fakeSnapshotter{}), RouteURL, tilesetBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["path"] != "/v4/mapbox.streets/auto/200x100.png" {
		t.Fatalf("path got %q", out["path"])
	}
	if !strings.HasSuffix(out["url"], "access_token=REDACTED") {
		t.Fatalf("url got %q", out["url"])
	}
}

func TestHandleURL_BadEnvelope(t *testing.T) {
	rr := post(HandleURL(discardLogger(), &fakeSnapshotter{}), RouteURL, `{"width":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Message == "" {
		t.Fatalf("error body got %q (%v)", rr.Body.String(), err)
	}
}

func TestHandleSnapshot_StreamsImageAndPublishes(t *testing.T) {
	f := &fakeSnapshotter{res: &snapshot.Result{Format: "png", ContentType: "image/png", Data: []byte("PNGDATA")}}
	sink := &sinkRecorder{}
	rr := post(HandleSnapshot(discardLogger(), f, sink), RouteSnapshot, tilesetBody)

	if rr.Code != http.StatusOK || rr.Body.String() != "PNGDATA" {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content-type=%q", ct)
	}
	if f.lastReq.Output.Width != 200 {
		t.Fatalf("handler did not pass the decoded request: %+v", f.lastReq)
	}
	if len(sink.evs) != 1 {
		t.Fatalf("events=%d want 1", len(sink.evs))
	}
	ev := sink.evs[0]
	if ev.Endpoint != staticapi.EndpointTileset || ev.Outcome != "ok" || ev.Status != 200 || len(ev.Fingerprint) != 16 {
		t.Fatalf("event got %+v", ev)
	}
}

func TestHandleSnapshot_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"rate limited", &snapshot.ServiceError{StatusCode: 429, Reason: "too many", Suggestion: "wait", Err: snapshot.ErrRateLimited}, 429, "too many"},
		{"not found", &snapshot.ServiceError{StatusCode: 404, Message: "Not Found"}, 404, ""},
		{"server error", &snapshot.ServiceError{StatusCode: 503}, http.StatusBadGateway, ""},
		{"undecodable", &snapshot.ServiceError{StatusCode: 200, Err: snapshot.ErrUndecodable}, http.StatusBadGateway, ""},
		{"timeout", &snapshot.TransportError{Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, ""},
		{"transport", &snapshot.TransportError{Err: errors.New("dial tcp")}, http.StatusBadGateway, ""},
	}
	for _, tc := range cases {
		sink := &sinkRecorder{}
		rr := post(HandleSnapshot(discardLogger(), &fakeSnapshotter{err: tc.err}, sink), RouteSnapshot, tilesetBody)
		if rr.Code != tc.status {
			t.Fatalf("%s: status=%d want %d", tc.name, rr.Code, tc.status)
		}
		var body ErrorBody
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if body.Message == "" || body.Reason != tc.reason {
			t.Fatalf("%s: body got %+v", tc.name, body)
		}
		if len(sink.evs) != 1 || sink.evs[0].Outcome == "ok" {
			t.Fatalf("%s: events got %+v", tc.name, sink.evs)
		}
	}
}

func TestHandleSnapshot_InvalidEnvelopeSkipsFetch(t *testing.T) {
	f := &fakeSnapshotter{}
	sink := &sinkRecorder{}
	rr := post(HandleSnapshot(discardLogger(), f, sink), RouteSnapshot, `{"tilesets":["x"],"width":1,"height":1,"bogus":true}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
	if f.lastReq.Source != nil || len(sink.evs) != 0 {
		t.Fatalf("invalid envelope reached the client")
	}
}

func TestHandleSnapshot_NilSink(t *testing.T) {
	f := &fakeSnapshotter{res: &snapshot.Result{Format: "jpeg", Data: []byte("x")}}
	rr := post(HandleSnapshot(discardLogger(), f, nil), RouteSnapshot, tilesetBody)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("status=%d content-type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
}

func TestHandleURL_ReportsOverlayBounds(t *testing.T) {
	body := `{"tilesets":["mapbox.streets"],"width":200,"height":100,"overlays":[
		{"type":"marker","lon":1,"lat":2},
		{"type":"geojson","geojson":{"type":"LineString","coordinates":[[-3,5],[4,-1]]}}
	]}`
	rr := post(HandleURL(discardLogger(), &fakeSnapshotter{}), RouteURL, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out URLResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []float64{-3, -1, 4, 5}
	if len(out.Bounds) != 4 {
		t.Fatalf("bounds got %v want %v", out.Bounds, want)
	}
	for i := range want {
		if out.Bounds[i] != want[i] {
			t.Fatalf("bounds got %v want %v", out.Bounds, want)
		}
	}
}
