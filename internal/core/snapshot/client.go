// Package snapshot fetches static map images from the Static API.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	// decoders for image.Decode
	_ "image/jpeg"
	_ "image/png"

	"github.com/cespare/xxhash/v2"
	_ "golang.org/x/image/webp"
	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/static-snapshot/internal/core/credential"
	"github.com/mohammed-shakir/static-snapshot/internal/core/httpclient"
	"github.com/mohammed-shakir/static-snapshot/internal/core/observability"
	"github.com/mohammed-shakir/static-snapshot/internal/core/overlay"
	"github.com/mohammed-shakir/static-snapshot/internal/core/staticapi"
	"github.com/mohammed-shakir/static-snapshot/internal/ratelimit"
)

const (
	DefaultHost = "api.mapbox.com"
	maxBody     = 32 << 20
	upstream    = "static_api"
)

type Option func(*Client)

// WithAccessToken sets the token explicitly; it wins over any Source.
func WithAccessToken(token string) Option { return func(c *Client) { c.token = token } }

// WithCredentialSource is consulted when no explicit token is given.
func WithCredentialSource(s credential.Source) Option { return func(c *Client) { c.source = s } }

// WithHost accepts a bare host ("api.mapbox.com") or a base URL
// ("http://127.0.0.1:8080").
func WithHost(h string) Option { return func(c *Client) { c.host = h } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// WithLimiter paces outbound requests.
func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }

// WithGate refuses fetches locally while a 429 window is open.
func WithGate(g *ratelimit.Gate) Option { return func(c *Client) { c.gate = g } }

// WithQueue sets where FetchAsync delivers results. The caller owns q.
func WithQueue(q Queue) Option { return func(c *Client) { c.queue = q } }

type Client struct {
	token   string
	source  credential.Source
	host    string
	base    string
	http    *http.Client
	log     *slog.Logger
	limiter *rate.Limiter
	gate    *ratelimit.Gate
	queue   Queue
	ownQ    *SerialQueue
	now     func() time.Time
}

// Result is a decoded image plus the bytes it came from.
type Result struct {
	Image       image.Image
	Format      string
	ContentType string
	Data        []byte
}

// New resolves the access token and host. A missing token is an error
// here, before any request exists.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{host: DefaultHost, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	tok, err := credential.Resolve(ctx, c.token, c.source)
	if err != nil {
		return nil, fmt.Errorf("resolve access token: %w", err)
	}
	c.token = tok

	base, err := baseURL(c.host)
	if err != nil {
		return nil, err
	}
	c.base = base
	if c.http == nil {
		c.http = httpclient.NewOutbound(0, httpclient.UserAgent(""))
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.queue == nil {
		c.ownQ = NewSerialQueue(16)
		c.queue = c.ownQ
	}
	return c, nil
}

func baseURL(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("parse api host: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api host %q has no host name", host)
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(u.EscapedPath(), "/"), nil
}

// Close stops the completion queue the client created for itself.
func (c *Client) Close() {
	if c.ownQ != nil {
		c.ownQ.Close()
	}
}

// BuildURL renders the full request URL, token included.
func (c *Client) BuildURL(req staticapi.Request) (string, error) {
	path, err := staticapi.BuildPath(req)
	if err != nil {
		return "", err
	}
	return c.base + path + "?" + staticapi.EncodeQuery(staticapi.BuildQuery(req, c.token)), nil
}

// RedactedURL is BuildURL with the token masked, safe to show or log.
func (c *Client) RedactedURL(req staticapi.Request) (string, error) {
	path, err := staticapi.BuildPath(req)
	if err != nil {
		return "", err
	}
	q := staticapi.Redact(staticapi.BuildQuery(req, c.token))
	return c.base + path + "?" + staticapi.EncodeQuery(q), nil
}

// Fingerprint is a short stable id of a request path for logs and events.
func Fingerprint(path string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(path))
}

// Image fetches and decodes the snapshot, returning nil on any failure.
// Use Fetch when the reason matters.
func (c *Client) Image(ctx context.Context, req staticapi.Request) image.Image {
	res, err := c.Fetch(ctx, req)
	if err != nil {
		return nil
	}
	return res.Image
}

// Fetch performs one GET and classifies the response. Configuration
// problems come back as *staticapi.ConfigError before any I/O; afterwards
// errors are *TransportError or *ServiceError. Nothing is retried.
func (c *Client) Fetch(ctx context.Context, req staticapi.Request) (*Result, error) {
	endpoint := req.Endpoint()
	path, err := staticapi.BuildPath(req)
	if err != nil {
		observability.IncSnapshotResult(endpoint, observability.OutcomeInvalid)
		return nil, err
	}
	fp := Fingerprint(path)
	log := c.log.With("endpoint", endpoint, "fingerprint", fp)

	if n, blocked, gerr := c.gate.Check(ctx, c.token); gerr != nil {
		log.Warn("rate gate check failed", "err", gerr)
	} else if blocked {
		observability.IncSnapshotResult(endpoint, observability.OutcomeRateLimited)
		log.Debug("refused inside rate-limit window", "reset", n.Reset)
		return nil, &ServiceError{
			StatusCode: http.StatusTooManyRequests,
			Reason:     n.Reason(),
			Suggestion: n.Suggestion(),
			Err:        ErrRateLimited,
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.observeFailure(ctx, endpoint)
			return nil, &TransportError{Err: fmt.Errorf("outbound limiter: %w", err)}
		}
	}

	u := c.base + path + "?" + staticapi.EncodeQuery(staticapi.BuildQuery(req, c.token))
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("build request: %w", err)}
	}

	start := c.now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		c.observeFailure(ctx, endpoint)
		log.Debug("snapshot transport failed", "path", path, "err", redactErr(err, c.token))
		return nil, &TransportError{Err: redactErr(err, c.token)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	dur := time.Since(start)
	observability.ObserveUpstreamLatency(upstream, dur.Seconds())
	if err != nil {
		c.observeFailure(ctx, endpoint)
		return nil, &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	res, err := c.classify(ctx, resp, body)
	outcome := Outcome(err)
	observability.IncSnapshotResult(endpoint, outcome)
	log.Debug("snapshot done",
		"path", path,
		"bounds", overlay.Bounds(req.Overlays),
		"status", resp.StatusCode,
		"outcome", outcome,
		"bytes", len(body),
		"duration", dur.String())
	return res, err
}

func (c *Client) classify(ctx context.Context, resp *http.Response, body []byte) (*Result, error) {
	ct := resp.Header.Get("Content-Type")
	jsonBody := isJSON(ct)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if !ok || jsonBody {
		se := &ServiceError{StatusCode: resp.StatusCode}
		if jsonBody {
			var msg struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(body, &msg) == nil {
				se.Message = msg.Message
			}
		}
		if n, limited := ratelimit.FromResponse(resp.StatusCode, resp.Header); limited {
			se.Reason = n.Reason()
			se.Suggestion = n.Suggestion()
			if err := c.gate.Record(ctx, c.token, n); err != nil {
				c.log.Warn("rate gate record failed", "err", err)
			}
		}
		if ok && se.Message == "" {
			se.Reason = "The service answered with JSON instead of an image."
			se.Err = ErrUndecodable
		}
		return nil, se
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Reason:     "The response body is not a decodable image.",
			Err:        fmt.Errorf("%w: %v", ErrUndecodable, err),
		}
	}
	return &Result{Image: img, Format: format, ContentType: ct, Data: body}, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func (c *Client) observeFailure(ctx context.Context, endpoint string) {
	outcome := observability.OutcomeTransport
	if ctx.Err() != nil {
		outcome = observability.OutcomeCancelled
	}
	observability.IncSnapshotResult(endpoint, outcome)
}

// Outcome classifies a Fetch error into the label used by metrics and
// snapshot events.
func Outcome(err error) string {
	var (
		se *ServiceError
		te *TransportError
	)
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, staticapi.ErrConfiguration):
		return observability.OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeCancelled
	case errors.As(err, &te):
		return observability.OutcomeTransport
	case errors.Is(err, ErrUndecodable):
		return observability.OutcomeUndecodable
	case errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests:
		return observability.OutcomeRateLimited
	default:
		return observability.OutcomeServiceErr
	}
}

// redactErr keeps the token out of *url.Error messages.
func redactErr(err error, token string) error {
	var ue *url.Error
	if token == "" || !errors.As(err, &ue) {
		return err
	}
	cp := *ue
	cp.URL = strings.ReplaceAll(cp.URL, url.QueryEscape(token), "REDACTED")
	return &cp
}
