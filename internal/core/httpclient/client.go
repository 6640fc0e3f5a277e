// Package httpclient configures the HTTP client used to call the Static API.
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// DefaultTimeout bounds one snapshot round trip when none is configured.
const DefaultTimeout = 30 * time.Second

var (
	uaOnce sync.Once
	uaText string
)

// UserAgent identifies the library, Go runtime and platform. It is built
// once per process; later versions are ignored.
func UserAgent(version string) string {
	uaOnce.Do(func() {
		if version == "" {
			version = "dev"
		}
		uaText = fmt.Sprintf("static-snapshot/%s Go/%s (%s; %s)",
			version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	})
	return uaText
}

type uaTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *uaTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") == "" {
		r = r.Clone(r.Context())
		r.Header.Set("User-Agent", t.ua)
	}
	return t.base.RoundTrip(r)
}

// NewOutbound creates a new outbound http client. A zero timeout uses
// DefaultTimeout; an empty user agent leaves Go's default.
func NewOutbound(timeout time.Duration, userAgent string) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if userAgent != "" {
		rt = &uaTransport{base: rt, ua: userAgent}
	}
	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
	}
}
