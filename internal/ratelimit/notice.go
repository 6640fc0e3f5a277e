// Package ratelimit remembers 429 windows per access token so callers can
// refuse work locally until the service's reset time.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	HeaderLimit    = "X-Rate-Limit-Limit"
	HeaderInterval = "X-Rate-Limit-Interval"
	HeaderReset    = "X-Rate-Limit-Reset"
)

// SuggestionLayout renders the reset time, always in GMT.
const SuggestionLayout = "January 2, 2006 at 3:04:05 PM MST"

var gmt = time.FixedZone("GMT", 0)

// Notice is what a 429 response said about the limit. Zero fields were
// absent or unparseable.
type Notice struct {
	Limit    int64         `json:"limit,omitempty"`
	Interval time.Duration `json:"interval,omitempty"`
	Reset    time.Time     `json:"reset"`
}

// FromResponse reads the rate-limit headers of a 429. Any other status
// reports false. Missing headers leave their field zero.
func FromResponse(status int, h http.Header) (Notice, bool) {
	if status != http.StatusTooManyRequests {
		return Notice{}, false
	}
	var n Notice
	if v, err := strconv.ParseInt(strings.TrimSpace(h.Get(HeaderLimit)), 10, 64); err == nil && v > 0 {
		n.Limit = v
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(h.Get(HeaderInterval)), 10, 64); err == nil && v > 0 {
		n.Interval = time.Duration(v) * time.Second
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(h.Get(HeaderReset)), 10, 64); err == nil && v > 0 {
		n.Reset = time.Unix(v, 0)
	}
	return n, true
}

// Reason says which limit was hit.
func (n Notice) Reason() string {
	var b strings.Builder
	if n.Limit > 0 {
		b.WriteString("More than " + humanize.Comma(n.Limit) + " requests have been made with this access token")
	} else {
		b.WriteString("Too many requests have been made with this access token")
	}
	if n.Interval > 0 {
		b.WriteString(" within a period of " + FormatInterval(n.Interval))
	}
	b.WriteByte('.')
	return b.String()
}

// Suggestion says when to retry.
func (n Notice) Suggestion() string {
	if n.Reset.IsZero() {
		return "Wait a moment before retrying."
	}
	return "Wait until " + n.Reset.In(gmt).Format(SuggestionLayout) + " before retrying."
}

// FormatInterval spells a duration in whole days, hours, minutes and
// seconds, largest first: "1 minute", "2 hours, 30 seconds".
func FormatInterval(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return "0 seconds"
	}
	units := []struct {
		name string
		size int64
	}{{"day", 86400}, {"hour", 3600}, {"minute", 60}, {"second", 1}}
	var parts []string
	for _, u := range units {
		if q := secs / u.size; q > 0 {
			secs -= q * u.size
			name := u.name
			if q != 1 {
				name += "s"
			}
			parts = append(parts, fmt.Sprintf("%d %s", q, name))
		}
	}
	return strings.Join(parts, ", ")
}
