package ratelimit

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"
)

func TestFromResponse_TooManyRequests(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderInterval, "60")
	h.Set(HeaderLimit, "600")
	h.Set(HeaderReset, "1479460584")

	n, ok := FromResponse(http.StatusTooManyRequests, h)
	if !ok {
		t.Fatalf("429 must yield a notice")
	}
	if got := n.Reason(); got != "More than 600 requests have been made with this access token within a period of 1 minute." {
		t.Fatalf("reason got %q", got)
	}
	if got := n.Suggestion(); got != "Wait until November 18, 2016 at 9:16:24 AM GMT before retrying." {
		t.Fatalf("suggestion got %q", got)
	}
}

func TestFromResponse_MissingHeaders(t *testing.T) {
	n, ok := FromResponse(http.StatusTooManyRequests, http.Header{})
	if !ok {
		t.Fatalf("429 must yield a notice")
	}
	if got := n.Reason(); got != "Too many requests have been made with this access token." {
		t.Fatalf("reason got %q", got)
	}
	if got := n.Suggestion(); got != "Wait a moment before retrying." {
		t.Fatalf("suggestion got %q", got)
	}
	h := http.Header{}
	h.Set(HeaderLimit, "lots")
	if n, _ := FromResponse(http.StatusTooManyRequests, h); n.Limit != 0 {
		t.Fatalf("unparseable limit must stay zero, got %d", n.Limit)
	}
	if _, ok := FromResponse(http.StatusOK, h); ok {
		t.Fatalf("non-429 must not yield a notice")
	}
}

func TestReason_LargeLimit(t *testing.T) {
	n := Notice{Limit: 100000, Interval: time.Hour}
	if got := n.Reason(); got != "More than 100,000 requests have been made with this access token within a period of 1 hour." {
		t.Fatalf("reason got %q", got)
	}
}

func TestFormatInterval(t *testing.T) {
	cases := map[time.Duration]string{
		time.Second:                  "1 second",
		90 * time.Second:             "1 minute, 30 seconds",
		2*time.Hour + 30*time.Second: "2 hours, 30 seconds",
		25 * time.Hour:               "1 day, 1 hour",
		0:                            "0 seconds",
	}
	for d, want := range cases {
		if got := FormatInterval(d); got != want {
			t.Fatalf("FormatInterval(%v) got %q want %q", d, got, want)
		}
	}
}

func TestKey_HidesToken(t *testing.T) {
	k := Key("pk.secret")
	if k != Key("pk.secret") {
		t.Fatalf("key not deterministic")
	}
	if k == Key("pk.other") {
		t.Fatalf("different tokens share a key")
	}
	if !regexp.MustCompile(`^ratelimit:token:[0-9a-f]{16}$`).MatchString(k) {
		t.Fatalf("unexpected key shape %q", k)
	}
}

func TestGate_MemoryStoreWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := NewMemoryStore(8)
	store.now = func() time.Time { return now }
	g := NewGate(store)
	g.now = func() time.Time { return now }

	if _, blocked, err := g.Check(ctx, "pk.a"); blocked || err != nil {
		t.Fatalf("fresh gate must be open: %v %v", blocked, err)
	}
	n := Notice{Limit: 600, Interval: time.Minute, Reset: now.Add(30 * time.Second)}
	if err := g.Record(ctx, "pk.a", n); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, blocked, err := g.Check(ctx, "pk.a")
	if err != nil || !blocked || got.Limit != 600 {
		t.Fatalf("expected block, got %+v %v %v", got, blocked, err)
	}
	if _, blocked, _ := g.Check(ctx, "pk.b"); blocked {
		t.Fatalf("other tokens must stay open")
	}

	now = now.Add(31 * time.Second)
	if _, blocked, _ := g.Check(ctx, "pk.a"); blocked {
		t.Fatalf("gate must reopen after reset")
	}
}

func TestGate_IgnoresPastOrMissingReset(t *testing.T) {
	ctx := context.Background()
	g := NewGate(NewMemoryStore(8))
	_ = g.Record(ctx, "pk.a", Notice{Limit: 1})
	_ = g.Record(ctx, "pk.a", Notice{Limit: 1, Reset: time.Now().Add(-time.Minute)})
	if _, blocked, _ := g.Check(ctx, "pk.a"); blocked {
		t.Fatalf("stale notices must not block")
	}
	var nilGate *Gate
	if _, blocked, err := nilGate.Check(ctx, "pk.a"); blocked || err != nil {
		t.Fatalf("nil gate must be open")
	}
}
