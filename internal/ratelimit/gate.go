package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/static-snapshot/internal/core/observability"
)

// Store keeps notices until their expiry.
type Store interface {
	Get(ctx context.Context, key string) (Notice, bool, error)
	Put(ctx context.Context, key string, n Notice, ttl time.Duration) error
}

// Key derives the store key of a token. The token itself is never stored.
func Key(token string) string {
	return fmt.Sprintf("ratelimit:token:%016x", xxhash.Sum64String(token))
}

// Gate refuses tokens that are inside a recorded 429 window.
type Gate struct {
	store Store
	now   func() time.Time
}

func NewGate(store Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Check reports the active notice for token, if any. A store error leaves
// the gate open.
func (g *Gate) Check(ctx context.Context, token string) (Notice, bool, error) {
	if g == nil || g.store == nil {
		return Notice{}, false, nil
	}
	n, ok, err := g.store.Get(ctx, Key(token))
	if err != nil || !ok {
		return Notice{}, false, err
	}
	if !n.Reset.After(g.now()) {
		return Notice{}, false, nil
	}
	observability.IncRateGateBlock()
	return n, true, nil
}

// Record stores n until its reset time. Notices without a future reset
// are not recorded.
func (g *Gate) Record(ctx context.Context, token string, n Notice) error {
	if g == nil || g.store == nil {
		return nil
	}
	ttl := n.Reset.Sub(g.now())
	if n.Reset.IsZero() || ttl <= 0 {
		return nil
	}
	return g.store.Put(ctx, Key(token), n, ttl)
}
