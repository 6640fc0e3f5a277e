// Package redisstore shares rate-limit notices between processes through
// Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/static-snapshot/internal/core/observability"
	"github.com/mohammed-shakir/static-snapshot/internal/ratelimit"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

// Store implements ratelimit.Store. Each notice is one JSON string whose
// Redis TTL is the time left until reset.
type Store struct {
	rdb       *redis.Client
	opTimeout time.Duration
}

var _ ratelimit.Store = (*Store)(nil)

func New(ctx context.Context, addr string, opTimeout time.Duration, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     16,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveGateOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb, opTimeout: opTimeout}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Store) Get(ctx context.Context, key string) (ratelimit.Notice, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveGateOp("get", nil, time.Since(start).Seconds())
		return ratelimit.Notice{}, false, nil
	}
	observability.ObserveGateOp("get", err, time.Since(start).Seconds())
	if err != nil {
		return ratelimit.Notice{}, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	var n ratelimit.Notice
	if err := json.Unmarshal(b, &n); err != nil {
		return ratelimit.Notice{}, false, fmt.Errorf("decode notice %q: %w", key, err)
	}
	return n, true, nil
}

func (s *Store) Put(ctx context.Context, key string, n ratelimit.Notice, ttl time.Duration) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err = s.rdb.Set(ctx, key, b, ttl).Err()
	observability.ObserveGateOp("set", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := s.rdb.Ping(ctx).Err()
	observability.ObserveGateOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
