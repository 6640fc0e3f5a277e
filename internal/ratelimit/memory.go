package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memEntry struct {
	notice  Notice
	expires time.Time
}

// MemoryStore is an in-process Store bounded to a fixed number of tokens.
type MemoryStore struct {
	mu  sync.Mutex
	lru *lru.Cache[string, memEntry]
	now func() time.Time
}

func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[string, memEntry](size)
	return &MemoryStore{lru: c, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Notice, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lru.Get(key)
	if !ok {
		return Notice{}, false, nil
	}
	if !m.now().Before(e.expires) {
		m.lru.Remove(key)
		return Notice{}, false, nil
	}
	return e.notice, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, n Notice, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Add(key, memEntry{notice: n, expires: m.now().Add(ttl)})
	return nil
}
