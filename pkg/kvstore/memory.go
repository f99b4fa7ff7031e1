package kvstore

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	TTL        time.Duration `env:"MEMORY_TTL" envDefault:"0s"`              // TTL is the lifetime of an entry; zero keeps entries forever.
	QuotaBytes int           `env:"MEMORY_QUOTA_BYTES" envDefault:"5242880"` // QuotaBytes caps the total size of keys and values; zero disables the cap.
}

// Memory is an in-process store with optional expiry and a size quota.
// Writes that would exceed the quota fail with ErrQuotaExceeded and leave the
// store unchanged, the way browser storage rejects writes when full.
type Memory struct {
	mu    sync.Mutex
	items *cache.Cache
	quota int
}

// NewMemory creates an empty memory store.
func NewMemory(cfg MemoryConfig) *Memory {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	// Zero cleanup interval: no janitor goroutine, expired entries are swept on write.
	return &Memory{
		items: cache.New(ttl, 0),
		quota: cfg.QuotaBytes,
	}
}

func (m *Memory) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := m.items.Get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m *Memory) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items.DeleteExpired()
	if m.quota > 0 && m.usedExcluding(key)+len(key)+len(value) > m.quota {
		return ErrQuotaExceeded
	}

	m.items.SetDefault(key, value)
	return nil
}

func (m *Memory) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.items.Delete(key)
	return nil
}

// Len returns the number of unexpired entries.
func (m *Memory) Len() int {
	return len(m.items.Items())
}

// Must be called with m.mu held.
func (m *Memory) usedExcluding(key string) int {
	used := 0
	for k, item := range m.items.Items() {
		if k == key {
			continue
		}
		used += len(k) + len(item.Object.(string))
	}
	return used
}
