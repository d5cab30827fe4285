package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries 内存缓存默认容量
const DefaultMaxEntries = 1024

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryBackend 有容量上限的进程内 LRU，每个条目单独过期
type MemoryBackend struct {
	entries *lru.Cache[string, memoryEntry]
	nowFunc func() time.Time
}

// NewMemoryBackend 创建内存后端
func NewMemoryBackend(maxEntries int) (*MemoryBackend, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{entries: entries, nowFunc: time.Now}, nil
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.nowFunc().Before(e.expires) {
		m.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.nowFunc().Add(ttl)
	}
	m.entries.Add(key, e)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.entries.Remove(key)
	return nil
}

// Len 当前条目数（含尚未清理的过期条目）
func (m *MemoryBackend) Len() int {
	return m.entries.Len()
}
