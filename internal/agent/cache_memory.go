package agent

import (
	"context"
	"sync"
	"time"
)

// MemoryResponseCache 进程内TTL响应缓存，Redis不可用时的降级实现。
// 过期条目在读取时惰性清除，重启即丢失。
type MemoryResponseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryResponseCache 创建进程内响应缓存
func NewMemoryResponseCache(ttl time.Duration) *MemoryResponseCache {
	return &MemoryResponseCache{
		ttl:     ttl,
		entries: make(map[string]memoryCacheEntry),
	}
}

func (c *MemoryResponseCache) Get(_ context.Context, agent, query string) (string, bool) {
	key := agent + "\x00" + query
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

func (c *MemoryResponseCache) Set(_ context.Context, agent, query, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[agent+"\x00"+query] = memoryCacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}
