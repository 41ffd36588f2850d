package interview

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// SessionStore 会话存取抽象。正式环境由Redis实现，
// 单测和降级场景用进程内实现。
type SessionStore interface {
	SaveSession(ctx context.Context, key string, value any, ttl time.Duration) error
	LoadSession(ctx context.Context, key string, dest any) error
}

// MemorySessionStore 进程内会话存储，重启即丢失
type MemorySessionStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemorySessionStore 创建进程内会话存储
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
	}
}

// SaveSession 序列化并写入，覆盖同名key
func (m *MemorySessionStore) SaveSession(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// LoadSession 读取并反序列化，不存在或已过期返回ErrSessionNotFound
func (m *MemorySessionStore) LoadSession(_ context.Context, key string, dest any) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return ErrSessionNotFound
	}
	return json.Unmarshal(entry.data, dest)
}
