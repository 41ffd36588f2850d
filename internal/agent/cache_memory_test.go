package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryResponseCacheTTL(t *testing.T) {
	c := NewMemoryResponseCache(time.Hour)
	c.Set(context.Background(), AgentResume, "review my resume", "建议内容")

	got, ok := c.Get(context.Background(), AgentResume, "review my resume")
	assert.True(t, ok, "TTL内写入的值应立即可读")
	assert.Equal(t, "建议内容", got)

	// 不同代理或不同问题不应互相命中
	_, ok = c.Get(context.Background(), AgentProfile, "review my resume")
	assert.False(t, ok)
}

func TestMemoryResponseCacheExpiry(t *testing.T) {
	c := NewMemoryResponseCache(-time.Second)
	c.Set(context.Background(), AgentResume, "review my resume", "建议内容")

	_, ok := c.Get(context.Background(), AgentResume, "review my resume")
	assert.False(t, ok, "已过期的条目不应可读")
}

var _ ResponseCache = (*MemoryResponseCache)(nil)
