package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryCacheKeyNormalization(t *testing.T) {
	a := QueryCacheKey("resume", "  How do I improve my resume? ")
	b := QueryCacheKey("resume", "how do i improve my resume?")
	assert.Equal(t, a, b, "大小写和首尾空白不应影响缓存key")

	c := QueryCacheKey("job_search", "how do i improve my resume?")
	assert.NotEqual(t, a, c, "不同代理的缓存key必须隔离")

	assert.Contains(t, a, "app:cache:response:resume:")
}

func TestResponseCacheDegradesWithoutRedis(t *testing.T) {
	cache := NewResponseCache(nil)

	val, ok := cache.Get(context.Background(), "resume", "任意问题")
	assert.False(t, ok, "Redis不可用时应表现为永久未命中")
	assert.Empty(t, val)

	// 写入应静默跳过而不是panic
	cache.Set(context.Background(), "resume", "任意问题", "答案")
}
