package llm

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketWait(t *testing.T) {
	// 初始桶是满的，容量内的请求不应阻塞
	tb := newTokenBucket(120)
	for i := 0; i < 10; i++ {
		require.NoError(t, tb.wait(context.Background()))
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := newTokenBucket(1)
	require.NoError(t, tb.wait(context.Background()), "第一个令牌应立即可用")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tb.wait(ctx), context.Canceled, "桶空时应响应上下文取消")
}

func TestRateLimitedModelPassthrough(t *testing.T) {
	inner := NewMockChatModel("你好", nil)
	m := withRateLimit(inner, newTokenBucket(600))

	reply, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "你好", reply.Content)
}

func TestRateLimitNilBucket(t *testing.T) {
	inner := NewMockChatModel("ok", nil)
	assert.Equal(t, inner, withRateLimit(inner, nil), "未配置限流时应返回原客户端")
}
