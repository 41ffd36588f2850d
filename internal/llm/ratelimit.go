package llm

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// tokenBucket 令牌桶限流器，所有档位共享一个桶，
// 控制发往本地推理服务的总请求速率
type tokenBucket struct {
	mu         sync.Mutex
	ratePerSec float64
	capacity   float64
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(qpm int) *tokenBucket {
	capacity := float64(qpm) / 2
	if capacity < 1 {
		capacity = 1
	}
	return &tokenBucket{
		ratePerSec: float64(qpm) / 60.0,
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: time.Now(),
	}
}

func (tb *tokenBucket) refill() {
	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.ratePerSec
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// wait 阻塞到取得一个令牌或上下文取消
func (tb *tokenBucket) wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		sleep := time.Duration((1.0 - tb.tokens) / tb.ratePerSec * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// rateLimitedModel 在模型客户端外加一层QPM限流。
// 重试由底层客户端负责，这里只做取令牌后的透传。
type rateLimitedModel struct {
	inner  model.ToolCallingChatModel
	bucket *tokenBucket
}

// withRateLimit 用共享令牌桶包装模型客户端，桶为nil时原样返回
func withRateLimit(inner model.ToolCallingChatModel, bucket *tokenBucket) model.ToolCallingChatModel {
	if bucket == nil {
		return inner
	}
	return &rateLimitedModel{inner: inner, bucket: bucket}
}

func (m *rateLimitedModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := m.bucket.wait(ctx); err != nil {
		return nil, err
	}
	return m.inner.Generate(ctx, messages, opts...)
}

func (m *rateLimitedModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := m.bucket.wait(ctx); err != nil {
		return nil, err
	}
	return m.inner.Stream(ctx, messages, opts...)
}

func (m *rateLimitedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	inner, err := m.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &rateLimitedModel{inner: inner, bucket: m.bucket}, nil
}
