package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"career-agent-go/internal/constants"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisChatMemory 实现了 ChatMemory 接口，使用 Redis List 持久化聊天历史。
// 每条消息是一个JSON元素，写入时同步续期TTL并裁剪到最大长度。
type RedisChatMemory struct {
	redisClient *redis.Client
	ttl         time.Duration
	maxTurns    int64
}

// NewRedisChatMemory 创建 RedisChatMemory。
// ttl为0时记录不过期，maxTurns<=0时不裁剪历史长度。
func NewRedisChatMemory(redisClient *redis.Client, ttl time.Duration, maxTurns int64) (*RedisChatMemory, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis客户端不能为空")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接检查失败: %w", err)
	}

	return &RedisChatMemory{
		redisClient: redisClient,
		ttl:         ttl,
		maxTurns:    maxTurns,
	}, nil
}

func (rcm *RedisChatMemory) buildKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyChatHistory, sessionID)
}

// GetHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	key := rcm.buildKey(sessionID)

	serialized, err := rcm.redisClient.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话 %s 的聊天历史失败: %w", sessionID, err)
	}

	messages := make([]*schema.Message, 0, len(serialized))
	for _, sm := range serialized {
		var msg schema.Message
		if err := json.Unmarshal([]byte(sm), &msg); err != nil {
			return nil, fmt.Errorf("会话 %s 的聊天历史数据损坏: %w", sessionID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// AddMessage 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("不能向会话 %s 追加空消息", sessionID)
	}
	key := rcm.buildKey(sessionID)

	serialized, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化会话 %s 的消息失败: %w", sessionID, err)
	}

	// Pipeline保证追加、裁剪、续期一起提交
	pipe := rcm.redisClient.TxPipeline()
	pipe.RPush(ctx, key, serialized)
	if rcm.maxTurns > 0 {
		pipe.LTrim(ctx, key, -rcm.maxTurns, -1)
	}
	if rcm.ttl > 0 {
		pipe.Expire(ctx, key, rcm.ttl)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("追加会话 %s 的消息失败: %w", sessionID, err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	key := rcm.buildKey(sessionID)
	if err := rcm.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("清除会话 %s 的聊天历史失败: %w", sessionID, err)
	}
	return nil
}
