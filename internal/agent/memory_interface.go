package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// ChatMemory 定义了聊天记忆存储的接口。
// 历史记录只服务于当前会话的提示词拼接，不承诺可查询的审计日志。
type ChatMemory interface {
	// GetHistory 获取指定会话ID的聊天历史记录。
	// 会话不存在时返回空切片和nil错误。
	GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error)

	// AddMessage 向指定会话ID的聊天历史记录中追加一条消息。
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// ClearHistory 清除指定会话ID的所有聊天历史记录。
	// 会话不存在时静默成功。
	ClearHistory(ctx context.Context, sessionID string) error
}

// InMemoryChatMemory 是 ChatMemory 接口的简单内存实现，仅用于测试和单机场景。
type InMemoryChatMemory struct {
	mu        sync.RWMutex
	histories map[string][]*schema.Message
	maxTurns  int
}

// NewInMemoryChatMemory 创建内存聊天记忆，maxTurns<=0 表示不限长度
func NewInMemoryChatMemory(maxTurns int) *InMemoryChatMemory {
	return &InMemoryChatMemory{
		histories: make(map[string][]*schema.Message),
		maxTurns:  maxTurns,
	}
}

// GetHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history, ok := m.histories[sessionID]
	if !ok {
		return []*schema.Message{}, nil
	}
	// 返回副本，防止调用方修改内部切片
	cpy := make([]*schema.Message, len(history))
	copy(cpy, history)
	return cpy, nil
}

// AddMessage 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("不能向会话 %s 追加空消息", sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.histories[sessionID], message)
	if m.maxTurns > 0 && len(history) > m.maxTurns {
		history = history[len(history)-m.maxTurns:]
	}
	m.histories[sessionID] = history
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.histories, sessionID)
	return nil
}
