package agent

import (
	"context"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/persona"

	"github.com/cloudwego/eino/schema"
)

// ResponseCache 聊天服务依赖的缓存最小接口。
// 实现必须在后端不可用时表现为永久未命中，而不是返回错误。
type ResponseCache interface {
	Get(ctx context.Context, agent, query string) (string, bool)
	Set(ctx context.Context, agent, query, value string)
}

// ChatService 聊天主流程：路由、缓存、生成回复、写聊天历史、
// 以及响应之后异步写回画像。
type ChatService struct {
	router        *Router
	coach         *CoachAgent
	memoryUpdater *MemoryUpdater
	personas      *persona.Store
	memory        ChatMemory
	cache         ResponseCache
}

// NewChatService 创建聊天服务。memory和cache允许为nil（功能降级）。
func NewChatService(router *Router, coach *CoachAgent, memoryUpdater *MemoryUpdater, personas *persona.Store, memory ChatMemory, cache ResponseCache) *ChatService {
	return &ChatService{
		router:        router,
		coach:         coach,
		memoryUpdater: memoryUpdater,
		personas:      personas,
		memory:        memory,
		cache:         cache,
	}
}

// Chat 处理一轮同步聊天。
// 返回选中的代理标签、回复内容以及是否命中缓存。
func (s *ChatService) Chat(ctx context.Context, userID, sessionID, message string) (string, string, bool) {
	agentLabel := s.router.Route(ctx, message)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, agentLabel, message); ok {
			logger.Debug().Str("agent", agentLabel).Msg("聊天响应命中缓存")
			s.AfterReply(sessionID, userID, message, cached)
			return agentLabel, cached, true
		}
	}

	personaCtx := s.personas.ContextForLLM(userID)
	history := s.History(ctx, sessionID)

	// 兜底话术不进缓存，模型恢复后同样的问题要能拿到真实回复
	reply, generated := s.coach.Reply(ctx, agentLabel, personaCtx, history, message)
	if generated && s.cache != nil {
		s.cache.Set(ctx, agentLabel, message, reply)
	}
	s.AfterReply(sessionID, userID, message, reply)

	return agentLabel, reply, false
}

// Route 暴露路由结果，供流式端点先下发agent帧
func (s *ChatService) Route(ctx context.Context, message string) string {
	return s.router.Route(ctx, message)
}

// PersonaContext 返回注入提示词的画像摘要
func (s *ChatService) PersonaContext(userID string) string {
	return s.personas.ContextForLLM(userID)
}

// History 读取会话历史，记忆不可用时返回空历史
func (s *ChatService) History(ctx context.Context, sessionID string) []*schema.Message {
	if s.memory == nil || sessionID == "" {
		return nil
	}
	history, err := s.memory.GetHistory(ctx, sessionID)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("读取聊天历史失败，按空历史处理")
		return nil
	}
	return history
}

// StreamReply 发起一次流式生成，错误交给调用方转成error帧
func (s *ChatService) StreamReply(ctx context.Context, agentLabel, personaCtx string, history []*schema.Message, message string) (*schema.StreamReader[*schema.Message], error) {
	return s.coach.Stream(ctx, agentLabel, personaCtx, history, message)
}

// CacheGet / CacheSet 供流式端点在生成前后操作缓存
func (s *ChatService) CacheGet(ctx context.Context, agentLabel, message string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	return s.cache.Get(ctx, agentLabel, message)
}

func (s *ChatService) CacheSet(ctx context.Context, agentLabel, message, reply string) {
	if s.cache != nil {
		s.cache.Set(ctx, agentLabel, message, reply)
	}
}

// AfterReply 回复送出后的收尾：写聊天历史、异步写回画像。
// 画像更新不在响应关键路径上，与同一用户的下一次请求存在已知的竞态窗口，
// 属于接受的设计限制。
func (s *ChatService) AfterReply(sessionID, userID, userMessage, reply string) {
	if s.memory != nil && sessionID != "" {
		ctx := context.Background()
		if err := s.memory.AddMessage(ctx, sessionID, schema.UserMessage(userMessage)); err != nil {
			logger.Warn().Err(err).Msg("写入用户消息到聊天历史失败")
		}
		if err := s.memory.AddMessage(ctx, sessionID, schema.AssistantMessage(reply, nil)); err != nil {
			logger.Warn().Err(err).Msg("写入助手消息到聊天历史失败")
		}
	}

	if s.memoryUpdater == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Any("panic", r).Msg("后台画像更新发生panic")
			}
		}()

		update := s.memoryUpdater.Extract(context.Background(), userMessage)
		if !update.HasUpdate {
			return
		}
		if _, err := s.personas.UpdateFromChat(userID, update.Intent, update.Data); err != nil {
			logger.Warn().Err(err).Str("user_id", userID).Msg("后台画像更新失败")
			return
		}
		logger.Info().Str("user_id", userID).Str("intent", update.Intent).Msg("聊天事实已写回画像")
	}()
}
