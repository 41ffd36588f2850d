package handler

import (
	"context"
	"encoding/json"
	"io"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/sse"
)

// ChatHandler 聊天端点：同步问答和SSE流式输出
type ChatHandler struct {
	chat *agent.ChatService
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(chat *agent.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// HandleChat 处理一轮同步聊天
func (h *ChatHandler) HandleChat(c context.Context, ctx *app.RequestContext) {
	var req types.ChatRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" || req.Message == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id和message不能为空"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	agentLabel, reply, cached := h.chat.Chat(c, req.UserID, req.SessionID, req.Message)

	ctx.JSON(consts.StatusOK, types.ChatResponse{
		Agent:     agentLabel,
		Reply:     reply,
		Cached:    cached,
		SessionID: req.SessionID,
	})
}

// SSE帧类型。chunk帧按序携带回复片段，客户端拼接后即完整回复。
const (
	sseEventStart = "start"
	sseEventAgent = "agent"
	sseEventChunk = "chunk"
	sseEventDone  = "done"
	sseEventError = "error"
)

// HandleChatStream 处理流式聊天。
// 帧顺序固定：start → agent → chunk* → done；任何阶段失败发error帧后结束。
// 画像写回在done帧之后触发，不阻塞响应。
func (h *ChatHandler) HandleChatStream(c context.Context, ctx *app.RequestContext) {
	var req types.ChatRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" || req.Message == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id和message不能为空"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	stream := sse.NewStream(ctx)
	publish(stream, sseEventStart, utils.H{"session_id": req.SessionID})

	agentLabel := h.chat.Route(c, req.Message)
	publish(stream, sseEventAgent, utils.H{"agent": agentLabel})

	// 缓存命中时整条回复作为单个chunk下发
	if cached, ok := h.chat.CacheGet(c, agentLabel, req.Message); ok {
		publish(stream, sseEventChunk, utils.H{"content": cached})
		publish(stream, sseEventDone, utils.H{"cached": true})
		h.chat.AfterReply(req.SessionID, req.UserID, req.Message, cached)
		return
	}

	personaCtx := h.chat.PersonaContext(req.UserID)
	history := h.chat.History(c, req.SessionID)

	sr, err := h.chat.StreamReply(c, agentLabel, personaCtx, history, req.Message)
	if err != nil {
		logger.Warn().Err(err).Str("agent", agentLabel).Msg("流式生成启动失败，下发兜底回复")
		fallback := agent.Fallback(agentLabel)
		publish(stream, sseEventChunk, utils.H{"content": fallback})
		publish(stream, sseEventDone, utils.H{"cached": false, "fallback": true})
		h.chat.AfterReply(req.SessionID, req.UserID, req.Message, fallback)
		return
	}
	defer sr.Close()

	var full []byte
	for {
		msg, recvErr := sr.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			logger.Warn().Err(recvErr).Str("agent", agentLabel).Msg("流式生成中断")
			publish(stream, sseEventError, utils.H{"error": "生成中断，请重试"})
			return
		}
		if msg.Content == "" {
			continue
		}
		full = append(full, msg.Content...)
		publish(stream, sseEventChunk, utils.H{"content": msg.Content})
	}

	reply := string(full)
	publish(stream, sseEventDone, utils.H{"cached": false, "length": len(reply)})

	h.chat.CacheSet(c, agentLabel, req.Message, reply)
	h.chat.AfterReply(req.SessionID, req.UserID, req.Message, reply)
}

// publish 序列化并下发一个SSE帧，失败只记日志（客户端可能已断开）
func publish(stream *sse.Stream, event string, data utils.H) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Error().Err(err).Str("event", event).Msg("序列化SSE帧失败")
		return
	}
	if err := stream.Publish(&sse.Event{Event: event, Data: payload}); err != nil {
		logger.Debug().Err(err).Str("event", event).Msg("下发SSE帧失败")
	}
}
