package handler_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/llm"
	"career-agent-go/internal/persona"
	"career-agent-go/internal/types"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChatService 组装一个全mock依赖的聊天服务
func newChatService(t *testing.T, coachReply string) *agent.ChatService {
	t.Helper()

	personas, err := persona.NewStore(t.TempDir())
	require.NoError(t, err)

	router := agent.NewRouter(llm.NewMockChatModel("", assert.AnError), time.Second)
	coach := agent.NewCoachAgent(llm.NewMockChatModel(coachReply, nil), time.Second)
	updater := agent.NewMemoryUpdater(llm.NewMockChatModel(`{"has_update": false}`, nil), time.Second)
	memory := agent.NewInMemoryChatMemory(10)

	return agent.NewChatService(router, coach, updater, personas, memory, nil)
}

func performJSON(t *testing.T, engine *route.Engine, method, path string, body any) *ut.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return ut.PerformRequest(engine, method, path,
		&ut.Body{Body: bytes.NewBuffer(data), Len: len(data)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func TestHandleChatSync(t *testing.T) {
	svc := newChatService(t, "先把简历做好关键词匹配")
	h := handler.NewChatHandler(svc)

	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	engine.POST("/api/v1/chat", h.HandleChat)

	w := performJSON(t, engine, "POST", "/api/v1/chat", types.ChatRequest{
		UserID:  "u1",
		Message: "帮我review my resume",
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var out types.ChatResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	// 关键词命中resume，不经过mock的路由模型
	assert.Equal(t, "resume", out.Agent)
	assert.Equal(t, "先把简历做好关键词匹配", out.Reply)
	assert.False(t, out.Cached)
	assert.NotEmpty(t, out.SessionID, "未提供session_id时应自动生成")
}

func TestHandleChatMissingFields(t *testing.T) {
	h := handler.NewChatHandler(newChatService(t, "ok"))

	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	engine.POST("/api/v1/chat", h.HandleChat)

	w := performJSON(t, engine, "POST", "/api/v1/chat", types.ChatRequest{UserID: "u1"})
	assert.Equal(t, 400, w.Result().StatusCode())
}
