package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"career-agent-go/internal/llm"
	"career-agent-go/internal/persona"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache 测试用缓存实现
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, agent, query string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[agent+"|"+query]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, agent, query, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[agent+"|"+query] = value
}

func newTestChatService(t *testing.T, coachModel *llm.MockChatModel, memUpdater *MemoryUpdater, cache ResponseCache) (*ChatService, *persona.Store) {
	t.Helper()
	store, err := persona.NewStore(t.TempDir())
	require.NoError(t, err)

	svc := NewChatService(
		NewRouter(nil, time.Second),
		NewCoachAgent(coachModel, time.Second),
		memUpdater,
		store,
		NewInMemoryChatMemory(20),
		cache,
	)
	return svc, store
}

func TestChatCacheMissThenHit(t *testing.T) {
	coach := llm.NewMockChatModel("这是针对你简历的建议。", nil)
	cache := newFakeCache()
	svc, _ := newTestChatService(t, coach, nil, cache)

	agentLabel, reply, cached := svc.Chat(context.Background(), "u1", "s1", "review my resume")
	assert.Equal(t, AgentResume, agentLabel)
	assert.Equal(t, "这是针对你简历的建议。", reply)
	assert.False(t, cached)

	// 相同消息第二次应命中缓存且不再调用模型
	callsBefore := len(coach.GetReceivedMessages())
	_, reply2, cached2 := svc.Chat(context.Background(), "u1", "s1", "review my resume")
	assert.True(t, cached2)
	assert.Equal(t, reply, reply2)
	assert.Equal(t, callsBefore, len(coach.GetReceivedMessages()), "缓存命中不应再调用模型")

	// 命中缓存的轮次同样要写入聊天历史
	history := svc.History(context.Background(), "s1")
	assert.Len(t, history, 4)
}

// TestChatModelFailureFallback 模型失败时回复兜底话术而不是报错。
// 兜底话术不能进缓存，否则模型恢复后同样的问题仍会命中兜底。
func TestChatModelFailureFallback(t *testing.T) {
	coach := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Error: errors.New("connection refused")},
		{Content: "恢复后的真实建议。"},
	})
	cache := newFakeCache()
	svc, _ := newTestChatService(t, coach, nil, cache)

	agentLabel, reply, cached := svc.Chat(context.Background(), "u1", "s1", "review my resume")
	assert.Equal(t, AgentResume, agentLabel)
	assert.Equal(t, Fallback(AgentResume), reply)
	assert.False(t, cached)

	_, ok := cache.Get(context.Background(), AgentResume, "review my resume")
	assert.False(t, ok, "兜底话术不应写入缓存")

	// 模型恢复后同样的问题应返回真实回复而不是缓存的兜底
	_, reply2, cached2 := svc.Chat(context.Background(), "u1", "s1", "review my resume")
	assert.False(t, cached2)
	assert.Equal(t, "恢复后的真实建议。", reply2)
}

// TestChatHistoryAccumulates 每轮聊天应写入用户与助手两条历史
func TestChatHistoryAccumulates(t *testing.T) {
	coach := llm.NewMockChatModel("好的。", nil)
	svc, _ := newTestChatService(t, coach, nil, nil)

	svc.Chat(context.Background(), "u1", "s1", "你好")
	history := svc.History(context.Background(), "s1")
	require.Len(t, history, 2)
	assert.Equal(t, "你好", history[0].Content)
	assert.Equal(t, "好的。", history[1].Content)
}

// TestChatBackgroundPersonaUpdate 回复后记忆代理抽取的事实应异步写回画像
func TestChatBackgroundPersonaUpdate(t *testing.T) {
	coach := llm.NewMockChatModel("收到。", nil)
	memModel := llm.NewMockChatModel(`{"has_update": true, "intent": "update_skills", "data": {"skills": ["Rust"]}}`, nil)
	svc, store := newTestChatService(t, coach, NewMemoryUpdater(memModel, time.Second), nil)

	svc.Chat(context.Background(), "u1", "s1", "我最近在用Rust写服务")

	// 后台goroutine写回，轮询等待
	require.Eventually(t, func() bool {
		p, err := store.Get("u1")
		if err != nil {
			return false
		}
		for _, s := range p.Skills {
			if s == "Rust" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond, "画像应在后台被更新")
}

func TestMemoryUpdaterExtract(t *testing.T) {
	mock := llm.NewMockChatModel("```json\n{\"has_update\": true, \"intent\": \"update_goals\", \"data\": {\"goals\": [\"转型架构师\"]}}\n```", nil)
	m := NewMemoryUpdater(mock, time.Second)

	update := m.Extract(context.Background(), "我想在两年内转型架构师")
	assert.True(t, update.HasUpdate)
	assert.Equal(t, "update_goals", update.Intent)
}

// TestMemoryUpdaterFailureSafe 模型失败或意图未知时返回无更新
func TestMemoryUpdaterFailureSafe(t *testing.T) {
	m := NewMemoryUpdater(llm.NewMockChatModel("", errors.New("timeout")), time.Second)
	update := m.Extract(context.Background(), "随便说说")
	assert.False(t, update.HasUpdate)

	m = NewMemoryUpdater(llm.NewMockChatModel(`{"has_update": true, "intent": "update_salary", "data": {}}`, nil), time.Second)
	update = m.Extract(context.Background(), "我想要涨薪")
	assert.False(t, update.HasUpdate, "未知意图应视为无更新")
}

func TestTailorAgent(t *testing.T) {
	mock := llm.NewMockChatModel(`{"tailored_summary": "资深后端工程师，专注高并发订单系统。", "suggestions": ["突出Go经验"]}`, nil)
	a := NewTailorAgent(mock, time.Second)

	result := a.Tailor(context.Background(), "画像摘要", "职位描述")
	require.NotNil(t, result)
	assert.Equal(t, "资深后端工程师，专注高并发订单系统。", result.TailoredSummary)
	assert.Equal(t, []string{"突出Go经验"}, result.Suggestions)
}

func TestTailorAgentFallback(t *testing.T) {
	a := NewTailorAgent(llm.NewMockChatModel("无法处理", nil), time.Second)
	result := a.Tailor(context.Background(), "画像摘要", "职位描述")
	require.NotNil(t, result)
	assert.NotEmpty(t, result.TailoredSummary, "解析失败时应返回兜底结果")
}

func TestCoverLetterFallback(t *testing.T) {
	a := NewCoverLetterAgent(llm.NewMockChatModel("", errors.New("timeout")), time.Second)
	letter := a.Write(context.Background(), "画像摘要", "Acme", "职位描述")
	assert.Contains(t, letter, "Acme", "兜底模板应包含公司名")
	assert.Contains(t, letter, "通用模板")
}

// 编译期确认fakeCache满足接口
var _ ResponseCache = (*fakeCache)(nil)
