package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"career-agent-go/internal/llm"

	"github.com/stretchr/testify/assert"
)

// TestRouteKeywordFirst "review my resume" 无论是否混有其他关键词都应归到resume
func TestRouteKeywordFirst(t *testing.T) {
	r := NewRouter(nil, time.Second)

	cases := []struct {
		message string
		want    string
	}{
		{"please review my resume", AgentResume},
		{"review my resume before I apply for this job", AgentResume}, // resume规则先于job规则
		{"can you review my CV", AgentResume},
		{"help me find a job", AgentJobSearch},
		{"what course should I take", AgentLearning},
		{"what skills am I missing", AgentSkillsGap},
	}

	for _, tc := range cases {
		got := r.Route(context.Background(), tc.message)
		assert.Equal(t, tc.want, got, "消息: %s", tc.message)
	}
}

// TestRouteLLMFallback 无关键词时交给LLM闭集分类
func TestRouteLLMFallback(t *testing.T) {
	mock := llm.NewMockChatModel("learning", nil)
	r := NewRouter(mock, time.Second)

	got := r.Route(context.Background(), "我下一步该怎么提升自己")
	assert.Equal(t, AgentLearning, got)
	assert.NotEmpty(t, mock.GetReceivedMessages(), "应该调用了LLM")
}

// TestRouteLLMLabelNormalization 模型输出带引号、大写、句号时应归一化
func TestRouteLLMLabelNormalization(t *testing.T) {
	cases := []string{`"skills_gap"`, "Skills_Gap。", "  SKILLS_GAP\n", "skills gap"}
	for _, reply := range cases {
		mock := llm.NewMockChatModel(reply, nil)
		r := NewRouter(mock, time.Second)
		got := r.Route(context.Background(), "我该怎么办")
		assert.Equal(t, AgentSkillsGap, got, "模型输出: %q", reply)
	}
}

// TestRouteLLMInvalidLabel 非法标签时对模型回答再跑关键词
func TestRouteLLMInvalidLabel(t *testing.T) {
	mock := llm.NewMockChatModel("我认为这个问题和course学习规划有关", nil)
	r := NewRouter(mock, time.Second)

	got := r.Route(context.Background(), "怎么安排接下来的半年")
	assert.Equal(t, AgentLearning, got)
}

// TestRouteModelErrorDefault 无关键词且模型不可用时兜底profile
func TestRouteModelErrorDefault(t *testing.T) {
	mock := llm.NewMockChatModel("", errors.New("connection refused"))
	r := NewRouter(mock, time.Second)

	got := r.Route(context.Background(), "随便聊聊")
	assert.Equal(t, AgentProfile, got)
}

// TestRouteNoModelDefault 纯关键词模式下无命中兜底profile
func TestRouteNoModelDefault(t *testing.T) {
	r := NewRouter(nil, time.Second)
	got := r.Route(context.Background(), "你好")
	assert.Equal(t, AgentProfile, got)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "profile", normalizeLabel(`"Profile".`))
	assert.Equal(t, "job_search", normalizeLabel("job search"))
	assert.Equal(t, "resume", normalizeLabel("  RESUME\n"))
}
