package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWithLLMQuestions(t *testing.T) {
	mock := llm.NewMockChatModel(`["问题一", "问题二", "问题三"]`, nil)
	engine := NewEngine(mock, nil)

	session, err := engine.Start(context.Background(), "u1", "后端工程师", "medium")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, []string{"问题一", "问题二", "问题三"}, session.Questions)
	assert.Equal(t, "问题一", session.CurrentQuestion())
	assert.False(t, session.Completed)
}

func TestStartFallbackOnModelError(t *testing.T) {
	mock := llm.NewMockChatModel("", errors.New("连接失败"))
	engine := NewEngine(mock, nil)

	session, err := engine.Start(context.Background(), "u1", "后端工程师", "hard")
	require.NoError(t, err, "模型失败时应回退题库而不是报错")
	assert.Len(t, session.Questions, constants.MaxInterviewQuestions)
	assert.Contains(t, session.Questions[0], "后端工程师", "题库问题应填入岗位名称")
}

func TestStartFallbackOnUnparseableOutput(t *testing.T) {
	mock := llm.NewMockChatModel("好的，我来出题：第一题是……", nil)
	engine := NewEngine(mock, nil)

	session, err := engine.Start(context.Background(), "u1", "", "easy")
	require.NoError(t, err)
	assert.Len(t, session.Questions, constants.MaxInterviewQuestions)
}

func TestStartCapsQuestionCount(t *testing.T) {
	// 模型超量出题时截断到上限
	many := `["q1","q2","q3","q4","q5","q6","q7","q8","q9","q10","q11","q12"]`
	mock := llm.NewMockChatModel(many, nil)
	engine := NewEngine(mock, nil)

	session, err := engine.Start(context.Background(), "u1", "工程师", "medium")
	require.NoError(t, err)
	assert.Len(t, session.Questions, constants.MaxInterviewQuestions)
}

func TestEvaluateAdvancesSession(t *testing.T) {
	mock := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Content: `["问题一", "问题二"]`},
		{Content: `{"score": 8, "strengths": ["思路清晰"], "improvements": ["可以更具体"]}`},
	})
	engine := NewEngine(mock, nil)

	session, err := engine.Start(context.Background(), "u1", "工程师", "medium")
	require.NoError(t, err)

	eval, updated, err := engine.Evaluate(context.Background(), "u1", session.ID, "我的回答")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, eval.Score, 0.01)
	assert.Equal(t, "问题一", eval.Question)
	assert.Equal(t, []string{"思路清晰"}, eval.Strengths)
	assert.Equal(t, "问题二", updated.CurrentQuestion())
	assert.False(t, updated.Completed)
}

func TestEvaluateCompletesSession(t *testing.T) {
	mock := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Content: `["唯一的问题"]`},
		{Content: `{"score": 5}`},
	})
	engine := NewEngine(mock, nil)

	session, err := engine.Start(context.Background(), "u1", "工程师", "medium")
	require.NoError(t, err)

	_, updated, err := engine.Evaluate(context.Background(), "u1", session.ID, "回答")
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Empty(t, updated.CurrentQuestion())

	// 会话结束后不再接受回答
	_, _, err = engine.Evaluate(context.Background(), "u1", session.ID, "再答一次")
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestEvaluateFallbackOnModelError(t *testing.T) {
	mock := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Content: `["问题一"]`},
		{Error: errors.New("超时")},
	})
	engine := NewEngine(mock, nil)

	session, err := engine.Start(context.Background(), "u1", "工程师", "medium")
	require.NoError(t, err)

	eval, _, err := engine.Evaluate(context.Background(), "u1", session.ID,
		"这是一个超过二十个字符的比较完整的回答内容示例")
	require.NoError(t, err, "评估失败时应兜底而不是报错")
	assert.Greater(t, eval.Score, 0.0)
	assert.NotEmpty(t, eval.Improvements)
}

func TestEvaluateClampsScore(t *testing.T) {
	mock := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Content: `["问题一"]`},
		{Content: `{"score": 99}`},
	})
	engine := NewEngine(mock, nil)

	session, err := engine.Start(context.Background(), "u1", "工程师", "medium")
	require.NoError(t, err)

	eval, _, err := engine.Evaluate(context.Background(), "u1", session.ID, "回答")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, eval.Score, 0.01, "超出范围的分数应被夹到0-10")
}

func TestLoadRejectsWrongUser(t *testing.T) {
	engine := NewEngine(nil, nil)

	session, err := engine.Start(context.Background(), "u1", "工程师", "medium")
	require.NoError(t, err)

	_, err = engine.Load(context.Background(), "u2", session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "其他用户不能读取会话")
}

func TestAverageScore(t *testing.T) {
	s := &Session{Evaluations: []AnswerEval{{Score: 6}, {Score: 8}}}
	assert.InDelta(t, 7.0, s.AverageScore(), 0.01)
	assert.Zero(t, (&Session{}).AverageScore())
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	err := store.SaveSession(context.Background(), "k", &Session{ID: "s1"}, -time.Second)
	require.NoError(t, err)

	var out Session
	err = store.LoadSession(context.Background(), "k", &out)
	assert.ErrorIs(t, err, ErrSessionNotFound, "已过期的会话不应可读")
}

func TestNormalizeDifficulty(t *testing.T) {
	assert.Equal(t, DifficultyEasy, normalizeDifficulty("EASY"))
	assert.Equal(t, DifficultyEasy, normalizeDifficulty("简单"))
	assert.Equal(t, DifficultyHard, normalizeDifficulty("hard"))
	assert.Equal(t, DifficultyMedium, normalizeDifficulty(""))
	assert.Equal(t, DifficultyMedium, normalizeDifficulty("随便"))
}
