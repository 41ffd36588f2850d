package handler_test

import (
	"encoding/json"
	"testing"

	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/interview"
	"career-agent-go/internal/llm"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInterviewEngine(t *testing.T) *route.Engine {
	t.Helper()
	// LLM故障，出题和评分都走内置兜底
	eng := interview.NewEngine(llm.NewMockChatModel("", assert.AnError), nil)
	h := handler.NewInterviewHandler(eng)

	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	engine.POST("/api/v1/interview/start", h.HandleStart)
	engine.POST("/api/v1/interview/evaluate", h.HandleEvaluate)
	return engine
}

func TestHandleInterviewStartAndEvaluate(t *testing.T) {
	engine := newInterviewEngine(t)

	w := performJSON(t, engine, "POST", "/api/v1/interview/start", handler.InterviewStartRequest{
		UserID:     "u1",
		JobTitle:   "Go后端工程师",
		Difficulty: "medium",
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var started handler.InterviewStartResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &started))
	assert.NotEmpty(t, started.SessionID)
	assert.Equal(t, "medium", started.Difficulty)
	assert.Equal(t, 1, started.QuestionNumber)
	assert.NotEmpty(t, started.Question)
	assert.Contains(t, started.Question, "Go后端工程师", "兜底题目应代入岗位名称")
	assert.Greater(t, started.TotalQuestions, 1)

	w = performJSON(t, engine, "POST", "/api/v1/interview/evaluate", handler.InterviewEvaluateRequest{
		UserID:    "u1",
		SessionID: started.SessionID,
		Answer:    "我会先梳理需求边界，再用Go的并发原语实现核心流程。",
	})
	resp = w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var evaluated handler.InterviewEvaluateResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &evaluated))
	require.NotNil(t, evaluated.Evaluation)
	assert.False(t, evaluated.Completed)
	assert.NotEmpty(t, evaluated.NextQuestion)
	assert.Equal(t, 2, evaluated.QuestionNumber)
	assert.Equal(t, started.TotalQuestions, evaluated.TotalQuestions)
}

func TestHandleInterviewEvaluateUnknownSession(t *testing.T) {
	engine := newInterviewEngine(t)

	w := performJSON(t, engine, "POST", "/api/v1/interview/evaluate", handler.InterviewEvaluateRequest{
		UserID:    "u1",
		SessionID: "no-such-session",
		Answer:    "随便答一句",
	})
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestHandleInterviewStartMissingFields(t *testing.T) {
	engine := newInterviewEngine(t)
	w := performJSON(t, engine, "POST", "/api/v1/interview/start", handler.InterviewStartRequest{UserID: "u1"})
	assert.Equal(t, 400, w.Result().StatusCode())
}
