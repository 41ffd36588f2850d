package handler_test

import (
	"encoding/json"
	"testing"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/llm"
	"career-agent-go/internal/persona"
	"career-agent-go/internal/scoring"
	"career-agent-go/internal/types"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCareerEngine(t *testing.T) (*route.Engine, *persona.Store) {
	t.Helper()
	personas, err := persona.NewStore(t.TempDir())
	require.NoError(t, err)

	// 路径预测不配模型，走确定性规则；求职信用故障模型验证兜底
	pathAgent := agent.NewCareerPathAgent(nil, time.Second)
	coverLetter := agent.NewCoverLetterAgent(llm.NewMockChatModel("", assert.AnError), time.Second)

	h := handler.NewCareerHandler(personas, pathAgent, coverLetter, nil)
	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	engine.POST("/api/v1/career/predict-path", h.HandlePredictPath)
	engine.POST("/api/v1/career/cover-letter", h.HandleCoverLetter)
	engine.GET("/api/v1/advisor/nudges/:user", h.HandleNudges)
	engine.GET("/api/v1/analytics/dashboard/:user", h.HandleDashboard)
	engine.POST("/api/v1/applications/events", h.HandleRecordEvent)
	engine.POST("/api/v1/jobs", h.HandleUpsertJob)
	return engine, personas
}

func TestHandlePredictPathByRules(t *testing.T) {
	engine, personas := newCareerEngine(t)
	_, err := personas.Merge("u1", &types.Persona{
		FullName: "张三",
		Title:    "资深后端工程师",
		Skills:   []string{"Go", "MySQL"},
		Experience: []types.Experience{
			{Role: "工程师", Company: "A"},
			{Role: "高级工程师", Company: "B"},
		},
	})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/career/predict-path", handler.PredictPathRequest{UserID: "u1"})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var path scoring.CareerPath
	require.NoError(t, json.Unmarshal(resp.Body(), &path))
	assert.Equal(t, "senior", path.CurrentLevel)
	assert.NotEmpty(t, path.NextRoles)
	assert.NotEmpty(t, path.Timeline)
}

func TestHandlePredictPathPersonaNotFound(t *testing.T) {
	engine, _ := newCareerEngine(t)
	w := performJSON(t, engine, "POST", "/api/v1/career/predict-path", handler.PredictPathRequest{UserID: "nobody"})
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestHandleNudges(t *testing.T) {
	engine, personas := newCareerEngine(t)
	// 画像缺口越多提醒越多，这里只给姓名
	_, err := personas.Merge("u1", &types.Persona{FullName: "张三"})
	require.NoError(t, err)

	w := performJSON(t, engine, "GET", "/api/v1/advisor/nudges/u1", nil)
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var body struct {
		Nudges []scoring.Nudge `json:"nudges"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.NotEmpty(t, body.Nudges, "空画像应产生补全提醒")
}

func TestHandleCoverLetterFallback(t *testing.T) {
	engine, personas := newCareerEngine(t)
	_, err := personas.Merge("u1", &types.Persona{FullName: "张三", Skills: []string{"Go"}})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/career/cover-letter", handler.CoverLetterRequest{
		UserID:         "u1",
		Company:        "Acme",
		JobDescription: "负责Go微服务开发",
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var body struct {
		CoverLetter string `json:"cover_letter"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.NotEmpty(t, body.CoverLetter)
	assert.Contains(t, body.CoverLetter, "Acme", "兜底求职信应代入公司名")
}

func TestHandleAnalyticsWithoutMySQL(t *testing.T) {
	engine, _ := newCareerEngine(t)

	w := performJSON(t, engine, "GET", "/api/v1/analytics/dashboard/u1", nil)
	assert.Equal(t, 503, w.Result().StatusCode())

	w = performJSON(t, engine, "POST", "/api/v1/applications/events", handler.RecordEventRequest{
		UserID:    "u1",
		EventType: "applied",
	})
	assert.Equal(t, 503, w.Result().StatusCode())

	w = performJSON(t, engine, "POST", "/api/v1/jobs", handler.UpsertJobRequest{
		Job: types.JobSpec{Title: "Go工程师"},
	})
	assert.Equal(t, 503, w.Result().StatusCode())
}
