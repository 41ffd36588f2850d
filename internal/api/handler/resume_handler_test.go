package handler_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/llm"
	"career-agent-go/internal/parser"
	"career-agent-go/internal/persona"
	"career-agent-go/internal/types"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plaintextResume = `Jane Doe
Senior Software Engineer

About
资深后端工程师，专注高并发系统。

Skills
Python, Docker, Kubernetes

Experience
Senior Engineer at Acme (2019-2024)
`

func newResumeEngine(t *testing.T) (*route.Engine, *persona.Store) {
	t.Helper()
	personas, err := persona.NewStore(t.TempDir())
	require.NoError(t, err)

	extractor, err := parser.NewTextExtractor(context.Background())
	require.NoError(t, err)

	// LLM故障，定制走兜底结果
	tailorAgent := agent.NewTailorAgent(llm.NewMockChatModel("", assert.AnError), time.Second)

	h := handler.NewResumeHandler(personas, extractor, nil, tailorAgent, nil)
	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	engine.POST("/api/v1/resume/draft", h.HandleDraft)
	engine.POST("/api/v1/resume/tailor", h.HandleTailor)
	engine.GET("/api/v1/resume/sessions/:user", h.HandleListSessions)
	engine.GET("/api/v1/resume/archive-link", h.HandleArchiveLink)
	engine.POST("/api/v1/resume/generate", h.HandleGenerate)
	engine.GET("/api/v1/persona/:user", h.HandleGetPersona)
	engine.PUT("/api/v1/persona/:user", h.HandleUpdatePersona)
	return engine, personas
}

func TestHandleDraftFromPlaintext(t *testing.T) {
	engine, _ := newResumeEngine(t)

	w := performJSON(t, engine, "POST", "/api/v1/resume/draft", handler.DraftRequest{
		UserID: "jane",
		Text:   plaintextResume,
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var p types.Persona
	require.NoError(t, json.Unmarshal(resp.Body(), &p))
	assert.Equal(t, "Jane Doe", p.FullName)
	assert.Equal(t, "Senior Software Engineer", p.Title)
	assert.Contains(t, p.Skills, "Python")
	assert.Contains(t, p.Skills, "Docker")
	require.Len(t, p.Experience, 1)
	assert.Equal(t, "Acme", p.Experience[0].Company)
}

func TestHandleDraftRequiresTextOrPersona(t *testing.T) {
	engine, _ := newResumeEngine(t)
	w := performJSON(t, engine, "POST", "/api/v1/resume/draft", handler.DraftRequest{UserID: "jane"})
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestHandlePersonaGetAndUpdate(t *testing.T) {
	engine, personas := newResumeEngine(t)
	_, err := personas.Merge("u1", &types.Persona{FullName: "张三", Skills: []string{"Go"}})
	require.NoError(t, err)

	w := performJSON(t, engine, "PUT", "/api/v1/persona/u1", types.Persona{
		Title:  "后端工程师",
		Skills: []string{"go", "Redis"},
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var p types.Persona
	require.NoError(t, json.Unmarshal(resp.Body(), &p))
	assert.Equal(t, "张三", p.FullName)
	assert.Equal(t, "后端工程师", p.Title)
	// 大小写不敏感去重，保留首次出现的写法
	assert.Equal(t, []string{"Go", "Redis"}, p.Skills)

	w = performJSON(t, engine, "GET", "/api/v1/persona/missing", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestHandleTailorFallback(t *testing.T) {
	engine, personas := newResumeEngine(t)
	_, err := personas.Merge("u1", &types.Persona{FullName: "张三", Skills: []string{"Go"}})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/resume/tailor", handler.TailorRequest{
		UserID:         "u1",
		JobDescription: "负责高并发Go服务的设计与开发",
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var session types.TailorSession
	require.NoError(t, json.Unmarshal(resp.Body(), &session))
	assert.Equal(t, "u1", session.UserID)
	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, session.TailoredSummary, "LLM失败时应返回兜底定制结果")
	assert.NotEmpty(t, session.Suggestions)
}

func TestHandleListSessionsWithoutRedis(t *testing.T) {
	engine, _ := newResumeEngine(t)
	w := performJSON(t, engine, "GET", "/api/v1/resume/sessions/u1", nil)
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "sessions")
}

func TestHandleArchiveLinkWithoutMinIO(t *testing.T) {
	engine, _ := newResumeEngine(t)
	w := performJSON(t, engine, "GET", "/api/v1/resume/archive-link?object_key=resumes/u1/x.pdf", nil)
	assert.Equal(t, 503, w.Result().StatusCode())
}

func TestHandleGeneratePDF(t *testing.T) {
	engine, personas := newResumeEngine(t)
	_, err := personas.Merge("u1", &types.Persona{
		FullName: "Jane Doe",
		Title:    "Senior Engineer",
		Skills:   []string{"Go", "Docker"},
		Experience: []types.Experience{
			{Role: "Engineer", Company: "Acme", Duration: "2019-2024"},
		},
	})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/resume/generate", handler.GenerateRequest{
		UserID:   "u1",
		Format:   "pdf",
		Template: "professional",
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())
	assert.True(t, strings.HasPrefix(string(resp.Body()), "%PDF"))
}

func TestHandleGenerateEmptyPersona(t *testing.T) {
	engine, personas := newResumeEngine(t)
	// 空画像没有可渲染内容，渲染应拒绝
	_, err := personas.Merge("u1", &types.Persona{})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/resume/generate", handler.GenerateRequest{
		UserID: "u1",
		Format: "pdf",
	})
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestHandleGenerateBadFormat(t *testing.T) {
	engine, personas := newResumeEngine(t)
	_, err := personas.Merge("u1", &types.Persona{FullName: "张三", Skills: []string{"Go"}})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/resume/generate", handler.GenerateRequest{
		UserID: "u1",
		Format: "xls",
	})
	assert.Equal(t, 400, w.Result().StatusCode())
}
