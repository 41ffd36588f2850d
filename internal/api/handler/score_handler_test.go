package handler_test

import (
	"encoding/json"
	"testing"

	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/persona"
	"career-agent-go/internal/scoring"
	"career-agent-go/internal/types"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScoreEngine(t *testing.T) (*route.Engine, *persona.Store) {
	t.Helper()
	personas, err := persona.NewStore(t.TempDir())
	require.NoError(t, err)

	h := handler.NewScoreHandler(personas, nil)
	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	engine.POST("/api/v1/ats-score", h.HandleATSScore)
	engine.POST("/api/v1/match-score", h.HandleMatchScore)
	engine.POST("/api/v1/gap-analysis", h.HandleGapAnalysis)
	return engine, personas
}

func TestHandleATSScore(t *testing.T) {
	engine, _ := newScoreEngine(t)

	w := performJSON(t, engine, "POST", "/api/v1/ats-score", handler.ATSScoreRequest{
		ResumeText:     "Contact: jane@example.com\nExperience\n- Built services in Go\nEducation\nB.S.\nSkills: Go, Docker",
		JobDescription: "Looking for Go and Docker experience",
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var out scoring.ATSScore
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Greater(t, out.TotalScore, 0.0)
	assert.Len(t, out.ComponentScores, 4)
}

func TestHandleATSScoreEmptyText(t *testing.T) {
	engine, _ := newScoreEngine(t)
	w := performJSON(t, engine, "POST", "/api/v1/ats-score", handler.ATSScoreRequest{ResumeText: "   "})
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestHandleMatchScoreInlineJob(t *testing.T) {
	engine, personas := newScoreEngine(t)
	_, err := personas.Merge("u1", &types.Persona{
		Skills:   []string{"Go", "Kubernetes"},
		Location: "Remote",
	})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/match-score", handler.JobScoreRequest{
		UserID: "u1",
		Job: &types.JobSpec{
			Title:          "后端工程师",
			RequiredSkills: []string{"Go", "Kubernetes"},
			Remote:         true,
		},
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var out scoring.MatchScore
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, 100.0, out.ComponentScores["skills"])
	assert.Empty(t, out.MissingRequired)
}

func TestHandleMatchScorePersonaNotFound(t *testing.T) {
	engine, _ := newScoreEngine(t)
	w := performJSON(t, engine, "POST", "/api/v1/match-score", handler.JobScoreRequest{
		UserID: "nobody",
		Job:    &types.JobSpec{Title: "x"},
	})
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestHandleMatchScoreMissingJob(t *testing.T) {
	engine, personas := newScoreEngine(t)
	_, err := personas.Merge("u1", &types.Persona{Skills: []string{"Go"}})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/match-score", handler.JobScoreRequest{UserID: "u1"})
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestHandleGapAnalysis(t *testing.T) {
	engine, personas := newScoreEngine(t)
	_, err := personas.Merge("u1", &types.Persona{Skills: []string{"Go"}})
	require.NoError(t, err)

	w := performJSON(t, engine, "POST", "/api/v1/gap-analysis", handler.JobScoreRequest{
		UserID: "u1",
		Job: &types.JobSpec{
			Title:          "平台工程师",
			RequiredSkills: []string{"Go", "Terraform"},
		},
	})
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var out scoring.SkillGap
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, []string{"Terraform"}, out.MissingRequired)
	assert.NotEmpty(t, out.Recommendations)
}
