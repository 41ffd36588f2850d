package persona

import (
	"testing"

	"career-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, options ...StoreOption) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), options...)
	require.NoError(t, err)
	return s
}

// TestSkillUnionCaseInsensitive 技能合并大小写不敏感去重，保留首次出现的写法
func TestSkillUnionCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	_, err := s.IngestResume("u1", &types.ResumeParseResult{Skills: []string{"Python"}})
	require.NoError(t, err)

	p, err := s.UpdateFromChat("u1", IntentUpdateSkills, map[string]any{
		"skills": []any{"python", "Go"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Python", "Go"}, p.Skills, "python与Python应视为同一技能")

	// 再次读取确认已落盘
	loaded, err := s.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "Go"}, loaded.Skills)
}

// TestIngestResumeOverwrite 简历字段有值即覆盖，无值保留原有内容
func TestIngestResumeOverwrite(t *testing.T) {
	s := newTestStore(t)

	_, err := s.IngestResume("u1", &types.ResumeParseResult{
		FullName: "Jane Doe",
		Title:    "Engineer",
		Experience: []types.Experience{
			{Role: "Engineer", Company: "Acme"},
		},
	})
	require.NoError(t, err)

	// 第二次上传只带经历，不带姓名
	p, err := s.IngestResume("u1", &types.ResumeParseResult{
		Experience: []types.Experience{
			{Role: "Senior Engineer", Company: "Beta"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", p.FullName, "缺失的字段不应清空原有值")
	require.Len(t, p.Experience, 1)
	assert.Equal(t, "Senior Engineer", p.Experience[0].Role, "经历应整体替换")
}

func TestUpdateFromChat(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateFromChat("u1", IntentUpdateGoals, map[string]any{
		"goals": []any{"成为架构师"},
	})
	require.NoError(t, err)

	p, err := s.UpdateFromChat("u1", IntentUpdatePreferences, map[string]any{
		"remote":   "yes",
		"industry": "fintech",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"成为架构师"}, p.Goals)
	assert.Equal(t, "yes", p.JobPreferences["remote"])
	assert.Equal(t, "fintech", p.JobPreferences["industry"])

	// 偏好为浅覆盖
	p, err = s.UpdateFromChat("u1", IntentUpdatePreferences, map[string]any{"remote": "no"})
	require.NoError(t, err)
	assert.Equal(t, "no", p.JobPreferences["remote"])
	assert.Equal(t, "fintech", p.JobPreferences["industry"], "未提及的偏好键应保留")
}

// TestUnknownIntentIgnored 未知意图不应写盘也不应报错
func TestUnknownIntentIgnored(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateFromChat("u1", "update_salary", map[string]any{"salary": "1M"})
	require.NoError(t, err)

	_, err = s.Get("u1")
	assert.ErrorIs(t, err, ErrNotFound, "未知意图不应创建画像文件")
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestContextForLLM 摘要应包含关键信息且技能数量有界
func TestContextForLLM(t *testing.T) {
	s := newTestStore(t, WithContextLimits(3, 2))

	skills := []string{"Go", "Python", "Docker", "Kubernetes", "Redis"}
	_, err := s.IngestResume("u1", &types.ResumeParseResult{
		FullName: "Jane Doe",
		Skills:   skills,
		Experience: []types.Experience{
			{Role: "A", Company: "X", Duration: "2018-2020"},
			{Role: "B", Company: "Y", Duration: "2020-2022"},
			{Role: "C", Company: "Z", Duration: "2022-2024"},
		},
	})
	require.NoError(t, err)

	ctx := s.ContextForLLM("u1")
	assert.Contains(t, ctx, "Jane Doe")
	assert.Contains(t, ctx, "Go, Python, Docker")
	assert.NotContains(t, ctx, "Kubernetes", "超出上限的技能不应出现在摘要里")
	assert.Contains(t, ctx, "A @ X")
	assert.NotContains(t, ctx, "C @ Z", "超出上限的经历不应出现在摘要里")

	// 无画像时返回占位说明，不报错
	assert.NotEmpty(t, s.ContextForLLM("nobody"))
}

// TestMutationHook 每次成功落盘都应触发回调
func TestMutationHook(t *testing.T) {
	var calls int
	s := newTestStore(t, WithMutationHook(func(p *types.Persona) {
		calls++
	}))

	_, err := s.IngestResume("u1", &types.ResumeParseResult{FullName: "Jane"})
	require.NoError(t, err)
	_, err = s.UpdateFromChat("u1", IntentUpdateSkills, map[string]any{"skills": []any{"Go"}})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestMergeManualEdit(t *testing.T) {
	s := newTestStore(t)

	_, err := s.IngestResume("u1", &types.ResumeParseResult{FullName: "Jane", Skills: []string{"Go"}})
	require.NoError(t, err)

	p, err := s.Merge("u1", &types.Persona{
		Title:  "Staff Engineer",
		Skills: []string{"go", "Rust"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Jane", p.FullName)
	assert.Equal(t, "Staff Engineer", p.Title)
	assert.Equal(t, []string{"Go", "Rust"}, p.Skills)
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	_, err := s.IngestResume("alice", &types.ResumeParseResult{FullName: "Alice"})
	require.NoError(t, err)
	_, err = s.IngestResume("bob", &types.ResumeParseResult{FullName: "Bob"})
	require.NoError(t, err)

	users, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, users)
}
