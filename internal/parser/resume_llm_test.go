package parser

import (
	"context"
	"errors"
	"testing"

	"career-agent-go/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResumeText = `Jane Doe
Senior Backend Engineer
jane.doe@example.com
+1 415 555 0199

Skills:
Python, Docker, Kubernetes

Experience:
Backend Engineer @ Acme Corp (2020-2023)
- 负责订单服务的重构
`

// TestParseResumeWithLLM 模型输出合法JSON时应解析为结构化结果
func TestParseResumeWithLLM(t *testing.T) {
	mock := llm.NewMockChatModel("```json\n{\"full_name\": \"Jane Doe\", \"skills\": [\"Python\", \"Docker\"]}\n```", nil)
	p, err := NewResumeLLMParser(mock)
	require.NoError(t, err)

	result := p.ParseResume(context.Background(), sampleResumeText)
	require.NotNil(t, result)

	assert.Equal(t, "Jane Doe", result.FullName)
	assert.Equal(t, []string{"Python", "Docker"}, result.Skills)
	// LLM漏掉的联系方式应被正则补齐
	assert.Equal(t, "jane.doe@example.com", result.Email)
}

// TestParseResumeLLMFailure 模型调用失败时应降级到启发式解析而不是报错
func TestParseResumeLLMFailure(t *testing.T) {
	mock := llm.NewMockChatModel("", errors.New("connection refused"))
	p, err := NewResumeLLMParser(mock)
	require.NoError(t, err)

	result := p.ParseResume(context.Background(), sampleResumeText)
	require.NotNil(t, result)

	assert.Equal(t, "Jane Doe", result.FullName)
	assert.Contains(t, result.Skills, "Python")
	assert.Contains(t, result.Skills, "Docker")
	assert.Equal(t, "jane.doe@example.com", result.Email)
}

// TestParseResumeUnparseableOutput 模型输出不是JSON时同样降级
func TestParseResumeUnparseableOutput(t *testing.T) {
	mock := llm.NewMockChatModel("抱歉，我不能输出JSON。", nil)
	p, err := NewResumeLLMParser(mock)
	require.NoError(t, err)

	result := p.ParseResume(context.Background(), sampleResumeText)
	require.NotNil(t, result)
	assert.Equal(t, "Jane Doe", result.FullName)
	assert.Contains(t, result.Skills, "Kubernetes")
}

func TestParsePlaintextProfile(t *testing.T) {
	result := ParsePlaintextProfile(sampleResumeText)

	assert.Equal(t, "Jane Doe", result.FullName)
	assert.Equal(t, "Senior Backend Engineer", result.Title)
	assert.Equal(t, "jane.doe@example.com", result.Email)
	assert.Equal(t, []string{"Python", "Docker", "Kubernetes"}, result.Skills)

	require.Len(t, result.Experience, 1)
	assert.Equal(t, "Backend Engineer", result.Experience[0].Role)
	assert.Equal(t, "Acme Corp", result.Experience[0].Company)
	assert.Equal(t, "2020-2023", result.Experience[0].Duration)
	require.Len(t, result.Experience[0].Highlights, 1)
}

func TestParsePlaintextProfileEmpty(t *testing.T) {
	result := ParsePlaintextProfile("")
	assert.Empty(t, result.FullName)
	assert.Empty(t, result.Skills)
}
