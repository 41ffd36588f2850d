package agent

import (
	"context"
	"fmt"
	"time"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/parser"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const tailorPromptTemplate = `你是一位简历定制专家。根据目标职位描述改写候选人的个人概述，并列出针对该职位的修改建议。
严格按如下JSON格式输出，不要输出任何其他内容：
{
  "tailored_summary": "改写后的个人概述",
  "suggestions": ["建议1", "建议2"]
}

候选人画像：
%s

目标职位描述：
%s`

// TailorResult 简历定制代理的结构化输出
type TailorResult struct {
	TailoredSummary string   `json:"tailored_summary"`
	Suggestions     []string `json:"suggestions"`
}

// TailorAgent 按目标职位改写画像概述的代理
type TailorAgent struct {
	model   model.ToolCallingChatModel
	timeout time.Duration
}

// NewTailorAgent 创建简历定制代理
func NewTailorAgent(chatModel model.ToolCallingChatModel, timeout time.Duration) *TailorAgent {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TailorAgent{model: chatModel, timeout: timeout}
}

// Tailor 生成定制结果。模型失败或输出无法解析时返回固定兜底，永不返回错误。
func (a *TailorAgent) Tailor(ctx context.Context, personaContext, jobDescription string) *TailorResult {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(tailorPromptTemplate, personaContext, jobDescription)
	reply, err := a.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		logger.Warn().Err(err).Msg("简历定制调用LLM失败，返回兜底结果")
		return tailorFallback()
	}

	var result TailorResult
	if err := parser.ExtractInto(reply.Content, &result); err != nil {
		logger.Warn().Err(err).Msg("简历定制输出无法解析，返回兜底结果")
		return tailorFallback()
	}
	if result.TailoredSummary == "" {
		return tailorFallback()
	}
	return &result
}

func tailorFallback() *TailorResult {
	return &TailorResult{
		TailoredSummary: "（自动定制暂不可用）请在概述中突出与目标职位最相关的2-3项技能和成果，并复用职位描述中的关键词。",
		Suggestions: []string{
			"把职位描述中出现的关键技能移到技能列表前列",
			"为每段相关经历补充量化结果",
		},
	}
}
