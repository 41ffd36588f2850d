package agent

import (
	"context"
	"fmt"
	"time"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/parser"
	"career-agent-go/internal/scoring"
	"career-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const careerPathPromptTemplate = `你是一位职业发展顾问。基于候选人画像预测其职业发展路径。
严格按如下JSON格式输出，不要输出任何其他内容：
{
  "current_level": "junior/mid/senior/staff/manager/executive之一",
  "next_roles": ["可能的下一步职位1", "职位2"],
  "timeline": "预计时间，例如 2-4年",
  "focus_skills": ["建议重点提升的技能"]
}

候选人画像：
%s`

// CareerPathAgent 职业路径预测代理。
// LLM失败或输出无法解析时降级到确定性的规则预测。
type CareerPathAgent struct {
	model   model.ToolCallingChatModel
	timeout time.Duration
}

// NewCareerPathAgent 创建职业路径代理，chatModel允许为nil（纯规则模式）
func NewCareerPathAgent(chatModel model.ToolCallingChatModel, timeout time.Duration) *CareerPathAgent {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CareerPathAgent{model: chatModel, timeout: timeout}
}

// Predict 预测职业路径，永不返回错误
func (a *CareerPathAgent) Predict(ctx context.Context, p *types.Persona, personaContext string) *scoring.CareerPath {
	if a.model == nil {
		return scoring.PredictCareerPath(p)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(careerPathPromptTemplate, personaContext)
	reply, err := a.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		logger.Warn().Err(err).Msg("职业路径预测调用LLM失败，降级到规则预测")
		return scoring.PredictCareerPath(p)
	}

	var result scoring.CareerPath
	if err := parser.ExtractInto(reply.Content, &result); err != nil {
		logger.Warn().Err(err).Msg("职业路径预测输出无法解析，降级到规则预测")
		return scoring.PredictCareerPath(p)
	}
	if result.CurrentLevel == "" || len(result.NextRoles) == 0 {
		return scoring.PredictCareerPath(p)
	}
	return &result
}
