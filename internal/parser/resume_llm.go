package parser

import (
	"context"
	"fmt"
	"time"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 简历结构化抽取的提示模板，要求模型只输出JSON
const resumeParsePromptTemplate = `你是一个简历信息抽取器。从下面的简历文本中抽取结构化信息，严格按照如下JSON格式输出，不要输出任何其他内容：
{
  "full_name": "姓名",
  "title": "职位头衔",
  "email": "邮箱",
  "phone": "电话",
  "location": "所在地",
  "summary": "一句话概述",
  "skills": ["技能1", "技能2"],
  "experience": [{"role": "职位", "company": "公司", "duration": "起止时间", "highlights": ["要点"]}],
  "education": [{"degree": "学位", "school": "学校", "year": "年份"}]
}
缺失的字段省略即可，不要编造。

简历文本：
%s`

// ResumeLLMParser 用LLM把简历纯文本解析为结构化画像字段。
// LLM不可用或输出无法解析时降级到启发式纯文本解析，不向上抛错。
type ResumeLLMParser struct {
	model   model.ToolCallingChatModel
	timeout time.Duration
}

// ResumeLLMParserOption 解析器配置选项
type ResumeLLMParserOption func(*ResumeLLMParser)

// WithParseTimeout 配置单次解析的超时
func WithParseTimeout(d time.Duration) ResumeLLMParserOption {
	return func(p *ResumeLLMParser) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewResumeLLMParser 创建简历解析器
func NewResumeLLMParser(chatModel model.ToolCallingChatModel, options ...ResumeLLMParserOption) (*ResumeLLMParser, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("LLM模型不能为空")
	}
	p := &ResumeLLMParser{
		model:   chatModel,
		timeout: 60 * time.Second,
	}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

// ParseResume 解析简历文本。返回值永不为nil，失败时为启发式降级结果。
func (p *ResumeLLMParser) ParseResume(ctx context.Context, text string) *types.ResumeParseResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := fmt.Sprintf(resumeParsePromptTemplate, text)
	reply, err := p.model.Generate(ctx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("LLM简历解析调用失败，降级到启发式解析")
		result := ParsePlaintextProfile(text)
		return &result
	}

	var result types.ResumeParseResult
	if err := ExtractInto(reply.Content, &result); err != nil {
		logger.Warn().Err(err).Msg("LLM简历解析输出无法解析，降级到启发式解析")
		fallback := ParsePlaintextProfile(text)
		return &fallback
	}

	// LLM漏掉联系方式时用正则补齐
	if result.Email == "" {
		result.Email = emailRegex.FindString(text)
	}
	if result.Phone == "" {
		result.Phone = phoneRegex.FindString(text)
	}
	return &result
}
