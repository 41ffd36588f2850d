package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"career-agent-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const coverLetterPromptTemplate = `你是一位求职信写作专家。基于候选人画像和目标职位描述，写一封不超过300字的求职信正文。
直接输出正文，不要输出任何解释。

候选人画像：
%s

目标职位描述（公司：%s）：
%s`

// 求职信生成超时或失败时的通用模板，附带说明性注记
const coverLetterFallbackTemplate = `尊敬的招聘团队：

我对贵公司%s的职位很感兴趣。我的技能和经历与该职位的要求高度相关，期待有机会进一步沟通，详细介绍我能为团队带来的价值。

此致
敬礼

（注：个性化求职信生成暂时不可用，以上为通用模板，建议发送前补充您的具体经历。）`

// CoverLetterAgent 求职信生成代理。
// 生成耗时最长，因此带独立的硬超时，超时后返回通用模板。
type CoverLetterAgent struct {
	model   model.ToolCallingChatModel
	timeout time.Duration
}

// NewCoverLetterAgent 创建求职信代理，timeout是这一步的独立硬超时
func NewCoverLetterAgent(chatModel model.ToolCallingChatModel, timeout time.Duration) *CoverLetterAgent {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &CoverLetterAgent{model: chatModel, timeout: timeout}
}

// Write 生成求职信正文。超时或失败时返回通用模板，永不返回错误。
func (a *CoverLetterAgent) Write(ctx context.Context, personaContext, company, jobDescription string) string {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(coverLetterPromptTemplate, personaContext, company, jobDescription)
	reply, err := a.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn().Dur("timeout", a.timeout).Msg("求职信生成超时，返回通用模板")
		} else {
			logger.Warn().Err(err).Msg("求职信生成失败，返回通用模板")
		}
		return fmt.Sprintf(coverLetterFallbackTemplate, company)
	}
	if reply.Content == "" {
		return fmt.Sprintf(coverLetterFallbackTemplate, company)
	}
	return reply.Content
}
