package agent

import (
	"context"
	"fmt"
	"time"

	"career-agent-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 各代理的系统提示词。统一形状：画像上下文 + 任务指令。
var coachSystemPrompts = map[string]string{
	AgentProfile:   "你是一位职业发展顾问。基于用户画像给出具体、可执行的职业建议，语气友好，不要编造用户没有的经历。",
	AgentResume:    "你是一位简历优化顾问。针对用户的简历内容和提问给出改进建议，指出表达、量化和结构上的问题。",
	AgentJobSearch: "你是一位求职策略顾问。结合用户画像给出找工作的渠道、节奏和定位建议。",
	AgentLearning:  "你是一位学习路径顾问。根据用户的技能和目标推荐学习内容、课程方向和认证。",
	AgentSkillsGap: "你是一位技能差距分析顾问。对比用户现有技能与目标方向，指出缺口并给出补齐顺序。",
}

// 模型不可用时按代理返回的兜底话术
var coachFallbacks = map[string]string{
	AgentProfile:   "目前无法生成个性化建议。通用建议：保持画像信息完整（技能、经历、目标），这会让后续所有分析更准确。",
	AgentResume:    "目前无法生成简历建议。通用建议：每段经历用动词开头、带量化结果，技能按与目标岗位的相关度排序。",
	AgentJobSearch: "目前无法生成求职建议。通用建议：每周固定投递节奏，优先内推渠道，记录每次申请的状态。",
	AgentLearning:  "目前无法生成学习建议。通用建议：优先补齐目标岗位JD中高频出现而你尚未掌握的技能。",
	AgentSkillsGap: "目前无法生成差距分析。通用建议：找三份目标岗位JD，把要求的技能和你的技能清单逐项对比。",
}

// CoachAgent 自由文本建议代理，覆盖全部五个路由标签。
// 输出直接透传给用户，不经过JSON提取。
type CoachAgent struct {
	model   model.ToolCallingChatModel
	timeout time.Duration
}

// NewCoachAgent 创建建议代理
func NewCoachAgent(chatModel model.ToolCallingChatModel, timeout time.Duration) *CoachAgent {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CoachAgent{model: chatModel, timeout: timeout}
}

// BuildMessages 组装一次建议调用的消息列表
func (a *CoachAgent) BuildMessages(agentLabel, personaContext string, history []*schema.Message, userMessage string) []*schema.Message {
	system, ok := coachSystemPrompts[agentLabel]
	if !ok {
		system = coachSystemPrompts[AgentProfile]
	}

	messages := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf("%s\n\n用户画像：\n%s", system, personaContext)),
	}
	messages = append(messages, history...)
	messages = append(messages, schema.UserMessage(userMessage))
	return messages
}

// Reply 生成一条建议回复，永不返回错误。
// 模型失败时返回该代理的兜底话术，第二个返回值为false，
// 调用方据此跳过缓存等只对真实回复生效的处理。
func (a *CoachAgent) Reply(ctx context.Context, agentLabel, personaContext string, history []*schema.Message, userMessage string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.model.Generate(ctx, a.BuildMessages(agentLabel, personaContext, history, userMessage))
	if err != nil {
		logger.Warn().Err(err).Str("agent", agentLabel).Msg("建议代理调用LLM失败，返回兜底话术")
		return Fallback(agentLabel), false
	}
	return reply.Content, true
}

// Stream 以流式方式生成建议回复。调用失败返回错误，由SSE层转换为error帧。
func (a *CoachAgent) Stream(ctx context.Context, agentLabel, personaContext string, history []*schema.Message, userMessage string) (*schema.StreamReader[*schema.Message], error) {
	return a.model.Stream(ctx, a.BuildMessages(agentLabel, personaContext, history, userMessage))
}

// Fallback 返回指定代理的兜底话术
func Fallback(agentLabel string) string {
	if fb, ok := coachFallbacks[agentLabel]; ok {
		return fb
	}
	return coachFallbacks[AgentProfile]
}
