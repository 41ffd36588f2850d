package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"career-agent-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 全部代理标签，Route 的返回值保证落在这个集合内
const (
	AgentProfile   = "profile"
	AgentResume    = "resume"
	AgentJobSearch = "job_search"
	AgentLearning  = "learning"
	AgentSkillsGap = "skills_gap"
)

// AllAgents 已知代理标签的集合
var AllAgents = map[string]struct{}{
	AgentProfile:   {},
	AgentResume:    {},
	AgentJobSearch: {},
	AgentLearning:  {},
	AgentSkillsGap: {},
}

// 关键词规则按固定顺序扫描，先命中者胜出
var keywordRules = []struct {
	agent    string
	keywords []string
}{
	{AgentResume, []string{"resume", "cv", "review my", "简历"}},
	{AgentJobSearch, []string{"job", "apply", "search", "职位", "找工作"}},
	{AgentLearning, []string{"learn", "course", "certif", "学习", "课程"}},
	{AgentSkillsGap, []string{"skill gap", "skills", "gap", "missing", "技能差距"}},
}

const routerPromptTemplate = `你是一个意图分类器。把用户消息归类到下面五个标签之一：
profile, resume, job_search, learning, skills_gap

只输出标签本身，不要输出任何其他内容。

用户消息：%s`

// Router 把用户消息映射到唯一的代理标签。
// 决策顺序：关键词匹配、LLM闭集分类、对模型回答再跑关键词、
// 对原消息再跑关键词，最终兜底 profile。保证永不返回错误。
type Router struct {
	model   model.ToolCallingChatModel
	timeout time.Duration
}

// NewRouter 创建路由器，chatModel可以为nil（纯关键词模式）
func NewRouter(chatModel model.ToolCallingChatModel, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Router{model: chatModel, timeout: timeout}
}

// Route 返回消息对应的代理标签
func (r *Router) Route(ctx context.Context, message string) string {
	// 第一步：确定性关键词匹配
	if agent, ok := matchKeywords(message); ok {
		return agent
	}

	// 第二步：LLM闭集分类
	if r.model != nil {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		reply, err := r.model.Generate(ctx, []*schema.Message{
			schema.UserMessage(fmt.Sprintf(routerPromptTemplate, message)),
		})
		if err != nil {
			logger.Warn().Err(err).Msg("路由分类调用LLM失败，兜底到profile")
			return AgentProfile
		}

		label := normalizeLabel(reply.Content)
		if _, ok := AllAgents[label]; ok {
			return label
		}

		// 第三步：对模型自己的回答再跑一遍关键词
		if agent, ok := matchKeywords(reply.Content); ok {
			logger.Debug().Str("raw", reply.Content).Str("agent", agent).Msg("LLM标签无效，按其回答的关键词归类")
			return agent
		}
	}

	// 第四步：对原消息再跑关键词（与第一步等价，保持决策链完整）
	if agent, ok := matchKeywords(message); ok {
		return agent
	}
	return AgentProfile
}

func matchKeywords(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.agent, true
			}
		}
	}
	return "", false
}

// normalizeLabel 去掉模型输出里常见的引号、句号和大小写差异
func normalizeLabel(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.Trim(label, "\"'`“”‘’.,!。！ \t\n")
	label = strings.ReplaceAll(label, " ", "_")
	return label
}
