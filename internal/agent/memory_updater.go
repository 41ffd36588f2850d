package agent

import (
	"context"
	"fmt"
	"time"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/parser"
	"career-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const memoryPromptTemplate = `你是一个画像维护器。判断用户消息里是否包含应写入长期画像的事实。
只识别三类意图：
- update_goals: 用户提到了新的职业目标，data里放 {"goals": ["..."]}
- update_skills: 用户提到了自己掌握的新技能，data里放 {"skills": ["..."]}
- update_preferences: 用户提到了求职偏好（地点、远程、行业、薪资等），data里放键值对

严格按如下JSON格式输出，没有可写入的事实时 has_update 为 false：
{"has_update": true, "intent": "update_skills", "data": {"skills": ["Go"]}}

用户消息：%s`

// MemoryUpdater 记忆代理：每轮对话后判断是否有需要写回画像的事实。
// 唯一输出是 MemoryUpdate，模型失败时返回 has_update=false，永不报错。
type MemoryUpdater struct {
	model   model.ToolCallingChatModel
	timeout time.Duration
}

// NewMemoryUpdater 创建记忆代理
func NewMemoryUpdater(chatModel model.ToolCallingChatModel, timeout time.Duration) *MemoryUpdater {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &MemoryUpdater{model: chatModel, timeout: timeout}
}

// Extract 从用户消息中抽取画像更新
func (m *MemoryUpdater) Extract(ctx context.Context, userMessage string) types.MemoryUpdate {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	reply, err := m.model.Generate(ctx, []*schema.Message{
		schema.UserMessage(fmt.Sprintf(memoryPromptTemplate, userMessage)),
	})
	if err != nil {
		logger.Debug().Err(err).Msg("记忆代理调用LLM失败，本轮不更新画像")
		return types.MemoryUpdate{}
	}

	var update types.MemoryUpdate
	if err := parser.ExtractInto(reply.Content, &update); err != nil {
		logger.Debug().Err(err).Msg("记忆代理输出无法解析，本轮不更新画像")
		return types.MemoryUpdate{}
	}

	// 意图不在已知集合内时视为无更新
	switch update.Intent {
	case "update_goals", "update_skills", "update_preferences":
	default:
		if update.HasUpdate {
			logger.Debug().Str("intent", update.Intent).Msg("记忆代理返回未知意图，忽略")
		}
		return types.MemoryUpdate{}
	}
	return update
}
