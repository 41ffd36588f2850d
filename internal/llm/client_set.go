package llm

import (
	"fmt"
	"time"

	"career-agent-go/internal/config"

	"github.com/cloudwego/eino/components/model"
)

// ClientSet 按档位预构建的模型客户端集合，应用启动时创建一次并注入各组件
type ClientSet struct {
	cfg    *config.Config
	models map[string]model.ToolCallingChatModel
}

// NewClientSet 为配置中的每个档位构建一个客户端。
// 配置了qpm时所有档位共享一个令牌桶，避免打满本地推理服务。
func NewClientSet(cfg *config.Config) (*ClientSet, error) {
	timeout := config.GetDuration(cfg.Ollama.RequestTimeout, 60*time.Second)
	retryWait := time.Duration(cfg.Ollama.RetryWaitSeconds) * time.Second

	var bucket *tokenBucket
	if cfg.Ollama.QPM > 0 {
		bucket = newTokenBucket(cfg.Ollama.QPM)
	}

	models := make(map[string]model.ToolCallingChatModel, len(cfg.Ollama.Profiles))
	for name := range cfg.Ollama.Profiles {
		m, err := NewOllamaChatModel(cfg.Ollama.BaseURL, cfg.GetProfile(name), timeout, cfg.Ollama.MaxRetries, retryWait)
		if err != nil {
			return nil, fmt.Errorf("构建档位'%s'的模型客户端失败: %w", name, err)
		}
		models[name] = withRateLimit(m, bucket)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("配置中没有任何模型档位")
	}

	return &ClientSet{cfg: cfg, models: models}, nil
}

// ForProfile 返回指定档位的客户端，未知档位回退到fast
func (s *ClientSet) ForProfile(name string) model.ToolCallingChatModel {
	if m, ok := s.models[name]; ok {
		return m
	}
	if m, ok := s.models["fast"]; ok {
		return m
	}
	// 取任意一个，构造时已保证非空
	for _, m := range s.models {
		return m
	}
	return nil
}

// ForAgent 返回某个代理任务应使用的客户端
func (s *ClientSet) ForAgent(agentName string) model.ToolCallingChatModel {
	return s.ForProfile(s.cfg.GetProfileForAgent(agentName))
}
