package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromFile 验证 YAML 配置能否被成功加载并填充默认值
func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
ollama:
  base_url: "http://ollama:11434"
  model: "qwen2.5:7b"
  profiles:
    reasoning:
      temperature: 0.8
      repeat_penalty: 1.1
server:
  address: ":9090"
redis:
  address: "redis:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "无法写入临时配置文件")

	cfg, err := LoadConfig(path)
	require.NoError(t, err, "加载配置文件不应失败")

	assert.Equal(t, "http://ollama:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "qwen2.5:7b", cfg.Ollama.Model)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	// 未配置的字段应填充默认值
	assert.Equal(t, 2048, cfg.Ollama.NumCtx, "NumCtx应使用默认值")
	assert.Equal(t, "data/personas", cfg.Persona.DataDir)
}

// TestLoadConfigDefaultInTest 测试环境下找不到配置文件时应返回默认配置而不是报错
func TestLoadConfigDefaultInTest(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "qwen2.5:1.5b", cfg.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.BaseURL, "环境变量应覆盖配置")
}

func TestGetProfile(t *testing.T) {
	cfg := createDefaultConfig()

	reasoning := cfg.GetProfile("reasoning")
	assert.InDelta(t, 0.7, reasoning.Temperature, 0.001)
	assert.InDelta(t, 1.1, reasoning.RepeatPenalty, 0.001)
	assert.Equal(t, "qwen2.5:1.5b", reasoning.Model, "档位未指定模型时应继承默认模型")
	assert.Equal(t, 2048, reasoning.NumCtx)

	fast := cfg.GetProfile("fast")
	assert.InDelta(t, 0.1, fast.Temperature, 0.001)

	// 未知档位回退到fast参数
	unknown := cfg.GetProfile("no-such-profile")
	assert.InDelta(t, 0.1, unknown.Temperature, 0.001)
	assert.Equal(t, "qwen2.5:1.5b", unknown.Model)
}

func TestGetProfileForAgent(t *testing.T) {
	cfg := createDefaultConfig()

	assert.Equal(t, "fast", cfg.GetProfileForAgent("router"))
	assert.Equal(t, "fast", cfg.GetProfileForAgent("memory"))
	assert.Equal(t, "reasoning", cfg.GetProfileForAgent("cover_letter"))

	cfg.AgentProfiles = map[string]string{"cover_letter": "coding"}
	assert.Equal(t, "coding", cfg.GetProfileForAgent("cover_letter"), "显式配置应优先于默认规则")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute))
}
