package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/tracing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	chatEndpoint         = "/api/chat"
)

// --- Ollama /api/chat 请求/响应结构 ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaOptions struct {
	Temperature   float64 `json:"temperature"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type ollamaTool struct {
	Type     string             `json:"type"` // 固定为 "function"
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// OllamaChatModel 实现 model.ToolCallingChatModel 接口，
// 封装对本地Ollama推理服务 /api/chat 的调用。
// 每个实例绑定一个采样档位，档位之间只有温度等参数不同。
type OllamaChatModel struct {
	baseURL    string
	profile    config.ModelProfile
	httpClient *http.Client
	maxRetries int
	retryWait  time.Duration
	boundTools []ollamaTool
}

// NewOllamaChatModel 创建一个绑定指定档位的Ollama模型客户端
func NewOllamaChatModel(baseURL string, profile config.ModelProfile, timeout time.Duration, maxRetries int, retryWait time.Duration) (*OllamaChatModel, error) {
	if strings.TrimSpace(profile.Model) == "" {
		return nil, fmt.Errorf("模型名称不能为空")
	}

	url := strings.TrimRight(baseURL, "/")
	if url == "" {
		url = defaultOllamaBaseURL
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if retryWait <= 0 {
		retryWait = 2 * time.Second
	}

	logger.Info().
		Str("base_url", url).
		Str("model", profile.Model).
		Float64("temperature", profile.Temperature).
		Msg("初始化Ollama LLM客户端")

	return &OllamaChatModel{
		baseURL:    url,
		profile:    profile,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryWait:  retryWait,
	}, nil
}

func (o *OllamaChatModel) options() ollamaOptions {
	return ollamaOptions{
		Temperature:   o.profile.Temperature,
		RepeatPenalty: o.profile.RepeatPenalty,
		NumCtx:        o.profile.NumCtx,
	}
}

func toOllamaMessages(messages []*schema.Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		out = append(out, ollamaMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

// Generate 实现 model.ChatModel 接口，发起一次非流式推理。
// 429与5xx状态会按固定间隔重试，重试耗尽后返回最后一次错误。
func (o *OllamaChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	for _, opt := range options {
		_ = opt // 采样参数由档位决定，调用级选项暂不处理
	}

	reqPayload := ollamaChatRequest{
		Model:    o.profile.Model,
		Messages: toOllamaMessages(messages),
		Stream:   false,
		Options:  o.options(),
	}
	if len(o.boundTools) > 0 {
		reqPayload.Tools = o.boundTools
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}
	if n := len(messages); n > 0 {
		logger.Debug().
			Str("model", o.profile.Model).
			Str("prompt", tracing.SafePrompt(messages[n-1].Content)).
			Msg("发起Ollama推理请求")
	}

	var lastErr error
	for attempt := 0; attempt < o.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn().Int("attempt", attempt+1).Err(lastErr).Msg("Ollama请求重试")
			select {
			case <-time.After(o.retryWait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		msg, retryable, err := o.doGenerate(ctx, jsonData)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("Ollama请求在%d次尝试后仍失败: %w", o.maxRetries, lastErr)
}

func (o *OllamaChatModel) doGenerate(ctx context.Context, jsonData []byte) (*schema.Message, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+chatEndpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, false, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		// 网络错误视为可重试
		return nil, true, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		retryable := httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("Ollama请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var resp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, false, fmt.Errorf("反序列化Ollama响应失败: %w", err)
	}
	if resp.Error != "" {
		return nil, false, fmt.Errorf("Ollama返回错误: %s", resp.Error)
	}

	return o.toSchemaMessage(resp.Message), false, nil
}

func (o *OllamaChatModel) toSchemaMessage(m ollamaMessage) *schema.Message {
	role := m.Role
	if role == "" {
		role = "assistant"
	}
	result := &schema.Message{
		Role:    schema.RoleType(role),
		Content: m.Content,
	}
	if len(m.ToolCalls) > 0 {
		result.ToolCalls = make([]schema.ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			result.ToolCalls[i] = schema.ToolCall{
				Function: schema.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: string(tc.Function.Arguments),
				},
			}
		}
	}
	return result
}

// Stream 实现 model.ChatModel 接口，发起一次流式推理。
// Ollama以NDJSON逐行返回增量内容，转换为eino的StreamReader。
func (o *OllamaChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	for _, opt := range options {
		_ = opt
	}

	reqPayload := ollamaChatRequest{
		Model:    o.profile.Model,
		Messages: toOllamaMessages(messages),
		Stream:   true,
		Options:  o.options(),
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+chatEndpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		return nil, fmt.Errorf("Ollama流式请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	sr, sw := schema.Pipe[*schema.Message](8)

	go func() {
		defer httpResp.Body.Close()
		defer sw.Close()

		scanner := bufio.NewScanner(httpResp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				sw.Send(nil, fmt.Errorf("解析流式分块失败: %w", err))
				return
			}
			if chunk.Error != "" {
				sw.Send(nil, fmt.Errorf("Ollama返回错误: %s", chunk.Error))
				return
			}
			if chunk.Message.Content != "" {
				if closed := sw.Send(o.toSchemaMessage(chunk.Message), nil); closed {
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			sw.Send(nil, fmt.Errorf("读取流式响应失败: %w", err))
		}
	}()

	return sr, nil
}

// BindTools 实现 model.ChatModel 接口，把eino工具描述转换为Ollama的tools字段
func (o *OllamaChatModel) BindTools(tools []*schema.ToolInfo) error {
	o.boundTools = make([]ollamaTool, 0, len(tools))
	for _, toolInfo := range tools {
		if toolInfo == nil {
			continue
		}
		o.boundTools = append(o.boundTools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        toolInfo.Name,
				Description: toolInfo.Desc,
			},
		})
	}
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (o *OllamaChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := o.BindTools(tools); err != nil {
		return nil, err
	}
	return o, nil
}

var _ model.ChatModel = (*OllamaChatModel)(nil)
var _ model.ToolCallingChatModel = (*OllamaChatModel)(nil)
