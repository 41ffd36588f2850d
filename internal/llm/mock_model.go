package llm

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义了 MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatModel 是用于测试的 model.ToolCallingChatModel 模拟实现。
// 支持固定响应和按调用顺序返回不同响应两种模式，并记录收到的消息。
type MockChatModel struct {
	ExpectedResponse string
	ExpectedError    error

	SequentialResponses []MockResponse
	ResponseIndex       int
	IsSequential        bool

	// StreamChunks 非空时 Stream 按块依次下发，否则把 Generate 结果整体作为单块
	StreamChunks []string

	ReceivedMessages []*schema.Message
}

// NewMockChatModel 创建一个返回固定响应的模拟模型
func NewMockChatModel(expectedResponse string, expectedError error) *MockChatModel {
	return &MockChatModel{
		ExpectedResponse: expectedResponse,
		ExpectedError:    expectedError,
		ReceivedMessages: make([]*schema.Message, 0),
	}
}

// NewMockChatModelSequential 创建一个按顺序返回不同响应的模拟模型
func NewMockChatModelSequential(responses []MockResponse) *MockChatModel {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("模拟模型未配置任何响应")}}
	}
	return &MockChatModel{
		SequentialResponses: responses,
		IsSequential:        true,
		ReceivedMessages:    make([]*schema.Message, 0),
	}
}

func (m *MockChatModel) record(input []*schema.Message) {
	received := make([]*schema.Message, len(input))
	copy(received, input)
	m.ReceivedMessages = append(m.ReceivedMessages, received...)
}

func (m *MockChatModel) next() (string, error) {
	if m.IsSequential {
		if m.ResponseIndex >= len(m.SequentialResponses) {
			return "", errors.New("模拟模型的顺序响应已耗尽")
		}
		resp := m.SequentialResponses[m.ResponseIndex]
		m.ResponseIndex++
		return resp.Content, resp.Error
	}
	return m.ExpectedResponse, m.ExpectedError
}

// Generate 模拟 LLM 的 Generate 方法
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.record(input)
	content, err := m.next()
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

// Stream 模拟 LLM 的 Stream 方法
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.record(input)
	content, err := m.next()
	if err != nil {
		return nil, err
	}

	chunks := m.StreamChunks
	if len(chunks) == 0 {
		chunks = []string{content}
	}

	sr, sw := schema.Pipe[*schema.Message](len(chunks))
	go func() {
		defer sw.Close()
		for _, c := range chunks {
			if closed := sw.Send(schema.AssistantMessage(c, nil), nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

// BindTools 模拟绑定工具的方法
func (m *MockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// GetReceivedMessages 返回所有调用中累积的已接收消息
func (m *MockChatModel) GetReceivedMessages() []*schema.Message {
	return m.ReceivedMessages
}

var _ model.ToolCallingChatModel = (*MockChatModel)(nil)
