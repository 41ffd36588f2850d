package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/parser"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("面试会话不存在或已过期")
	// ErrSessionCompleted 会话已结束，不再接受回答
	ErrSessionCompleted = errors.New("面试会话已结束")
)

// 难度档位
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Session 一场模拟面试的完整状态，JSON序列化后存入会话存储
type Session struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	JobTitle     string       `json:"job_title"`
	Difficulty   string       `json:"difficulty"`
	Questions    []string     `json:"questions"`
	Evaluations  []AnswerEval `json:"evaluations"`
	CurrentIndex int          `json:"current_index"`
	Completed    bool         `json:"completed"`
	CreatedAt    time.Time    `json:"created_at"`
}

// AnswerEval 单个回答的评估结果
type AnswerEval struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Score        float64  `json:"score"` // 0-10
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

// CurrentQuestion 返回待回答的问题，会话结束时返回空串
func (s *Session) CurrentQuestion() string {
	if s.Completed || s.CurrentIndex >= len(s.Questions) {
		return ""
	}
	return s.Questions[s.CurrentIndex]
}

// AverageScore 已答题目的平均分
func (s *Session) AverageScore() float64 {
	if len(s.Evaluations) == 0 {
		return 0
	}
	var total float64
	for _, e := range s.Evaluations {
		total += e.Score
	}
	return total / float64(len(s.Evaluations))
}

// 题目生成提示词：要求严格输出字符串数组
const questionsPromptTemplate = `你是一名资深技术面试官。请为候选人生成一组「%s」岗位的面试问题，难度为%s。

要求：
1. 生成%d个问题，由浅入深
2. 问题要具体可回答，避免空泛
3. 严格按以下JSON格式输出，不要输出任何其他内容：
["问题1", "问题2", ...]`

// 回答评估提示词
const evaluationPromptTemplate = `你是一名资深技术面试官，正在评估候选人的回答。

面试问题：%s

候选人回答：%s

请从准确性、深度、表达三方面评估，严格按以下JSON格式输出：
{
  "score": 0到10的数字,
  "strengths": ["亮点1"],
  "improvements": ["改进建议1"]
}`

// Engine 模拟面试引擎。题目生成和回答评估走LLM，
// 模型不可用或输出不可解析时退化为内置题库和确定性评估。
type Engine struct {
	model   model.ToolCallingChatModel
	store   SessionStore
	timeout time.Duration
}

// EngineOption Engine的配置选项
type EngineOption func(*Engine)

// WithEngineTimeout 设置单次模型调用的超时
func WithEngineTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// NewEngine 创建面试引擎。chatModel可以为nil（纯题库模式），
// store为nil时使用进程内存储。
func NewEngine(chatModel model.ToolCallingChatModel, store SessionStore, opts ...EngineOption) *Engine {
	if store == nil {
		store = NewMemorySessionStore()
	}
	e := &Engine{
		model:   chatModel,
		store:   store,
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start 开启一场新面试并返回第一个问题
func (e *Engine) Start(ctx context.Context, userID, jobTitle, difficulty string) (*Session, error) {
	difficulty = normalizeDifficulty(difficulty)
	if strings.TrimSpace(jobTitle) == "" {
		jobTitle = "软件工程师"
	}

	session := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		JobTitle:   jobTitle,
		Difficulty: difficulty,
		Questions:  e.generateQuestions(ctx, jobTitle, difficulty),
		CreatedAt:  time.Now(),
	}

	if err := e.store.SaveSession(ctx, sessionKey(session.ID), session, constants.SessionTTL); err != nil {
		return nil, fmt.Errorf("保存面试会话失败: %w", err)
	}

	logger.Info().
		Str("user_id", userID).
		Str("session_id", session.ID).
		Str("difficulty", difficulty).
		Int("question_count", len(session.Questions)).
		Msg("面试会话已创建")
	return session, nil
}

// Load 读取已有会话，userID不匹配时视为不存在
func (e *Engine) Load(ctx context.Context, userID, sessionID string) (*Session, error) {
	var session Session
	if err := e.store.LoadSession(ctx, sessionKey(sessionID), &session); err != nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Evaluate 评估当前问题的回答并推进会话。
// 返回本题评估和更新后的会话（含下一个问题）。
func (e *Engine) Evaluate(ctx context.Context, userID, sessionID, answer string) (*AnswerEval, *Session, error) {
	session, err := e.Load(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.Completed {
		return nil, nil, ErrSessionCompleted
	}

	question := session.CurrentQuestion()
	eval := e.evaluateAnswer(ctx, question, answer)
	eval.Question = question
	eval.Answer = answer

	session.Evaluations = append(session.Evaluations, *eval)
	session.CurrentIndex++
	if session.CurrentIndex >= len(session.Questions) {
		session.Completed = true
	}

	if err := e.store.SaveSession(ctx, sessionKey(sessionID), session, constants.SessionTTL); err != nil {
		return nil, nil, fmt.Errorf("保存面试会话失败: %w", err)
	}
	return eval, session, nil
}

// generateQuestions 走LLM生成题目，失败时回退内置题库
func (e *Engine) generateQuestions(ctx context.Context, jobTitle, difficulty string) []string {
	if e.model == nil {
		return fallbackQuestions(jobTitle, difficulty)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(questionsPromptTemplate, jobTitle, difficultyLabel(difficulty), constants.MaxInterviewQuestions)
	resp, err := e.model.Generate(callCtx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		logger.Warn().Err(err).Msg("面试题目生成失败，回退内置题库")
		return fallbackQuestions(jobTitle, difficulty)
	}

	var questions []string
	if err := parser.ExtractInto(resp.Content, &questions); err != nil || len(questions) == 0 {
		logger.Warn().Err(err).Msg("面试题目输出不可解析，回退内置题库")
		return fallbackQuestions(jobTitle, difficulty)
	}

	if len(questions) > constants.MaxInterviewQuestions {
		questions = questions[:constants.MaxInterviewQuestions]
	}
	return questions
}

// evaluateAnswer 走LLM评估回答，失败时做确定性兜底评估
func (e *Engine) evaluateAnswer(ctx context.Context, question, answer string) *AnswerEval {
	if e.model == nil {
		return fallbackEvaluation(answer)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(evaluationPromptTemplate, question, answer)
	resp, err := e.model.Generate(callCtx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		logger.Warn().Err(err).Msg("回答评估调用失败，使用兜底评估")
		return fallbackEvaluation(answer)
	}

	var eval AnswerEval
	if err := parser.ExtractInto(resp.Content, &eval); err != nil {
		logger.Warn().Err(err).Msg("回答评估输出不可解析，使用兜底评估")
		return fallbackEvaluation(answer)
	}

	// 分数夹在0-10之间
	if eval.Score < 0 {
		eval.Score = 0
	}
	if eval.Score > 10 {
		eval.Score = 10
	}
	return &eval
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case DifficultyEasy, "简单":
		return DifficultyEasy
	case DifficultyHard, "困难":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

func difficultyLabel(d string) string {
	switch d {
	case DifficultyEasy:
		return "入门"
	case DifficultyHard:
		return "高难度"
	default:
		return "中等"
	}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyInterviewSession, sessionID)
}
