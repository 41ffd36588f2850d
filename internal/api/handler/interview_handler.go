package handler

import (
	"context"
	"errors"

	"career-agent-go/internal/interview"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// InterviewHandler 模拟面试端点
type InterviewHandler struct {
	engine *interview.Engine
}

// NewInterviewHandler 创建面试处理器
func NewInterviewHandler(engine *interview.Engine) *InterviewHandler {
	return &InterviewHandler{engine: engine}
}

// InterviewStartRequest 开始面试请求
type InterviewStartRequest struct {
	UserID     string `json:"user_id"`
	JobTitle   string `json:"job_title"`
	Difficulty string `json:"difficulty,omitempty"` // easy / medium / hard
}

// InterviewStartResponse 开始面试响应，只下发第一题
type InterviewStartResponse struct {
	SessionID      string `json:"session_id"`
	Difficulty     string `json:"difficulty"`
	Question       string `json:"question"`
	QuestionNumber int    `json:"question_number"`
	TotalQuestions int    `json:"total_questions"`
}

// HandleStart 开始一次模拟面试
func (h *InterviewHandler) HandleStart(c context.Context, ctx *app.RequestContext) {
	var req InterviewStartRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" || req.JobTitle == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id和job_title不能为空"})
		return
	}

	session, err := h.engine.Start(c, req.UserID, req.JobTitle, req.Difficulty)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "创建面试会话失败"})
		return
	}

	ctx.JSON(consts.StatusOK, &InterviewStartResponse{
		SessionID:      session.ID,
		Difficulty:     session.Difficulty,
		Question:       session.CurrentQuestion(),
		QuestionNumber: 1,
		TotalQuestions: len(session.Questions),
	})
}

// InterviewEvaluateRequest 提交答案请求
type InterviewEvaluateRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// InterviewEvaluateResponse 答案评估响应。
// 会话未结束时携带下一题，结束时携带平均分。
type InterviewEvaluateResponse struct {
	Evaluation     *interview.AnswerEval `json:"evaluation"`
	Completed      bool                  `json:"completed"`
	NextQuestion   string                `json:"next_question,omitempty"`
	QuestionNumber int                   `json:"question_number,omitempty"`
	TotalQuestions int                   `json:"total_questions"`
	AverageScore   float64               `json:"average_score,omitempty"`
}

// HandleEvaluate 评估当前问题的答案并推进会话
func (h *InterviewHandler) HandleEvaluate(c context.Context, ctx *app.RequestContext) {
	var req InterviewEvaluateRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" || req.SessionID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id和session_id不能为空"})
		return
	}

	eval, session, err := h.engine.Evaluate(c, req.UserID, req.SessionID, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrSessionNotFound):
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "面试会话不存在或已过期"})
		case errors.Is(err, interview.ErrSessionCompleted):
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "面试会话已结束"})
		default:
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "评估答案失败"})
		}
		return
	}

	resp := &InterviewEvaluateResponse{
		Evaluation:     eval,
		Completed:      session.Completed,
		TotalQuestions: len(session.Questions),
	}
	if session.Completed {
		resp.AverageScore = session.AverageScore()
	} else {
		resp.NextQuestion = session.CurrentQuestion()
		resp.QuestionNumber = session.CurrentIndex + 1
	}
	ctx.JSON(consts.StatusOK, resp)
}
