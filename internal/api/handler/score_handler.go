package handler

import (
	"context"
	"errors"
	"strings"

	"career-agent-go/internal/persona"
	"career-agent-go/internal/scoring"
	storage2 "career-agent-go/internal/storage"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"
)

// ScoreHandler 确定性评分端点：ATS兼容性、职位匹配、技能差距
type ScoreHandler struct {
	personas *persona.Store
	mysql    *storage2.MySQL
}

// NewScoreHandler 创建评分处理器，mysql为nil时job_id查询不可用
func NewScoreHandler(personas *persona.Store, mysql *storage2.MySQL) *ScoreHandler {
	return &ScoreHandler{personas: personas, mysql: mysql}
}

// ATSScoreRequest ATS评分请求
type ATSScoreRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description,omitempty"`
}

// HandleATSScore 处理ATS兼容性评分
func (h *ScoreHandler) HandleATSScore(c context.Context, ctx *app.RequestContext) {
	var req ATSScoreRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "resume_text不能为空"})
		return
	}

	ctx.JSON(consts.StatusOK, scoring.ScoreATS(req.ResumeText, req.JobDescription))
}

// JobScoreRequest 职位匹配与差距分析共用的请求体。
// job_id指向职位库中的职位，job为内联职位描述，二选一，job_id优先。
type JobScoreRequest struct {
	UserID string         `json:"user_id"`
	JobID  string         `json:"job_id,omitempty"`
	Job    *types.JobSpec `json:"job,omitempty"`
}

// HandleMatchScore 处理画像与职位的匹配评分
func (h *ScoreHandler) HandleMatchScore(c context.Context, ctx *app.RequestContext) {
	p, job, ok := h.resolvePersonaAndJob(c, ctx)
	if !ok {
		return
	}
	ctx.JSON(consts.StatusOK, scoring.ScoreMatch(p, job))
}

// HandleGapAnalysis 处理技能差距分析
func (h *ScoreHandler) HandleGapAnalysis(c context.Context, ctx *app.RequestContext) {
	p, job, ok := h.resolvePersonaAndJob(c, ctx)
	if !ok {
		return
	}
	ctx.JSON(consts.StatusOK, scoring.AnalyzeSkillGap(p, job))
}

// resolvePersonaAndJob 解析请求体并加载画像与职位，失败时已写好响应
func (h *ScoreHandler) resolvePersonaAndJob(c context.Context, ctx *app.RequestContext) (*types.Persona, *types.JobSpec, bool) {
	var req JobScoreRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return nil, nil, false
	}
	if req.UserID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id不能为空"})
		return nil, nil, false
	}

	p, err := h.personas.Get(req.UserID)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "用户画像不存在"})
			return nil, nil, false
		}
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取画像失败"})
		return nil, nil, false
	}

	job := req.Job
	if req.JobID != "" {
		if h.mysql == nil {
			ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "职位库未启用，请内联提供job字段"})
			return nil, nil, false
		}
		posting, err := h.mysql.GetJobPosting(c, req.JobID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "职位不存在"})
				return nil, nil, false
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取职位失败"})
			return nil, nil, false
		}
		job = jobSpecFromPosting(posting)
	}
	if job == nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "job和job_id至少提供一个"})
		return nil, nil, false
	}
	return p, job, true
}
