package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/persona"
	"career-agent-go/internal/scoring"
	storage2 "career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"gorm.io/datatypes"
)

// CareerHandler 职业顾问端点：路径预测、提醒、求职信、职位库、行为分析
type CareerHandler struct {
	personas    *persona.Store
	pathAgent   *agent.CareerPathAgent
	coverLetter *agent.CoverLetterAgent
	storage     *storage2.Storage
}

// NewCareerHandler 创建职业顾问处理器
func NewCareerHandler(
	personas *persona.Store,
	pathAgent *agent.CareerPathAgent,
	coverLetter *agent.CoverLetterAgent,
	storage *storage2.Storage,
) *CareerHandler {
	return &CareerHandler{
		personas:    personas,
		pathAgent:   pathAgent,
		coverLetter: coverLetter,
		storage:     storage,
	}
}

// PredictPathRequest 路径预测请求
type PredictPathRequest struct {
	UserID string `json:"user_id"`
}

// HandlePredictPath 预测用户的职业发展路径
func (h *CareerHandler) HandlePredictPath(c context.Context, ctx *app.RequestContext) {
	var req PredictPathRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id不能为空"})
		return
	}

	p, err := h.personas.Get(req.UserID)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "用户画像不存在"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取画像失败"})
		return
	}

	path := h.pathAgent.Predict(c, p, h.personas.ContextForLLM(req.UserID))
	ctx.JSON(consts.StatusOK, path)
}

// HandleNudges 返回用户画像的主动改进提醒
func (h *CareerHandler) HandleNudges(c context.Context, ctx *app.RequestContext) {
	userID := ctx.Param("user")
	p, err := h.personas.Get(userID)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "用户画像不存在"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取画像失败"})
		return
	}

	nudges := scoring.BuildNudges(p, time.Now())
	h.enqueueNudgeEvents(c, userID, nudges)

	ctx.JSON(consts.StatusOK, utils.H{"nudges": nudges})
}

// enqueueNudgeEvents 把本次产生的提醒写入outbox，由中继投递到消息总线。
// 需要MySQL和RabbitMQ同时可用，任一缺失则静默跳过。
func (h *CareerHandler) enqueueNudgeEvents(ctx context.Context, userID string, nudges []scoring.Nudge) {
	if h.storage == nil || h.storage.MySQL == nil || h.storage.RabbitMQ == nil || len(nudges) == 0 {
		return
	}

	payload, err := json.Marshal(utils.H{"user_id": userID, "nudges": nudges})
	if err != nil {
		return
	}
	msg := &models.OutboxMessage{
		AggregateID:      userID,
		EventType:        "nudge.created",
		Payload:          string(payload),
		TargetExchange:   h.storage.RabbitMQ.EventsExchange(),
		TargetRoutingKey: h.storage.RabbitMQ.NudgeRoutingKey(),
	}
	if err := h.storage.MySQL.EnqueueOutboxMessage(ctx, nil, msg); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("写入nudge事件到outbox失败")
	}
}

// HandleDashboard 聚合用户求职行为的仪表盘统计
func (h *CareerHandler) HandleDashboard(c context.Context, ctx *app.RequestContext) {
	if h.storage == nil || h.storage.MySQL == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "分析功能未启用"})
		return
	}

	userID := ctx.Param("user")
	windowDays := 30
	if raw := ctx.Query("window_days"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			windowDays = v
		}
	}

	stats, err := h.storage.MySQL.GetDashboardStats(c, userID, windowDays)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("聚合仪表盘统计失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "聚合统计失败"})
		return
	}
	ctx.JSON(consts.StatusOK, stats)
}

// CoverLetterRequest 求职信生成请求
type CoverLetterRequest struct {
	UserID         string `json:"user_id"`
	Company        string `json:"company"`
	JobDescription string `json:"job_description"`
}

// HandleCoverLetter 生成求职信
func (h *CareerHandler) HandleCoverLetter(c context.Context, ctx *app.RequestContext) {
	var req CoverLetterRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" || req.JobDescription == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id和job_description不能为空"})
		return
	}

	personaCtx := h.personas.ContextForLLM(req.UserID)
	letter := h.coverLetter.Write(c, personaCtx, req.Company, req.JobDescription)
	ctx.JSON(consts.StatusOK, utils.H{"cover_letter": letter})
}

// UpsertJobRequest 职位入库请求，job_id缺省时生成uuid
type UpsertJobRequest struct {
	JobID string        `json:"job_id,omitempty"`
	Job   types.JobSpec `json:"job"`
}

// HandleUpsertJob 新增或更新职位库中的职位
func (h *CareerHandler) HandleUpsertJob(c context.Context, ctx *app.RequestContext) {
	if h.storage == nil || h.storage.MySQL == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "职位库未启用"})
		return
	}

	var req UpsertJobRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.Job.Title == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "job.title不能为空"})
		return
	}

	jobID := req.JobID
	if jobID == "" {
		uuidV7, err := uuid.NewV7()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "生成职位ID失败"})
			return
		}
		jobID = uuidV7.String()
	}

	posting, err := postingFromJobSpec(jobID, &req.Job)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "序列化职位失败"})
		return
	}
	if err := h.storage.MySQL.UpsertJobPosting(c, posting); err != nil {
		logger.Error().Err(err).Str("job_id", jobID).Msg("职位入库失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "职位入库失败"})
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"job_id": jobID})
}

// HandleListJobs 列出职位库中的在招职位
func (h *CareerHandler) HandleListJobs(c context.Context, ctx *app.RequestContext) {
	if h.storage == nil || h.storage.MySQL == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "职位库未启用"})
		return
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	postings, err := h.storage.MySQL.ListActiveJobPostings(c, limit)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取职位库失败"})
		return
	}

	jobs := make([]utils.H, 0, len(postings))
	for i := range postings {
		jobs = append(jobs, utils.H{
			"job_id": postings[i].JobID,
			"job":    jobSpecFromPosting(&postings[i]),
		})
	}
	ctx.JSON(consts.StatusOK, utils.H{"jobs": jobs})
}

// RecordEventRequest 求职行为事件上报请求
type RecordEventRequest struct {
	UserID    string         `json:"user_id"`
	JobID     string         `json:"job_id,omitempty"`
	EventType string         `json:"event_type"` // applied/interview/offer/rejected/viewed
	Source    string         `json:"source,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// HandleRecordEvent 记录一条求职行为事件，作为仪表盘聚合的数据源
func (h *CareerHandler) HandleRecordEvent(c context.Context, ctx *app.RequestContext) {
	if h.storage == nil || h.storage.MySQL == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "分析功能未启用"})
		return
	}

	var req RecordEventRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" || !validEventType(req.EventType) {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id不能为空且event_type必须是applied/interview/offer/rejected/viewed之一"})
		return
	}

	event := &models.ApplicationEvent{
		UserID:    req.UserID,
		EventType: req.EventType,
		Source:    req.Source,
	}
	if req.JobID != "" {
		event.JobID = &req.JobID
	}
	if len(req.Detail) > 0 {
		detail, err := json.Marshal(req.Detail)
		if err == nil {
			event.DetailJSON = datatypes.JSON(detail)
		}
	}

	if err := h.storage.MySQL.RecordApplicationEvent(c, event); err != nil {
		logger.Error().Err(err).Str("user_id", req.UserID).Msg("记录求职事件失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "记录事件失败"})
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"event_id": event.EventID})
}

func validEventType(t string) bool {
	switch t {
	case models.EventApplied, models.EventInterview, models.EventOffer, models.EventRejected, models.EventViewed:
		return true
	}
	return false
}

// jobSpecFromPosting 把职位库行转成评分引擎使用的职位视图
func jobSpecFromPosting(posting *models.JobPosting) *types.JobSpec {
	return &types.JobSpec{
		Title:           posting.Title,
		Company:         posting.Company,
		Description:     posting.DescriptionText,
		RequiredSkills:  posting.RequiredSkills(),
		PreferredSkills: posting.PreferredSkills(),
		MinYears:        posting.MinYears,
		Education:       posting.Education,
		Location:        posting.Location,
		Remote:          posting.Remote,
		SalaryMin:       posting.SalaryMin,
		SalaryMax:       posting.SalaryMax,
	}
}

// postingFromJobSpec 把内联职位描述转成职位库行
func postingFromJobSpec(jobID string, job *types.JobSpec) (*models.JobPosting, error) {
	required, err := json.Marshal(job.RequiredSkills)
	if err != nil {
		return nil, err
	}
	preferred, err := json.Marshal(job.PreferredSkills)
	if err != nil {
		return nil, err
	}
	return &models.JobPosting{
		JobID:               jobID,
		Title:               job.Title,
		Company:             job.Company,
		Location:            job.Location,
		Remote:              job.Remote,
		DescriptionText:     job.Description,
		RequiredSkillsJSON:  datatypes.JSON(required),
		PreferredSkillsJSON: datatypes.JSON(preferred),
		MinYears:            job.MinYears,
		Education:           job.Education,
		SalaryMin:           job.SalaryMin,
		SalaryMax:           job.SalaryMax,
		Status:              "ACTIVE",
	}, nil
}
