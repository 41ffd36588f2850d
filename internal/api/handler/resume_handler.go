package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/parser"
	"career-agent-go/internal/persona"
	"career-agent-go/internal/render"
	storage2 "career-agent-go/internal/storage"
	"career-agent-go/internal/tracing"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// 简历解析锁的持有时间，覆盖一次LLM解析的最长耗时
const resumeLockTTL = 90 * time.Second

// ResumeHandler 简历相关端点：上传解析、画像读写、定制、文档生成
type ResumeHandler struct {
	personas     *persona.Store
	extractor    *parser.TextExtractor
	resumeParser *parser.ResumeLLMParser
	tailor       *agent.TailorAgent
	storage      *storage2.Storage
}

// NewResumeHandler 创建简历处理器。
// resumeParser为nil时上传走启发式解析，storage各组件为nil时对应能力降级。
func NewResumeHandler(
	personas *persona.Store,
	extractor *parser.TextExtractor,
	resumeParser *parser.ResumeLLMParser,
	tailor *agent.TailorAgent,
	storage *storage2.Storage,
) *ResumeHandler {
	return &ResumeHandler{
		personas:     personas,
		extractor:    extractor,
		resumeParser: resumeParser,
		tailor:       tailor,
		storage:      storage,
	}
}

// UploadResponse 简历上传响应
type UploadResponse struct {
	Persona   *types.Persona `json:"persona"`
	ObjectKey string         `json:"object_key,omitempty"`
}

// HandleUpload 处理简历上传：抽取文本、LLM解析、合并进画像、归档原件
func (h *ResumeHandler) HandleUpload(c context.Context, ctx *app.RequestContext) {
	userID := ctx.PostForm("user_id")
	if userID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id不能为空"})
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件内容失败"})
		return
	}

	text, err := h.extractor.ExtractText(c, fileBytes, fileHeader.Filename)
	if err != nil {
		logger.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("简历文本抽取失败")
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "不支持的文件类型或文件损坏"})
		return
	}
	logger.Debug().
		Str("user_id", userID).
		Str("preview", tracing.SafeResumeContent(text)).
		Msg("简历文本抽取完成")

	// 同一用户的并发上传串行化，避免画像交叉覆盖
	if h.storage != nil && h.storage.Redis != nil {
		lockKey := fmt.Sprintf(constants.KeyPersonaLock, userID)
		lockValue, lockErr := h.storage.Redis.AcquireLock(c, lockKey, resumeLockTTL)
		if lockErr != nil {
			logger.Warn().Err(lockErr).Str("user_id", userID).Msg("获取简历解析锁失败，继续无锁处理")
		} else if lockValue == "" {
			ctx.JSON(consts.StatusConflict, utils.H{"error": "该用户有简历正在解析中，请稍后重试"})
			return
		} else {
			defer func() {
				if _, releaseErr := h.storage.Redis.ReleaseLock(context.Background(), lockKey, lockValue); releaseErr != nil {
					logger.Warn().Err(releaseErr).Str("user_id", userID).Msg("释放简历解析锁失败")
				}
			}()
		}
	}

	var parsed *types.ResumeParseResult
	if h.resumeParser != nil {
		parsed = h.resumeParser.ParseResume(c, text)
	} else {
		result := parser.ParsePlaintextProfile(text)
		parsed = &result
	}

	p, err := h.personas.IngestResume(userID, parsed)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("合并简历到画像失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "保存画像失败"})
		return
	}

	resp := &UploadResponse{Persona: p}
	if h.storage != nil && h.storage.MinIO != nil {
		ext := filepath.Ext(fileHeader.Filename)
		objectKey, _, archiveErr := h.storage.MinIO.ArchiveResume(
			c, userID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
		if archiveErr != nil {
			// 归档失败不影响本次解析结果
			logger.Warn().Err(archiveErr).Str("user_id", userID).Msg("归档简历原件失败")
		} else {
			resp.ObjectKey = objectKey
		}
	}

	ctx.JSON(consts.StatusOK, resp)
}

// DraftRequest 手动创建画像草稿的请求体。
// text给出时走LinkedIn风格纯文本解析，否则直接合并persona字段。
type DraftRequest struct {
	UserID  string         `json:"user_id"`
	Text    string         `json:"text,omitempty"`
	Persona *types.Persona `json:"persona,omitempty"`
}

// HandleDraft 处理画像草稿创建
func (h *ResumeHandler) HandleDraft(c context.Context, ctx *app.RequestContext) {
	var req DraftRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id不能为空"})
		return
	}

	var (
		p   *types.Persona
		err error
	)
	switch {
	case strings.TrimSpace(req.Text) != "":
		parsed := parser.ParsePlaintextProfile(req.Text)
		p, err = h.personas.IngestResume(req.UserID, &parsed)
	case req.Persona != nil:
		p, err = h.personas.Merge(req.UserID, req.Persona)
	default:
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "text和persona至少提供一个"})
		return
	}
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "保存画像失败"})
		return
	}
	ctx.JSON(consts.StatusOK, p)
}

// HandleGetPersona 读取用户画像
func (h *ResumeHandler) HandleGetPersona(c context.Context, ctx *app.RequestContext) {
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
	ctx.JSON(consts.StatusOK, p)
}

// HandleUpdatePersona 浅合并更新用户画像
func (h *ResumeHandler) HandleUpdatePersona(c context.Context, ctx *app.RequestContext) {
	userID := ctx.Param("user")
	var update types.Persona
	if err := ctx.BindAndValidate(&update); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}

	p, err := h.personas.Merge(userID, &update)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "更新画像失败"})
		return
	}
	ctx.JSON(consts.StatusOK, p)
}

// TailorRequest 简历定制请求
type TailorRequest struct {
	UserID         string `json:"user_id"`
	JobDescription string `json:"job_description"`
}

// HandleTailor 针对目标职位定制简历概述，会话按时间戳命名持久化
func (h *ResumeHandler) HandleTailor(c context.Context, ctx *app.RequestContext) {
	var req TailorRequest
	if err := ctx.BindAndValidate(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if req.UserID == "" || req.JobDescription == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id和job_description不能为空"})
		return
	}

	personaCtx := h.personas.ContextForLLM(req.UserID)
	result := h.tailor.Tailor(c, personaCtx, req.JobDescription)

	session := &types.TailorSession{
		ID:              time.Now().Format("20060102T150405"),
		UserID:          req.UserID,
		JobDescription:  req.JobDescription,
		TailoredSummary: result.TailoredSummary,
		Suggestions:     result.Suggestions,
		CreatedAt:       time.Now(),
	}
	if h.storage != nil && h.storage.Redis != nil {
		if err := h.storage.Redis.SaveTailorSession(c, session); err != nil {
			logger.Warn().Err(err).Str("user_id", req.UserID).Msg("持久化定制会话失败")
		}
	}

	ctx.JSON(consts.StatusOK, session)
}

// HandleListSessions 列出用户的历史定制会话
func (h *ResumeHandler) HandleListSessions(c context.Context, ctx *app.RequestContext) {
	userID := ctx.Param("user")
	if h.storage == nil || h.storage.Redis == nil {
		ctx.JSON(consts.StatusOK, utils.H{"sessions": []*types.TailorSession{}})
		return
	}

	sessions, err := h.storage.Redis.ListTailorSessions(c, userID)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取定制会话失败"})
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"sessions": sessions})
}

// 归档件下载链接的有效期
const archiveLinkExpiry = 15 * time.Minute

// HandleArchiveLink 为归档的简历原件签发限时下载链接
func (h *ResumeHandler) HandleArchiveLink(c context.Context, ctx *app.RequestContext) {
	if h.storage == nil || h.storage.MinIO == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "对象存储未启用"})
		return
	}

	objectKey := ctx.Query("object_key")
	if objectKey == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "object_key不能为空"})
		return
	}

	url, err := h.storage.MinIO.GetPresignedURL(c, objectKey, archiveLinkExpiry)
	if err != nil {
		logger.Warn().Err(err).Str("object_key", objectKey).Msg("签发下载链接失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "签发下载链接失败"})
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"url": url, "expires_in_seconds": int(archiveLinkExpiry.Seconds())})
}

// GenerateRequest 文档生成请求
type GenerateRequest struct {
	UserID   string `json:"user_id"`
	Format   string `json:"format"`   // pdf / docx
	Template string `json:"template"` // professional / executive / fresher
	Mode     string `json:"mode"`     // full / compact
}

// HandleGenerate 从画像渲染PDF或DOCX简历文档
func (h *ResumeHandler) HandleGenerate(c context.Context, ctx *app.RequestContext) {
	var req GenerateRequest
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

	opts := render.Options{
		Template: req.Template,
		Compact:  strings.EqualFold(req.Mode, "compact"),
	}

	var (
		data        []byte
		contentType string
		ext         string
	)
	switch strings.ToLower(req.Format) {
	case "", "pdf":
		data, err = render.RenderPDF(p, opts)
		contentType = "application/pdf"
		ext = ".pdf"
	case "docx":
		data, err = render.RenderDOCX(p, opts)
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		ext = ".docx"
	default:
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "format只支持pdf或docx"})
		return
	}
	if err != nil {
		if errors.Is(err, render.ErrEmptyPersona) {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "画像信息不足，先上传简历或补充画像"})
			return
		}
		logger.Error().Err(err).Str("user_id", req.UserID).Msg("渲染简历文档失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "生成文档失败"})
		return
	}

	// 生成件异步归档，不阻塞下载
	if h.storage != nil && h.storage.MinIO != nil {
		docBytes := data
		userID := req.UserID
		go func() {
			if _, archiveErr := h.storage.MinIO.ArchiveGeneratedDocument(context.Background(), userID, ext, docBytes); archiveErr != nil {
				logger.Warn().Err(archiveErr).Str("user_id", userID).Msg("归档生成文档失败")
			}
		}()
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="resume%s"`, ext))
	ctx.Data(consts.StatusOK, contentType, data)
}
