// Package router 负责API路由注册和通用中间件装配。
package router

import (
	"context"
	"crypto/subtle"

	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// Handlers 注册路由需要的全部处理器
type Handlers struct {
	Chat      *handler.ChatHandler
	Resume    *handler.ResumeHandler
	Score     *handler.ScoreHandler
	Interview *handler.InterviewHandler
	Career    *handler.CareerHandler
}

// RegisterRoutes 注册API路由。
// 配置了auth_key时/api/v1下的所有端点要求Bearer token，健康检查不鉴权。
func RegisterRoutes(h *server.Hertz, cfg *config.Config, handlers *Handlers) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if cfg.Server.AuthKey != "" {
		api.Use(authMiddleware(cfg.Server.AuthKey))
	}

	// 聊天
	api.POST("/chat", handlers.Chat.HandleChat)
	api.POST("/chat/stream", handlers.Chat.HandleChatStream)

	// 简历与画像
	api.POST("/resume/upload", handlers.Resume.HandleUpload)
	api.POST("/resume/draft", handlers.Resume.HandleDraft)
	api.POST("/resume/tailor", handlers.Resume.HandleTailor)
	api.GET("/resume/sessions/:user", handlers.Resume.HandleListSessions)
	api.GET("/resume/archive-link", handlers.Resume.HandleArchiveLink)
	api.POST("/resume/generate", handlers.Resume.HandleGenerate)
	api.GET("/persona/:user", handlers.Resume.HandleGetPersona)
	api.PUT("/persona/:user", handlers.Resume.HandleUpdatePersona)

	// 评分
	api.POST("/ats-score", handlers.Score.HandleATSScore)
	api.POST("/match-score", handlers.Score.HandleMatchScore)
	api.POST("/gap-analysis", handlers.Score.HandleGapAnalysis)

	// 模拟面试
	api.POST("/interview/start", handlers.Interview.HandleStart)
	api.POST("/interview/evaluate", handlers.Interview.HandleEvaluate)

	// 职业顾问
	api.POST("/career/predict-path", handlers.Career.HandlePredictPath)
	api.POST("/career/cover-letter", handlers.Career.HandleCoverLetter)
	api.GET("/advisor/nudges/:user", handlers.Career.HandleNudges)
	api.GET("/analytics/dashboard/:user", handlers.Career.HandleDashboard)
	api.POST("/applications/events", handlers.Career.HandleRecordEvent)

	// 职位库
	api.POST("/jobs", handlers.Career.HandleUpsertJob)
	api.GET("/jobs", handlers.Career.HandleListJobs)
}

// authMiddleware 基于固定token的keyauth鉴权
func authMiddleware(authKey string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(authKey)) == 1, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "未授权的访问"})
			c.Abort()
		}),
	)
}
