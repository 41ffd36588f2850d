package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/api/handler"
	apirouter "career-agent-go/internal/api/router"
	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/interview"
	"career-agent-go/internal/llm"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/outbox"
	"career-agent-go/internal/parser"
	"career-agent-go/internal/persona"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"
	"career-agent-go/internal/tracing"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

// 聊天记忆保留的最大轮数
const chatMemoryMaxTurns = 50

func main() {
	var (
		configPath string
		address    string
	)
	pflag.StringVar(&configPath, "config", "", "配置文件路径")
	pflag.StringVar(&address, "addr", "", "监听地址，覆盖配置文件，例如 :8080")
	pflag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置文件失败: %v\n", err)
		os.Exit(1)
	}
	if address != "" {
		cfg.Server.Address = address
	}

	// 2. 初始化日志
	initLogger(cfg)
	hlog.SetLogger(hertzzerolog.From(logger.Logger))

	// 3. 初始化链路追踪
	ctx := context.Background()
	traceProvider, err := tracing.NewProvider(ctx, &cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}
	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}()

	// 4. 初始化存储管理器
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	// 5. 初始化模型客户端集合
	clients, err := llm.NewClientSet(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化模型客户端失败")
	}

	// 6. 初始化画像存储，变更时向outbox投递persona.updated事件
	personas, err := persona.NewStore(
		cfg.Persona.DataDir,
		persona.WithContextLimits(cfg.Persona.MaxContextSkills, cfg.Persona.MaxContextRoles),
		persona.WithMutationHook(personaSyncHook(storageManager)),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化画像存储失败")
	}

	// 7. 组装代理与聊天服务
	requestTimeout := config.GetDuration(cfg.Ollama.RequestTimeout, 60*time.Second)
	coverLetterTimeout := config.GetDuration(cfg.Ollama.CoverLetterTimeout, 90*time.Second)

	chatRouter := agent.NewRouter(clients.ForAgent("router"), requestTimeout)
	coach := agent.NewCoachAgent(clients.ForAgent("coach"), requestTimeout)
	memoryUpdater := agent.NewMemoryUpdater(clients.ForAgent("memory"), requestTimeout)
	tailorAgent := agent.NewTailorAgent(clients.ForAgent("tailor"), requestTimeout)
	coverLetterAgent := agent.NewCoverLetterAgent(clients.ForAgent("cover_letter"), coverLetterTimeout)
	pathAgent := agent.NewCareerPathAgent(clients.ForAgent("career_path"), requestTimeout)

	chatMemory := buildChatMemory(storageManager)

	// Redis不可用时响应缓存退化为进程内TTL缓存
	var responseCache agent.ResponseCache
	if storageManager.Redis != nil {
		responseCache = storage.NewResponseCache(storageManager.Redis)
	} else {
		logger.Warn().Msg("Redis不可用，响应缓存使用进程内实现")
		responseCache = agent.NewMemoryResponseCache(constants.ResponseCacheTTL)
	}
	chatService := agent.NewChatService(chatRouter, coach, memoryUpdater, personas, chatMemory, responseCache)

	// 8. 面试引擎，Redis不可用时退化为进程内会话
	var sessionStore interview.SessionStore
	if storageManager.Redis != nil {
		sessionStore = storageManager.Redis
	}
	interviewEngine := interview.NewEngine(clients.ForAgent("interview"), sessionStore)

	// 9. 简历解析链路
	extractor, err := parser.NewTextExtractor(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历文本抽取器失败")
	}
	resumeParser, err := parser.NewResumeLLMParser(clients.ForAgent("resume_parser"))
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历LLM解析器失败")
	}

	// 10. 启动outbox中继
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		relay := outbox.NewMessageRelay(
			storageManager.MySQL.DB(),
			storageManager.RabbitMQ,
			outbox.WithPollingInterval(config.GetDuration(cfg.RabbitMQ.OutboxPollInterval, 5*time.Second)),
			outbox.WithBatchSize(cfg.RabbitMQ.OutboxBatchSize),
		)
		relay.Start()
		defer relay.Stop()
	} else {
		logger.Warn().Msg("MySQL或RabbitMQ未配置，outbox中继未启动，画像同步事件不会投递")
	}

	// 11. 创建HTTP服务器并注册路由
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	apirouter.RegisterRoutes(h, cfg, &apirouter.Handlers{
		Chat:      handler.NewChatHandler(chatService),
		Resume:    handler.NewResumeHandler(personas, extractor, resumeParser, tailorAgent, storageManager),
		Score:     handler.NewScoreHandler(personas, storageManager.MySQL),
		Interview: handler.NewInterviewHandler(interviewEngine),
		Career:    handler.NewCareerHandler(personas, pathAgent, coverLetterAgent, storageManager),
	})

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()
	logger.Info().Str("address", cfg.Server.Address).Msg("服务已启动")

	// 12. 等待终止信号后优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	logger.Info().Msg("优雅退出完成")
}

// initLogger 根据配置初始化全局日志
func initLogger(cfg *config.Config) {
	logConfig := logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}
	if logConfig.Level == "" {
		logConfig.Level = "info"
	}
	logger.Init(logConfig)

	logger.Logger = logger.Logger.With().
		Str("app", constants.ServiceName).
		Logger()
}

// buildChatMemory 构建聊天记忆，Redis不可用时退化为进程内记忆
func buildChatMemory(storageManager *storage.Storage) agent.ChatMemory {
	if storageManager.Redis != nil && storageManager.Redis.Client != nil {
		memory, err := agent.NewRedisChatMemory(storageManager.Redis.Client, constants.ChatMemoryTTL, chatMemoryMaxTurns)
		if err == nil {
			return memory
		}
		logger.Warn().Err(err).Msg("初始化Redis聊天记忆失败，退化为进程内记忆")
	}
	return agent.NewInMemoryChatMemory(chatMemoryMaxTurns)
}

// personaSyncHook 画像变更后写一条persona.updated到outbox。
// MySQL或RabbitMQ未配置时为空操作，写入失败只记日志。
func personaSyncHook(storageManager *storage.Storage) persona.MutationHook {
	return func(p *types.Persona) {
		if storageManager.MySQL == nil || storageManager.RabbitMQ == nil {
			return
		}
		payload, err := json.Marshal(p)
		if err != nil {
			logger.Warn().Err(err).Str("user_id", p.UserID).Msg("序列化画像同步事件失败")
			return
		}
		msg := &models.OutboxMessage{
			AggregateID:      p.UserID,
			EventType:        "persona.updated",
			Payload:          string(payload),
			TargetExchange:   storageManager.RabbitMQ.EventsExchange(),
			TargetRoutingKey: storageManager.RabbitMQ.PersonaRoutingKey(),
		}
		if err := storageManager.MySQL.EnqueueOutboxMessage(context.Background(), nil, msg); err != nil {
			logger.Warn().Err(err).Str("user_id", p.UserID).Msg("写入画像同步事件到outbox失败")
		}
	}
}
