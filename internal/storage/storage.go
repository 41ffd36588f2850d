package storage

import (
	"context"
	"fmt"
	"strings"

	"career-agent-go/internal/config"
	"career-agent-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖。
// 每个组件按配置独立初始化，单个组件失败时记录警告并降级继续，
// 全部失败时服务才拒绝启动。
type Storage struct {
	// 对象存储（简历原件归档）
	MinIO *MinIO

	// 消息队列（画像同步与提醒事件）
	RabbitMQ *RabbitMQ

	// 关系型数据库（职位库/申请事件/outbox）
	MySQL *MySQL

	// 键值存储（响应缓存/会话/聊天记忆）
	Redis *Redis
}

// NewStorage 创建存储管理器
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	// 初始化MinIO（如果配置了）
	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败，简历归档功能不可用")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	} else {
		logger.Info().Msg("MinIO未配置，跳过初始化")
	}

	// 初始化RabbitMQ（如果配置了）
	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败，事件投递功能不可用")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else if err := storage.RabbitMQ.SetupCareerTopology(); err != nil {
			logger.Warn().Err(err).Msg("声明事件交换机拓扑失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ topology: %v", err))
		}
	}

	// 初始化MySQL（如果配置了）
	if cfg.MySQL.Host != "" {
		storage.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MySQL失败，职位库与仪表盘功能不可用")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		} else {
			logger.Info().Str("host", cfg.MySQL.Host).Msg("MySQL连接与结构迁移完成")
		}
	}

	// 初始化Redis（如果配置了）
	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败，缓存与会话退化为进程内模式")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		logger.Info().Msg("Redis未配置，跳过初始化")
	}

	// 全部组件都失败时拒绝启动
	if storage.MinIO == nil && storage.RabbitMQ == nil && storage.MySQL == nil && storage.Redis == nil {
		if len(initErrors) > 0 {
			return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
		}
		// 什么都没配置，按纯本地模式运行
		logger.Warn().Msg("未配置任何存储组件，服务以纯本地模式运行")
	}

	if len(initErrors) > 0 {
		logger.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
	// MinIO客户端不需要显式Close
}
