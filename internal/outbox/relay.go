// Package outbox 实现事务性发件箱模式：
// 业务写库时同事务落一条outbox行，本包的中继进程轮询并投递到RabbitMQ，
// 保证画像更新和提醒事件不会因为消息队列抖动而丢失。
package outbox

import (
	"context"
	"time"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second // 轮询outbox表的默认间隔
	defaultBatchSize       = 10              // 每次轮询处理的消息批量大小
	maxRetryCount          = 5               // 发布失败的最大重试次数，超过后标记FAILED
)

// MessageRelay 轮询outbox表并将消息发布到消息代理
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	pollingInterval time.Duration
	batchSize       int
	done            chan struct{}
	tracer          trace.Tracer
}

// RelayOption MessageRelay的配置选项
type RelayOption func(*MessageRelay)

// WithPollingInterval 设置轮询间隔
func WithPollingInterval(d time.Duration) RelayOption {
	return func(r *MessageRelay) {
		if d > 0 {
			r.pollingInterval = d
		}
	}
}

// WithBatchSize 设置每轮处理的行数
func WithBatchSize(n int) RelayOption {
	return func(r *MessageRelay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewMessageRelay 创建一个新的MessageRelay实例
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ, opts ...RelayOption) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("career-agent-go/outbox"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 开始消息中继的轮询过程
func (r *MessageRelay) Start() {
	logger.Info().
		Dur("interval", r.pollingInterval).
		Int("batch_size", r.batchSize).
		Msg("outbox中继启动")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				logger.Info().Msg("outbox中继已停止")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					logger.Error().Err(err).Msg("处理待投递outbox消息失败")
				}
			}
		}
	}()
}

// Stop 优雅地停止消息中继服务
func (r *MessageRelay) Stop() {
	close(r.done)
}

// processPendingMessages 获取并处理一批待投递的outbox消息。
// FOR UPDATE SKIP LOCKED 跳过已被其他实例锁定的行，支持水平扩展。
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	// 事务提交后回滚是无操作的
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}

	// 空轮询不创建span，避免追踪噪音
	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true, // 持久化投递
		)

		if err != nil {
			logger.Warn().
				Err(err).
				Uint64("message_id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retry_count", msg.RetryCount+1).
				Msg("outbox消息投递失败")
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = models.OutboxStatusFailed
				logger.Error().
					Uint64("message_id", msg.ID).
					Str("event_type", msg.EventType).
					Msg("outbox消息达到最大重试次数，已标记FAILED")
			}
		} else {
			msg.Status = models.OutboxStatusSent
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		// 更新失败时整个事务回滚，这批消息在下一轮被重新拾取
		if err := tx.Save(&msg).Error; err != nil {
			logger.Error().Err(err).Uint64("message_id", msg.ID).Msg("更新outbox消息状态失败")
			return err
		}
	}

	return tx.Commit().Error
}
