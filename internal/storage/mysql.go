package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/storage/models"
	"career-agent-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("career-agent-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，向OpenTelemetry上报数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

type gormSpanKey struct{}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		if sqlStatement := db.Statement.SQL.String(); sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", tracing.SafeSQL(sqlStatement)),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		// ErrRecordNotFound 是业务逻辑正常情况的一部分，不作为错误处理
		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	// 连接池参数
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	tracingPlugin := NewGormTracingPlugin(cfg.Database)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构，迁移期间关闭SQL日志
func (m *MySQL) autoMigrateSchema() error {
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	if err := silentDB.AutoMigrate(
		&models.JobPosting{},
		&models.ApplicationEvent{},
		&models.OutboxMessage{},
	); err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// UpsertJobPosting 按JobID插入或更新职位
func (m *MySQL) UpsertJobPosting(ctx context.Context, job *models.JobPosting) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "company", "location", "remote", "description_text",
			"required_skills_json", "preferred_skills_json", "min_years",
			"education", "salary_min", "salary_max", "status",
		}),
	}).Create(job).Error
}

// GetJobPosting 按ID读取职位，不存在时返回gorm.ErrRecordNotFound
func (m *MySQL) GetJobPosting(ctx context.Context, jobID string) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := m.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListActiveJobPostings 按更新时间倒序列出在招职位
func (m *MySQL) ListActiveJobPostings(ctx context.Context, limit int) ([]models.JobPosting, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []models.JobPosting
	err := m.db.WithContext(ctx).
		Where("status = ?", "ACTIVE").
		Order("updated_at desc").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// RecordApplicationEvent 记录一条求职行为事件
func (m *MySQL) RecordApplicationEvent(ctx context.Context, event *models.ApplicationEvent) error {
	return m.db.WithContext(ctx).Create(event).Error
}

// DashboardStats 求职仪表盘的聚合结果
type DashboardStats struct {
	UserID        string           `json:"user_id"`
	TotalEvents   int64            `json:"total_events"`
	CountsByType  map[string]int64 `json:"counts_by_type"`
	OfferRate     float64          `json:"offer_rate"`     // offer数 / applied数
	InterviewRate float64          `json:"interview_rate"` // interview数 / applied数
	Last30Days    int64            `json:"last_30_days"`
	WindowDays    int              `json:"window_days"`
}

// GetDashboardStats 聚合某用户在时间窗口内的求职事件。
// windowDays<=0 时统计全部历史。
func (m *MySQL) GetDashboardStats(ctx context.Context, userID string, windowDays int) (*DashboardStats, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.GetDashboardStats",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.sql.table", "application_events"),
		attribute.String("user_id", userID),
	)

	query := m.db.WithContext(ctx).
		Model(&models.ApplicationEvent{}).
		Where("user_id = ?", userID)
	if windowDays > 0 {
		query = query.Where("created_at >= ?", time.Now().AddDate(0, 0, -windowDays))
	}

	type typeCount struct {
		EventType string
		Count     int64
	}
	var rows []typeCount
	if err := query.Select("event_type, count(*) as count").
		Group("event_type").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("聚合求职事件失败: %w", err)
	}

	stats := &DashboardStats{
		UserID:       userID,
		CountsByType: make(map[string]int64, len(rows)),
		WindowDays:   windowDays,
	}
	for _, row := range rows {
		stats.CountsByType[row.EventType] = row.Count
		stats.TotalEvents += row.Count
	}

	if applied := stats.CountsByType[models.EventApplied]; applied > 0 {
		stats.OfferRate = float64(stats.CountsByType[models.EventOffer]) / float64(applied)
		stats.InterviewRate = float64(stats.CountsByType[models.EventInterview]) / float64(applied)
	}

	if err := m.db.WithContext(ctx).
		Model(&models.ApplicationEvent{}).
		Where("user_id = ? AND created_at >= ?", userID, time.Now().AddDate(0, 0, -30)).
		Count(&stats.Last30Days).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("统计近30天事件失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return stats, nil
}

// EnqueueOutboxMessage 在给定事务内写入一条outbox消息。
// tx为nil时使用默认连接（无事务保证）。
func (m *MySQL) EnqueueOutboxMessage(ctx context.Context, tx *gorm.DB, msg *models.OutboxMessage) error {
	db := tx
	if db == nil {
		db = m.db.WithContext(ctx)
	}
	if msg.Status == "" {
		msg.Status = models.OutboxStatusPending
	}
	return db.Create(msg).Error
}
