package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/tracing"
	"career-agent-go/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("career-agent-go/storage/redis")

// Redis操作前缀采样率配置
var redisKeySamplingRates = map[string]float64{
	"app:cache:":   0.01, // 缓存命中率高、量大，采样1%
	"app:session:": 0.1,  // 会话读写采样10%
	"app:chat:":    0.05, // 聊天历史采样5%
	"app:persona:": 0.5,  // 画像锁操作采样50%
}

var (
	rnd      *rand.Rand
	rndMutex sync.Mutex
)

func init() {
	rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// shouldSampleRedisOp 根据key前缀决定是否需要创建span
func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}
	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			return randFloat() < rate
		}
	}
	// 默认采样率5%
	return randFloat() < 0.05
}

func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
}

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	// Ping to check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r != nil && r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r == nil || r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		)
	}

	val, err := r.Client.Get(ctx, key).Result()
	if span != nil {
		if err != nil {
			// key不存在不算错误
			if err == redis.Nil {
				span.SetStatus(codes.Ok, "key not found")
				span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return "", err
		}
		span.SetAttributes(
			attribute.Bool("db.redis.key_exists", true),
			attribute.Int("db.redis.value_length", len(val)),
		)
		span.SetStatus(codes.Ok, "")
	}
	return val, err
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
			attribute.Int("db.redis.value_length", len(value)),
		)
		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	err := r.Client.Set(ctx, key, value, expiration).Err()
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// ResponseCacheTTL 响应缓存的有效期，可在配置中按秒覆盖
func (r *Redis) ResponseCacheTTL() time.Duration {
	if r != nil && r.config != nil && r.config.ResponseCacheTTLSeconds > 0 {
		return time.Duration(r.config.ResponseCacheTTLSeconds) * time.Second
	}
	return constants.ResponseCacheTTL
}

// QueryCacheKey 归一化查询文本后计算缓存key。
// 归一化只做trim和小写，保证同一问题的大小写变体命中同一条缓存。
func QueryCacheKey(agentLabel, query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := md5.Sum([]byte(normalized))
	return fmt.Sprintf(constants.KeyResponseCache, agentLabel, hex.EncodeToString(sum[:]))
}

// ResponseCache 代理响应缓存。Redis不可用时退化为永久未命中，
// 聊天功能继续可用只是没有加速。
type ResponseCache struct {
	redis *Redis
}

// NewResponseCache 创建响应缓存，redis可以为nil
func NewResponseCache(r *Redis) *ResponseCache {
	return &ResponseCache{redis: r}
}

// Get 查询缓存，未命中或Redis不可用时返回false
func (c *ResponseCache) Get(ctx context.Context, agentLabel, query string) (string, bool) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return "", false
	}
	val, err := c.redis.Get(ctx, QueryCacheKey(agentLabel, query))
	if err != nil {
		if err != redis.Nil {
			logger.Warn().Err(err).Str("agent", agentLabel).Msg("读取响应缓存失败，按未命中处理")
		}
		return "", false
	}
	return val, true
}

// Set 写入缓存，失败只记日志不影响主流程
func (c *ResponseCache) Set(ctx context.Context, agentLabel, query, value string) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	if err := c.redis.Set(ctx, QueryCacheKey(agentLabel, query), value, c.redis.ResponseCacheTTL()); err != nil {
		logger.Warn().Err(err).Str("agent", agentLabel).Msg("写入响应缓存失败")
	}
}

// SaveSession 以JSON形式写入会话对象并设置TTL
func (r *Redis) SaveSession(ctx context.Context, key string, value any, ttl time.Duration) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	return r.Set(ctx, key, string(data), ttl)
}

// LoadSession 读取会话JSON并反序列化到目标结构
func (r *Redis) LoadSession(ctx context.Context, key string, dest any) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	val, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("反序列化会话失败: %w", err)
	}
	return nil
}

// SaveTailorSession 保存一次简历定制的结果
func (r *Redis) SaveTailorSession(ctx context.Context, session *types.TailorSession) error {
	key := fmt.Sprintf(constants.KeyTailorSession, session.UserID, session.ID)
	return r.SaveSession(ctx, key, session, constants.SessionTTL)
}

// GetTailorSession 读取指定的定制会话
func (r *Redis) GetTailorSession(ctx context.Context, userID, sessionID string) (*types.TailorSession, error) {
	var session types.TailorSession
	key := fmt.Sprintf(constants.KeyTailorSession, userID, sessionID)
	if err := r.LoadSession(ctx, key, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListTailorSessions 用SCAN遍历某用户的全部定制会话。
// 单用户会话数量有TTL上限约束，不会出现大范围扫描。
func (r *Redis) ListTailorSessions(ctx context.Context, userID string) ([]*types.TailorSession, error) {
	if r == nil || r.Client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	pattern := fmt.Sprintf(constants.KeyTailorSessionPattern, userID)
	var sessions []*types.TailorSession

	iter := r.Client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		val, err := r.Client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if err == redis.Nil {
				continue // SCAN和GET之间过期
			}
			return nil, err
		}
		var session types.TailorSession
		if err := json.Unmarshal([]byte(val), &session); err != nil {
			logger.Warn().Str("key", iter.Val()).Msg("定制会话JSON损坏，跳过")
			continue
		}
		sessions = append(sessions, &session)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("遍历定制会话失败: %w", err)
	}
	return sessions, nil
}

// AcquireLock 尝试获取一个分布式锁
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r == nil || r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	// 生成一个随机值作为锁的持有者标识
	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())
	// NX保证了原子性
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return lockValue, nil
	}
	// 未能获取锁
	return "", nil
}

// ReleaseLock 释放一个分布式锁，使用Lua脚本保证原子性
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r == nil || r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	// Lua脚本: 如果key存在且值匹配，则删除key
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}

	if released, ok := res.(int64); ok && released == 1 {
		return true, nil
	}
	return false, nil // 锁不存在或不属于当前持有者
}
