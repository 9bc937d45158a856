package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"SocialChat/consts"
	"SocialChat/consts/redisKey"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/logger"
	"SocialChat/pkg/result"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// ==================== Redis 令牌桶 Lua 脚本 ====================

// luaTokenBucketRedis 原子性地更新令牌桶并判断是否允许通过
//
//	KEYS[1]: 限流 key
//	ARGV[1]: 当前时间戳 (毫秒)
//	ARGV[2]: 令牌桶容量
//	ARGV[3]: 每秒产生的令牌数
//	ARGV[4]: 每次请求消耗的令牌数
//
// 返回 1 允许通过，0 令牌不足
const luaTokenBucketRedis = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local info = redis.call('HMGET', key, 'tokens', 'last_time')
local current_tokens = tonumber(info[1])
local last_time = tonumber(info[2])

if current_tokens == nil then
    current_tokens = capacity
end
if last_time == nil then
    last_time = now
end

local time_diff = math.max(0, now - last_time)
local new_tokens = math.floor((time_diff * rate) / 1000)

if new_tokens > 0 then
    current_tokens = math.min(capacity, current_tokens + new_tokens)
    last_time = now
end

local allowed = 0
if current_tokens >= requested then
    current_tokens = current_tokens - requested
    allowed = 1
end

redis.call('HMSET', key, 'tokens', current_tokens, 'last_time', last_time)

local fill_time = math.ceil(capacity / rate)
local ttl = math.max(60, fill_time * 2)
redis.call('EXPIRE', key, ttl)

return allowed
`

// redisLimitTimeout 单次限流检查的 Redis 超时，防止 Redis 响应慢拖住请求
const redisLimitTimeout = 50 * time.Millisecond

// RedisRateLimiter 基于 Redis 的令牌桶限流器
// Redis 不可用时降级放行
type RedisRateLimiter struct {
	redisClient *redis.Client
	script      *redis.Script
	rate        float64 // 每秒产生的令牌数
	burst       int     // 令牌桶容量
}

// NewRedisRateLimiter 创建限流器，redisClient 为 nil 时所有请求放行
func NewRedisRateLimiter(redisClient *redis.Client, rate float64, burst int) *RedisRateLimiter {
	return &RedisRateLimiter{
		redisClient: redisClient,
		script:      redis.NewScript(luaTokenBucketRedis),
		rate:        rate,
		burst:       burst,
	}
}

// Allow 检查是否允许请求通过，Redis 异常时记录日志并放行
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	if r == nil || r.redisClient == nil || r.rate <= 0 {
		return true
	}

	redisCtx, cancel := context.WithTimeout(ctx, redisLimitTimeout)
	defer cancel()

	res, err := r.script.Run(redisCtx, r.redisClient, []string{key}, time.Now().UnixMilli(), r.burst, r.rate, 1).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			logger.Warn(ctx, "Redis 限流检查超时，降级放行",
				logger.String("key", key),
				logger.ErrorField("error", err),
			)
			return true
		}
		logger.Error(ctx, "Redis 限流检查失败，降级放行",
			logger.String("key", key),
			logger.ErrorField("error", err),
		)
		return true
	}

	allowed, ok := res.(int64)
	if !ok {
		logger.Warn(ctx, "Redis 限流返回值类型错误，降级放行",
			logger.String("key", key),
			logger.Any("result", res),
		)
		return true
	}
	return allowed == 1
}

// ==================== 限流中间件 ====================

// UserRateLimitMiddleware 基于用户 UUID 的限流中间件，需要在 JWTAuthMiddleware 之后使用
func UserRateLimitMiddleware(limiter *RedisRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userUUID, exists := GetUserUUID(c)
		if !exists {
			c.Next()
			return
		}

		ctx := ctxmeta.FromGin(c)
		if !limiter.Allow(ctx, rediskey.UserRateLimitKey(userUUID)) {
			logger.Warn(ctx, "用户请求被限流",
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
			)
			result.AbortWithStatus(c, http.StatusTooManyRequests, consts.CodeTooManyRequests)
			return
		}

		c.Next()
	}
}

// IPRateLimitMiddleware 基于客户端 IP 的限流中间件，用于 /ws 握手等未登录入口
func IPRateLimitMiddleware(limiter *RedisRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip, ok := GetClientIPSafe(c)
		if !ok {
			c.Next()
			return
		}

		ctx := ctxmeta.FromGin(c)
		if !limiter.Allow(ctx, rediskey.IPRateLimitKey(ip)) {
			logger.Warn(ctx, "IP 请求被限流",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path),
			)
			result.AbortWithStatus(c, http.StatusTooManyRequests, consts.CodeTooManyRequests)
			return
		}

		c.Next()
	}
}
