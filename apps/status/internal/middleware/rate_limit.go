package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"StatusServer/config"
	"StatusServer/consts"
	rediskey "StatusServer/consts/redisKey"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/logger"
	"StatusServer/pkg/result"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// luaTokenBucketRedis Redis 令牌桶
//
//	KEYS[1]: 限流 key
//	ARGV[1]: 当前时间戳 (毫秒)
//	ARGV[2]: 桶容量
//	ARGV[3]: 每秒产生的令牌数
//	ARGV[4]: 本次消耗的令牌数
//
// 返回 1 放行，0 限流
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

-- 只有补充了令牌才推进时间，避免小间隔请求丢失精度
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

// redisCallTimeout 单次限流检查的 Redis 超时，防止 Redis 响应慢拖慢接口
const redisCallTimeout = 50 * time.Millisecond

// UserRateLimiter 用户级令牌桶
// 优先使用 Redis（多实例共享配额），Redis 不可用时退化为进程内 x/time/rate 限流器
type UserRateLimiter struct {
	redisClient *redis.Client
	rate        float64
	burst       int

	mu    sync.Mutex
	local *lru.Cache[string, *rate.Limiter]
}

// NewUserRateLimiter redisClient 可以为空
func NewUserRateLimiter(cfg config.RateLimitConfig, redisClient *redis.Client) (*UserRateLimiter, error) {
	size := cfg.LocalSize
	if size <= 0 {
		size = config.DefaultRateLimitConfig().LocalSize
	}
	local, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	return &UserRateLimiter{
		redisClient: redisClient,
		rate:        cfg.Rate,
		burst:       cfg.Burst,
		local:       local,
	}, nil
}

// Allow 检查用户是否还有配额
func (l *UserRateLimiter) Allow(ctx context.Context, userName string) bool {
	if l.redisClient != nil {
		allowed, err := l.allowRedis(ctx, rediskey.UserRateLimitKey(userName))
		if err == nil {
			return allowed
		}
		logger.Warn(ctx, "Redis 限流检查失败，降级为本地限流",
			logger.String("user_name", userName),
			logger.ErrorField("error", err),
		)
	}
	return l.localLimiter(userName).Allow()
}

func (l *UserRateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	redisCtx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	res, err := l.redisClient.Eval(redisCtx, luaTokenBucketRedis, []string{key},
		time.Now().UnixMilli(), l.burst, l.rate, 1).Result()
	if err != nil {
		return false, err
	}
	allowed, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected token bucket result %T", res)
	}
	return allowed == 1, nil
}

func (l *UserRateLimiter) localLimiter(userName string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.local.Get(userName); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Limit(l.rate), l.burst)
	l.local.Add(userName, limiter)
	return limiter
}

// UserRateLimitMiddleware 用户级限流，需挂在 JWTAuthMiddleware 之后
func UserRateLimitMiddleware(limiter *UserRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userName, ok := GetUserName(c)
		if !ok {
			logger.Warn(ctxmeta.FromGin(c), "无法获取用户名，跳过用户限流检查",
				logger.String("path", c.Request.URL.Path),
			)
			c.Next()
			return
		}

		if !limiter.Allow(ctxmeta.FromGin(c), userName) {
			logger.Warn(ctxmeta.FromGin(c), "用户请求被限流",
				logger.String("user_name", userName),
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
			)
			result.Abort(c, http.StatusTooManyRequests, consts.CodeTooManyRequests)
			return
		}

		c.Next()
	}
}
