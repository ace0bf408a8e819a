package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"example.com/shop-backend/pkg/logger"
)

const rateLimitPrefix = "shop:rate:"

// fixedWindow увеличивает счётчик окна и ставит TTL на первом запросе.
// Возвращает {счётчик, оставшийся TTL в мс}.
var fixedWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateLimitConfig — параметры ограничения частоты запросов.
type RateLimitConfig struct {
	Redis  redis.UniversalClient
	Limit  int           // по умолчанию 100
	Window time.Duration // по умолчанию минута
}

// RateLimitMiddleware ограничивает число запросов с одного IP в окне.
// Счётчики общие для всех реплик, потому что лежат в Redis.
type RateLimitMiddleware struct {
	redis  redis.UniversalClient
	limit  int
	window time.Duration
}

// NewRateLimitMiddleware создаёт rate limiter.
func NewRateLimitMiddleware(cfg RateLimitConfig) *RateLimitMiddleware {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimitMiddleware{redis: cfg.Redis, limit: cfg.Limit, window: cfg.Window}
}

// Handle возвращает gin handler. При недоступном Redis запросы пропускаются.
func (m *RateLimitMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		clientIP := c.ClientIP()

		count, ttl, err := m.hit(ctx, rateLimitPrefix+clientIP)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Ошибка проверки rate limit")
			c.Next()
			return
		}

		remaining := max(m.limit-count, 0)
		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > m.limit {
			retryAfter := int(ttl.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			log := logger.FromContext(ctx)
			log.Warn().
				Str("client_ip", clientIP).
				Int("limit", m.limit).
				Msg("Превышен лимит запросов")

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": fmt.Sprintf("Превышен лимит запросов, повторите через %d с", retryAfter),
			})
			return
		}

		c.Next()
	}
}

func (m *RateLimitMiddleware) hit(ctx context.Context, key string) (int, time.Duration, error) {
	res, err := fixedWindow.Run(ctx, m.redis, []string{key}, m.window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка обновления счётчика %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("неожиданный ответ скрипта rate limit: %v", res)
	}
	return int(res[0]), time.Duration(res[1]) * time.Millisecond, nil
}
