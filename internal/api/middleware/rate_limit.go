package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimeia/alientu-engine/pkg/redis"
	"github.com/kimeia/alientu-engine/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件（按 IP + 路由）
// limit: 窗口内允许的最大请求数，<= 0 表示不限制
// window: 滑动窗口时长
// rdb 为 nil 时降级放行（与 JWTAuth 策略一致）
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "Troppi tentativi. Riprova tra qualche minuto.")
			c.Abort()
			return
		}

		c.Next()
	}
}
