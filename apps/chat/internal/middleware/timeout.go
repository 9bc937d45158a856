package middleware

import (
	"context"
	"time"

	"SocialChat/consts"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/logger"
	"SocialChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// TimeoutMiddleware 请求超时控制中间件
// 不开启 Goroutine，依赖下游（gorm/redis）感知 ctx 超时
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		// 下游超时且还没写响应时兜底；已写出的响应（如 handler 自己返回了 code=30001）不再处理
		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			logger.Warn(ctxmeta.FromGin(c), "请求超时",
				logger.String("path", c.Request.URL.Path),
				logger.Duration("timeout", timeout),
			)
			result.Fail(c, nil, consts.CodeTimeoutError)
		}
	}
}
