package middleware

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"SocialChat/consts"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/logger"
	"SocialChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// slowRequestThreshold 超过该耗时的请求记 Warn
const slowRequestThreshold = 2 * time.Second

// GinLogger 请求日志
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		cost := time.Since(start)
		status := c.Writer.Status()
		ctx := ctxmeta.FromGin(c)

		// 只记录服务端错误(5xx)和慢请求,正常请求只打 debug
		if status >= 500 || cost > slowRequestThreshold {
			logger.Warn(ctx, "慢请求或服务端错误",
				logger.Int("status", status),
				logger.String("method", c.Request.Method),
				logger.String("path", path),
				logger.String("query", query),
				logger.String("ip", c.GetString(ctxmeta.GinKeyClientIP)),
				logger.String("user-agent", c.Request.UserAgent()),
				logger.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()),
				logger.Duration("cost", cost),
			)
			return
		}
		logger.Debug(ctx, "请求完成",
			logger.Int("status", status),
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Duration("cost", cost),
		)
	}
}

// GinRecovery recover 掉项目可能出现的 panic
// stack=true 时记录堆栈
func GinRecovery(stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := ctxmeta.FromGin(c)

				// 客户端断开导致的写失败不算 panic
				var brokenPipe bool
				if ne, ok := err.(*net.OpError); ok {
					var se *os.SyscallError
					if errors.As(ne, &se) {
						msg := strings.ToLower(se.Error())
						brokenPipe = strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
					}
				}

				httpRequest, _ := httputil.DumpRequest(c.Request, false)
				if brokenPipe {
					logger.Warn(ctx, "客户端连接已断开",
						logger.String("path", c.Request.URL.Path),
						logger.Any("error", err),
					)
					_ = c.Error(err.(error))
					c.Abort()
					return
				}

				fields := []logger.Field{
					logger.Any("error", err),
					logger.String("request", string(httpRequest)),
				}
				if stack {
					fields = append(fields, logger.String("stack", string(debug.Stack())))
				}
				logger.Error(ctx, "[Recovery from panic]", fields...)
				result.AbortWithStatus(c, http.StatusInternalServerError, consts.CodeInternalError)
			}
		}()
		c.Next()
	}
}
