package util

import (
	"SocialChat/pkg/ctxmeta"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderXRequestID = "X-Request-ID"

// TraceLogger 追踪中间件，生成或透传 trace_id 并存入 Gin 上下文
func TraceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 优先使用上游（Nginx/客户端）传入的请求 id
		traceId := c.GetHeader(HeaderXRequestID)
		if traceId == "" {
			traceId = NewUUID()
		}

		c.Set(ctxmeta.GinKeyTraceID, traceId)
		// 回写响应头，方便客户端拿着 id 排查问题
		c.Header(HeaderXRequestID, traceId)

		c.Next()
	}
}

// NewUUID 生成新的 UUID
func NewUUID() string {
	return uuid.New().String()
}
