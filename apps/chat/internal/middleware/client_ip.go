package middleware

import (
	"net"
	"strings"

	"SocialChat/pkg/ctxmeta"

	"github.com/gin-gonic/gin"
)

const (
	headerXRealIP       = "X-Real-IP"
	headerXForwardedFor = "X-Forwarded-For"
	headerXClientIP     = "X-Client-IP"
)

// GetClientIP 从 Gin Context 中获取客户端真实 IP
// 优先级：X-Real-IP > X-Forwarded-For 第一个 > X-Client-IP > RemoteAddr
func GetClientIP(c *gin.Context) string {
	if ip := c.GetHeader(headerXRealIP); ip != "" {
		return strings.TrimSpace(ip)
	}

	if xff := c.GetHeader(headerXForwardedFor); xff != "" {
		// 取第一个 IP（原始客户端）
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if ip := c.GetHeader(headerXClientIP); ip != "" && net.ParseIP(ip) != nil {
		return ip
	}

	return c.ClientIP()
}

// GetClientIPSafe 获取并校验 IP 格式
func GetClientIPSafe(c *gin.Context) (string, bool) {
	ip := GetClientIP(c)
	if ip == "" || net.ParseIP(ip) == nil {
		return "", false
	}
	return ip, true
}

// ClientIPMiddleware 注入 IP 到 gin.Context
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxmeta.GinKeyClientIP, GetClientIP(c))
		c.Next()
	}
}
