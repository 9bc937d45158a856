package router

import (
	"net/http"

	"SocialChat/apps/chat/internal/handler"
	"SocialChat/apps/chat/internal/middleware"
	"SocialChat/config"
	"SocialChat/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器（依赖注入）
type Handlers struct {
	Friend  *handler.FriendHandler
	Message *handler.MessageHandler
	WS      *handler.WSHandler
}

// InitRouter 初始化路由
// limiter 为 nil 时不限流
func InitRouter(cfg config.ServerConfig, allowedOrigins []string, limiter *middleware.RedisRateLimiter, h Handlers) *gin.Engine {
	r := gin.New()

	// 恢复中间件
	r.Use(middleware.GinRecovery(true))

	// 追踪中间件 (生成 trace_id)
	r.Use(util.TraceLogger())

	// 客户端 IP 中间件
	r.Use(middleware.ClientIPMiddleware())

	// 日志中间件
	r.Use(middleware.GinLogger())

	// Prometheus 监控中间件
	r.Use(middleware.PrometheusMiddleware())

	// 跨域中间件
	r.Use(middleware.CorsMiddleware(allowedOrigins))

	// 健康检查（无需认证）
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Prometheus 指标暴露接口
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket 接入：握手阶段自行鉴权，只做 IP 限流，不挂超时中间件
	r.GET("/ws", middleware.IPRateLimitMiddleware(limiter), h.WS.ServeWS)

	// API 路由组（全部需要认证）
	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	api.Use(middleware.UserRateLimitMiddleware(limiter))
	api.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
	{
		friends := api.Group("/friends")
		{
			friends.GET("", h.Friend.ListFriends)
			friends.DELETE("/:friendId", h.Friend.RemoveFriend)
			friends.POST("/request", h.Friend.SendRequest)
			friends.POST("/request/:requestId/accept", h.Friend.Accept)
			friends.POST("/request/:requestId/reject", h.Friend.Reject)
			friends.GET("/requests/received", h.Friend.ListReceived)
			friends.GET("/requests/sent", h.Friend.ListSent)
			friends.GET("/requests/unread", h.Friend.UnreadRequestCount)
		}

		messages := api.Group("/messages")
		{
			messages.POST("/send", h.Message.Send)
			messages.GET("/conversations", h.Message.ListConversations)
			messages.GET("/unread", h.Message.UnreadCount)
			messages.GET("/conversation/:friendId", h.Message.LoadConversation)
			messages.GET("/conversation/:friendId/unread", h.Message.ConversationUnread)
		}
	}

	return r
}
