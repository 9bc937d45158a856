package handler

import (
	"context"
	"net/http"

	"SocialChat/apps/chat/internal/manager"
	"SocialChat/apps/chat/internal/middleware"
	"SocialChat/apps/chat/internal/svc"
	"SocialChat/consts"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/logger"
	"SocialChat/pkg/metrics"
	"SocialChat/pkg/result"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler 负责处理 /ws 接入请求。
// 职责边界：
// - 处理 Gin/HTTP 层鉴权、升级与错误响应；
// - 按事件类型分发给 svc.Router；
// - 调用 manager.Client 维护连接生命周期。
type WSHandler struct {
	router   *svc.Router
	upgrader websocket.Upgrader
}

// NewWSHandler 创建 WebSocket 入口处理器。
func NewWSHandler(router *svc.Router) *WSHandler {
	allowedOrigins := router.Config().AllowedOrigins
	return &WSHandler{
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// ServeWS 处理 WebSocket 握手与接入。
// 执行流程：
// 1. 校验 token（Bearer 头或 ?token=），得到握手用户；
// 2. 构建连接级 context（注入 trace/user/ip）；
// 3. 完成协议升级并进入连接处理主循环。
// 连接建立后处于 Connecting 状态，客户端需要发送 user_connected 完成 identify。
func (h *WSHandler) ServeWS(c *gin.Context) {
	userUUID, code := middleware.Authenticate(c)
	if code != consts.CodeSuccess {
		// 握手前还未升级为 WebSocket，用 HTTP JSON 返回
		result.AbortWithStatus(c, http.StatusUnauthorized, code)
		return
	}

	// 连接生命周期长于本次 HTTP 请求，不继承请求的取消信号
	connCtx := ctxmeta.Detach(ctxmeta.FromGin(c))
	connCtx = ctxmeta.WithUserUUID(connCtx, userUUID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(connCtx, "WebSocket 升级失败",
			logger.ErrorField("error", err),
		)
		return
	}
	if limit := h.router.Config().MaxFrameBytes; limit > 0 {
		conn.SetReadLimit(limit)
	}

	h.handleConnection(connCtx, conn, userUUID)
}

// handleConnection 承载单个连接的完整生命周期。
// 无论正常关闭还是网络异常，退出时都会注销在线状态并退出所有广播组。
func (h *WSHandler) handleConnection(ctx context.Context, conn *websocket.Conn, sessionUser string) {
	client := manager.NewClient(conn, sessionUser, h.router.Config())
	if !h.router.Attach(client) {
		// 服务正在停机
		client.Close()
		return
	}
	metrics.WSConnections.Inc()

	logger.Info(ctx, "WebSocket 连接已建立",
		logger.Any("conn_id", client.ID()),
		logger.String("client_ip", ctxmeta.ClientIP(ctx)),
	)

	client.Run(ctx, func(raw []byte) {
		h.handleMessage(ctx, client, raw)
	}, func() {
		metrics.WSConnections.Dec()
		h.router.Disconnect(ctx, client)
		logger.Info(ctx, "WebSocket 连接已断开",
			logger.Any("conn_id", client.ID()),
			logger.Int("online_count", h.router.Presence().Count()),
		)
	})
}

// handleMessage 处理客户端上行帧，处理失败统一回 error 帧，连接保持。
func (h *WSHandler) handleMessage(ctx context.Context, client *manager.Client, raw []byte) {
	if !client.Allow() {
		h.router.SendError(ctx, client, &svc.FrameError{
			Code:    consts.CodeTooManyRequests,
			Message: consts.GetMessage(consts.CodeTooManyRequests),
		})
		return
	}

	envelope, err := h.router.ParseEnvelope(raw)
	if err != nil {
		h.router.SendError(ctx, client, err)
		return
	}

	switch envelope.Type {
	case svc.EventHeartbeat:
		err = h.router.Heartbeat(ctx, client)
	case svc.EventUserConnected:
		err = h.router.Identify(ctx, client, envelope.Data)
	case svc.EventJoinConversation:
		err = h.router.JoinConversation(ctx, client, envelope.Data)
	case svc.EventLeaveConversation:
		err = h.router.LeaveConversation(ctx, client, envelope.Data)
	case svc.EventSendMessage:
		err = h.router.RelayMessage(ctx, client, envelope.Data)
	case svc.EventTyping:
		err = h.router.Typing(ctx, client, envelope.Data)
	case svc.EventFriendRequestSent:
		err = h.router.RelayFriendRequestSent(ctx, client, envelope.Data)
	case svc.EventFriendRequestAccepted:
		err = h.router.RelayFriendRequestAccepted(ctx, client, envelope.Data)
	default:
		metrics.RealtimeEvents.WithLabelValues("unsupported").Inc()
		h.router.SendError(ctx, client, &svc.FrameError{
			Code:    consts.CodeEventUnsupported,
			Message: consts.GetMessage(consts.CodeEventUnsupported),
		})
		return
	}

	metrics.RealtimeEvents.WithLabelValues(envelope.Type).Inc()
	if err != nil {
		h.router.SendError(ctx, client, err)
	}
}
