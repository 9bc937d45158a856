package handler

import (
	"strconv"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/internal/service"
	"SocialChat/consts"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// FriendHandler 好友处理器
type FriendHandler struct {
	relationService service.RelationService
}

// NewFriendHandler 创建好友处理器
func NewFriendHandler(relationService service.RelationService) *FriendHandler {
	return &FriendHandler{
		relationService: relationService,
	}
}

// SendRequest 发送好友申请
// @Router /api/v1/friends/request [post]
func (h *FriendHandler) SendRequest(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	// 1. 绑定请求数据
	var req dto.SendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 参数错误由客户端输入导致,属于正常业务流程,不记录日志
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	// 2. 调用服务层
	item, err := h.relationService.SendRequest(ctx, userUUID, &req)
	if err != nil {
		failWithError(ctx, c, "发送好友申请服务内部错误", err)
		return
	}

	result.Success(c, item)
}

// ListReceived 收到的待处理申请，查看后清空未读数
// @Router /api/v1/friends/requests/received [get]
func (h *FriendHandler) ListReceived(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.relationService.ListReceived(ctx, userUUID)
	if err != nil {
		failWithError(ctx, c, "获取收到的好友申请服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// ListSent 发出的待处理申请
// @Router /api/v1/friends/requests/sent [get]
func (h *FriendHandler) ListSent(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.relationService.ListSent(ctx, userUUID)
	if err != nil {
		failWithError(ctx, c, "获取发出的好友申请服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// UnreadRequestCount 新申请未读数
// @Router /api/v1/friends/requests/unread [get]
func (h *FriendHandler) UnreadRequestCount(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.relationService.UnreadRequestCount(ctx, userUUID)
	if err != nil {
		failWithError(ctx, c, "获取好友申请未读数服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// Accept 同意好友申请
// @Router /api/v1/friends/request/{requestId}/accept [post]
func (h *FriendHandler) Accept(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := parseRequestID(c)
	if !ok {
		return
	}

	item, err := h.relationService.Accept(ctx, requestID, userUUID)
	if err != nil {
		failWithError(ctx, c, "同意好友申请服务内部错误", err)
		return
	}
	result.Success(c, item)
}

// Reject 拒绝好友申请
// @Router /api/v1/friends/request/{requestId}/reject [post]
func (h *FriendHandler) Reject(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := parseRequestID(c)
	if !ok {
		return
	}

	item, err := h.relationService.Reject(ctx, requestID, userUUID)
	if err != nil {
		failWithError(ctx, c, "拒绝好友申请服务内部错误", err)
		return
	}
	result.Success(c, item)
}

// ListFriends 好友列表
// @Router /api/v1/friends [get]
func (h *FriendHandler) ListFriends(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.relationService.ListFriends(ctx, userUUID)
	if err != nil {
		failWithError(ctx, c, "获取好友列表服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// RemoveFriend 解除好友，历史消息保留
// @Router /api/v1/friends/{friendId} [delete]
func (h *FriendHandler) RemoveFriend(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.relationService.RemoveFriend(ctx, userUUID, c.Param("friendId")); err != nil {
		failWithError(ctx, c, "删除好友服务内部错误", err)
		return
	}
	result.Success(c, nil)
}

func parseRequestID(c *gin.Context) (int64, bool) {
	requestID, err := strconv.ParseInt(c.Param("requestId"), 10, 64)
	if err != nil || requestID <= 0 {
		result.Fail(c, nil, consts.CodeParamError)
		return 0, false
	}
	return requestID, true
}
