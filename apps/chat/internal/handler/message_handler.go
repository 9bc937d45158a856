package handler

import (
	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/internal/service"
	"SocialChat/consts"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息与会话处理器
type MessageHandler struct {
	messageService      service.MessageService
	conversationService service.ConversationService
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(messageService service.MessageService, conversationService service.ConversationService) *MessageHandler {
	return &MessageHandler{
		messageService:      messageService,
		conversationService: conversationService,
	}
}

// Send 发送消息：落库成功即返回，实时推送在服务层尽力完成
// @Router /api/v1/messages/send [post]
func (h *MessageHandler) Send(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	item, err := h.messageService.Send(ctx, userUUID, &req)
	if err != nil {
		failWithError(ctx, c, "发送消息服务内部错误", err)
		return
	}
	result.Success(c, item)
}

// LoadConversation 分页加载会话，同时把发给自己的消息置为已读
// @Router /api/v1/messages/conversation/{friendId} [get]
func (h *MessageHandler) LoadConversation(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	var query dto.ConversationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.messageService.LoadConversation(ctx, userUUID, c.Param("friendId"), query.Page, query.Limit)
	if err != nil {
		failWithError(ctx, c, "加载会话消息服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// ConversationUnread 单个会话未读数
// @Router /api/v1/messages/conversation/{friendId}/unread [get]
func (h *MessageHandler) ConversationUnread(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.messageService.ConversationUnread(ctx, userUUID, c.Param("friendId"))
	if err != nil {
		failWithError(ctx, c, "获取会话未读数服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// UnreadCount 全局未读数
// @Router /api/v1/messages/unread [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.messageService.UnreadCount(ctx, userUUID)
	if err != nil {
		failWithError(ctx, c, "获取未读数服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// ListConversations 会话列表
// @Router /api/v1/messages/conversations [get]
func (h *MessageHandler) ListConversations(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.conversationService.ListConversations(ctx, userUUID)
	if err != nil {
		failWithError(ctx, c, "获取会话列表服务内部错误", err)
		return
	}
	result.Success(c, resp)
}
