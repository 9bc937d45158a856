package service

import (
	"context"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/mq"
)

// RelationService 好友关系（好友申请状态机 + 好友集合）
type RelationService interface {
	// SendRequest 发送好友申请
	SendRequest(ctx context.Context, senderUUID string, req *dto.SendFriendRequestRequest) (*dto.FriendRequestItem, error)

	// Accept 同意好友申请，只有被申请人可以操作
	Accept(ctx context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error)

	// Reject 拒绝好友申请，只有被申请人可以操作
	Reject(ctx context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error)

	// ListReceived 收到的待处理申请
	ListReceived(ctx context.Context, userUUID string) (*dto.FriendRequestListResponse, error)

	// ListSent 发出的待处理申请
	ListSent(ctx context.Context, userUUID string) (*dto.FriendRequestListResponse, error)

	// UnreadRequestCount 新申请未读数
	UnreadRequestCount(ctx context.Context, userUUID string) (*dto.UnreadCountResponse, error)

	// RemoveFriend 解除好友，非好友时为空操作
	RemoveFriend(ctx context.Context, userUUID, friendUUID string) error

	// ListFriends 好友列表
	ListFriends(ctx context.Context, userUUID string) (*dto.FriendListResponse, error)
}

// MessageService 单聊消息发送与读取
type MessageService interface {
	// Send 校验好友关系后落库，然后尽力推送给在线的对方
	Send(ctx context.Context, senderUUID string, req *dto.SendMessageRequest) (*dto.MessageItem, error)

	// LoadConversation 分页加载会话并把发给自己的消息置为已读
	LoadConversation(ctx context.Context, userUUID, friendUUID string, page, limit int) (*dto.ConversationMessagesResponse, error)

	// ConversationUnread 单个会话未读数
	ConversationUnread(ctx context.Context, userUUID, friendUUID string) (*dto.UnreadCountResponse, error)

	// UnreadCount 全局未读数
	UnreadCount(ctx context.Context, userUUID string) (*dto.UnreadCountResponse, error)
}

// ConversationService 会话列表（收件箱）
type ConversationService interface {
	// ListConversations 每个好友一条：最后一条消息 + 未读数，按最后消息时间倒序
	ListConversations(ctx context.Context, userUUID string) (*dto.ConversationListResponse, error)
}

// Notifier 实时推送（由实时路由实现）。
// 推送都是尽力而为，不返回错误，失败只在实现内部记日志。
type Notifier interface {
	NotifyMessage(ctx context.Context, msg *dto.MessageItem)
	NotifyFriendRequestReceived(ctx context.Context, item *dto.FriendRequestItem)
	NotifyFriendRequestAccepted(ctx context.Context, item *dto.FriendRequestItem)
}

// EventPublisher 领域事件投递（由 mq.EventPublisher 实现）
type EventPublisher interface {
	Publish(ctx context.Context, event mq.ChatEvent)
}

// nopNotifier 未接入实时通道时使用
type nopNotifier struct{}

func (nopNotifier) NotifyMessage(context.Context, *dto.MessageItem)                     {}
func (nopNotifier) NotifyFriendRequestReceived(context.Context, *dto.FriendRequestItem) {}
func (nopNotifier) NotifyFriendRequestAccepted(context.Context, *dto.FriendRequestItem) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, mq.ChatEvent) {}
