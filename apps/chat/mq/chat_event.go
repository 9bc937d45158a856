package mq

import (
	"context"
	"time"

	"SocialChat/pkg/ctxmeta"
)

// ==================== 聊天领域事件定义 ====================

type EventType string

const (
	EventMessageSent           EventType = "message.sent"
	EventMessagesRead          EventType = "message.read"
	EventFriendRequestCreated  EventType = "friend_request.created"
	EventFriendRequestAccepted EventType = "friend_request.accepted"
	EventFriendRequestRejected EventType = "friend_request.rejected"
	EventFriendRemoved         EventType = "friend.removed"
	EventUserOnline            EventType = "presence.online"
	EventUserOffline           EventType = "presence.offline"
)

// ChatEvent 投递到 Kafka 的事件体。
// Key 决定分区：同一会话（或同一用户）的事件落在同一分区内有序。
type ChatEvent struct {
	Type EventType `json:"type"`
	Key  string    `json:"key"`

	ConversationKey string `json:"conversation_key,omitempty"`
	ActorUUID       string `json:"actor_uuid,omitempty"`
	TargetUUID      string `json:"target_uuid,omitempty"`
	RefID           int64  `json:"ref_id,omitempty,string"` // 消息 id / 申请 id
	Count           int64  `json:"count,omitempty"`         // 批量已读条数

	// 元数据
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ==================== 构造器函数（Builder） ====================

// BuildMessageSentEvent 消息已落库
func BuildMessageSentEvent(conversationKey, senderUUID, receiverUUID string, messageID int64) ChatEvent {
	return ChatEvent{
		Type:            EventMessageSent,
		Key:             conversationKey,
		ConversationKey: conversationKey,
		ActorUUID:       senderUUID,
		TargetUUID:      receiverUUID,
		RefID:           messageID,
		Timestamp:       time.Now(),
	}
}

// BuildMessagesReadEvent 会话批量已读
func BuildMessagesReadEvent(conversationKey, readerUUID string, count int64) ChatEvent {
	return ChatEvent{
		Type:            EventMessagesRead,
		Key:             conversationKey,
		ConversationKey: conversationKey,
		ActorUUID:       readerUUID,
		Count:           count,
		Timestamp:       time.Now(),
	}
}

// BuildFriendRequestEvent 好友申请状态变化（created/accepted/rejected）
func BuildFriendRequestEvent(eventType EventType, conversationKey, actorUUID, targetUUID string, requestID int64) ChatEvent {
	return ChatEvent{
		Type:            eventType,
		Key:             conversationKey,
		ConversationKey: conversationKey,
		ActorUUID:       actorUUID,
		TargetUUID:      targetUUID,
		RefID:           requestID,
		Timestamp:       time.Now(),
	}
}

// BuildFriendRemovedEvent 解除好友
func BuildFriendRemovedEvent(conversationKey, actorUUID, targetUUID string) ChatEvent {
	return ChatEvent{
		Type:            EventFriendRemoved,
		Key:             conversationKey,
		ConversationKey: conversationKey,
		ActorUUID:       actorUUID,
		TargetUUID:      targetUUID,
		Timestamp:       time.Now(),
	}
}

// BuildPresenceEvent 上下线
func BuildPresenceEvent(userUUID string, online bool) ChatEvent {
	eventType := EventUserOffline
	if online {
		eventType = EventUserOnline
	}
	return ChatEvent{
		Type:      eventType,
		Key:       userUUID,
		ActorUUID: userUUID,
		Timestamp: time.Now(),
	}
}

// ==================== 链式方法 ====================

// WithContext 带上链路 trace_id
func (e ChatEvent) WithContext(ctx context.Context) ChatEvent {
	if traceID := ctxmeta.TraceID(ctx); traceID != "" {
		e.TraceID = traceID
	}
	return e
}
