package dto

import (
	"time"

	"SocialChat/model"
	"SocialChat/pkg/convkey"
)

// ==================== model -> DTO 转换 ====================

func toMillis(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// ConvertSimpleUser 用户 -> 简化用户信息，nil 安全
func ConvertSimpleUser(user *model.UserInfo) *SimpleUserInfo {
	if user == nil {
		return nil
	}
	return &SimpleUserInfo{
		UUID:     user.Uuid,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
	}
}

// ConvertFriendRequest 好友申请 -> DTO，users 用于补齐双方资料（可以为 nil）
func ConvertFriendRequest(req *model.FriendRequest, users map[string]*model.UserInfo) *FriendRequestItem {
	if req == nil {
		return nil
	}
	return &FriendRequestItem{
		ID:         req.Id,
		SenderID:   req.SenderUuid,
		ReceiverID: req.ReceiverUuid,
		Status:     string(req.Status),
		Message:    req.Message,
		CreatedAt:  toMillis(&req.CreatedAt),
		HandledAt:  toMillis(req.HandledAt),
		Sender:     ConvertSimpleUser(users[req.SenderUuid]),
		Receiver:   ConvertSimpleUser(users[req.ReceiverUuid]),
	}
}

// ConvertFriend 好友 -> DTO。user 为 nil 时只填 uuid（账号服务侧资料缺失）
func ConvertFriend(selfUUID, friendUUID string, user *model.UserInfo) *FriendItem {
	item := &FriendItem{
		UUID:           friendUUID,
		ConversationID: convkey.Key(selfUUID, friendUUID),
	}
	if user != nil {
		item.Nickname = user.Nickname
		item.Avatar = user.Avatar
		item.Bio = user.Bio
		item.IsOnline = user.IsOnline
		item.LastSeenAt = toMillis(user.LastSeenAt)
	}
	return item
}

// ConvertMessage 消息 -> DTO
func ConvertMessage(msg *model.Message) *MessageItem {
	if msg == nil {
		return nil
	}
	return &MessageItem{
		ID:             msg.Id,
		ConversationID: msg.ConversationKey,
		SenderID:       msg.SenderUuid,
		ReceiverID:     msg.ReceiverUuid,
		Content:        msg.Content,
		MessageType:    string(msg.MessageType),
		IsRead:         msg.IsRead,
		ReadAt:         toMillis(msg.ReadAt),
		CreatedAt:      toMillis(&msg.CreatedAt),
	}
}

// ConvertMessages 批量转换
func ConvertMessages(msgs []*model.Message) []*MessageItem {
	items := make([]*MessageItem, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, ConvertMessage(msg))
	}
	return items
}

// UserMap uuid -> 用户
func UserMap(users []*model.UserInfo) map[string]*model.UserInfo {
	m := make(map[string]*model.UserInfo, len(users))
	for _, user := range users {
		m[user.Uuid] = user
	}
	return m
}
