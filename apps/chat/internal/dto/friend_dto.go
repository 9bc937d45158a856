package dto

// ==================== 好友相关 DTO ====================

// SendFriendRequestRequest 发送好友申请请求 DTO
type SendFriendRequestRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`       // 目标用户UUID
	Message    string `json:"message" binding:"omitempty,max=255"` // 附言
}

// FriendRequestItem 好友申请信息 DTO
type FriendRequestItem struct {
	ID         int64           `json:"id,string"`          // 申请ID
	SenderID   string          `json:"senderId"`           // 申请人
	ReceiverID string          `json:"receiverId"`         // 被申请人
	Status     string          `json:"status"`             // pending/accepted/rejected
	Message    string          `json:"message"`            // 附言
	CreatedAt  int64           `json:"createdAt"`          // 申请时间（毫秒时间戳）
	HandledAt  int64           `json:"handledAt"`          // 处理时间（毫秒时间戳，未处理为0）
	Sender     *SimpleUserInfo `json:"sender,omitempty"`   // 申请人资料
	Receiver   *SimpleUserInfo `json:"receiver,omitempty"` // 被申请人资料
}

// FriendRequestListResponse 好友申请列表响应 DTO
type FriendRequestListResponse struct {
	Items []*FriendRequestItem `json:"items"`
}

// FriendItem 好友信息 DTO
type FriendItem struct {
	UUID           string `json:"uuid"`           // 好友UUID
	Nickname       string `json:"nickname"`       // 昵称
	Avatar         string `json:"avatar"`         // 头像
	Bio            string `json:"bio"`            // 简介
	IsOnline       bool   `json:"isOnline"`       // 是否在线
	LastSeenAt     int64  `json:"lastSeenAt"`     // 最后在线时间（毫秒时间戳）
	ConversationID string `json:"conversationId"` // 会话ID
}

// FriendListResponse 好友列表响应 DTO
type FriendListResponse struct {
	Items []*FriendItem `json:"items"`
}
