package dto

// ==================== 消息相关 DTO ====================

// SendMessageRequest 发送消息请求 DTO
type SendMessageRequest struct {
	ReceiverID  string `json:"receiverId" binding:"required"` // 接收者UUID
	Content     string `json:"content"`                       // 内容
	MessageType string `json:"messageType"`                   // text/image/file/shared_post，默认 text
}

// ConversationQuery 会话分页查询参数
type ConversationQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1,max=10000"` // 页码，默认1
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`  // 每页数量，默认50
}

// MessageItem 消息 DTO
type MessageItem struct {
	ID             int64  `json:"id,string"`      // 消息ID
	ConversationID string `json:"conversationId"` // 会话ID
	SenderID       string `json:"senderId"`       // 发送者
	ReceiverID     string `json:"receiverId"`     // 接收者
	Content        string `json:"content"`        // 内容
	MessageType    string `json:"messageType"`    // 消息类型
	IsRead         bool   `json:"isRead"`         // 是否已读
	ReadAt         int64  `json:"readAt"`         // 已读时间（毫秒时间戳，未读为0）
	CreatedAt      int64  `json:"createdAt"`      // 发送时间（毫秒时间戳）
}

// ConversationMessagesResponse 会话消息分页响应 DTO
type ConversationMessagesResponse struct {
	ConversationID string         `json:"conversationId"`
	Items          []*MessageItem `json:"items"`      // 页内按时间正序
	Page           int            `json:"page"`       // 当前页
	Limit          int            `json:"limit"`      // 每页数量
	MarkedRead     int64          `json:"markedRead"` // 本次置为已读的条数
}

// ConversationSummary 收件箱中的单个会话
type ConversationSummary struct {
	ConversationID string       `json:"conversationId"`
	Friend         *FriendItem  `json:"friend"`
	LastMessage    *MessageItem `json:"lastMessage"` // 还没有消息时为 null
	UnreadCount    int64        `json:"unreadCount"`
}

// ConversationListResponse 收件箱响应 DTO
type ConversationListResponse struct {
	Items []*ConversationSummary `json:"items"`
}
