package model

import "time"

// MessageType 消息类型。
type MessageType string

const (
	MessageTypeText       MessageType = "text"
	MessageTypeImage      MessageType = "image"
	MessageTypeFile       MessageType = "file"
	MessageTypeSharedPost MessageType = "shared_post"
)

// Valid 判断消息类型是否受支持。
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSharedPost:
		return true
	}
	return false
}

// Message 单聊消息，只追加不修改（is_read/read_at 除外，且只会从未读变为已读一次）。
// 索引：
//   - idx_conv_created 用于会话分页与取最后一条；
//   - idx_conv_receiver_read 用于会话未读数与批量已读；
//   - idx_receiver_read 用于全局未读数。
type Message struct {
	Id              int64       `gorm:"column:id;primaryKey;autoIncrement:false;comment:雪花id" json:"id,string"`
	ConversationKey string      `gorm:"column:conversation_key;type:varchar(64);not null;index:idx_conv_created,priority:1;index:idx_conv_receiver_read,priority:1;comment:会话key" json:"conversationId"`
	SenderUuid      string      `gorm:"column:sender_uuid;type:char(20);not null;comment:发送者" json:"senderId"`
	ReceiverUuid    string      `gorm:"column:receiver_uuid;type:char(20);not null;index:idx_conv_receiver_read,priority:2;index:idx_receiver_read,priority:1;comment:接收者" json:"receiverId"`
	Content         string      `gorm:"column:content;type:text;not null;comment:内容" json:"content"`
	MessageType     MessageType `gorm:"column:message_type;type:varchar(16);not null;default:'text';comment:消息类型" json:"messageType"`
	IsRead          bool        `gorm:"column:is_read;not null;default:false;index:idx_conv_receiver_read,priority:3;index:idx_receiver_read,priority:2;comment:是否已读" json:"isRead"`
	ReadAt          *time.Time  `gorm:"column:read_at;comment:已读时间" json:"readAt,omitempty"`
	CreatedAt       time.Time   `gorm:"column:created_at;index:idx_conv_created,priority:2;comment:发送时间" json:"createdAt"`
}

func (Message) TableName() string { return "message" }
