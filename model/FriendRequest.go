package model

import (
	"time"

	"gorm.io/gorm"
)

// FriendRequestStatus 好友申请状态。
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest 好友申请。
// ActivePair 是会话 key（两端 uuid 排序拼接），仅在 pending/accepted 时有值，
// 唯一索引保证同一对用户（不分方向）同时最多一条活跃申请；rejected 或解除好友时置 NULL。
type FriendRequest struct {
	Id           int64               `gorm:"column:id;primaryKey;autoIncrement:false;comment:雪花id" json:"id,string"`
	SenderUuid   string              `gorm:"column:sender_uuid;type:char(20);not null;index:idx_sender_status;comment:申请人" json:"senderId"`
	ReceiverUuid string              `gorm:"column:receiver_uuid;type:char(20);not null;index:idx_receiver_status;comment:被申请人" json:"receiverId"`
	Status       FriendRequestStatus `gorm:"column:status;type:varchar(16);not null;default:'pending';index:idx_sender_status;index:idx_receiver_status;comment:状态" json:"status"`
	Message      string              `gorm:"column:message;type:varchar(255);not null;default:'';comment:附言" json:"message,omitempty"`
	ActivePair   *string             `gorm:"column:active_pair;type:varchar(64);uniqueIndex:uidx_active_pair;comment:活跃申请对" json:"-"`
	HandledAt    *time.Time          `gorm:"column:handled_at;comment:处理时间" json:"handledAt,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (FriendRequest) TableName() string { return "friend_request" }

// IsActive 是否处于占用关系对的状态。
func (r *FriendRequest) IsActive() bool {
	return r.Status == FriendRequestPending || r.Status == FriendRequestAccepted
}
