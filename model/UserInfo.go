package model

import (
	"time"

	"gorm.io/gorm"
)

// UserInfo 用户基础信息（由账号服务维护，本服务只读，唯一例外是在线状态镜像）。
// is_online / last_seen_at 只是实时连接状态的落库镜像，真实在线状态以进程内注册表为准。
type UserInfo struct {
	Id         int64      `gorm:"column:id;primaryKey;autoIncrement;comment:自增id"`
	Uuid       string     `gorm:"column:uuid;type:char(20);not null;uniqueIndex;comment:用户唯一id"`
	Nickname   string     `gorm:"column:nickname;type:varchar(64);not null;default:'';comment:昵称"`
	Avatar     string     `gorm:"column:avatar;type:varchar(255);not null;default:'';comment:头像地址"`
	Bio        string     `gorm:"column:bio;type:varchar(255);not null;default:'';comment:个人简介"`
	IsOnline   bool       `gorm:"column:is_online;not null;default:false;comment:是否在线(镜像)"`
	LastSeenAt *time.Time `gorm:"column:last_seen_at;comment:最后在线时间"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (UserInfo) TableName() string { return "user_info" }
