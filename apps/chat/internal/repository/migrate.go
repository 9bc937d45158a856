package repository

import (
	"SocialChat/model"

	"gorm.io/gorm"
)

// AutoMigrate 建表/补索引。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.UserInfo{},
		&model.UserRelation{},
		&model.FriendRequest{},
		&model.Message{},
	)
}
