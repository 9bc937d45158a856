package repository

import (
	"context"
	"time"

	"SocialChat/model"
	"SocialChat/pkg/convkey"

	"gorm.io/gorm"
)

// friendRepositoryImpl 好友关系数据访问层实现
type friendRepositoryImpl struct {
	db *gorm.DB
}

// NewFriendRepository 创建好友关系仓储实例
func NewFriendRepository(db *gorm.DB) IFriendRepository {
	return &friendRepositoryImpl{db: db}
}

// IsFriend 是否互为好友：A->B 与 B->A 两条边都必须存在
func (r *friendRepositoryImpl) IsFriend(ctx context.Context, userUUID, peerUUID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserRelation{}).
		Where("((user_uuid = ? AND peer_uuid = ?) OR (user_uuid = ? AND peer_uuid = ?)) AND status = ?",
			userUUID, peerUUID, peerUUID, userUUID, model.RelationStatusNormal).
		Count(&count).Error
	if err != nil {
		return false, WrapDBError(err)
	}
	return count == 2, nil
}

// ListFriendUUIDs 好友 uuid 列表（按成为好友的时间倒序）
func (r *friendRepositoryImpl) ListFriendUUIDs(ctx context.Context, userUUID string) ([]string, error) {
	uuids := make([]string, 0)
	err := r.db.WithContext(ctx).
		Model(&model.UserRelation{}).
		Where("user_uuid = ? AND status = ?", userUUID, model.RelationStatusNormal).
		Order("updated_at DESC, id DESC").
		Pluck("peer_uuid", &uuids).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return uuids, nil
}

// RemoveFriend 双向删除好友（事务）
//  1. 软删除两条好友边
//  2. 释放两人之间 accepted 申请占用的 active_pair，之后可以重新申请
//
// 非好友时两步都不会命中任何行，直接成功。
func (r *friendRepositoryImpl) RemoveFriend(ctx context.Context, userA, userB string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.UserRelation{}).
			Where("(user_uuid = ? AND peer_uuid = ?) OR (user_uuid = ? AND peer_uuid = ?)", userA, userB, userB, userA).
			Updates(map[string]interface{}{
				"status":     model.RelationStatusDeleted,
				"deleted_at": now,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		return tx.Model(&model.FriendRequest{}).
			Where("active_pair = ? AND status = ?", convkey.Key(userA, userB), model.FriendRequestAccepted).
			Update("active_pair", nil).Error
	})
	return WrapDBError(err)
}
