package repository

import (
	"context"
	"time"

	"SocialChat/model"
	"SocialChat/pkg/util"

	"gorm.io/gorm"
)

const (
	defaultMessagePageSize = 50
	maxMessagePage         = 10000
)

// messageRepositoryImpl 消息存储实现
type messageRepositoryImpl struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓储实例
func NewMessageRepository(db *gorm.DB) IMessageRepository {
	return &messageRepositoryImpl{db: db}
}

// Append 追加一条消息
func (r *messageRepositoryImpl) Append(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg.Id == 0 {
		msg.Id = util.NextID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.MessageType == "" {
		msg.MessageType = model.MessageTypeText
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return msg, nil
}

// ListByConversation 分页查询会话消息。
// 先按时间倒序取第 page 页（第 1 页 = 最新 limit 条），再翻转为正序交给展示层。
// id 作为二级排序，同一毫秒内的消息顺序稳定（雪花 id 单调递增）。
func (r *messageRepositoryImpl) ListByConversation(ctx context.Context, conversationKey string, page, limit int) ([]*model.Message, error) {
	page, limit = normalizePage(page, limit, defaultMessagePageSize)

	messages := make([]*model.Message, 0, limit)
	// 页码过大时偏移量可能溢出为负数，gorm 会忽略负偏移并返回第 1 页
	if page > maxMessagePage {
		return messages, nil
	}
	err := r.db.WithContext(ctx).
		Where("conversation_key = ?", conversationKey).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, WrapDBError(err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkRead 批量已读。
// 单条条件 UPDATE 完成，不做先查后改：并发写入的新消息要么被本次命中，要么保持未读，不会出现半更新状态。
// 已读消息不满足 is_read = false，重复调用不会改写 read_at。
func (r *messageRepositoryImpl) MarkRead(ctx context.Context, conversationKey, receiverUUID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_key = ? AND receiver_uuid = ? AND is_read = ?", conversationKey, receiverUUID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	if result.Error != nil {
		return 0, WrapDBError(result.Error)
	}
	return result.RowsAffected, nil
}

// CountUnread 会话未读数
func (r *messageRepositoryImpl) CountUnread(ctx context.Context, conversationKey, receiverUUID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_key = ? AND receiver_uuid = ? AND is_read = ?", conversationKey, receiverUUID, false).
		Count(&count).Error
	if err != nil {
		return 0, WrapDBError(err)
	}
	return count, nil
}

// CountUnreadForUser 全局未读数
func (r *messageRepositoryImpl) CountUnreadForUser(ctx context.Context, receiverUUID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("receiver_uuid = ? AND is_read = ?", receiverUUID, false).
		Count(&count).Error
	if err != nil {
		return 0, WrapDBError(err)
	}
	return count, nil
}

// LastMessage 会话最后一条消息
func (r *messageRepositoryImpl) LastMessage(ctx context.Context, conversationKey string) (*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_key = ?", conversationKey).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&messages).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}
