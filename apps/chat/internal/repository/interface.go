package repository

import (
	"context"
	"time"

	"SocialChat/model"
)

// ==================== 用户 Repository ====================

// IUserRepository 用户信息数据访问接口（用户资料由账号服务维护，这里只读 + 在线状态镜像）
type IUserRepository interface {
	// GetByUUID 根据 uuid 查询用户，不存在返回 ErrRecordNotFound
	GetByUUID(ctx context.Context, uuid string) (*model.UserInfo, error)

	// Exists 判断用户是否存在
	Exists(ctx context.Context, uuid string) (bool, error)

	// BatchGetByUUIDs 批量查询用户信息，不存在的 uuid 直接忽略
	BatchGetByUUIDs(ctx context.Context, uuids []string) ([]*model.UserInfo, error)

	// UpdatePresence 写入在线状态镜像（is_online / last_seen_at）
	UpdatePresence(ctx context.Context, uuid string, online bool, at time.Time) error
}

// ==================== 好友申请 Repository ====================

// IFriendRequestRepository 好友申请数据访问接口
type IFriendRequestRepository interface {
	// Create 创建 pending 申请；同一对用户已有活跃申请时返回 ErrDuplicateKey
	Create(ctx context.Context, req *model.FriendRequest) (*model.FriendRequest, error)

	// GetByID 根据 id 查询，不存在返回 ErrRecordNotFound
	GetByID(ctx context.Context, id int64) (*model.FriendRequest, error)

	// ExistsActiveBetween 两人之间（不分方向）是否存在 pending/accepted 申请
	ExistsActiveBetween(ctx context.Context, userA, userB string) (bool, error)

	// ListPendingReceived 收到的待处理申请，按创建时间倒序
	ListPendingReceived(ctx context.Context, receiverUUID string) ([]*model.FriendRequest, error)

	// ListPendingSent 发出的待处理申请，按创建时间倒序
	ListPendingSent(ctx context.Context, senderUUID string) ([]*model.FriendRequest, error)

	// AcceptAndCreateRelation 同意申请并建立双向好友边（同一事务）
	// alreadyProcessed=true 表示申请已不是 pending，未做任何修改
	AcceptAndCreateRelation(ctx context.Context, req *model.FriendRequest, at time.Time) (alreadyProcessed bool, err error)

	// Reject 拒绝申请，alreadyProcessed 语义同上
	Reject(ctx context.Context, id int64, at time.Time) (alreadyProcessed bool, err error)

	// GetUnreadCount 收到的新申请未读数（Redis，不可用时返回 0）
	GetUnreadCount(ctx context.Context, receiverUUID string) (int64, error)

	// ClearUnreadCount 清空新申请未读数
	ClearUnreadCount(ctx context.Context, receiverUUID string) error
}

// ==================== 好友关系 Repository ====================

// IFriendRepository 好友关系数据访问接口
type IFriendRepository interface {
	// IsFriend 是否互为好友（两条边都存在且正常）
	IsFriend(ctx context.Context, userUUID, peerUUID string) (bool, error)

	// ListFriendUUIDs 好友 uuid 列表
	ListFriendUUIDs(ctx context.Context, userUUID string) ([]string, error)

	// RemoveFriend 双向删除好友并释放两人之间已同意的申请，非好友时为空操作
	RemoveFriend(ctx context.Context, userA, userB string) error
}

// ==================== 消息 Repository ====================

// IMessageRepository 单聊消息存储接口
type IMessageRepository interface {
	// Append 追加一条消息，id/created_at 为空时自动补齐
	Append(ctx context.Context, msg *model.Message) (*model.Message, error)

	// ListByConversation 分页查询：第 1 页为最新的 limit 条，页内按时间正序返回
	ListByConversation(ctx context.Context, conversationKey string, page, limit int) ([]*model.Message, error)

	// MarkRead 把会话中发给 receiver 的未读消息批量置为已读，返回本次更新条数
	MarkRead(ctx context.Context, conversationKey, receiverUUID string, at time.Time) (int64, error)

	// CountUnread 会话内发给 receiver 的未读数
	CountUnread(ctx context.Context, conversationKey, receiverUUID string) (int64, error)

	// CountUnreadForUser receiver 的全局未读数
	CountUnreadForUser(ctx context.Context, receiverUUID string) (int64, error)

	// LastMessage 会话最后一条消息，没有消息时返回 nil, nil
	LastMessage(ctx context.Context, conversationKey string) (*model.Message, error)
}
