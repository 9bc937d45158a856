package repository

import (
	"context"
	"time"

	"SocialChat/consts/redisKey"
	"SocialChat/model"
	"SocialChat/pkg/convkey"
	"SocialChat/pkg/util"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// friendRequestRepositoryImpl 好友申请数据访问层实现
type friendRequestRepositoryImpl struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewFriendRequestRepository 创建好友申请仓储实例，redisClient 可以为 nil
func NewFriendRequestRepository(db *gorm.DB, redisClient *redis.Client) IFriendRequestRepository {
	return &friendRequestRepositoryImpl{db: db, redisClient: redisClient}
}

// Create 创建好友申请。
// active_pair 唯一索引兜底并发：两端同时互发申请时只有一条能写入，另一条得到 ErrDuplicateKey。
func (r *friendRequestRepositoryImpl) Create(ctx context.Context, req *model.FriendRequest) (*model.FriendRequest, error) {
	if req.Id == 0 {
		req.Id = util.NextID()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	pair := convkey.Key(req.SenderUuid, req.ReceiverUuid)
	req.ActivePair = &pair
	req.Status = model.FriendRequestPending

	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, WrapDBError(err)
	}

	// 尽力而为：接收方新申请未读数 +1
	if r.redisClient != nil {
		key := rediskey.FriendRequestUnreadKey(req.ReceiverUuid)
		pipe := r.redisClient.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rediskey.FriendRequestUnreadTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			LogRedisError(ctx, err)
		}
	}

	return req, nil
}

// GetByID 根据 id 查询好友申请
func (r *friendRequestRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return &req, nil
}

// ExistsActiveBetween 两人之间是否存在活跃申请（active_pair 与方向无关）
func (r *friendRequestRepositoryImpl) ExistsActiveBetween(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.FriendRequest{}).
		Where("active_pair = ?", convkey.Key(userA, userB)).
		Count(&count).Error
	if err != nil {
		return false, WrapDBError(err)
	}
	return count > 0, nil
}

// ListPendingReceived 收到的待处理申请
func (r *friendRequestRepositoryImpl) ListPendingReceived(ctx context.Context, receiverUUID string) ([]*model.FriendRequest, error) {
	return r.listPending(ctx, "receiver_uuid", receiverUUID)
}

// ListPendingSent 发出的待处理申请
func (r *friendRequestRepositoryImpl) ListPendingSent(ctx context.Context, senderUUID string) ([]*model.FriendRequest, error) {
	return r.listPending(ctx, "sender_uuid", senderUUID)
}

func (r *friendRequestRepositoryImpl) listPending(ctx context.Context, column, userUUID string) ([]*model.FriendRequest, error) {
	requests := make([]*model.FriendRequest, 0)
	err := r.db.WithContext(ctx).
		Where(column+" = ? AND status = ?", userUUID, model.FriendRequestPending).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return requests, nil
}

// AcceptAndCreateRelation 同意申请并创建好友关系（事务 + CAS）
// 在同一事务中执行：
//  1. CAS 更新申请状态（WHERE status='pending' 守门）
//  2. Upsert A->B、B->A 两条好友边（复活被软删除的旧边）
//
// 任意一步失败整体回滚，不会出现单向好友。
func (r *friendRequestRepositoryImpl) AcceptAndCreateRelation(ctx context.Context, req *model.FriendRequest, at time.Time) (bool, error) {
	var alreadyProcessed bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.FriendRequest{}).
			Where("id = ? AND status = ?", req.Id, model.FriendRequestPending).
			Updates(map[string]interface{}{
				"status":     model.FriendRequestAccepted,
				"handled_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			alreadyProcessed = true
			return nil
		}

		edges := []*model.UserRelation{
			{UserUuid: req.SenderUuid, PeerUuid: req.ReceiverUuid, Status: model.RelationStatusNormal, CreatedAt: at, UpdatedAt: at},
			{UserUuid: req.ReceiverUuid, PeerUuid: req.SenderUuid, Status: model.RelationStatusNormal, CreatedAt: at, UpdatedAt: at},
		}
		for _, edge := range edges {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_uuid"}, {Name: "peer_uuid"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"status":     model.RelationStatusNormal,
					"deleted_at": nil,
					"updated_at": at,
				}),
			}).Create(edge).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, WrapDBError(err)
	}
	return alreadyProcessed, nil
}

// Reject 拒绝申请（CAS），同时释放 active_pair，之后双方可以重新发起申请
func (r *friendRequestRepositoryImpl) Reject(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.FriendRequestPending).
		Updates(map[string]interface{}{
			"status":      model.FriendRequestRejected,
			"active_pair": nil,
			"handled_at":  at,
		})
	if result.Error != nil {
		return false, WrapDBError(result.Error)
	}
	return result.RowsAffected == 0, nil
}

// GetUnreadCount 新申请未读数
func (r *friendRequestRepositoryImpl) GetUnreadCount(ctx context.Context, receiverUUID string) (int64, error) {
	if r.redisClient == nil {
		return 0, nil
	}
	count, err := r.redisClient.Get(ctx, rediskey.FriendRequestUnreadKey(receiverUUID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, WrapRedisError(err)
	}
	return count, nil
}

// ClearUnreadCount 清空新申请未读数
func (r *friendRequestRepositoryImpl) ClearUnreadCount(ctx context.Context, receiverUUID string) error {
	if r.redisClient == nil {
		return nil
	}
	if err := r.redisClient.Del(ctx, rediskey.FriendRequestUnreadKey(receiverUUID)).Err(); err != nil {
		return WrapRedisError(err)
	}
	return nil
}
