package repository

import (
	"context"
	"time"

	"SocialChat/consts/redisKey"
	"SocialChat/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	existsCacheSize = 10000
	existsCacheTTL  = 10 * time.Minute
)

// userRepositoryImpl 用户信息数据访问层实现
type userRepositoryImpl struct {
	db          *gorm.DB
	redisClient *redis.Client
	// existsCache 只缓存"存在"的结果：用户被注销属于低频事件，短 TTL 足够；
	// 不存在的结果不缓存，避免新注册用户短时间内被判定为不存在。
	existsCache *expirable.LRU[string, struct{}]
}

// NewUserRepository 创建用户仓储实例，redisClient 可以为 nil（仅跳过镜像写入）
func NewUserRepository(db *gorm.DB, redisClient *redis.Client) IUserRepository {
	return &userRepositoryImpl{
		db:          db,
		redisClient: redisClient,
		existsCache: expirable.NewLRU[string, struct{}](existsCacheSize, nil, existsCacheTTL),
	}
}

// GetByUUID 根据 uuid 查询用户
func (r *userRepositoryImpl) GetByUUID(ctx context.Context, uuid string) (*model.UserInfo, error) {
	var user model.UserInfo
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&user).Error; err != nil {
		return nil, WrapDBError(err)
	}
	r.existsCache.Add(uuid, struct{}{})
	return &user, nil
}

// Exists 判断用户是否存在
func (r *userRepositoryImpl) Exists(ctx context.Context, uuid string) (bool, error) {
	if _, ok := r.existsCache.Get(uuid); ok {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.UserInfo{}).Where("uuid = ?", uuid).Count(&count).Error; err != nil {
		return false, WrapDBError(err)
	}
	if count > 0 {
		r.existsCache.Add(uuid, struct{}{})
	}
	return count > 0, nil
}

// BatchGetByUUIDs 批量查询用户信息
func (r *userRepositoryImpl) BatchGetByUUIDs(ctx context.Context, uuids []string) ([]*model.UserInfo, error) {
	if len(uuids) == 0 {
		return []*model.UserInfo{}, nil
	}
	var users []*model.UserInfo
	if err := r.db.WithContext(ctx).Where("uuid IN ?", uuids).Find(&users).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return users, nil
}

// UpdatePresence 写入在线状态镜像。
// 条件更新：last_seen_at 比 at 新的行不覆盖，迟到的旧状态不会盖掉新状态。
// MySQL 为准；Redis 镜像尽力而为，失败只记日志。
func (r *userRepositoryImpl) UpdatePresence(ctx context.Context, uuid string, online bool, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.UserInfo{}).
		Where("uuid = ? AND (last_seen_at IS NULL OR last_seen_at <= ?)", uuid, at).
		Updates(map[string]interface{}{
			"is_online":    online,
			"last_seen_at": at,
		})
	if result.Error != nil {
		return WrapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	if r.redisClient != nil {
		onlineFlag := 0
		if online {
			onlineFlag = 1
		}
		key := rediskey.PresenceKey(uuid)
		pipe := r.redisClient.Pipeline()
		pipe.HSet(ctx, key, "online", onlineFlag, "last_seen", at.Unix())
		pipe.Expire(ctx, key, getRandomExpireTime(rediskey.PresenceTTL))
		if _, err := pipe.Exec(ctx); err != nil {
			LogRedisError(ctx, err)
		}
	}
	return nil
}
