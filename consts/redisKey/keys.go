package rediskey

import (
	"fmt"
	"time"
)

// ==================== TTL 常量 ====================

const (
	// PresenceTTL 在线状态镜像 TTL（每次上下线都会续期）
	PresenceTTL = 30 * 24 * time.Hour

	// FriendRequestUnreadTTL 好友申请未读计数 TTL
	FriendRequestUnreadTTL = 7 * 24 * time.Hour
)

// ==================== Key 构造函数 ====================

// PresenceKey 生成在线状态镜像 Key: chat:presence:{user_uuid}
// 字段：online(0/1)、last_seen(unix 秒)
func PresenceKey(userUUID string) string {
	return fmt.Sprintf("chat:presence:%s", userUUID)
}

// FriendRequestUnreadKey 生成好友申请未读计数 Key: chat:notify:friend_request:unread:{user_uuid}
func FriendRequestUnreadKey(userUUID string) string {
	return fmt.Sprintf("chat:notify:friend_request:unread:%s", userUUID)
}

// ==================== 限流 Key 构造函数 ====================

// UserRateLimitKey 用户限流 Key: chat:rate:limit:user:{user_uuid}
func UserRateLimitKey(userUUID string) string {
	return fmt.Sprintf("chat:rate:limit:user:%s", userUUID)
}

// IPRateLimitKey IP 限流 Key: chat:rate:limit:ip:{ip}
func IPRateLimitKey(ip string) string {
	return fmt.Sprintf("chat:rate:limit:ip:%s", ip)
}
