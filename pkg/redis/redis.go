package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SocialChat/config"

	"github.com/redis/go-redis/v9"
)

var (
	global   *redis.Client
	globalMu sync.RWMutex
)

// Client 返回全局 Redis 客户端（未初始化或降级时为 nil，调用方需判空）。
func Client() *redis.Client {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// ReplaceGlobal 设置全局 Redis 客户端。
func ReplaceGlobal(c *redis.Client) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = c
}

// Build 创建客户端并 Ping 一次，失败时关闭客户端并返回错误。
func Build(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
