package config

import "time"

// AsyncConfig 协程池配置。
// 说明：只用于尽力而为的异步任务（事件投递等），不负责定时/调度。
type AsyncConfig struct {
	PoolSize         int           `json:"poolSize" yaml:"poolSize"`                 // 协程池容量
	MaxBlockingTasks int           `json:"maxBlockingTasks" yaml:"maxBlockingTasks"` // 最大阻塞任务数（0 表示不限制）
	ExpiryDuration   time.Duration `json:"expiryDuration" yaml:"expiryDuration"`     // 空闲 worker 过期时间
	Nonblocking      bool          `json:"nonblocking" yaml:"nonblocking"`           // 是否非阻塞提交
	ReleaseTimeout   time.Duration `json:"releaseTimeout" yaml:"releaseTimeout"`     // 优雅释放等待时间
	TaskTimeout      time.Duration `json:"taskTimeout" yaml:"taskTimeout"`           // 单个任务默认超时
}

// DefaultAsyncConfig 返回本地开发的默认配置。
// 事件投递可以丢，池满时直接拒绝而不是阻塞请求链路。
func DefaultAsyncConfig() AsyncConfig {
	return AsyncConfig{
		PoolSize:         getEnvInt("ASYNC_POOL_SIZE", 256),
		MaxBlockingTasks: 0,
		ExpiryDuration:   10 * time.Second,
		Nonblocking:      true,
		ReleaseTimeout:   5 * time.Second,
		TaskTimeout:      10 * time.Second,
	}
}
