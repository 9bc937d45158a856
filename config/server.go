package config

import "time"

// ServerConfig HTTP 服务运行参数。
// 这些超时用于限制异常连接占用资源；/ws 升级后不受 WriteTimeout 影响。
type ServerConfig struct {
	Addr              string        `json:"addr" yaml:"addr"`
	GinMode           string        `json:"ginMode" yaml:"ginMode"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
	ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	RequestTimeout    time.Duration `json:"requestTimeout" yaml:"requestTimeout"` // 单个 REST 请求超时
	ShutdownTimeout   time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`

	UserRate  float64 `json:"userRate" yaml:"userRate"`   // 每用户每秒令牌数
	UserBurst int     `json:"userBurst" yaml:"userBurst"` // 每用户令牌桶容量
}

// DefaultServerConfig 返回默认配置，端口优先读取 CHAT_ADDR。
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              getEnv("CHAT_ADDR", ":8080"),
		GinMode:           getEnv("GIN_MODE", "release"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		RequestTimeout:    10 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		UserRate:          20,
		UserBurst:         40,
	}
}
