package config

import "time"

// RealtimeConfig 实时通道配置。
type RealtimeConfig struct {
	SendQueueSize  int           `json:"sendQueueSize" yaml:"sendQueueSize"`   // 单连接下行队列长度
	WriteTimeout   time.Duration `json:"writeTimeout" yaml:"writeTimeout"`     // 单帧写超时
	MaxFrameBytes  int64         `json:"maxFrameBytes" yaml:"maxFrameBytes"`   // 上行帧大小上限
	InboundRate    float64       `json:"inboundRate" yaml:"inboundRate"`       // 单连接每秒上行帧数
	InboundBurst   int           `json:"inboundBurst" yaml:"inboundBurst"`     // 单连接上行突发
	DedupSize      int           `json:"dedupSize" yaml:"dedupSize"`           // 去重窗口容量
	DedupTTL       time.Duration `json:"dedupTTL" yaml:"dedupTTL"`             // 去重窗口时长
	MirrorTimeout  time.Duration `json:"mirrorTimeout" yaml:"mirrorTimeout"`   // 在线状态落库超时
	AllowedOrigins []string      `json:"allowedOrigins" yaml:"allowedOrigins"` // 为空表示不校验 Origin
}

// DefaultRealtimeConfig 返回默认配置。
func DefaultRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		SendQueueSize: 64,
		WriteTimeout:  5 * time.Second,
		MaxFrameBytes: 64 * 1024,
		InboundRate:   20,
		InboundBurst:  40,
		DedupSize:     4096,
		DedupTTL:      2 * time.Minute,
		MirrorTimeout: 3 * time.Second,
	}
}
