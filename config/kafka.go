package config

import (
	"strings"
	"time"
)

// KafkaConfig Kafka 配置。
// Brokers 为空表示不启用事件投递，服务照常运行。
type KafkaConfig struct {
	Brokers      []string      `json:"brokers" yaml:"brokers"`
	EventTopic   string        `json:"eventTopic" yaml:"eventTopic"`     // 聊天领域事件 topic
	BatchTimeout time.Duration `json:"batchTimeout" yaml:"batchTimeout"` // 批量发送最长等待
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`

	// 熔断参数
	BreakerMaxFailures uint32        `json:"breakerMaxFailures" yaml:"breakerMaxFailures"` // 连续失败多少次后熔断
	BreakerOpenTimeout time.Duration `json:"breakerOpenTimeout" yaml:"breakerOpenTimeout"` // 熔断后多久进入半开
}

// DefaultKafkaConfig 返回本地开发的默认配置。
func DefaultKafkaConfig() KafkaConfig {
	var brokers []string
	if raw := getEnv("KAFKA_BROKERS", ""); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	return KafkaConfig{
		Brokers:            brokers,
		EventTopic:         getEnv("KAFKA_EVENT_TOPIC", "chat.events"),
		BatchTimeout:       20 * time.Millisecond,
		WriteTimeout:       3 * time.Second,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}
