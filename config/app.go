package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig 汇总 chat 服务的全部配置。
type AppConfig struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Logger   LoggerConfig   `json:"logger" yaml:"logger"`
	MySQL    MySQLConfig    `json:"mysql" yaml:"mysql"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Kafka    KafkaConfig    `json:"kafka" yaml:"kafka"`
	Async    AsyncConfig    `json:"async" yaml:"async"`
	JWT      JWTConfig      `json:"jwt" yaml:"jwt"`
	Realtime RealtimeConfig `json:"realtime" yaml:"realtime"`
	NodeID   int64          `json:"nodeId" yaml:"nodeId"` // 雪花算法节点号
}

// Load 加载配置。
// 顺序：.env 注入环境变量 -> 各模块默认值（读取环境变量）-> CHAT_CONFIG 指定的 YAML 文件覆盖。
func Load() (AppConfig, error) {
	// .env 不存在是正常情况（容器内直接注入环境变量）
	_ = godotenv.Load()

	cfg := AppConfig{
		Server:   DefaultServerConfig(),
		Logger:   DefaultLoggerConfig(),
		MySQL:    DefaultMySQLConfig(),
		Redis:    DefaultRedisConfig(),
		Kafka:    DefaultKafkaConfig(),
		Async:    DefaultAsyncConfig(),
		JWT:      DefaultJWTConfig(),
		Realtime: DefaultRealtimeConfig(),
		NodeID:   int64(getEnvInt("NODE_ID", 1)),
	}

	path := os.Getenv("CHAT_CONFIG")
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
