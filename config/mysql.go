package config

import (
	"fmt"
	"time"
)

// MySQLConfig MySQL 连接配置。
// Replicas 非空时通过 dbresolver 做读写分离。
type MySQLConfig struct {
	Host     string   `json:"host" yaml:"host"`
	Port     int      `json:"port" yaml:"port"`
	User     string   `json:"user" yaml:"user"`
	Password string   `json:"password" yaml:"password"`
	Database string   `json:"database" yaml:"database"`
	Params   string   `json:"params" yaml:"params"`
	Replicas []string `json:"replicas" yaml:"replicas"` // 只读副本 DSN

	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" yaml:"connMaxIdleTime"`

	SlowThreshold time.Duration `json:"slowThreshold" yaml:"slowThreshold"` // 慢查询阈值
	AutoMigrate   bool          `json:"autoMigrate" yaml:"autoMigrate"`     // 启动时自动建表
}

// DSN 组装主库连接串。
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.User, c.Password, c.Host, c.Port, c.Database, c.Params)
}

// DefaultMySQLConfig 返回本地开发的默认配置（与 docker-compose 对齐）。
func DefaultMySQLConfig() MySQLConfig {
	return MySQLConfig{
		Host:            getEnv("MYSQL_HOST", "mysql"),
		Port:            getEnvInt("MYSQL_PORT", 3306),
		User:            getEnv("MYSQL_USER", "root"),
		Password:        getEnv("MYSQL_PASSWORD", "root"),
		Database:        getEnv("MYSQL_DATABASE", "social_chat"),
		Params:          "charset=utf8mb4&parseTime=True&loc=Local",
		MaxOpenConns:    100,
		MaxIdleConns:    20,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		SlowThreshold:   200 * time.Millisecond,
		AutoMigrate:     getEnvBool("MYSQL_AUTO_MIGRATE", true),
	}
}
