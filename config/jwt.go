package config

import "time"

// JWTConfig 令牌配置。
// 令牌由外部认证服务签发，这里只需要与其一致的密钥。
type JWTConfig struct {
	Secret string        `json:"secret" yaml:"secret"`
	Issuer string        `json:"issuer" yaml:"issuer"`
	TTL    time.Duration `json:"ttl" yaml:"ttl"`
}

// DefaultJWTConfig 返回默认配置。
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		Secret: getEnv("JWT_SECRET", "your-secret-key"),
		Issuer: getEnv("JWT_ISSUER", "social-chat"),
		TTL:    7 * 24 * time.Hour,
	}
}
