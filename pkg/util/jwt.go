package util

import (
	"errors"
	"strings"
	"sync"
	"time"

	"SocialChat/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid 令牌无法解析、签名不符或缺少用户 id。
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired 令牌已过期。
	ErrTokenExpired = errors.New("token is expired")
)

// Claims 认证服务签发的令牌声明，只关心用户 id。
type Claims struct {
	UserUUID string `json:"userId"`
	jwt.RegisteredClaims
}

var (
	jwtMu  sync.RWMutex
	jwtCfg = config.DefaultJWTConfig()
)

// InitJWT 设置签名密钥等参数（进程启动时调用一次）。
func InitJWT(cfg config.JWTConfig) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtCfg = cfg
}

func currentJWTConfig() config.JWTConfig {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return jwtCfg
}

// GenerateToken 签发令牌。
// 正式环境由认证服务签发，这里用于联调与测试。
func GenerateToken(userUUID string) (string, error) {
	cfg := currentJWTConfig()
	now := time.Now()
	claims := Claims{
		UserUUID: userUUID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// ParseToken 校验并解析令牌。
func ParseToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	cfg := currentJWTConfig()
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserUUID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
