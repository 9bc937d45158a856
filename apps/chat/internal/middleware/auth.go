package middleware

import (
	"errors"
	"net/http"
	"strings"

	"SocialChat/consts"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/result"
	"SocialChat/pkg/util"

	"github.com/gin-gonic/gin"
)

// BearerToken 读取请求携带的令牌。
// 优先 Authorization: Bearer <token>，浏览器 websocket 无法带自定义头，因此回退到 ?token=。
// ok=false 表示 Authorization 头存在但格式错误。
func BearerToken(c *gin.Context) (token string, ok bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return strings.TrimSpace(c.Query("token")), true
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate 校验令牌并返回用户 uuid，失败时返回对应业务码。
func Authenticate(c *gin.Context) (string, int32) {
	token, ok := BearerToken(c)
	if !ok {
		return "", consts.CodeInvalidToken
	}
	if token == "" {
		return "", consts.CodeUnauthorized
	}
	claims, err := util.ParseToken(token)
	if err != nil {
		if errors.Is(err, util.ErrTokenExpired) {
			return "", consts.CodeTokenExpired
		}
		return "", consts.CodeInvalidToken
	}
	return claims.UserUUID, consts.CodeSuccess
}

// JWTAuthMiddleware JWT 认证中间件
// 从请求中提取 Token 并验证，验证通过后将用户信息存入 Context
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userUUID, code := Authenticate(c)
		if code != consts.CodeSuccess {
			// Token 缺失/无效/过期属于正常业务流程，不记录日志
			result.AbortWithStatus(c, http.StatusUnauthorized, code)
			return
		}

		c.Set(ctxmeta.GinKeyUserUUID, userUUID)
		c.Next()
	}
}

// GetUserUUID 从 Context 中获取当前登录用户的 UUID
func GetUserUUID(c *gin.Context) (string, bool) {
	userUUID := c.GetString(ctxmeta.GinKeyUserUUID)
	return userUUID, userUUID != ""
}
