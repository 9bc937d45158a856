package handler

import (
	"context"
	"net/http"
	"strconv"

	"SocialChat/apps/chat/internal/middleware"
	"SocialChat/consts"
	"SocialChat/pkg/logger"
	"SocialChat/pkg/result"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/status"
)

// extractErrorCode 提取业务错误码（service 约定：status message = 业务码字符串）
func extractErrorCode(err error) int {
	if err == nil {
		return consts.CodeSuccess
	}
	if st, ok := status.FromError(err); ok {
		if bizCode, parseErr := strconv.Atoi(st.Message()); parseErr == nil {
			return bizCode
		}
	}
	return consts.CodeInternalError
}

// failWithError 业务错误原样返回，其余统一为内部错误并记录日志
func failWithError(ctx context.Context, c *gin.Context, msg string, err error) {
	code := extractErrorCode(err)
	if consts.IsNonServerError(code) {
		// 业务逻辑失败（如用户不存在、已经是好友等），不记录日志
		result.Fail(c, nil, int32(code))
		return
	}

	logger.Error(ctx, msg, logger.ErrorField("error", err))
	result.Fail(c, nil, consts.CodeInternalError)
}

// currentUser 读取 JWT 中间件写入的用户，缺失时直接返回 401
func currentUser(c *gin.Context) (string, bool) {
	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.AbortWithStatus(c, http.StatusUnauthorized, consts.CodeUnauthorized)
		return "", false
	}
	return userUUID, true
}
