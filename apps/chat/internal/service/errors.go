package service

import (
	"context"
	"strconv"
	"strings"

	"SocialChat/consts"
	"SocialChat/pkg/convkey"
	"SocialChat/pkg/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// bizError 业务错误：gRPC status message 固定为业务错误码字符串，handler 据此还原错误码
func bizError(code codes.Code, bizCode int) error {
	return status.Error(code, strconv.Itoa(bizCode))
}

// internalError 依赖故障：细节只进日志，对外统一为内部错误
func internalError(ctx context.Context, msg string, err error, fields ...logger.Field) error {
	fields = append(fields, logger.ErrorField("error", err))
	logger.Error(ctx, msg, fields...)
	return status.Error(codes.Internal, strconv.Itoa(consts.CodeInternalError))
}

// normalizeUserID 去空白并校验能否参与会话 key 计算
func normalizeUserID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	return id, convkey.ValidUserID(id)
}
