package ctxmeta

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ctxKey string

const (
	// gin.Context 中使用的 key，与中间件 c.Set 保持一致
	GinKeyTraceID  = "trace_id"
	GinKeyUserUUID = "user_uuid"
	GinKeyClientIP = "client_ip"

	traceIDKey  ctxKey = "trace_id"
	userUUIDKey ctxKey = "user_uuid"
	clientIPKey ctxKey = "client_ip"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func WithUserUUID(ctx context.Context, userUUID string) context.Context {
	return context.WithValue(ctx, userUUIDKey, userUUID)
}

func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, clientIPKey, clientIP)
}

// TraceID 读取 trace_id，不存在时返回空串。
func TraceID(ctx context.Context) string {
	return stringValue(ctx, traceIDKey)
}

// UserUUID 读取当前登录用户 uuid，不存在时返回空串。
func UserUUID(ctx context.Context) string {
	return stringValue(ctx, userUUIDKey)
}

func ClientIP(ctx context.Context) string {
	return stringValue(ctx, clientIPKey)
}

// TraceIDFromGin 从 gin.Context 读取 TraceLogger 中间件写入的 trace_id。
func TraceIDFromGin(c *gin.Context) string {
	return c.GetString(GinKeyTraceID)
}

// FromGin 把 gin.Context 上的 trace_id/user_uuid/client_ip 复制到标准 context。
func FromGin(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if v := c.GetString(GinKeyTraceID); v != "" {
		ctx = WithTraceID(ctx, v)
	}
	if v := c.GetString(GinKeyUserUUID); v != "" {
		ctx = WithUserUUID(ctx, v)
	}
	if v := c.GetString(GinKeyClientIP); v != "" {
		ctx = WithClientIP(ctx, v)
	}
	return ctx
}

// Detach 返回只保留元数据、不继承取消信号的新 context。
// 用于异步任务：请求结束后任务仍需带着 trace_id 跑完。
func Detach(parent context.Context) context.Context {
	ctx := context.Background()
	if parent == nil {
		return ctx
	}
	if v := TraceID(parent); v != "" {
		ctx = WithTraceID(ctx, v)
	}
	if v := UserUUID(parent); v != "" {
		ctx = WithUserUUID(ctx, v)
	}
	if v := ClientIP(parent); v != "" {
		ctx = WithClientIP(ctx, v)
	}
	return ctx
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
