package result

import (
	"net/http"

	"SocialChat/consts"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构体。
// HTTP 状态码固定 200（鉴权/限流除外），业务结果看 code。
type Response struct {
	Code    int32       `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	TraceId string      `json:"trace_id"`
}

// Result 返回响应，message 为空时使用错误码对应的默认文案。
func Result(c *gin.Context, data interface{}, message string, code int32) {
	if message == "" {
		message = consts.GetMessage(code)
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    data,
		TraceId: c.GetString("trace_id"),
	})
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	Result(c, data, "", consts.CodeSuccess)
}

// Fail 返回失败响应
func Fail(c *gin.Context, data interface{}, code int32) {
	Result(c, data, "", code)
}

// FailWithMessage 返回失败响应并自定义消息
func FailWithMessage(c *gin.Context, data interface{}, message string, code int32) {
	Result(c, data, message, code)
}

// AbortWithStatus 以指定 HTTP 状态码中断请求（用于鉴权、限流等中间件）。
func AbortWithStatus(c *gin.Context, status int, code int32) {
	c.AbortWithStatusJSON(status, Response{
		Code:    code,
		Message: consts.GetMessage(code),
		TraceId: c.GetString("trace_id"),
	})
}
