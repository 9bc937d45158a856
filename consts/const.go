package consts

// 通用错误码
const (
	CodeSuccess = 0 // 成功
)

// 客户端错误 (1xxxx)
const (
	CodeParamError       = 10001 // 参数验证失败
	CodeBodyError        = 10002 // 请求体格式错误
	CodeResourceNotFound = 10003 // 资源不存在
	CodeMethodNotAllowed = 10004 // 请求方法不允许
	CodeTooManyRequests  = 10005 // 请求过于频繁
	CodeBodyTooLarge     = 10006 // 请求体过大
)

// 认证错误 (2xxxx)
const (
	CodeUnauthorized   = 20001 // 未认证
	CodeInvalidToken   = 20002 // Token 无效
	CodeTokenExpired   = 20003 // Token 已过期
	CodePermissionDeny = 20004 // 权限不足
)

// 用户模块错误 (11xxx)
const (
	CodeUserNotFound = 11001 // 用户不存在
)

// 好友模块错误 (12xxx)
const (
	CodeAlreadyFriend          = 12001 // 已经是好友
	CodeFriendRequestSent      = 12002 // 好友申请已存在
	CodeNotFriend              = 12003 // 不存在该好友关系
	CodeCannotAddSelf          = 12005 // 不能添加自己为好友
	CodeFriendRequestNotFound  = 12006 // 好友申请不存在
	CodeFriendRequestProcessed = 12007 // 好友申请已处理
)

// 消息模块错误 (13xxx)
const (
	CodeMessageNotFound       = 13001 // 消息不存在
	CodeMessageSendFail       = 13002 // 消息发送失败
	CodeMessageTypeNotSupport = 13003 // 消息类型不支持
	CodeConversationNotFound  = 13004 // 会话不存在
	CodeMessageContentEmpty   = 13005 // 消息内容为空
)

// 实时通道错误 (14xxx)，只出现在 ws error 帧里
const (
	CodeFrameInvalid     = 14001 // 帧格式错误
	CodeEventUnsupported = 14002 // 不支持的事件类型
	CodeNotIdentified    = 14003 // 连接尚未绑定用户
	CodeIdentityMismatch = 14004 // 绑定的用户与登录用户不一致
)

// 服务端错误 (3xxxx)
const (
	CodeInternalError      = 30001 // 服务器内部错误
	CodeServiceUnavailable = 30002 // 服务暂不可用
	CodeTimeoutError       = 30003 // 请求超时
)

// 错误消息映射
var CodeMessage = map[int32]string{
	CodeSuccess: "success",

	// 客户端错误
	CodeParamError:       "参数验证失败",
	CodeBodyError:        "请求体格式错误",
	CodeResourceNotFound: "资源不存在",
	CodeMethodNotAllowed: "请求方法不允许",
	CodeTooManyRequests:  "请求过于频繁",
	CodeBodyTooLarge:     "请求体过大",

	// 认证错误
	CodeUnauthorized:   "未认证",
	CodeInvalidToken:   "Token 无效",
	CodeTokenExpired:   "Token 已过期",
	CodePermissionDeny: "权限不足",

	// 用户模块
	CodeUserNotFound: "用户不存在",

	// 好友模块
	CodeAlreadyFriend:          "已经是好友",
	CodeFriendRequestSent:      "好友申请已存在",
	CodeNotFriend:              "只能给好友发送消息",
	CodeCannotAddSelf:          "不能添加自己为好友",
	CodeFriendRequestNotFound:  "好友申请不存在",
	CodeFriendRequestProcessed: "好友申请已处理",

	// 消息模块
	CodeMessageNotFound:       "消息不存在",
	CodeMessageSendFail:       "消息发送失败",
	CodeMessageTypeNotSupport: "消息类型不支持",
	CodeConversationNotFound:  "会话不存在",
	CodeMessageContentEmpty:   "消息内容不能为空",

	// 实时通道
	CodeFrameInvalid:     "invalid frame format",
	CodeEventUnsupported: "unsupported message type",
	CodeNotIdentified:    "connection not identified",
	CodeIdentityMismatch: "identity mismatch",

	// 服务端错误
	CodeInternalError:      "服务器内部错误",
	CodeServiceUnavailable: "服务暂不可用",
	CodeTimeoutError:       "请求超时",
}

// GetMessage 根据错误码获取错误消息
func GetMessage(code int32) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "未知错误"
}

// IsNonServerError 判断是否为可直接透传给客户端的业务错误（非 0 且非 3xxxx）。
func IsNonServerError(code int) bool {
	return code != CodeSuccess && (code < 30000 || code >= 40000)
}
