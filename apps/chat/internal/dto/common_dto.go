package dto

// ==================== 通用 DTO 定义 ====================

// SimpleUserInfo 简化用户信息 DTO
type SimpleUserInfo struct {
	UUID     string `json:"uuid"`     // 用户UUID
	Nickname string `json:"nickname"` // 昵称
	Avatar   string `json:"avatar"`   // 头像URL
}

// UnreadCountResponse 未读数响应 DTO
type UnreadCountResponse struct {
	Count int64 `json:"count"` // 未读数量
}
