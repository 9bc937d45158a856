// Package convkey 派生单聊会话 key。
//
// 消息存储、实时广播分组、会话列表都必须通过这里计算 key，
// 不允许在别处自行拼接字符串。
package convkey

import "strings"

// Separator 分隔符。用户 id 中不能出现该字符，见 ValidUserID。
const Separator = "_"

// Key 返回两个用户之间的会话 key：两端 id 排序后用 "_" 拼接。
// Key(a, b) == Key(b, a)。
func Key(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + Separator + b
}

// ValidUserID 判断 id 能否参与 key 计算（非空且不含分隔符），
// 满足该条件时不同的用户对一定得到不同的 key。
func ValidUserID(id string) bool {
	return id != "" && !strings.Contains(id, Separator)
}

// Participants 把 key 还原为两端 id（按字典序）。
func Participants(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, Separator)
	if !ok || !ValidUserID(a) || !ValidUserID(b) || a > b {
		return "", "", false
	}
	return a, b, true
}

// Contains 判断 userID 是否是会话参与方。
func Contains(key, userID string) bool {
	a, b, ok := Participants(key)
	return ok && (a == userID || b == userID)
}

// Peer 返回会话中除 self 外的另一方。
func Peer(key, self string) (string, bool) {
	a, b, ok := Participants(key)
	switch {
	case !ok:
		return "", false
	case a == self:
		return b, true
	case b == self:
		return a, true
	}
	return "", false
}
