package repository

import (
	"math/rand"
	"time"
)

// getRandomExpireTime 生成带随机抖动的过期时间（基础时间 ± 10%），避免大量 key 同时过期
func getRandomExpireTime(baseExpire time.Duration) time.Duration {
	jitterRange := float64(baseExpire) * 0.1
	jitter := time.Duration(rand.Float64()*jitterRange*2 - jitterRange)
	return baseExpire + jitter
}

// normalizePage 兜底分页参数
func normalizePage(page, pageSize, defaultSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	return page, pageSize
}
