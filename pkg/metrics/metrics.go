// Package metrics 进程级 Prometheus 指标，统一在默认 Registry 注册，/metrics 暴露。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "social_chat"

// 投递结果标签
const (
	ResultDelivered = "delivered" // 已入队
	ResultOffline   = "offline"   // 目标不在线或没有组成员
	ResultDuplicate = "duplicate" // 去重窗口内重复事件
)

var (
	// HTTPRequestsTotal REST 请求数
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration REST 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// WSConnections 当前 websocket 连接数（含未 identify 的）
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Open websocket connections.",
	})

	// OnlineUsers 在线注册表中的用户数
	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "online_users",
		Help:      "Users currently registered in the presence registry.",
	})

	// RealtimeEvents 上行事件数
	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_total",
		Help:      "Inbound realtime events by type.",
	}, []string{"event"})

	// RealtimeDeliveries 下行投递结果
	RealtimeDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_deliveries_total",
		Help:      "Outbound realtime deliveries by event and result.",
	}, []string{"event", "result"})
)
