package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SocialChat/config"
	"SocialChat/pkg/async"
	"SocialChat/pkg/logger"

	"github.com/sony/gobreaker"
)

// ErrBreakerOpen 熔断打开，事件直接丢弃
var ErrBreakerOpen = errors.New("event publisher circuit breaker is open")

// Sender 消息发送端，pkg/kafka.Producer 满足该接口
type Sender interface {
	Send(ctx context.Context, key, value []byte) error
	Close() error
}

// EventPublisher 领域事件投递器。
// 事件投递是尽力而为的旁路：Kafka 故障只记日志，绝不影响落库结果。
// 连续失败后熔断，避免每个请求都去等一次写超时。
type EventPublisher struct {
	sender  Sender
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewEventPublisher 创建投递器，sender 为 nil 时返回 nil（所有方法对 nil 安全）
func NewEventPublisher(sender Sender, cfg config.KafkaConfig) *EventPublisher {
	if sender == nil {
		return nil
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:    "kafka-chat-events",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "事件投递熔断状态变化",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &EventPublisher{
		sender:  sender,
		breaker: gobreaker.NewCircuitBreaker(settings),
		timeout: timeout,
	}
}

// Publish 异步投递，失败只记日志。
func (p *EventPublisher) Publish(ctx context.Context, event ChatEvent) {
	if p == nil {
		return
	}
	event = event.WithContext(ctx)
	async.RunSafe(ctx, func(runCtx context.Context) {
		if err := p.PublishSync(runCtx, event); err != nil {
			logger.Warn(runCtx, "领域事件投递失败",
				logger.String("type", string(event.Type)),
				logger.String("key", event.Key),
				logger.ErrorField("error", err),
			)
		}
	}, p.timeout)
}

// PublishSync 同步投递（经过熔断器）。
func (p *EventPublisher) PublishSync(ctx context.Context, event ChatEvent) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal chat event: %w", err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.sender.Send(ctx, []byte(event.Key), payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	return err
}

// State 熔断器状态（用于健康检查）
func (p *EventPublisher) State() string {
	if p == nil {
		return "disabled"
	}
	return p.breaker.State().String()
}

// Close 关闭底层发送端
func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.sender.Close()
}
