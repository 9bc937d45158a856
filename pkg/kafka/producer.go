package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer 对 kafka.Writer 的轻量封装，一个实例只写一个 topic。
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// ProducerOption 可选参数。
type ProducerOption func(w *kafka.Writer)

// WithBatchTimeout 设置批量发送最长等待时间。
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(w *kafka.Writer) { w.BatchTimeout = d }
}

// WithWriteTimeout 设置单次写超时。
func WithWriteTimeout(d time.Duration) ProducerOption {
	return func(w *kafka.Writer) { w.WriteTimeout = d }
}

// WithLogger 接入日志（只接错误日志，普通日志量太大）。
func WithLogger(l *zap.Logger) ProducerOption {
	return func(w *kafka.Writer) { w.ErrorLogger = NewZapLoggerAdapter(l) }
}

// NewProducer 创建生产者。
// 按 key 做哈希分区，同一会话的事件落在同一分区，保证分区内有序。
func NewProducer(brokers []string, topic string, opts ...ProducerOption) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return &Producer{writer: w, topic: topic}
}

// Topic 返回写入的 topic。
func (p *Producer) Topic() string { return p.topic }

// Send 同步发送一条消息。
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	return nil
}

// Close 刷新缓冲并关闭连接。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ZapLoggerAdapter 把 zap 适配为 kafka.Logger。
type ZapLoggerAdapter struct {
	l *zap.Logger
}

// NewZapLoggerAdapter 创建适配器。
func NewZapLoggerAdapter(l *zap.Logger) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{l: l}
}

// Printf 实现 kafka.Logger。
func (a *ZapLoggerAdapter) Printf(format string, args ...interface{}) {
	a.l.Warn(fmt.Sprintf(format, args...), zap.String("component", "kafka"))
}
