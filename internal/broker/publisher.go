// Package broker 通过 kafka 分发已提交的事件，并接收外部支付确认。
package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 把事件写入 kafka，实现 journal.Sink。
// 以事件流名称作为分区键，保证同一事件流内有序。
type Publisher struct {
	writer messageWriter
	topic  string
}

var _ journal.Sink = (*Publisher)(nil)

// NewPublisher 创建事件发布者
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

// Publish 发布单个事件
func (p *Publisher) Publish(ctx context.Context, ev journal.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Stream),
		Value: payload,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
}

// Close 关闭写入器
func (p *Publisher) Close() error {
	return p.writer.Close()
}
