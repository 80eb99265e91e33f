package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/relay"
	"github.com/segmentio/kafka-go"
)

// DefaultBatchSize 每次拉取的最大消息数
const DefaultBatchSize = 50

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BatchProcessor 批量处理支付确认，由 relay.Relay 实现
type BatchProcessor interface {
	Process(ctx context.Context, origin string, batch []relay.PaymentConfirmation) []relay.Result
}

// PaymentConsumer 从支付主题读取确认消息并交给中继
type PaymentConsumer struct {
	reader    messageReader
	processor BatchProcessor
	batchSize int
}

// NewPaymentConsumer 创建支付确认消费者
func NewPaymentConsumer(brokers []string, groupID, topic string, processor BatchProcessor) (*PaymentConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires group id")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer requires a topic")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &PaymentConsumer{reader: reader, processor: processor, batchSize: DefaultBatchSize}, nil
}

// Poll 拉取最多 max 条消息，没有更多消息时提前返回，偏移量不提交
func (c *PaymentConsumer) Poll(ctx context.Context, max int) ([]kafka.Message, error) {
	if max <= 0 {
		max = 1
	}
	out := make([]kafka.Message, 0, max)
	for i := 0; i < max; i++ {
		readCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		msg, err := c.reader.FetchMessage(readCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				return out, nil
			case errors.Is(err, context.Canceled):
				return out, ctx.Err()
			default:
				return out, err
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// RunOnce 拉取一批消息并处理，处理完成后才提交偏移量，返回处理的确认数量
func (c *PaymentConsumer) RunOnce(ctx context.Context) (int, error) {
	msgs, err := c.Poll(ctx, c.batchSize)
	if len(msgs) == 0 {
		return 0, err
	}

	var batch []relay.PaymentConfirmation
	for _, msg := range msgs {
		confirmations, decodeErr := DecodeConfirmations(msg.Value)
		if decodeErr != nil {
			logger.Warn("Dropping malformed payment message at %s/%d/%d: %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			continue
		}
		batch = append(batch, confirmations...)
	}

	if len(batch) > 0 {
		for _, res := range c.processor.Process(ctx, "kafka", batch) {
			if !res.Recorded {
				logger.Warn("Payment %s for pool %s not recorded: %s", res.TxRef, res.Pool.Hex(), res.Error)
			}
		}
	}

	// 格式错误的消息同样提交，避免反复投递
	if commitErr := c.reader.CommitMessages(ctx, msgs...); commitErr != nil {
		return len(batch), fmt.Errorf("commit payment messages: %w", commitErr)
	}
	return len(batch), err
}

// Run 持续消费直到 ctx 取消
func (c *PaymentConsumer) Run(ctx context.Context) {
	logger.Info("Payment consumer started")
	for {
		if _, err := c.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info("Payment consumer stopped")
				return
			}
			logger.Error("Payment consumer read failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// Close 关闭读取器
func (c *PaymentConsumer) Close() error {
	return c.reader.Close()
}

// DecodeConfirmations 解析单个确认对象或确认数组
func DecodeConfirmations(payload []byte) ([]relay.PaymentConfirmation, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}
	if trimmed[0] == '[' {
		var batch []relay.PaymentConfirmation
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, err
		}
		return batch, nil
	}
	var single relay.PaymentConfirmation
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []relay.PaymentConfirmation{single}, nil
}
