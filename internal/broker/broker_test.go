package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/relay"
	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	commitErr error
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

type recordingProcessor struct {
	batches [][]relay.PaymentConfirmation
	// 处理时已提交的消息数
	reader            *fakeReader
	committedAtHandle []int
}

func (r *recordingProcessor) Process(_ context.Context, origin string, batch []relay.PaymentConfirmation) []relay.Result {
	r.batches = append(r.batches, batch)
	if r.reader != nil {
		r.committedAtHandle = append(r.committedAtHandle, len(r.reader.committed))
	}
	out := make([]relay.Result, len(batch))
	for i, c := range batch {
		out[i] = relay.Result{Pool: c.Pool, TxRef: c.TxRef, Recorded: origin == "kafka"}
	}
	return out
}

func TestPublisherKeysByStream(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, topic: "upool.events"}

	ev, err := journal.New("pool:0xabc", 3, "VoteCast", map[string]bool{"inFavor": true}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "pool:0xabc", string(msg.Key))
	assert.Equal(t, "VoteCast", string(msg.Headers[0].Value))

	var decoded journal.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, int64(3), decoded.Seq)
}

func TestPublisherErrorsAreReturned(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("broker down")}, topic: "t"}
	ev, err := journal.New("registry", 1, "Paused", struct{}{}, time.Now())
	require.NoError(t, err)
	assert.Error(t, p.Publish(context.Background(), ev))
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	_, err := NewPublisher(nil, "t")
	assert.Error(t, err)
	_, err = NewPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}

func TestConsumerRunOnce(t *testing.T) {
	pool := common.HexToAddress("0x0000000000000000000000000000000000000f00")
	single, err := json.Marshal(relay.PaymentConfirmation{Pool: pool, Amount: 10, TxRef: "pi_1", Source: "card"})
	require.NoError(t, err)
	many, err := json.Marshal([]relay.PaymentConfirmation{
		{Pool: pool, Amount: 20, TxRef: "pi_2", Source: "card"},
		{Pool: pool, Amount: 30, TxRef: "pi_3", Source: "manual"},
	})
	require.NoError(t, err)

	reader := &fakeReader{msgs: []kafka.Message{
		{Value: single},
		{Value: []byte("not json")},
		{Value: many},
	}}
	processor := &recordingProcessor{reader: reader}
	c := &PaymentConsumer{reader: reader, processor: processor, batchSize: 10}

	n, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, processor.batches, 1)
	assert.Equal(t, "pi_3", processor.batches[0][2].TxRef)
	// 处理时尚未提交，处理后三条消息全部提交
	assert.Equal(t, []int{0}, processor.committedAtHandle)
	assert.Len(t, reader.committed, 3)

	// 没有消息时不调用中继
	n, err = c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, processor.batches, 1)
	assert.Len(t, reader.committed, 3)
}

func TestConsumerCommitFailureIsReturned(t *testing.T) {
	pool := common.HexToAddress("0x0000000000000000000000000000000000000f00")
	payload, err := json.Marshal(relay.PaymentConfirmation{Pool: pool, Amount: 10, TxRef: "pi_1", Source: "card"})
	require.NoError(t, err)

	reader := &fakeReader{
		msgs:      []kafka.Message{{Value: payload}},
		commitErr: errors.New("coordinator unavailable"),
	}
	processor := &recordingProcessor{reader: reader}
	c := &PaymentConsumer{reader: reader, processor: processor, batchSize: 10}

	n, err := c.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinator unavailable")
	assert.Equal(t, 1, n)
	assert.Len(t, processor.batches, 1)
	assert.Empty(t, reader.committed)
}

func TestDecodeConfirmations(t *testing.T) {
	_, err := DecodeConfirmations([]byte("  "))
	assert.Error(t, err)

	batch, err := DecodeConfirmations([]byte(` {"txRef":"a","source":"card","amount":5}`))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, int64(5), batch[0].Amount)
}
