// Package journal 定义追加写入的事件日志。
//
// 所有写操作先校验，再把事件写入日志，最后在内存中应用；
// 重启时按流内顺序重放事件即可重建状态。
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// GlobalStream 注册表与工厂共用的全局事件流
const GlobalStream = "registry"

const poolStreamPrefix = "pool:"

// ErrSeqConflict 事件序号与流当前长度不一致
var ErrSeqConflict = errors.New("journal: sequence conflict")

// Event 日志事件
type Event struct {
	ID     string          `json:"id"`
	Stream string          `json:"stream"`
	Seq    int64           `json:"seq"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	At     time.Time       `json:"at"`
}

// Journal 事件写入接口
type Journal interface {
	Append(ctx context.Context, ev Event) error
}

// Loader 事件读取接口
type Loader interface {
	Load(ctx context.Context, stream string) ([]Event, error)
	Streams(ctx context.Context, prefix string) ([]string, error)
}

// Store 可读写的事件日志
type Store interface {
	Journal
	Loader
}

// Sink 事件提交后的下游消费者（如消息队列）
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// New 构造事件并序列化负载
func New(stream string, seq int64, eventType string, payload any, at time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:     uuid.NewString(),
		Stream: stream,
		Seq:    seq,
		Type:   eventType,
		Data:   data,
		At:     at,
	}, nil
}

// Decode 反序列化事件负载
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s event %s/%d: %w", e.Type, e.Stream, e.Seq, err)
	}
	return nil
}

// PoolStream 返回资金池的事件流名称
func PoolStream(ref common.Address) string {
	return poolStreamPrefix + ref.Hex()
}

// PoolRefFromStream 从事件流名称解析资金池地址
func PoolRefFromStream(stream string) (common.Address, bool) {
	hex, ok := strings.CutPrefix(stream, poolStreamPrefix)
	if !ok || !common.IsHexAddress(hex) {
		return common.Address{}, false
	}
	return common.HexToAddress(hex), true
}

// PoolStreamPrefix 资金池事件流前缀
func PoolStreamPrefix() string {
	return poolStreamPrefix
}
