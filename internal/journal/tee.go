package journal

import (
	"context"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
)

// Tee 先写入主日志，成功后再分发给下游
type Tee struct {
	primary Journal
	sinks   []Sink
}

// NewTee 创建分发日志
func NewTee(primary Journal, sinks ...Sink) *Tee {
	return &Tee{primary: primary, sinks: sinks}
}

// Append 写入主日志；下游分发失败只记录日志，不影响操作结果
func (t *Tee) Append(ctx context.Context, ev Event) error {
	if err := t.primary.Append(ctx, ev); err != nil {
		return err
	}
	for _, sink := range t.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			logger.Warn("Failed to publish event %s %s/%d: %v", ev.Type, ev.Stream, ev.Seq, err)
		}
	}
	return nil
}
