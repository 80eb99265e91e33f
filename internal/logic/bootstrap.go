package logic

import (
	"context"
	"fmt"

	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
)

// Bootstrap 重放全局事件流和各资金池事件流，重建内存状态。
// 返回重放的资金池数量。
func Bootstrap(ctx context.Context, loader journal.Loader, reg *registry.Registry) (int, error) {
	global, err := loader.Load(ctx, journal.GlobalStream)
	if err != nil {
		return 0, err
	}
	if err := reg.Replay(global); err != nil {
		return 0, fmt.Errorf("重放注册表事件失败: %w", err)
	}

	streams, err := loader.Streams(ctx, journal.PoolStreamPrefix())
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, stream := range streams {
		ref, ok := journal.PoolRefFromStream(stream)
		if !ok {
			logger.Warn("Skipping malformed pool stream %q", stream)
			continue
		}
		engine, err := reg.Pool(ref)
		if err != nil {
			return replayed, fmt.Errorf("事件流 %s 没有对应的资金池: %w", stream, err)
		}
		events, err := loader.Load(ctx, stream)
		if err != nil {
			return replayed, err
		}
		if err := engine.Replay(events); err != nil {
			return replayed, fmt.Errorf("重放资金池 %s 失败: %w", ref.Hex(), err)
		}
		replayed++
	}

	logger.Info("Bootstrap replayed %d registry events and %d pool streams", len(global), replayed)
	return replayed, nil
}
