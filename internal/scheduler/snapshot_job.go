package scheduler

import (
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"github.com/go-co-op/gocron/v2"
)

// SnapshotJob 把内存中的资金池状态同步到读模型表
type SnapshotJob struct {
	pools    *logic.PoolLogic
	reg      *registry.Registry
	interval time.Duration
}

// NewSnapshotJob 创建读模型同步任务
func NewSnapshotJob(pools *logic.PoolLogic, reg *registry.Registry, interval time.Duration) *SnapshotJob {
	return &SnapshotJob{pools: pools, reg: reg, interval: interval}
}

// GetName 获取任务名称
func (j *SnapshotJob) GetName() string {
	return "read_model_snapshot"
}

// GetSchedule 获取调度配置
func (j *SnapshotJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *SnapshotJob) Execute() {
	synced, err := j.pools.SyncAll(j.reg)
	if err != nil {
		logger.Error("Snapshot synced %d pools with errors: %v", synced, err)
		return
	}
	logger.Debug("Snapshot synced %d pools", synced)
}
