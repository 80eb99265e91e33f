package scheduler

import (
	"context"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// FeeSweepJob 定期以注册表所有者身份提取累计的创建费
type FeeSweepJob struct {
	svc      *logic.Service
	interval time.Duration
}

// NewFeeSweepJob 创建平台费提取任务
func NewFeeSweepJob(svc *logic.Service, interval time.Duration) *FeeSweepJob {
	return &FeeSweepJob{svc: svc, interval: interval}
}

// GetName 获取任务名称
func (j *FeeSweepJob) GetName() string {
	return "fee_sweep"
}

// GetSchedule 获取调度配置
func (j *FeeSweepJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *FeeSweepJob) Execute() {
	reg := j.svc.Registry()
	if reg.FeeBalance() == 0 {
		logger.Debug("Fee sweep skipped: no fees accrued")
		return
	}

	w, err := j.svc.WithdrawFees(context.Background(), reg.Owner(), logic.TriggerScheduled)
	if err != nil {
		logger.Error("Fee sweep failed: %v", err)
		return
	}
	logger.Info("Fee sweep withdrew %d to %s", w.Amount, w.Treasury.Hex())
}
