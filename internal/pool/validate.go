package pool

import (
	"fmt"
	"strings"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
)

// ValidateMilestones 校验里程碑列表：单个百分比在 (0, 10000]，非空列表之和必须正好是 10000
func ValidateMilestones(milestones []model.MilestoneInput) error {
	if len(milestones) == 0 {
		return nil
	}

	var sum int64
	for i, m := range milestones {
		if err := validateMilestone(m); err != nil {
			return fmt.Errorf("milestone %d: %w", i, err)
		}
		sum += m.Percentage
	}
	if sum != model.MaxBasisPoints {
		return fmt.Errorf("%w: got %d", model.ErrInvalidMilestoneSum, sum)
	}
	return nil
}

func validateMilestone(m model.MilestoneInput) error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: empty title", model.ErrInvalidMilestone)
	}
	if m.Percentage <= 0 || m.Percentage > model.MaxBasisPoints {
		return fmt.Errorf("%w: percentage %d out of range", model.ErrInvalidMilestone, m.Percentage)
	}
	return nil
}

// ValidateConfig 校验资金池配置中与状态机相关的字段
func ValidateConfig(cfg model.PoolConfig) error {
	if strings.TrimSpace(cfg.Title) == "" {
		return fmt.Errorf("%w: empty title", model.ErrInvalidConfig)
	}
	if cfg.FundingGoal <= 0 {
		return fmt.Errorf("%w: funding goal must be positive", model.ErrInvalidConfig)
	}
	if cfg.PlatformFeeRate < 0 || cfg.PlatformFeeRate > model.MaxBasisPoints {
		return fmt.Errorf("%w: %d", model.ErrInvalidFeeRate, cfg.PlatformFeeRate)
	}
	if cfg.PlatformFeeRate > 0 && model.IsZeroAddress(cfg.PlatformFeeTo) {
		return fmt.Errorf("%w: platform fee recipient", model.ErrInvalidAddress)
	}
	if cfg.Visibility != "" && !cfg.Visibility.Valid() {
		return fmt.Errorf("%w: visibility %q", model.ErrInvalidConfig, cfg.Visibility)
	}
	if !cfg.ApprovalMethod.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidApprovalMethod, cfg.ApprovalMethod)
	}
	switch cfg.ApprovalMethod {
	case model.ApprovalPercentageThreshold:
		if cfg.ApprovalThreshold <= 0 || cfg.ApprovalThreshold > model.MaxBasisPoints {
			return fmt.Errorf("%w: percentage threshold %d", model.ErrInvalidThreshold, cfg.ApprovalThreshold)
		}
	case model.ApprovalMinimumCount:
		if cfg.ApprovalThreshold <= 0 || cfg.ApprovalThreshold > model.MaxBasisPoints {
			return fmt.Errorf("%w: minimum weight %d", model.ErrInvalidThreshold, cfg.ApprovalThreshold)
		}
	}
	return nil
}

// transitions 运营方可以触发的状态迁移
var transitions = map[model.PoolStatus][]model.PoolStatus{
	model.PoolStatusDraft:             {model.PoolStatusPendingPayment, model.PoolStatusCancelled},
	model.PoolStatusPendingPayment:    {model.PoolStatusPaymentProcessing, model.PoolStatusActive, model.PoolStatusCancelled},
	model.PoolStatusPaymentProcessing: {model.PoolStatusActive, model.PoolStatusPendingPayment, model.PoolStatusCancelled},
	model.PoolStatusActive:            {model.PoolStatusCompleted, model.PoolStatusCancelled},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to model.PoolStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
