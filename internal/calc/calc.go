// Package calc 提供资金池使用的纯计算函数：基点运算、进度、投票判定以及金额格式化。
package calc

import (
	"math"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/shopspring/decimal"
)

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// mulDiv 计算 a*b/c，向零截断，中间结果不会溢出
func mulDiv(a, b, c int64) int64 {
	if c == 0 {
		return 0
	}
	q, _ := decimal.NewFromInt(a).Mul(decimal.NewFromInt(b)).QuoRem(decimal.NewFromInt(c), 0)
	if q.GreaterThan(maxInt64) {
		return math.MaxInt64
	}
	return q.IntPart()
}

// BasisPointShare 按基点计算份额：total * bp / 10000，截断取整，从不向上取整
func BasisPointShare(total, percentageBp int64) int64 {
	return mulDiv(total, percentageBp, model.MaxBasisPoints)
}

// FundingProgressBp 计算募资进度（基点），不做上限截断，超募时可能大于 10000
func FundingProgressBp(raised, goal int64) int64 {
	if goal == 0 {
		return 0
	}
	return mulDiv(raised, model.MaxBasisPoints, goal)
}

// WeightBp 计算成员投票权重：contribution * 10000 / totalRaised
func WeightBp(contribution, totalRaised int64) int64 {
	if totalRaised <= 0 {
		return 0
	}
	return mulDiv(contribution, model.MaxBasisPoints, totalRaised)
}

// ClampBp 将基点值限制在 [0, 10000]，用于展示
func ClampBp(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > model.MaxBasisPoints {
		return model.MaxBasisPoints
	}
	return v
}

// VotePassed 判断里程碑投票是否通过
//
// CreatorOnly 恒为 true，审批由创建者单独调用完成，不计票。
// MinimumCount 的阈值直接以权重单位表示。
func VotePassed(votesFor, votesAgainst int64, method model.ApprovalMethod, threshold, totalWeight int64) bool {
	switch method {
	case model.ApprovalCreatorOnly:
		return true
	case model.ApprovalMajority:
		return votesFor > votesAgainst && votesFor+votesAgainst > 0
	case model.ApprovalPercentageThreshold:
		totalVotes := votesFor + votesAgainst
		if totalVotes == 0 {
			return false
		}
		return mulDiv(votesFor, model.MaxBasisPoints, totalVotes) >= threshold
	case model.ApprovalMinimumCount:
		return votesFor >= threshold
	default:
		return false
	}
}

// CanStillPass 判断把剩余未投票权重全部投赞成后是否还可能通过
func CanStillPass(votesFor, votesAgainst, remainingWeight int64, method model.ApprovalMethod, threshold, totalWeight int64) bool {
	if remainingWeight < 0 {
		remainingWeight = 0
	}
	return VotePassed(votesFor+remainingWeight, votesAgainst, method, threshold, totalWeight)
}
