package calc

import (
	"math"
	"testing"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestBasisPointShare(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		bp    int64
		want  int64
	}{
		{"full", 1000, 10000, 1000},
		{"quarter", 1000, 2500, 250},
		{"truncates", 999, 3333, 332},
		{"zero bp", 1000, 0, 0},
		{"zero total", 0, 5000, 0},
		{"large total does not overflow", math.MaxInt64 / 2, 10000, math.MaxInt64 / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BasisPointShare(tt.total, tt.bp))
		})
	}
}

func TestFundingProgressBp(t *testing.T) {
	assert.Equal(t, int64(0), FundingProgressBp(500, 0))
	assert.Equal(t, int64(5000), FundingProgressBp(500, 1000))
	assert.Equal(t, int64(15000), FundingProgressBp(1500, 1000), "overfunding is not clamped")
	assert.Equal(t, int64(3333), FundingProgressBp(1, 3))
	assert.Equal(t, int64(10000), ClampBp(FundingProgressBp(1500, 1000)))
	assert.Equal(t, int64(0), ClampBp(-5))
}

func TestWeightBp(t *testing.T) {
	assert.Equal(t, int64(3000), WeightBp(3, 10))
	assert.Equal(t, int64(7000), WeightBp(7, 10))
	assert.Equal(t, int64(0), WeightBp(7, 0))

	// 三等分时截断，总和小于 10000
	w := WeightBp(1, 3)
	assert.Equal(t, int64(3333), w)
	assert.LessOrEqual(t, 3*w, model.MaxBasisPoints)
}

func TestVotePassed(t *testing.T) {
	tests := []struct {
		name      string
		votesFor  int64
		against   int64
		method    model.ApprovalMethod
		threshold int64
		want      bool
	}{
		{"creator only always passes", 0, 10000, model.ApprovalCreatorOnly, 0, true},
		{"majority passes", 7000, 3000, model.ApprovalMajority, 0, true},
		{"majority tie fails", 5000, 5000, model.ApprovalMajority, 0, false},
		{"majority no votes fails", 0, 0, model.ApprovalMajority, 0, false},
		{"percentage unanimous partial turnout", 3000, 0, model.ApprovalPercentageThreshold, 7500, true},
		{"percentage split fails", 3000, 3000, model.ApprovalPercentageThreshold, 7500, false},
		{"percentage exact threshold", 7500, 2500, model.ApprovalPercentageThreshold, 7500, true},
		{"percentage no votes fails", 0, 0, model.ApprovalPercentageThreshold, 1, false},
		{"minimum count reached", 4000, 6000, model.ApprovalMinimumCount, 4000, true},
		{"minimum count short", 3999, 0, model.ApprovalMinimumCount, 4000, false},
		{"unknown method", 10000, 0, model.ApprovalMethod("other"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VotePassed(tt.votesFor, tt.against, tt.method, tt.threshold, 10000))
		})
	}
}

func TestCanStillPass(t *testing.T) {
	assert.True(t, CanStillPass(3000, 4000, 3000, model.ApprovalMajority, 0, 10000))
	assert.False(t, CanStillPass(3000, 7000, 0, model.ApprovalMajority, 0, 10000))
	assert.False(t, CanStillPass(0, 6000, 4000, model.ApprovalMajority, 0, 10000))
	assert.True(t, CanStillPass(1000, 0, 3000, model.ApprovalMinimumCount, 4000, 10000))
	assert.False(t, CanStillPass(1000, 0, 2999, model.ApprovalMinimumCount, 4000, 10000))
	assert.False(t, CanStillPass(2000, 8000, 0, model.ApprovalPercentageThreshold, 7500, 10000))
	assert.True(t, CanStillPass(2000, 1000, -5, model.ApprovalMajority, 0, 10000))
}
