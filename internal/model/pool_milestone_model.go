package model

import (
	"time"
)

// PoolMilestoneModel 里程碑读模型
type PoolMilestoneModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PoolRef          string     `json:"pool_ref" gorm:"uniqueIndex:idx_pool_milestone;not null"`
	MilestoneId      int        `json:"milestone_id" gorm:"uniqueIndex:idx_pool_milestone"`
	Title            string     `json:"title" gorm:"not null"`
	Description      string     `json:"description" gorm:"type:text"`
	Percentage       int64      `json:"percentage"`
	Amount           int64      `json:"amount"`
	Status           string     `json:"status" gorm:"default:'locked'"` // locked, pending_vote, approved, rejected
	ProofURL         string     `json:"proof_url"`
	ProofDescription string     `json:"proof_description" gorm:"type:text"`
	VotesFor         int64      `json:"votes_for"`
	VotesAgainst     int64      `json:"votes_against"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	ApprovedAt       *time.Time `json:"approved_at"`
}

// TableName 自定义表名
func (PoolMilestoneModel) TableName() string {
	return "pool_milestone"
}
