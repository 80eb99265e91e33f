package model

import (
	"time"
)

// PoolContributionModel 贡献记录读模型
type PoolContributionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContributionId string    `json:"contribution_id" gorm:"uniqueIndex;not null"`
	PoolRef        string    `json:"pool_ref" gorm:"index;not null"`
	Amount         int64     `json:"amount" gorm:"not null"`
	Address        string    `json:"address" gorm:"not null"`
	TxRef          string    `json:"tx_ref" gorm:"not null"`
	Source         string    `json:"source"`
	IdentityTag    string    `json:"identity_tag"`
	ContributedAt  time.Time `json:"contributed_at"`
}

// TableName 自定义表名
func (PoolContributionModel) TableName() string {
	return "pool_contribution"
}
