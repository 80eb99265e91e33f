package model

import (
	"time"
)

// PoolModel 资金池读模型
type PoolModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Ref         string `json:"ref" gorm:"uniqueIndex;not null"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	PoolName    string `json:"pool_name"`
	VanityURL   string `json:"vanity_url" gorm:"index"`
	Visibility  string `json:"visibility"`

	// 资金信息
	FundingGoal     int64  `json:"funding_goal" gorm:"not null"`
	TotalRaised     int64  `json:"total_raised" gorm:"default:0"`
	Currency        string `json:"currency"`
	PlatformFeeRate int64  `json:"platform_fee_rate"`
	ProgressBp      int64  `json:"progress_bp"`
	ReleasedTotal   int64  `json:"released_total"`

	// 治理信息
	ApprovalMethod    string `json:"approval_method"`
	ApprovalThreshold int64  `json:"approval_threshold"`
	RiskStrategy      string `json:"risk_strategy"`

	// 状态
	Status PoolStatus `json:"status" gorm:"index"`

	// 创建者信息
	CreatorAddress string    `json:"creator_address" gorm:"index;not null"`
	PoolCreatedAt  time.Time `json:"pool_created_at"`
}

// TableName 自定义表名
func (PoolModel) TableName() string {
	return "pool"
}
