package model

import (
	"time"
)

// ReleaseRecordModel 里程碑放款记录
type ReleaseRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReleaseId     string    `json:"release_id" gorm:"uniqueIndex;not null"`
	PoolRef       string    `json:"pool_ref" gorm:"index;not null"`
	MilestoneId   int       `json:"milestone_id"`
	GrossAmount   int64     `json:"gross_amount" gorm:"not null"`   // 总金额
	PlatformFee   int64     `json:"platform_fee" gorm:"default:0"`  // 平台手续费
	CreatorAmount int64     `json:"creator_amount" gorm:"not null"` // 创建者获得金额
	FeeRecipient  string    `json:"fee_recipient"`
	Recipient     string    `json:"recipient"`
	ReleasedAt    time.Time `json:"released_at"`
}

// TableName 自定义表名
func (ReleaseRecordModel) TableName() string {
	return "release_record"
}
