package model

import (
	"time"
)

// FeeWithdrawalModel 平台费提取记录
type FeeWithdrawalModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Treasury    string    `json:"treasury" gorm:"not null"`
	Amount      int64     `json:"amount" gorm:"not null"`
	WithdrawnAt time.Time `json:"withdrawn_at"`
	Trigger     string    `json:"trigger" gorm:"default:'manual'"` // manual, scheduled
}

// TableName 自定义表名
func (FeeWithdrawalModel) TableName() string {
	return "fee_withdrawal"
}
