package model

import (
	"time"
)

// PoolMemberModel 资金池成员读模型
type PoolMemberModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PoolRef      string    `json:"pool_ref" gorm:"uniqueIndex:idx_pool_member;not null"`
	Address      string    `json:"address" gorm:"uniqueIndex:idx_pool_member;not null"` // 成员钱包地址
	IdentityTag  string    `json:"identity_tag"`
	Contributed  int64     `json:"contributed"`
	VotingWeight int64     `json:"voting_weight"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	JoinTime     time.Time `json:"join_time"`
}

// TableName 自定义表名
func (PoolMemberModel) TableName() string {
	return "pool_member"
}
