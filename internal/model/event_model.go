package model

import (
	"time"
)

// EventModel 事件日志（追加写入，不修改）
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	EventId    string    `json:"event_id" gorm:"uniqueIndex;not null"`
	Stream     string    `json:"stream" gorm:"uniqueIndex:idx_stream_seq;not null"`
	Seq        int64     `json:"seq" gorm:"uniqueIndex:idx_stream_seq;not null"`
	EventType  string    `json:"event_type" gorm:"not null"`
	Data       string    `json:"data" gorm:"type:text"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
