package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"gorm.io/gorm"
)

// EventLogic 基于数据库的事件日志，实现 journal.Store
type EventLogic struct {
	db *gorm.DB
}

// NewEventLogic 创建事件业务逻辑
func NewEventLogic(db *gorm.DB) *EventLogic {
	return &EventLogic{db: db}
}

var _ journal.Store = (*EventLogic)(nil)

// Append 追加事件，序号必须紧接流内最后一条
func (e *EventLogic) Append(ctx context.Context, ev journal.Event) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&model.EventModel{}).
			Where("stream = ?", ev.Stream).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("获取事件流序号失败: %w", err)
		}
		if ev.Seq != last+1 {
			return fmt.Errorf("%w: stream %s expected seq %d, got %d", journal.ErrSeqConflict, ev.Stream, last+1, ev.Seq)
		}

		record := &model.EventModel{
			EventId:    ev.ID,
			Stream:     ev.Stream,
			Seq:        ev.Seq,
			EventType:  ev.Type,
			Data:       string(ev.Data),
			OccurredAt: ev.At,
		}
		if err := tx.Create(record).Error; err != nil {
			// 并发写入同一序号由唯一索引拦截
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: stream %s seq %d", journal.ErrSeqConflict, ev.Stream, ev.Seq)
			}
			return fmt.Errorf("创建事件记录失败: %w", err)
		}
		return nil
	})
}

// Load 按序号读取事件流
func (e *EventLogic) Load(ctx context.Context, stream string) ([]journal.Event, error) {
	var records []model.EventModel
	if err := e.db.WithContext(ctx).
		Where("stream = ?", stream).
		Order("seq ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("获取事件流失败: %w", err)
	}

	events := make([]journal.Event, 0, len(records))
	for _, r := range records {
		events = append(events, toJournalEvent(r))
	}
	return events, nil
}

// Streams 按前缀列出事件流
func (e *EventLogic) Streams(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	if err := e.db.WithContext(ctx).Model(&model.EventModel{}).
		Distinct("stream").
		Where("stream LIKE ?", prefix+"%").
		Order("stream ASC").
		Pluck("stream", &names).Error; err != nil {
		return nil, fmt.Errorf("获取事件流列表失败: %w", err)
	}
	return names, nil
}

// GetEvents 分页获取事件，stream 为空时返回全部
func (e *EventLogic) GetEvents(stream, eventType string, page, pageSize int) ([]model.EventModel, int64, error) {
	var events []model.EventModel
	var total int64

	query := e.db.Model(&model.EventModel{})
	if stream != "" {
		query = query.Where("stream = ?", stream)
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取事件总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("id DESC").Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("获取事件列表失败: %w", err)
	}

	return events, total, nil
}

// GetEvent 根据事件 ID 获取事件
func (e *EventLogic) GetEvent(eventId string) (*model.EventModel, error) {
	var event model.EventModel
	if err := e.db.Where("event_id = ?", eventId).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("事件不存在")
		}
		return nil, fmt.Errorf("获取事件失败: %w", err)
	}
	return &event, nil
}

func toJournalEvent(r model.EventModel) journal.Event {
	return journal.Event{
		ID:     r.EventId,
		Stream: r.Stream,
		Seq:    r.Seq,
		Type:   r.EventType,
		Data:   json.RawMessage(r.Data),
		At:     r.OccurredAt.UTC(),
	}
}
