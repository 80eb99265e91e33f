package journal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory 内存事件日志，用于测试和无数据库运行
type Memory struct {
	mu      sync.RWMutex
	streams map[string][]Event
	failOn  func(Event) error
}

// NewMemory 创建内存事件日志
func NewMemory() *Memory {
	return &Memory{streams: make(map[string][]Event)}
}

// FailWhen 设置写入失败的条件，测试用
func (m *Memory) FailWhen(fn func(Event) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn = fn
}

// Append 追加事件，序号必须连续
func (m *Memory) Append(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failOn != nil {
		if err := m.failOn(ev); err != nil {
			return err
		}
	}

	events := m.streams[ev.Stream]
	if ev.Seq != int64(len(events))+1 {
		return fmt.Errorf("%w: stream %s expected seq %d, got %d", ErrSeqConflict, ev.Stream, len(events)+1, ev.Seq)
	}
	m.streams[ev.Stream] = append(events, ev)
	return nil
}

// Load 读取事件流
func (m *Memory) Load(_ context.Context, stream string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.streams[stream]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}

// Streams 按前缀列出事件流
func (m *Memory) Streams(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.streams {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Len 返回事件流长度
func (m *Memory) Len(stream string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams[stream])
}

// Nop 丢弃所有事件
type Nop struct{}

// Append 丢弃事件
func (Nop) Append(context.Context, Event) error { return nil }
