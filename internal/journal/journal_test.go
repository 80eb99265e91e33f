package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, ev Event) error {
	s.events = append(s.events, ev)
	return s.err
}

func TestMemoryAppendRequiresContiguousSeq(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ev, err := New("s", 1, "A", map[string]int{"x": 1}, time.Unix(1, 0))
	require.NoError(t, err)
	require.NoError(t, m.Append(ctx, ev))

	ev2, err := New("s", 3, "B", nil, time.Unix(2, 0))
	require.NoError(t, err)
	assert.ErrorIs(t, m.Append(ctx, ev2), ErrSeqConflict)

	events, err := m.Load(ctx, "s")
	require.NoError(t, err)
	require.Len(t, events, 1)

	var payload map[string]int
	require.NoError(t, events[0].Decode(&payload))
	assert.Equal(t, 1, payload["x"])
}

func TestPoolStreamRoundTrip(t *testing.T) {
	ref := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	got, ok := PoolRefFromStream(PoolStream(ref))
	require.True(t, ok)
	assert.Equal(t, ref, got)

	_, ok = PoolRefFromStream(GlobalStream)
	assert.False(t, ok)
}

func TestStreamsByPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, stream := range []string{"pool:b", "registry", "pool:a"} {
		ev, err := New(stream, 1, "T", nil, time.Now())
		require.NoError(t, err)
		require.NoError(t, m.Append(ctx, ev))
	}

	names, err := m.Streams(ctx, "pool:")
	require.NoError(t, err)
	assert.Equal(t, []string{"pool:a", "pool:b"}, names)
}

func TestTeePublishesOnlyCommittedEvents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sink := &recordingSink{err: errors.New("broker down")}
	tee := NewTee(m, sink)

	ev, err := New("s", 1, "A", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, tee.Append(ctx, ev), "sink errors are not returned")

	bad, err := New("s", 5, "B", nil, time.Now())
	require.NoError(t, err)
	require.Error(t, tee.Append(ctx, bad))

	assert.Len(t, sink.events, 1)
	assert.Equal(t, 1, m.Len("s"))
}
