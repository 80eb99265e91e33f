package logic

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/config"
	"github.com/UPool-Fun/UPool-sub000/internal/database"
	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/metrics"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	treasury = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	factory  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	creator  = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	return db
}

func newRegistry(t *testing.T, store journal.Journal) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.Config{
		Owner:          owner,
		Treasury:       treasury,
		FactoryAddress: factory,
		CreationFee:    50,
	}, store, registry.WithClock(fixedClock))
	require.NoError(t, err)
	return reg
}

func createInput(slug string) registry.CreatePoolInput {
	return registry.CreatePoolInput{
		Config: model.PoolConfig{
			Title:           "Community garden",
			FundingGoal:     1_000,
			Currency:        "USD",
			PlatformFeeRate: 250,
			PlatformFeeTo:   treasury,
			Visibility:      model.VisibilityPublic,
			ApprovalMethod:  model.ApprovalMajority,
			VanityURL:       slug,
		},
		Creator: creator,
		Milestones: []model.MilestoneInput{
			{Title: "Soil", Percentage: 4000},
			{Title: "Beds", Percentage: 6000},
		},
		FeePaid: 50,
	}
}

// activePool 创建并激活资金池，alice 贡献 300，bob 贡献 700
func activePool(t *testing.T, svc *Service, slug string) common.Address {
	t.Helper()
	ctx := context.Background()
	res, err := svc.CreatePool(ctx, createInput(slug))
	require.NoError(t, err)
	require.NoError(t, svc.UpdatePoolStatus(ctx, res.Pool, owner, model.PoolStatusPendingPayment))
	require.NoError(t, svc.UpdatePoolStatus(ctx, res.Pool, owner, model.PoolStatusActive))

	_, err = svc.RecordContribution(ctx, res.Pool, ContributionInput{Contributor: alice, Amount: 300, TxRef: "pi_1", Source: "card"})
	require.NoError(t, err)
	_, err = svc.RecordContribution(ctx, res.Pool, ContributionInput{Contributor: bob, Amount: 700, TxRef: "pi_2", Source: "card"})
	require.NoError(t, err)
	return res.Pool
}

func TestEventLogicAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewEventLogic(newDB(t))

	for seq := int64(1); seq <= 2; seq++ {
		ev, err := journal.New("pool:0x01", seq, "Test", map[string]int64{"n": seq}, fixedClock())
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, ev))
	}

	events, err := store.Load(ctx, "pool:0x01")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.True(t, events[0].At.Equal(fixedClock()))

	var payload map[string]int64
	require.NoError(t, json.Unmarshal(events[1].Data, &payload))
	assert.Equal(t, int64(2), payload["n"])

	t.Run("gap is a sequence conflict", func(t *testing.T) {
		ev, err := journal.New("pool:0x01", 4, "Test", nil, fixedClock())
		require.NoError(t, err)
		assert.ErrorIs(t, store.Append(ctx, ev), journal.ErrSeqConflict)
	})

	t.Run("repeated seq is a sequence conflict", func(t *testing.T) {
		ev, err := journal.New("pool:0x01", 2, "Test", nil, fixedClock())
		require.NoError(t, err)
		assert.ErrorIs(t, store.Append(ctx, ev), journal.ErrSeqConflict)
	})

	t.Run("streams by prefix", func(t *testing.T) {
		ev, err := journal.New(journal.GlobalStream, 1, "Test", nil, fixedClock())
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, ev))

		names, err := store.Streams(ctx, journal.PoolStreamPrefix())
		require.NoError(t, err)
		assert.Equal(t, []string{"pool:0x01"}, names)
	})

	t.Run("paginated listing", func(t *testing.T) {
		list, total, err := store.GetEvents("pool:0x01", "", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 1)
		assert.Equal(t, int64(2), list[0].Seq)

		got, err := store.GetEvent(list[0].EventId)
		require.NoError(t, err)
		assert.Equal(t, "Test", got.EventType)
	})
}

func TestBootstrapRebuildsFromDatabase(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	store := NewEventLogic(db)

	svc := NewService(newRegistry(t, store), metrics.NewCollector(), nil)
	ref := activePool(t, svc, "garden")
	_, err := svc.SubmitMilestoneProof(ctx, ref, creator, 0, "https://example.org/soil", "delivered")
	require.NoError(t, err)
	_, err = svc.VoteOnMilestone(ctx, ref, bob, 0, true)
	require.NoError(t, err)

	rebuilt := newRegistry(t, store)
	pools, err := Bootstrap(ctx, store, rebuilt)
	require.NoError(t, err)
	assert.Equal(t, 1, pools)

	original, err := svc.Pool(ref)
	require.NoError(t, err)
	replayed, err := rebuilt.Pool(ref)
	require.NoError(t, err)

	assert.Equal(t, original.Stats(), replayed.Stats())
	assert.Equal(t, original.Seq(), replayed.Seq())
	assert.Equal(t, svc.Registry().Stats(), rebuilt.Stats())
	assert.False(t, rebuilt.IsVanityURLAvailable("garden"))

	// 重放后可以继续写入
	_, err = replayed.SubmitMilestoneProof(ctx, creator, 1, "https://example.org/beds", "")
	require.NoError(t, err)
}

func TestSyncPoolMirrorsReadModel(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	svc := NewService(newRegistry(t, journal.NewMemory()), metrics.NewCollector(), nil)
	ref := activePool(t, svc, "mirror")
	_, err := svc.SubmitMilestoneProof(ctx, ref, creator, 0, "https://example.org/soil", "")
	require.NoError(t, err)
	_, err = svc.VoteOnMilestone(ctx, ref, bob, 0, true)
	require.NoError(t, err)

	pools := NewPoolLogic(db)
	synced, err := pools.SyncAll(svc.Registry())
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	// 二次同步不产生重复记录
	_, err = svc.RecordContribution(ctx, ref, ContributionInput{Contributor: alice, Amount: 100, TxRef: "pi_3", Source: "manual"})
	require.NoError(t, err)
	_, err = pools.SyncAll(svc.Registry())
	require.NoError(t, err)

	list, total, err := pools.GetPools(model.PoolStatusActive, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1_100), list[0].TotalRaised)
	assert.Equal(t, "mirror", list[0].VanityURL)

	milestones, err := pools.GetPoolMilestones(ref.Hex())
	require.NoError(t, err)
	require.Len(t, milestones, 2)
	assert.Equal(t, string(model.MilestoneStatusApproved), milestones[0].Status)

	releases, err := pools.GetPoolReleases(ref.Hex())
	require.NoError(t, err)
	require.Len(t, releases, 1)
	assert.Equal(t, int64(400), releases[0].GrossAmount)
	assert.Equal(t, int64(10), releases[0].PlatformFee)

	contributions := NewContributionLogic(db)
	records, count, err := contributions.GetPoolContributions(ref.Hex(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Len(t, records, 3)

	members, err := contributions.GetPoolMembers(ref.Hex())
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, bob.Hex(), members[0].Address)

	stats, err := contributions.GetContributionStats(ref.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1_100), stats["total_amount"])
	assert.Equal(t, int64(2), stats["unique_contributors"])

	summary, err := pools.GetPoolStatsSummary()
	require.NoError(t, err)
	assert.Equal(t, int64(400), summary["released_total"])
}

func TestServiceWithdrawFeesPersistsRecord(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	withdrawals := NewFeeWithdrawalLogic(db)
	m := metrics.NewCollector()
	svc := NewService(newRegistry(t, journal.NewMemory()), m, withdrawals)

	_, err := svc.CreatePool(ctx, createInput("fees"))
	require.NoError(t, err)
	assert.Equal(t, 50.0, testutil.ToFloat64(m.FeeBalance))

	_, err = svc.WithdrawFees(ctx, alice, TriggerManual)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	w, err := svc.WithdrawFees(ctx, owner, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, int64(50), w.Amount)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FeeBalance))

	records, total, err := withdrawals.GetFeeWithdrawals(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, TriggerScheduled, records[0].Trigger)
	assert.Equal(t, treasury.Hex(), records[0].Treasury)

	sum, err := withdrawals.GetTotalWithdrawn()
	require.NoError(t, err)
	assert.Equal(t, int64(50), sum)

	_, err = svc.WithdrawFees(ctx, owner, TriggerScheduled)
	assert.ErrorIs(t, err, model.ErrNoFeesToWithdraw)
}

func TestServiceRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewCollector()
	svc := NewService(newRegistry(t, journal.NewMemory()), m, nil)
	ref := activePool(t, svc, "metrics")

	_, err := svc.SubmitMilestoneProof(ctx, ref, creator, 0, "https://example.org/soil", "")
	require.NoError(t, err)
	_, err = svc.VoteOnMilestone(ctx, ref, alice, 0, false)
	require.NoError(t, err)
	_, err = svc.VoteOnMilestone(ctx, ref, alice, 0, true)
	assert.ErrorIs(t, err, model.ErrAlreadyVoted)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ContributionsTotal.WithLabelValues("card")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.ContributionAmount.WithLabelValues("USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesTotal.WithLabelValues("against")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("vote", "error")))

	_, err = svc.RecordContribution(ctx, common.HexToAddress("0x0000000000000000000000000000000000000404"), ContributionInput{Contributor: alice, Amount: 1, TxRef: "x"})
	assert.ErrorIs(t, err, model.ErrPoolNotFound)
}

func TestFeeWithdrawalValidation(t *testing.T) {
	withdrawals := NewFeeWithdrawalLogic(newDB(t))

	_, err := withdrawals.CreateFeeWithdrawal(model.FeeWithdrawal{Amount: 10}, TriggerManual)
	assert.Error(t, err)
	_, err = withdrawals.CreateFeeWithdrawal(model.FeeWithdrawal{Treasury: treasury}, TriggerManual)
	assert.Error(t, err)
	_, err = withdrawals.CreateFeeWithdrawal(model.FeeWithdrawal{Treasury: treasury, Amount: 10}, "cron")
	assert.Error(t, err)
}
