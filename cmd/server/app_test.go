package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/UPool-Fun/UPool-sub000/internal/config"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"},
		Registry: config.RegistryConfig{
			Owner:          "0x00000000000000000000000000000000000000aa",
			Treasury:       "0x00000000000000000000000000000000000000bb",
			FactoryAddress: "0x00000000000000000000000000000000000000cc",
			CreationFee:    5,
		},
	}
}

func TestRegistryConfig(t *testing.T) {
	cfg, err := registryConfig(testConfig().Registry)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), cfg.Owner)
	assert.Equal(t, common.Address{}, cfg.Operator)
	assert.Equal(t, int64(5), cfg.CreationFee)

	bad := testConfig().Registry
	bad.Treasury = "not-an-address"
	_, err = registryConfig(bad)
	assert.ErrorContains(t, err, "registry.treasury")

	bad = testConfig().Registry
	bad.Owner = ""
	_, err = registryConfig(bad)
	assert.ErrorContains(t, err, "registry.owner")
}

func TestBootstrapAndSummary(t *testing.T) {
	ctx := context.Background()
	a, err := bootstrap(ctx, testConfig())
	require.NoError(t, err)
	assert.Zero(t, a.pools)

	svc := logic.NewService(a.registry, nil, nil)
	_, err = svc.CreatePool(ctx, registry.CreatePoolInput{
		Config: model.PoolConfig{
			Title:          "Summary",
			FundingGoal:    12_345,
			Currency:       "EUR",
			ApprovalMethod: model.ApprovalMajority,
			VanityURL:      "summary",
		},
		Creator:    common.HexToAddress("0x0c01"),
		Milestones: []model.MilestoneInput{{Title: "All", Percentage: 10_000}},
		FeePaid:    5,
	})
	require.NoError(t, err)

	// 事件已写入数据库，重新重放得到相同状态
	pools, err := logic.Bootstrap(ctx, a.store, mustRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, 1, pools)

	var out bytes.Buffer
	require.NoError(t, printSummary(&out, a))
	assert.Contains(t, out.String(), "fee balance: 5")
	assert.Contains(t, out.String(), "123.45")
	assert.Contains(t, out.String(), "0/1")
}

func mustRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	cfg, err := registryConfig(testConfig().Registry)
	require.NoError(t, err)
	reg, err := registry.New(cfg, nil)
	require.NoError(t, err)
	return reg
}
