package main

import (
	"context"
	"fmt"

	"github.com/UPool-Fun/UPool-sub000/internal/config"
	"github.com/UPool-Fun/UPool-sub000/internal/database"
	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// app 启动过程中共享的组件
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	store    *logic.EventLogic
	registry *registry.Registry
	pools    int
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Logger()); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

// registryConfig 解析注册表地址配置
func registryConfig(cfg config.RegistryConfig) (registry.Config, error) {
	out := registry.Config{
		CreationFee:        cfg.CreationFee,
		MaxPoolsPerCreator: cfg.MaxPoolsPerCreator,
	}
	fields := []struct {
		name  string
		value string
		dst   *common.Address
		opt   bool
	}{
		{"registry.owner", cfg.Owner, &out.Owner, false},
		{"registry.treasury", cfg.Treasury, &out.Treasury, false},
		{"registry.factory_address", cfg.FactoryAddress, &out.FactoryAddress, false},
		{"registry.operator", cfg.Operator, &out.Operator, true},
	}
	for _, f := range fields {
		if f.value == "" && f.opt {
			continue
		}
		if !common.IsHexAddress(f.value) {
			return registry.Config{}, fmt.Errorf("%s: invalid address %q", f.name, f.value)
		}
		*f.dst = common.HexToAddress(f.value)
	}
	return out, nil
}

// bootstrap 打开数据库、建立注册表并重放事件日志；有下游时经 Tee 分发
func bootstrap(ctx context.Context, cfg *config.Config, sinks ...journal.Sink) (*app, error) {
	db, err := database.Init(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	store := logic.NewEventLogic(db)

	regCfg, err := registryConfig(cfg.Registry)
	if err != nil {
		return nil, err
	}

	var j journal.Journal = store
	if len(sinks) > 0 {
		j = journal.NewTee(store, sinks...)
	}
	reg, err := registry.New(regCfg, j)
	if err != nil {
		return nil, err
	}

	pools, err := logic.Bootstrap(ctx, store, reg)
	if err != nil {
		return nil, fmt.Errorf("replay journal: %w", err)
	}
	return &app{cfg: cfg, db: db, store: store, registry: reg, pools: pools}, nil
}
