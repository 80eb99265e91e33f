package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/broker"
	"github.com/UPool-Fun/UPool-sub000/internal/chain"
	"github.com/UPool-Fun/UPool-sub000/internal/database"
	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/metrics"
	"github.com/UPool-Fun/UPool-sub000/internal/monitor"
	"github.com/UPool-Fun/UPool-sub000/internal/relay"
	"github.com/UPool-Fun/UPool-sub000/internal/router"
	"github.com/UPool-Fun/UPool-sub000/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 事件分发到消息队列
	var sinks []journal.Sink
	if cfg.Kafka.Enabled {
		publisher, err := broker.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	a, err := bootstrap(ctx, cfg, sinks...)
	if err != nil {
		return err
	}
	logger.Info("Journal replayed: %d pools, registry seq %d", a.pools, a.registry.Seq())

	m := metrics.GetCollector()
	withdrawals := logic.NewFeeWithdrawalLogic(a.db)
	svc := logic.NewService(a.registry, m, withdrawals)

	// 链上支付校验
	var (
		verifier relay.TransferVerifier
		chainMgr *chain.Manager
	)
	if cfg.Chain.Enabled {
		chainMgr, err = chain.NewManager(ctx, cfg.Chain)
		if err != nil {
			return err
		}
		defer chainMgr.Close()
		verifier = chainMgr.GetVerifier()
	}

	group, gctx := errgroup.WithContext(ctx)

	rl, err := relay.New(svc, relay.NewProcessorManager(verifier), cfg.Relay.Workers, m)
	if err != nil {
		return err
	}
	defer rl.Release()

	if cfg.Kafka.Enabled {
		consumer, err := broker.NewPaymentConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupId, cfg.Kafka.PaymentsTopic, rl)
		if err != nil {
			return err
		}
		defer consumer.Close()
		group.Go(func() error {
			consumer.Run(gctx)
			return nil
		})
	}

	// 链上转账扫描
	if chainMgr != nil && cfg.Chain.MonitorEnabled {
		mon, err := monitor.NewTransferMonitor(chainMgr.GetClient(), chainMgr.GetTokenAddress(), monitor.ActivePools(a.registry), rl, monitor.Options{
			StartBlock:    cfg.Chain.StartBlock,
			Confirmations: cfg.Chain.Confirmations,
			BatchBlocks:   cfg.Chain.BatchBlocks,
			Interval:      cfg.Chain.PollInterval,
		})
		if err != nil {
			return err
		}
		group.Go(func() error {
			mon.Run(gctx)
			return nil
		})
	}

	// 定时任务
	jobs, err := scheduler.NewManager()
	if err != nil {
		return err
	}
	if err := jobs.Register(scheduler.NewFeeSweepJob(svc, cfg.Task.FeeSweepInterval)); err != nil {
		return err
	}
	if err := jobs.Register(scheduler.NewSnapshotJob(logic.NewPoolLogic(a.db), a.registry, cfg.Task.SnapshotInterval)); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Relay.Token == "" {
		logger.Warn("relay.token is empty, HTTP payment relay will reject every request")
	}
	var limiter *rate.Limiter
	if cfg.Relay.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Relay.RateLimit), max(cfg.Relay.RateBurst, 1))
	}

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: router.Setup(router.Deps{
			Service:    svc,
			Relay:      rl,
			Metrics:    m,
			RelayToken:   cfg.Relay.Token,
			RelayLimiter: limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group.Go(func() error {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("Database migration completed")
	return nil
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	sync, _ := cmd.Flags().GetBool("sync")
	if sync {
		n, err := logic.NewPoolLogic(a.db).SyncAll(a.registry)
		if err != nil {
			return err
		}
		logger.Info("Read models refreshed for %d pools", n)
	}

	return printSummary(cmd.OutOrStdout(), a)
}
