package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/allowance"
	"github.com/OUGC-Network/NewPoints-sub000/internal/common"
	"github.com/OUGC-Network/NewPoints-sub000/internal/config"
	"github.com/OUGC-Network/NewPoints-sub000/internal/database"
	"github.com/OUGC-Network/NewPoints-sub000/internal/rules"
)

// allowanced runs the periodic group allowance payout on a cron schedule.
// A forum deployment that already has a task tick can call
// Engine.RunPeriodicTasks instead; this daemon covers standalone setups.
func main() {
	runOnce := flag.Bool("once", false, "Run a single payout pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	ruleStore := rules.New(dbService, dbService)
	if err := ruleStore.Load(ctx); err != nil {
		zap.L().Warn("Could not load rule cache, using storage reads", zap.Error(err))
	}

	scheduler := allowance.NewScheduler(ruleStore, dbService, dbService)

	if *runOnce {
		if err := scheduler.Run(ctx, time.Now().UTC()); err != nil {
			zap.L().Fatal("Allowance run failed", zap.Error(err))
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Scheduler.CronSpec, func() {
		if err := scheduler.Run(ctx, time.Now().UTC()); err != nil {
			zap.L().Error("Allowance run reported failures", zap.Error(err))
		}
	})
	if err != nil {
		zap.L().Fatal("Invalid cron spec",
			zap.String("spec", cfg.Scheduler.CronSpec),
			zap.Error(err))
	}

	c.Start()
	zap.L().Info("Allowance daemon running",
		zap.String("spec", cfg.Scheduler.CronSpec),
		zap.String("database", cfg.Database.Path))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping scheduler...")
	cancel()
	stopCtx := c.Stop()

	select {
	case <-stopCtx.Done():
		zap.L().Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		zap.L().Warn("Forced shutdown after timeout")
	}
}
