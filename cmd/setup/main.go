package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/common"
	"github.com/OUGC-Network/NewPoints-sub000/internal/config"
	"github.com/OUGC-Network/NewPoints-sub000/internal/database"
	"github.com/OUGC-Network/NewPoints-sub000/internal/rules"
	"github.com/OUGC-Network/NewPoints-sub000/internal/settings"
)

// setup initializes a fresh database: schema, default settings from the
// seed file, and the initial cache blobs.
func main() {
	seedsFile := flag.String("settings", "", "Path to the settings seed yaml (default: SETTINGS_FILE env or settings.yaml)")
	force := flag.Bool("force", false, "Overwrite setting values that already exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	seedPath := *seedsFile
	if seedPath == "" {
		seedPath = cfg.Scheduler.SettingsFile
	}

	seeds, err := common.LoadSettingSeeds(seedPath)
	if err != nil {
		zap.L().Fatal("Failed to load setting seeds", zap.String("file", seedPath), zap.Error(err))
	}

	installed := 0
	for _, seed := range seeds {
		if !*force {
			if _, err := dbService.Setting(ctx, seed.Name); err == nil {
				continue
			}
		}
		seed := seed
		if err := dbService.UpsertSetting(ctx, &seed); err != nil {
			zap.L().Error("Failed to install setting", zap.String("name", seed.Name), zap.Error(err))
			continue
		}
		installed++
	}
	zap.L().Info("Settings installed", zap.Int("installed", installed), zap.Int("total", len(seeds)))

	// Build the initial cache blobs so the first request never pays the
	// fallback cost.
	settingStore := settings.New(dbService, dbService)
	if err := settingStore.Rebuild(ctx); err != nil {
		zap.L().Fatal("Failed to build setting cache", zap.Error(err))
	}
	ruleStore := rules.New(dbService, dbService)
	if err := ruleStore.Rebuild(ctx); err != nil {
		zap.L().Fatal("Failed to build rule cache", zap.Error(err))
	}

	zap.L().Info("Setup complete", zap.String("database", cfg.Database.Path))
}
