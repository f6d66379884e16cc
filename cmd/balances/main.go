package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/common"
	"github.com/OUGC-Network/NewPoints-sub000/internal/config"
	"github.com/OUGC-Network/NewPoints-sub000/internal/database"
	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/settings"
)

// balances prints an operator report of every user's points balance,
// formatted with the configured currency settings.
func main() {
	nonZero := flag.Bool("nonzero", false, "Only show users with a non-zero balance")
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

	settingStore := settings.New(dbService, dbService)
	if err := settingStore.Load(ctx); err != nil {
		zap.L().Warn("Could not load setting cache, using storage reads", zap.Error(err))
	}
	prefix := settingStore.Text(ctx, settings.CurrencyPre, "")
	suffix := settingStore.Text(ctx, settings.CurrencySuf, "")
	decimals := settingStore.Precision(ctx)

	users, err := dbService.AllUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list users", zap.Error(err))
	}

	common.PrintHeader("User balances", common.DefaultWidth)

	shown := 0
	for i, user := range users {
		if *nonZero && user.Points.IsZero() {
			continue
		}
		printUser(user, common.FormatPoints(user.Points, prefix, suffix, decimals), i == len(users)-1)
		shown++
	}

	fmt.Printf("\n%d of %d users shown\n", shown, len(users))
	common.PrintSeparator("=", common.DefaultWidth)
}

func printUser(user models.User, formatted string, isLast bool) {
	fmt.Printf("%s %-24s (uid %d, group %d): %s\n",
		common.BoxPrefix(isLast),
		user.Username,
		user.Uid,
		user.UserGroup,
		formatted)
}
