// Package hooks is the surface the host forum calls into: one method per
// platform event, grouped into per-request units of work so that bursts
// of events against the same user coalesce into a single balance write.
package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OUGC-Network/NewPoints-sub000/internal/allowance"
	"github.com/OUGC-Network/NewPoints-sub000/internal/common"
	"github.com/OUGC-Network/NewPoints-sub000/internal/platform"
	"github.com/OUGC-Network/NewPoints-sub000/internal/rules"
	"github.com/OUGC-Network/NewPoints-sub000/internal/settings"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// Engine bundles the long-lived collaborators shared by all sessions.
type Engine struct {
	balances  store.BalanceStore
	users     store.UserStore
	rules     *rules.Store
	settings  *settings.Store
	allowance *allowance.Scheduler
	reader    platform.Reader
}

// Config wires an Engine. Reader is optional; without it the id-based
// moderation hooks return an error and callers must pass full post records.
type Config struct {
	Balances  store.BalanceStore
	Users     store.UserStore
	Rules     *rules.Store
	Settings  *settings.Store
	Allowance *allowance.Scheduler
	Reader    platform.Reader
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		balances:  cfg.Balances,
		users:     cfg.Users,
		rules:     cfg.Rules,
		settings:  cfg.Settings,
		allowance: cfg.Allowance,
		reader:    cfg.Reader,
	}
}

// RunPeriodicTasks is the periodic task tick: currently the group
// allowance payout.
func (e *Engine) RunPeriodicTasks(ctx context.Context, now time.Time) error {
	return e.allowance.Run(ctx, now)
}

// RuleChanged is the invalidation trigger for forum/group rule
// create/edit/delete: it rebuilds the rule cache unconditionally.
func (e *Engine) RuleChanged(ctx context.Context) error {
	return e.rules.Rebuild(ctx)
}

// SettingChanged is the invalidation trigger for setting
// create/edit/delete.
func (e *Engine) SettingChanged(ctx context.Context) error {
	return e.settings.Rebuild(ctx)
}

// FormattedBalance returns a user's balance rendered with the configured
// currency prefix/suffix and decimal places, for display surfaces.
func (e *Engine) FormattedBalance(ctx context.Context, uid int64) (string, error) {
	user, err := e.users.UserByID(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("failed to resolve user for balance display: %w", err)
	}
	return common.FormatPoints(
		user.Points,
		e.settings.Text(ctx, settings.CurrencyPre, ""),
		e.settings.Text(ctx, settings.CurrencySuf, ""),
		e.settings.Precision(ctx),
	), nil
}

// CanViewForum reports whether a balance meets the forum rule's minimum
// points to view. No rule means no minimum.
func (e *Engine) CanViewForum(ctx context.Context, fid int64, points decimal.Decimal) bool {
	rule, err := e.rules.ForumRule(ctx, fid)
	if err != nil || rule == nil {
		return true
	}
	return points.GreaterThanOrEqual(rule.MinView)
}

// CanPostForum reports whether a balance meets the forum rule's minimum
// points to post.
func (e *Engine) CanPostForum(ctx context.Context, fid int64, points decimal.Decimal) bool {
	rule, err := e.rules.ForumRule(ctx, fid)
	if err != nil || rule == nil {
		return true
	}
	return points.GreaterThanOrEqual(rule.MinPost)
}

func (e *Engine) enabled(ctx context.Context) bool {
	return e.settings.Bool(ctx, settings.MainEnabled, true)
}
