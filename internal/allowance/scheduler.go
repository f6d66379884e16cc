// Package allowance pays periodic per-group point allowances: one
// aggregate credit per qualifying group, gated by each group rule's
// cooldown period.
package allowance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/rules"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// Scheduler holds the per-run payout logic. An external scheduler (cron,
// the platform's task tick) decides when Run is invoked.
type Scheduler struct {
	rules    *rules.Store
	source   store.RuleSource
	balances store.BalanceStore
}

func NewScheduler(ruleStore *rules.Store, source store.RuleSource, balances store.BalanceStore) *Scheduler {
	return &Scheduler{rules: ruleStore, source: source, balances: balances}
}

// Run processes every group rule once. A group qualifies when its
// allowance amount and period are both non-zero and at least one full
// period has elapsed since the last payout. Each qualifying group gets a
// single aggregate credit, then its last-paid timestamp advances to now
// so the next run inside the same window pays nothing. Groups are
// independent: a failure in one never blocks the rest. The rule cache is
// rebuilt once at the end if anything was paid, so readers see the new
// timestamps.
func (s *Scheduler) Run(ctx context.Context, now time.Time) error {
	groups, err := s.rules.AllGroupRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load group rules: %w", err)
	}

	var errs []error
	paid := 0
	for gid, rule := range groups {
		if rule.Allowance.IsZero() || rule.Period == 0 {
			continue
		}
		if !rule.LastPaid.IsZero() && now.Sub(rule.LastPaid) < time.Duration(rule.Period)*time.Second {
			continue
		}

		if err := s.balances.ApplyGroupDelta(ctx, gid, rule.Allowance); err != nil {
			zap.L().Error("Group allowance payout failed",
				zap.Int64("gid", gid),
				zap.String("amount", rule.Allowance.String()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("gid %d payout: %w", gid, err))
			continue
		}

		if err := s.source.TouchGroupAllowance(ctx, gid, now); err != nil {
			// The credit landed but the timestamp did not advance; the next
			// run will pay again. Surfaced rather than masked.
			zap.L().Error("Group allowance paid but timestamp update failed",
				zap.Int64("gid", gid),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("gid %d timestamp: %w", gid, err))
			continue
		}

		zap.L().Info("Group allowance paid",
			zap.Int64("gid", gid),
			zap.String("amount", rule.Allowance.String()))
		paid++
	}

	if paid > 0 {
		if err := s.rules.Rebuild(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rule cache rebuild: %w", err))
		}
	}

	return errors.Join(errs...)
}
