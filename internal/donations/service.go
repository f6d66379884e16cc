// Package donations validates and executes peer-to-peer point transfers:
// eligibility, flood control, balance checks, debit/credit through the
// ledger and the audit trail.
package donations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/ledger"
	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/platform"
	"github.com/OUGC-Network/NewPoints-sub000/internal/settings"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// Typed rejection reasons. These are expected user-facing outcomes, not
// faults; callers distinguish them with errors.Is and render a message.
var (
	ErrFeatureDisabled = errors.New("donations are disabled")
	ErrFloodLimit      = errors.New("donation flood limit reached")
	ErrSelfDonation    = errors.New("cannot donate to yourself")
	ErrInvalidAmount   = errors.New("invalid donation amount")
	ErrInvalidUser     = errors.New("donation target not found")
)

// floodWindow is the trailing window donation attempts are counted over.
const floodWindow = 15 * time.Minute

const defaultFloodLimit = 5

// Actor identifies the donating user, as resolved by the host platform.
type Actor struct {
	Uid      int64
	Username string
	Gid      int64
}

// Result describes a committed donation.
type Result struct {
	Amount     decimal.Decimal
	TargetUid  int64
	TargetName string
}

// Config wires a donation service.
type Config struct {
	Balances store.BalanceStore
	Users    store.UserStore
	Audit    store.AuditLog
	Settings *settings.Store
	// Messenger is optional; when set and the notify setting is on, the
	// target is told about the donation on a best-effort basis.
	Messenger platform.Messenger
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	balances  store.BalanceStore
	users     store.UserStore
	audit     store.AuditLog
	settings  *settings.Store
	messenger platform.Messenger
	now       func() time.Time
}

func NewService(cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		balances:  cfg.Balances,
		users:     cfg.Users,
		audit:     cfg.Audit,
		settings:  cfg.Settings,
		messenger: cfg.Messenger,
		now:       now,
	}
}

// Donate runs one donation attempt to its terminal state. Every
// validation happens before any balance mutation: a rejected donation
// never touches a balance or the audit log. Commit is two independent
// immediate writes (debit by uid, credit by name); both must land before
// success is reported, and a failure between them is a known, accepted
// limitation rather than something this layer rolls back.
func (s *Service) Donate(ctx context.Context, actor Actor, targetName string, amount decimal.Decimal, reason string) (*Result, error) {
	if !s.settings.Bool(ctx, settings.DonationsEnabled, true) {
		return nil, ErrFeatureDisabled
	}

	if err := s.checkFlood(ctx, actor); err != nil {
		return nil, err
	}

	if strings.EqualFold(strings.TrimSpace(targetName), actor.Username) {
		return nil, ErrSelfDonation
	}

	precision := s.settings.Precision(ctx)
	amount = amount.Round(precision)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	balance, err := s.balances.Balance(ctx, actor.Uid)
	if err != nil {
		return nil, fmt.Errorf("failed to read actor balance: %w", err)
	}
	if amount.GreaterThan(balance) {
		return nil, ErrInvalidAmount
	}

	target, err := s.users.UserByName(ctx, strings.TrimSpace(targetName))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidUser
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve donation target: %w", err)
	}

	// Commit: debit actor, credit target, then the audit entry.
	unit := ledger.New(s.balances, precision)
	if err := unit.Add(ctx, actor.Uid, amount.Neg(), ledger.Immediate()); err != nil {
		return nil, fmt.Errorf("donation debit failed: %w", err)
	}
	if err := unit.AddByName(ctx, target.Username, amount); err != nil {
		return nil, fmt.Errorf("donation credit failed after debit: %w", err)
	}

	rec := &models.AuditLogRecord{
		Uid:       actor.Uid,
		Username:  actor.Username,
		Action:    models.AuditActionDonation,
		Data:      fmt.Sprintf("%s-%d-%s", target.Username, target.Uid, amount.String()),
		CreatedAt: s.now().UTC(),
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		// Balances already moved; the trail entry is lost but the donation
		// stands. Flood control will undercount until the log recovers.
		zap.L().Error("Donation committed but audit append failed",
			zap.Int64("actor", actor.Uid),
			zap.Int64("target", target.Uid),
			zap.Error(err))
	}

	s.notify(ctx, actor, target, amount, reason)

	zap.L().Info("Donation committed",
		zap.Int64("actor", actor.Uid),
		zap.String("target", target.Username),
		zap.String("amount", amount.String()))

	return &Result{Amount: amount, TargetUid: target.Uid, TargetName: target.Username}, nil
}

func (s *Service) checkFlood(ctx context.Context, actor Actor) error {
	exempt := s.settings.GroupList(ctx, settings.DonationsExemptGroups)
	if exempt[actor.Gid] {
		return nil
	}

	limit := s.settings.Int(ctx, settings.DonationsFloodLimit, defaultFloodLimit)
	if limit <= 0 {
		return nil
	}

	since := s.now().UTC().Add(-floodWindow)
	count, err := s.audit.CountSince(ctx, actor.Uid, models.AuditActionDonation, since)
	if err != nil {
		return fmt.Errorf("failed to check donation flood window: %w", err)
	}
	if count >= limit {
		return ErrFloodLimit
	}
	return nil
}

func (s *Service) notify(ctx context.Context, actor Actor, target *models.User, amount decimal.Decimal, reason string) {
	if s.messenger == nil || !s.settings.Bool(ctx, settings.DonationsNotify, false) {
		return
	}

	subject := fmt.Sprintf("You received a donation from %s", actor.Username)
	body := fmt.Sprintf("%s donated %s points to you.", actor.Username, amount.String())
	if reason != "" {
		body += "\n\nReason: " + reason
	}
	if !s.messenger.SendMessage(ctx, target.Uid, subject, body) {
		zap.L().Warn("Donation notification was not delivered",
			zap.Int64("target", target.Uid))
	}
}
