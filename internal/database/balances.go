package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// parseDecimal converts a scanned numeric column into a Decimal. SQLite
// hands numeric affinity values back through the driver as strings when
// scanned into *string, including exponent forms for large magnitudes,
// all of which decimal.NewFromString accepts.
func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse decimal %q: %w", raw, err)
	}
	return d, nil
}

// Balance returns the current balance for a user.
func (s *Service) Balance(ctx context.Context, uid int64) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, queryGetBalance, uid).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, store.ErrNotFound
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.Int64("uid", uid), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return parseDecimal(raw)
}

// ApplyDelta adds delta to a user's balance with a single additive update.
func (s *Service) ApplyDelta(ctx context.Context, uid int64, delta decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx, queryApplyDelta, delta.String(), uid)
	if err != nil {
		zap.L().Error("Failed to apply balance delta",
			zap.Int64("uid", uid),
			zap.String("delta", delta.String()),
			zap.Error(err))
		return fmt.Errorf("failed to apply balance delta: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: uid %d", store.ErrNotFound, uid)
	}

	zap.L().Debug("Applied balance delta",
		zap.Int64("uid", uid),
		zap.String("delta", delta.String()))
	return nil
}

// ApplyDeltaByName adds delta to a user's balance keyed by username.
// The lookup is case-insensitive, matching how the platform resolves names.
func (s *Service) ApplyDeltaByName(ctx context.Context, username string, delta decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx, queryApplyDeltaByName, delta.String(), username)
	if err != nil {
		zap.L().Error("Failed to apply balance delta by name",
			zap.String("username", username),
			zap.String("delta", delta.String()),
			zap.Error(err))
		return fmt.Errorf("failed to apply balance delta by name: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: username %s", store.ErrNotFound, username)
	}
	return nil
}

// ApplyGroupDelta credits every member of a group in one aggregate update.
func (s *Service) ApplyGroupDelta(ctx context.Context, gid int64, amount decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx, queryApplyGroupDelta, amount.String(), gid)
	if err != nil {
		zap.L().Error("Failed to apply group delta",
			zap.Int64("gid", gid),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return fmt.Errorf("failed to apply group delta: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	zap.L().Info("Applied group delta",
		zap.Int64("gid", gid),
		zap.String("amount", amount.String()),
		zap.Int64("members", affected))
	return nil
}
