// Package ledger buffers per-user point deltas during one unit of work (a
// request or a task run) and flushes them as coalesced additive updates,
// bounding write amplification under bursty event sequences.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

type addOptions struct {
	forumRate decimal.Decimal
	groupRate decimal.Decimal
	immediate bool
}

// Option adjusts one Add call.
type Option func(*addOptions)

// WithForumRate applies a forum income multiplier to the delta.
func WithForumRate(rate decimal.Decimal) Option {
	return func(o *addOptions) { o.forumRate = rate }
}

// WithGroupRate applies a group income multiplier to the delta.
func WithGroupRate(rate decimal.Decimal) Option {
	return func(o *addOptions) { o.groupRate = rate }
}

// Immediate bypasses the unit-of-work buffer and writes straight to
// durable storage.
func Immediate() Option {
	return func(o *addOptions) { o.immediate = true }
}

// Ledger is the write buffer for one unit of work. It is owned by that
// unit and must not be shared across concurrent units; within a unit,
// calls are synchronous, so no locking is needed on the hot path.
//
// Abandoning a Ledger without calling Flush discards the buffer with no
// durable effect, which is the desired cancellation semantics.
type Ledger struct {
	backend   store.BalanceStore
	precision int32
	buffer    map[int64]decimal.Decimal
}

// New begins a unit of work against the given balance store. precision is
// the configured decimal-places setting applied to every rounding.
func New(backend store.BalanceStore, precision int32) *Ledger {
	return &Ledger{backend: backend, precision: precision}
}

// Add records a signed delta for a user. The final amount is
// round(delta * forumRate * groupRate, precision); a zero final amount is
// a no-op. Without Immediate the amount coalesces into the buffer
// (created on the first buffered Add of this unit); with it the write
// goes straight to durable storage.
func (l *Ledger) Add(ctx context.Context, uid int64, delta decimal.Decimal, opts ...Option) error {
	o := addOptions{
		forumRate: decimal.NewFromInt(1),
		groupRate: decimal.NewFromInt(1),
	}
	for _, opt := range opts {
		opt(&o)
	}

	final := delta.Mul(o.forumRate).Mul(o.groupRate).Round(l.precision)
	if final.IsZero() {
		return nil
	}

	if o.immediate {
		if err := l.backend.ApplyDelta(ctx, uid, final); err != nil {
			return fmt.Errorf("immediate balance write failed: %w", err)
		}
		return nil
	}

	if l.buffer == nil {
		l.buffer = make(map[int64]decimal.Decimal)
	}
	accumulated := l.buffer[uid].Add(final)
	if accumulated.IsZero() {
		// A credit and its exact reversal cancel out; drop the entry so
		// Pending reflects only users with a durable write coming.
		delete(l.buffer, uid)
	} else {
		l.buffer[uid] = accumulated
	}

	zap.L().Debug("Buffered balance delta",
		zap.Int64("uid", uid),
		zap.String("delta", final.String()),
		zap.String("accumulated", accumulated.String()))
	return nil
}

// AddByName writes a delta keyed by username. String-keyed updates cannot
// be coalesced against uid-keyed buffer entries, so this is unconditionally
// immediate; rate options still apply.
func (l *Ledger) AddByName(ctx context.Context, username string, delta decimal.Decimal, opts ...Option) error {
	o := addOptions{
		forumRate: decimal.NewFromInt(1),
		groupRate: decimal.NewFromInt(1),
	}
	for _, opt := range opts {
		opt(&o)
	}

	final := delta.Mul(o.forumRate).Mul(o.groupRate).Round(l.precision)
	if final.IsZero() {
		return nil
	}

	if err := l.backend.ApplyDeltaByName(ctx, username, final); err != nil {
		return fmt.Errorf("balance write by name failed: %w", err)
	}
	return nil
}

// Pending reports how many users have buffered deltas.
func (l *Ledger) Pending() int {
	return len(l.buffer)
}

// Flush issues one additive durable write per buffered user, then destroys
// the buffer. A failure for one user does not prevent the attempt for the
// others; all failures come back joined. Calling Flush again on an empty
// buffer is a pure no-op, so double invocation is safe.
func (l *Ledger) Flush(ctx context.Context) error {
	if len(l.buffer) == 0 {
		return nil
	}

	var errs []error
	for uid, amount := range l.buffer {
		if amount.IsZero() {
			continue
		}
		if err := l.backend.ApplyDelta(ctx, uid, amount); err != nil {
			zap.L().Error("Ledger flush entry failed",
				zap.Int64("uid", uid),
				zap.String("amount", amount.String()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("uid %d: %w", uid, err))
		}
	}

	flushed := len(l.buffer)
	l.buffer = nil

	zap.L().Debug("Ledger flushed", zap.Int("entries", flushed), zap.Int("failures", len(errs)))
	return errors.Join(errs...)
}
