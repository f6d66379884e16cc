package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// BalanceStore applies durable balance mutations. Every write is an
// additive relative update (balance = balance + delta) applied atomically
// per row by the storage engine, so concurrent units of work touching the
// same user never lose deltas.
type BalanceStore interface {
	// ApplyDelta adds delta (which may be negative) to a user's balance.
	ApplyDelta(ctx context.Context, uid int64, delta decimal.Decimal) error
	// ApplyDeltaByName is the string-keyed variant used before a uid is
	// convenient (registration-time credits, donation targets).
	ApplyDeltaByName(ctx context.Context, username string, delta decimal.Decimal) error
	// ApplyGroupDelta credits every member of a group in one aggregate
	// update, not one statement per member.
	ApplyGroupDelta(ctx context.Context, gid int64, amount decimal.Decimal) error
	// Balance returns the current balance for a user.
	Balance(ctx context.Context, uid int64) (decimal.Decimal, error)
}

// RuleSource reads and mutates the forum/group rule tables. Reads are the
// fallback path behind the rule cache; writes come from admin surfaces and
// the allowance scheduler.
type RuleSource interface {
	ForumRule(ctx context.Context, fid int64) (*models.ForumRule, error)
	GroupRule(ctx context.Context, gid int64) (*models.GroupRule, error)
	AllForumRules(ctx context.Context) ([]models.ForumRule, error)
	AllGroupRules(ctx context.Context) ([]models.GroupRule, error)
	UpsertForumRule(ctx context.Context, rule *models.ForumRule) error
	UpsertGroupRule(ctx context.Context, rule *models.GroupRule) error
	DeleteForumRule(ctx context.Context, fid int64) error
	DeleteGroupRule(ctx context.Context, gid int64) error
	// TouchGroupAllowance advances a group rule's last-paid timestamp.
	TouchGroupAllowance(ctx context.Context, gid int64, paidAt time.Time) error
}

// SettingSource reads and mutates the settings table. AllSettings returns
// rows ordered by title so consumers enumerate deterministically.
type SettingSource interface {
	Setting(ctx context.Context, name string) (*models.Setting, error)
	AllSettings(ctx context.Context) ([]models.Setting, error)
	UpsertSetting(ctx context.Context, setting *models.Setting) error
	DeleteSetting(ctx context.Context, name string) error
}

// AuditLog appends and counts action records. CountSince backs the
// donation flood-control window.
type AuditLog interface {
	Append(ctx context.Context, rec *models.AuditLogRecord) error
	CountSince(ctx context.Context, uid int64, action string, since time.Time) (int, error)
	Recent(ctx context.Context, uid int64, action string, limit int) ([]models.AuditLogRecord, error)
}

// CacheStore is the durable key-value cache holding the serialized rule and
// setting snapshots.
type CacheStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// UserStore resolves users for donation targets and display accessors.
type UserStore interface {
	UserByID(ctx context.Context, uid int64) (*models.User, error)
	UserByName(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username string, gid int64) (*models.User, error)
}

// Backend is the full contract the SQLite service satisfies.
type Backend interface {
	BalanceStore
	RuleSource
	SettingSource
	AuditLog
	CacheStore
	UserStore

	Close()
}
