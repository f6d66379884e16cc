package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a forum member as far as the points engine cares:
// identity, primary group and the current balance.
type User struct {
	Uid       int64           `db:"uid"`
	Username  string          `db:"username"`
	UserGroup int64           `db:"usergroup"`
	Points    decimal.Decimal `db:"newpoints"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// ForumRule scopes income behaviour to one forum. A forum without a rule
// behaves as Rate=1 with no minimums.
type ForumRule struct {
	Rid       int64           `db:"rid"`
	Fid       int64           `db:"fid"`
	Name      string          `db:"name"`
	Rate      decimal.Decimal `db:"rate"`
	MinView   decimal.Decimal `db:"minview"`
	MinPost   decimal.Decimal `db:"minpost"`
	CreatedAt time.Time       `db:"created_at"`
}

// GroupRule scopes income behaviour to one user group and carries the
// periodic allowance state. Period==0 disables the allowance. LastPaid is
// only ever advanced by the allowance scheduler.
type GroupRule struct {
	Rid       int64           `db:"rid"`
	Gid       int64           `db:"gid"`
	Name      string          `db:"name"`
	Rate      decimal.Decimal `db:"rate"`
	Allowance decimal.Decimal `db:"allowance"`
	Period    int64           `db:"period"` // seconds
	LastPaid  time.Time       `db:"lastpaid"`
	CreatedAt time.Time       `db:"created_at"`
}

// Setting is one named configuration row. Plugin scopes the setting to a
// logical group ("main", "income", "donations", or a plugin name); Type
// describes how an admin surface should render it; Value is the raw string.
type Setting struct {
	Sid         int64  `db:"sid"`
	Plugin      string `db:"plugin"`
	Name        string `db:"name"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Type        string `db:"type"`
	Value       string `db:"value"`
	DispOrder   int64  `db:"disporder"`
}

// AuditLogRecord is one append-only log row for a notable action
// (currently donations). Data is a free-form payload string.
type AuditLogRecord struct {
	Id        string    `db:"id"`
	Uid       int64     `db:"uid"`
	Username  string    `db:"username"`
	Action    string    `db:"action"`
	Data      string    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

// Audit actions recorded by the engine.
const (
	AuditActionDonation  = "donation"
	AuditActionAllowance = "allowance"
)
