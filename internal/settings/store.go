// Package settings exposes named configuration values through a
// rebuildable snapshot with the same fallback discipline as the rule
// cache, plus typed accessors over the raw string values.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// CacheKey is the datacache key holding the serialized setting snapshot.
const CacheKey = "newpoints_settings"

// Well-known setting names consumed by the engine.
const (
	MainEnabled   = "main_enabled"
	CurrencyName  = "main_curname"
	CurrencyPre   = "main_curprefix"
	CurrencySuf   = "main_cursuffix"
	DecimalPlaces = "main_decimal"

	IncomeNewPost   = "income_newpost"
	IncomeNewThread = "income_newthread"
	IncomeNewPoll   = "income_newpoll"
	IncomePerChar   = "income_perchar"
	IncomeMinChar   = "income_minchar"
	IncomeNewReg    = "income_newreg"
	IncomeReferral  = "income_referral"
	IncomePerVote   = "income_pervote"
	IncomePMSent    = "income_pmsent"
	IncomePerRate   = "income_perrate"
	IncomePageView  = "income_pageview"
	IncomeVisit     = "income_visit"

	DonationsEnabled      = "donations_enabled"
	DonationsFloodLimit   = "donations_flood_limit"
	DonationsNotify       = "donations_notify"
	DonationsExemptGroups = "donations_exempt_groups"
)

// Snapshot is the flat name->Setting view of the settings table, ordered
// deterministically (by title) at rebuild time.
type Snapshot struct {
	Values  map[string]models.Setting `json:"values"`
	Order   []string                  `json:"order"`
	BuiltAt time.Time                 `json:"built_at"`
}

// Store is the setting cache plus its storage fallback.
type Store struct {
	source store.SettingSource
	cache  store.CacheStore
	snap   atomic.Pointer[Snapshot]

	mu        sync.Mutex
	onRebuild []func(map[string]string)
}

func New(source store.SettingSource, cache store.CacheStore) *Store {
	return &Store{source: source, cache: cache}
}

// OnRebuild registers a callback invoked with the flat name->value view
// after every rebuild, so an embedding process observes new values without
// a restart. Register before concurrent use.
func (s *Store) OnRebuild(fn func(map[string]string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRebuild = append(s.onRebuild, fn)
}

// Load restores the snapshot from the durable cache blob, if one exists.
func (s *Store) Load(ctx context.Context) error {
	blob, err := s.cache.Read(ctx, CacheKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read setting cache blob: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		zap.L().Warn("Discarding unreadable setting cache blob", zap.Error(err))
		return nil
	}
	s.snap.Store(&snap)
	return nil
}

// Rebuild re-reads all settings ordered by title, swaps in the new
// snapshot, persists it and notifies the live view. Must be called after
// every setting create/update/delete.
func (s *Store) Rebuild(ctx context.Context) error {
	all, err := s.source.AllSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	snap := &Snapshot{
		Values:  make(map[string]models.Setting, len(all)),
		Order:   make([]string, 0, len(all)),
		BuiltAt: time.Now().UTC(),
	}
	for _, setting := range all {
		snap.Values[setting.Name] = setting
		snap.Order = append(snap.Order, setting.Name)
	}

	s.snap.Store(snap)

	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize setting snapshot: %w", err)
	}
	if err := s.cache.Update(ctx, CacheKey, blob); err != nil {
		return fmt.Errorf("failed to persist setting snapshot: %w", err)
	}

	flat := make(map[string]string, len(snap.Values))
	for name, setting := range snap.Values {
		flat[name] = setting.Value
	}
	s.mu.Lock()
	callbacks := make([]func(map[string]string), len(s.onRebuild))
	copy(callbacks, s.onRebuild)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(flat)
	}

	zap.L().Info("Setting cache rebuilt", zap.Int("settings", len(snap.Values)))
	return nil
}

// Get returns the raw value for a named setting. Cache-first; when no
// snapshot was ever built it falls back to a direct storage read. Absence
// (or a failed fallback read) is reported as not-ok, never as an error:
// configuration absence resolves through caller defaults.
func (s *Store) Get(ctx context.Context, name string) (string, bool) {
	if snap := s.snap.Load(); snap != nil {
		setting, ok := snap.Values[name]
		return setting.Value, ok
	}

	setting, err := s.source.Setting(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return "", false
	}
	if err != nil {
		zap.L().Warn("Setting fallback read failed", zap.String("name", name), zap.Error(err))
		return "", false
	}
	return setting.Value, true
}

// Decimal parses a setting as a decimal amount, returning def when the
// setting is absent or unparseable.
func (s *Store) Decimal(ctx context.Context, name string, def decimal.Decimal) decimal.Decimal {
	raw, ok := s.Get(ctx, name)
	if !ok {
		return def
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		zap.L().Warn("Setting is not a decimal", zap.String("name", name), zap.String("value", raw))
		return def
	}
	return d
}

// Int parses a setting as an integer, returning def on absence or parse
// failure.
func (s *Store) Int(ctx context.Context, name string, def int) int {
	raw, ok := s.Get(ctx, name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		zap.L().Warn("Setting is not an integer", zap.String("name", name), zap.String("value", raw))
		return def
	}
	return n
}

// Bool treats "1", "yes", "on" and "true" (case-insensitive) as true.
func (s *Store) Bool(ctx context.Context, name string, def bool) bool {
	raw, ok := s.Get(ctx, name)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "yes", "on", "true":
		return true
	case "0", "no", "off", "false":
		return false
	default:
		return def
	}
}

// Text returns the raw value or def when absent.
func (s *Store) Text(ctx context.Context, name string, def string) string {
	raw, ok := s.Get(ctx, name)
	if !ok {
		return def
	}
	return raw
}

// maxPrecision is the storage-layer cap: balance updates round to 6
// decimal places in SQL, so a higher setting would be silently truncated
// on write.
const maxPrecision = 6

// Precision returns the configured decimal-places setting, default 2,
// clamped to [0, 6]. Every rounding in the engine uses this value so
// accumulated totals do not drift from per-event reasoning.
func (s *Store) Precision(ctx context.Context) int32 {
	p := s.Int(ctx, DecimalPlaces, 2)
	if p < 0 {
		p = 0
	}
	if p > maxPrecision {
		p = maxPrecision
	}
	return int32(p)
}

// GroupList parses a comma-separated list of group ids (used for the
// donation flood-control exemption set).
func (s *Store) GroupList(ctx context.Context, name string) map[int64]bool {
	raw, ok := s.Get(ctx, name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	out := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		gid, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			zap.L().Warn("Skipping malformed group id in setting",
				zap.String("name", name), zap.String("value", part))
			continue
		}
		out[gid] = true
	}
	return out
}
