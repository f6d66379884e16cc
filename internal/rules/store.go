// Package rules resolves forum- and group-scoped income rules through a
// rebuildable read-optimized snapshot, falling back to direct storage
// reads when no snapshot has been built.
package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// CacheKey is the datacache key holding the serialized rule snapshot.
const CacheKey = "newpoints_rules"

// Snapshot is a pure function of the rule tables at the instant of
// rebuild, keyed by forum/group id. Readers always see a fully built
// snapshot or none at all.
type Snapshot struct {
	Forums  map[int64]models.ForumRule `json:"forums"`
	Groups  map[int64]models.GroupRule `json:"groups"`
	BuiltAt time.Time                  `json:"built_at"`
}

// Store is the rule cache plus its storage fallback. Safe for concurrent
// readers; rebuilds replace the whole snapshot atomically.
type Store struct {
	source store.RuleSource
	cache  store.CacheStore
	snap   atomic.Pointer[Snapshot]
}

func New(source store.RuleSource, cache store.CacheStore) *Store {
	return &Store{source: source, cache: cache}
}

// Load restores the snapshot from the durable cache blob, if one exists.
// A missing blob is not an error; lookups fall back to storage until the
// first rebuild.
func (s *Store) Load(ctx context.Context) error {
	blob, err := s.cache.Read(ctx, CacheKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read rule cache blob: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		// A corrupt blob only degrades lookups to storage reads.
		zap.L().Warn("Discarding unreadable rule cache blob", zap.Error(err))
		return nil
	}
	s.snap.Store(&snap)
	return nil
}

// Rebuild re-reads both rule tables, swaps in the new snapshot and
// persists it. Must be called after every rule create/update/delete.
// Concurrent rebuilds do not serialize; last writer wins.
func (s *Store) Rebuild(ctx context.Context) error {
	forums, err := s.source.AllForumRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to read forum rules: %w", err)
	}
	groups, err := s.source.AllGroupRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to read group rules: %w", err)
	}

	snap := &Snapshot{
		Forums:  make(map[int64]models.ForumRule, len(forums)),
		Groups:  make(map[int64]models.GroupRule, len(groups)),
		BuiltAt: time.Now().UTC(),
	}
	for _, r := range forums {
		snap.Forums[r.Fid] = r
	}
	for _, r := range groups {
		snap.Groups[r.Gid] = r
	}

	s.snap.Store(snap)

	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize rule snapshot: %w", err)
	}
	if err := s.cache.Update(ctx, CacheKey, blob); err != nil {
		return fmt.Errorf("failed to persist rule snapshot: %w", err)
	}

	zap.L().Info("Rule cache rebuilt",
		zap.Int("forum_rules", len(snap.Forums)),
		zap.Int("group_rules", len(snap.Groups)))
	return nil
}

// ForumRule resolves the rule for a forum. Absence is not an error: a nil
// rule with nil error means "no rule", which callers treat as rate 1 and
// zero minimums. When no snapshot was ever built the lookup falls back to
// a direct storage read so a missing cache only degrades to slower reads.
func (s *Store) ForumRule(ctx context.Context, fid int64) (*models.ForumRule, error) {
	if snap := s.snap.Load(); snap != nil {
		if rule, ok := snap.Forums[fid]; ok {
			return &rule, nil
		}
		return nil, nil
	}

	rule, err := s.source.ForumRule(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return rule, err
}

// GroupRule resolves the rule for a user group with the same cache-first,
// storage-fallback policy as ForumRule.
func (s *Store) GroupRule(ctx context.Context, gid int64) (*models.GroupRule, error) {
	if snap := s.snap.Load(); snap != nil {
		if rule, ok := snap.Groups[gid]; ok {
			return &rule, nil
		}
		return nil, nil
	}

	rule, err := s.source.GroupRule(ctx, gid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return rule, err
}

// AllGroupRules returns every group rule keyed by gid. Used by the
// allowance scheduler.
func (s *Store) AllGroupRules(ctx context.Context) (map[int64]models.GroupRule, error) {
	if snap := s.snap.Load(); snap != nil {
		out := make(map[int64]models.GroupRule, len(snap.Groups))
		for gid, rule := range snap.Groups {
			out[gid] = rule
		}
		return out, nil
	}

	list, err := s.source.AllGroupRules(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]models.GroupRule, len(list))
	for _, rule := range list {
		out[rule.Gid] = rule
	}
	return out, nil
}

// AllForumRules returns every forum rule keyed by fid.
func (s *Store) AllForumRules(ctx context.Context) (map[int64]models.ForumRule, error) {
	if snap := s.snap.Load(); snap != nil {
		out := make(map[int64]models.ForumRule, len(snap.Forums))
		for fid, rule := range snap.Forums {
			out[fid] = rule
		}
		return out, nil
	}

	list, err := s.source.AllForumRules(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]models.ForumRule, len(list))
	for _, rule := range list {
		out[rule.Fid] = rule
	}
	return out, nil
}

// ForumRate returns the income multiplier for a forum, defaulting to 1
// when no rule exists or the lookup fails.
func (s *Store) ForumRate(ctx context.Context, fid int64) decimal.Decimal {
	rule, err := s.ForumRule(ctx, fid)
	if err != nil {
		zap.L().Warn("Forum rate lookup failed, defaulting to 1", zap.Int64("fid", fid), zap.Error(err))
		return decimal.NewFromInt(1)
	}
	if rule == nil {
		return decimal.NewFromInt(1)
	}
	return rule.Rate
}

// GroupRate returns the income multiplier for a user's primary group,
// defaulting to 1 when no rule exists or the lookup fails.
func (s *Store) GroupRate(ctx context.Context, gid int64) decimal.Decimal {
	rule, err := s.GroupRule(ctx, gid)
	if err != nil {
		zap.L().Warn("Group rate lookup failed, defaulting to 1", zap.Int64("gid", gid), zap.Error(err))
		return decimal.NewFromInt(1)
	}
	if rule == nil {
		return decimal.NewFromInt(1)
	}
	return rule.Rate
}
