package rules

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// fakeRuleSource serves rule rows from memory and counts direct reads so
// tests can tell cache hits from storage fallbacks.
type fakeRuleSource struct {
	forums      map[int64]models.ForumRule
	groups      map[int64]models.GroupRule
	directReads int
}

func (f *fakeRuleSource) ForumRule(_ context.Context, fid int64) (*models.ForumRule, error) {
	f.directReads++
	if rule, ok := f.forums[fid]; ok {
		return &rule, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeRuleSource) GroupRule(_ context.Context, gid int64) (*models.GroupRule, error) {
	f.directReads++
	if rule, ok := f.groups[gid]; ok {
		return &rule, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeRuleSource) AllForumRules(context.Context) ([]models.ForumRule, error) {
	f.directReads++
	out := make([]models.ForumRule, 0, len(f.forums))
	for _, rule := range f.forums {
		out = append(out, rule)
	}
	return out, nil
}

func (f *fakeRuleSource) AllGroupRules(context.Context) ([]models.GroupRule, error) {
	f.directReads++
	out := make([]models.GroupRule, 0, len(f.groups))
	for _, rule := range f.groups {
		out = append(out, rule)
	}
	return out, nil
}

func (f *fakeRuleSource) UpsertForumRule(_ context.Context, rule *models.ForumRule) error {
	f.forums[rule.Fid] = *rule
	return nil
}

func (f *fakeRuleSource) UpsertGroupRule(_ context.Context, rule *models.GroupRule) error {
	f.groups[rule.Gid] = *rule
	return nil
}

func (f *fakeRuleSource) DeleteForumRule(_ context.Context, fid int64) error {
	delete(f.forums, fid)
	return nil
}

func (f *fakeRuleSource) DeleteGroupRule(_ context.Context, gid int64) error {
	delete(f.groups, gid)
	return nil
}

func (f *fakeRuleSource) TouchGroupAllowance(_ context.Context, gid int64, paidAt time.Time) error {
	rule := f.groups[gid]
	rule.LastPaid = paidAt
	f.groups[gid] = rule
	return nil
}

type fakeCache struct {
	blobs map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{blobs: make(map[string][]byte)} }

func (f *fakeCache) Read(_ context.Context, key string) ([]byte, error) {
	blob, ok := f.blobs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return blob, nil
}

func (f *fakeCache) Update(_ context.Context, key string, value []byte) error {
	f.blobs[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.blobs, key)
	return nil
}

func seededSource() *fakeRuleSource {
	return &fakeRuleSource{
		forums: map[int64]models.ForumRule{
			5: {Rid: 1, Fid: 5, Name: "Marketplace", Rate: decimal.RequireFromString("1.5")},
		},
		groups: map[int64]models.GroupRule{
			4: {Rid: 1, Gid: 4, Name: "Premium", Rate: decimal.RequireFromString("2")},
		},
	}
}

func TestRebuild_ServesLookupsWithoutStorageReads(t *testing.T) {
	ctx := context.Background()
	source := seededSource()
	s := New(source, newFakeCache())

	require.NoError(t, s.Rebuild(ctx))
	readsAfterRebuild := source.directReads

	rule, err := s.ForumRule(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.Rate.Equal(decimal.RequireFromString("1.5")))

	group, err := s.GroupRule(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Equal(t, "Premium", group.Name)

	assert.Equal(t, readsAfterRebuild, source.directReads,
		"snapshot lookups must not hit storage")
}

func TestRebuild_IsPureFunctionOfTables(t *testing.T) {
	ctx := context.Background()
	source := seededSource()
	s := New(source, newFakeCache())

	require.NoError(t, s.Rebuild(ctx))
	first := s.snap.Load()
	require.NoError(t, s.Rebuild(ctx))
	second := s.snap.Load()

	assert.Equal(t, first.Forums, second.Forums)
	assert.Equal(t, first.Groups, second.Groups)
}

func TestLookup_FallsBackWhenNoSnapshot(t *testing.T) {
	ctx := context.Background()
	source := seededSource()
	s := New(source, newFakeCache())

	rule, err := s.ForumRule(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Positive(t, source.directReads, "no snapshot means direct storage reads")
}

func TestLookup_AbsentRuleIsNilNil(t *testing.T) {
	ctx := context.Background()
	s := New(seededSource(), newFakeCache())
	require.NoError(t, s.Rebuild(ctx))

	rule, err := s.ForumRule(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, rule)

	group, err := s.GroupRule(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, group)
}

func TestEmptySnapshotIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	source := &fakeRuleSource{
		forums: map[int64]models.ForumRule{},
		groups: map[int64]models.GroupRule{},
	}
	s := New(source, newFakeCache())
	require.NoError(t, s.Rebuild(ctx))

	// Seed storage behind the snapshot's back; lookups must not see it.
	source.forums[7] = models.ForumRule{Fid: 7, Rate: decimal.NewFromInt(3)}
	readsAfterRebuild := source.directReads

	rule, err := s.ForumRule(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, rule)
	assert.Equal(t, readsAfterRebuild, source.directReads)
}

func TestLoad_RestoresPersistedSnapshot(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()

	first := New(seededSource(), cache)
	require.NoError(t, first.Rebuild(ctx))

	// A fresh store backed by an empty source still sees the rules through
	// the persisted blob.
	second := New(&fakeRuleSource{
		forums: map[int64]models.ForumRule{},
		groups: map[int64]models.GroupRule{},
	}, cache)
	require.NoError(t, second.Load(ctx))

	rule, err := second.ForumRule(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "Marketplace", rule.Name)
}

func TestLoad_MissingAndCorruptBlobsDegradeToFallback(t *testing.T) {
	ctx := context.Background()

	s := New(seededSource(), newFakeCache())
	require.NoError(t, s.Load(ctx), "missing blob is not an error")
	assert.Nil(t, s.snap.Load())

	cache := newFakeCache()
	cache.blobs[CacheKey] = []byte("{not json")
	s = New(seededSource(), cache)
	require.NoError(t, s.Load(ctx), "corrupt blob is discarded, not fatal")
	assert.Nil(t, s.snap.Load())

	// Fallback still resolves the rule.
	rule, err := s.ForumRule(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, rule)
}

func TestRates_DefaultToOneWithoutRule(t *testing.T) {
	ctx := context.Background()
	s := New(seededSource(), newFakeCache())
	require.NoError(t, s.Rebuild(ctx))

	one := decimal.NewFromInt(1)
	assert.True(t, s.ForumRate(ctx, 999).Equal(one))
	assert.True(t, s.GroupRate(ctx, 999).Equal(one))

	assert.True(t, s.ForumRate(ctx, 5).Equal(decimal.RequireFromString("1.5")))
	assert.True(t, s.GroupRate(ctx, 4).Equal(decimal.NewFromInt(2)))
}

func TestAllGroupRules_SnapshotAndFallbackAgree(t *testing.T) {
	ctx := context.Background()
	source := seededSource()
	s := New(source, newFakeCache())

	fromStorage, err := s.AllGroupRules(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Rebuild(ctx))
	fromSnapshot, err := s.AllGroupRules(ctx)
	require.NoError(t, err)

	assert.Equal(t, fromStorage, fromSnapshot)
}
