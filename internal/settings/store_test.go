package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

type fakeSettingSource struct {
	values      map[string]models.Setting
	directReads int
}

func (f *fakeSettingSource) Setting(_ context.Context, name string) (*models.Setting, error) {
	f.directReads++
	if setting, ok := f.values[name]; ok {
		return &setting, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeSettingSource) AllSettings(context.Context) ([]models.Setting, error) {
	f.directReads++
	out := make([]models.Setting, 0, len(f.values))
	for _, setting := range f.values {
		out = append(out, setting)
	}
	return out, nil
}

func (f *fakeSettingSource) UpsertSetting(_ context.Context, setting *models.Setting) error {
	f.values[setting.Name] = *setting
	return nil
}

func (f *fakeSettingSource) DeleteSetting(_ context.Context, name string) error {
	delete(f.values, name)
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

func seededSource() *fakeSettingSource {
	src := &fakeSettingSource{values: make(map[string]models.Setting)}
	for name, value := range map[string]string{
		MainEnabled:           "1",
		DecimalPlaces:         "3",
		IncomeNewPost:         "10",
		IncomePerChar:         "0.01",
		DonationsExemptGroups: "4, 7",
		CurrencySuf:           "pts",
	} {
		src.values[name] = models.Setting{Plugin: "main", Name: name, Value: value, Type: "text"}
	}
	return src
}

func TestGet_CacheFirstThenFallback(t *testing.T) {
	ctx := context.Background()
	source := seededSource()
	s := New(source, newFakeCache())

	// No snapshot yet: fallback reads storage.
	value, ok := s.Get(ctx, IncomeNewPost)
	require.True(t, ok)
	assert.Equal(t, "10", value)
	assert.Equal(t, 1, source.directReads)

	require.NoError(t, s.Rebuild(ctx))
	readsAfterRebuild := source.directReads

	value, ok = s.Get(ctx, IncomeNewPost)
	require.True(t, ok)
	assert.Equal(t, "10", value)
	assert.Equal(t, readsAfterRebuild, source.directReads, "snapshot reads must not hit storage")

	_, ok = s.Get(ctx, "no_such_setting")
	assert.False(t, ok)
	assert.Equal(t, readsAfterRebuild, source.directReads, "absence in a snapshot is authoritative")
}

func TestTypedAccessors(t *testing.T) {
	ctx := context.Background()
	s := New(seededSource(), newFakeCache())
	require.NoError(t, s.Rebuild(ctx))

	assert.True(t, s.Bool(ctx, MainEnabled, false))
	assert.True(t, s.Bool(ctx, "missing", true), "default on absence")
	assert.Equal(t, 3, s.Int(ctx, DecimalPlaces, 2))
	assert.Equal(t, int32(3), s.Precision(ctx))
	assert.True(t, s.Decimal(ctx, IncomePerChar, decimal.Zero).Equal(decimal.RequireFromString("0.01")))
	assert.True(t, s.Decimal(ctx, "missing", decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "pts", s.Text(ctx, CurrencySuf, ""))
	assert.Equal(t, "fallback", s.Text(ctx, "missing", "fallback"))
}

func TestTypedAccessors_UnparseableFallsToDefault(t *testing.T) {
	ctx := context.Background()
	source := seededSource()
	source.values[IncomeNewPost] = models.Setting{Name: IncomeNewPost, Value: "not-a-number"}
	s := New(source, newFakeCache())
	require.NoError(t, s.Rebuild(ctx))

	assert.Equal(t, 7, s.Int(ctx, IncomeNewPost, 7))
	assert.True(t, s.Decimal(ctx, IncomeNewPost, decimal.NewFromInt(1)).Equal(decimal.NewFromInt(1)))
}

func TestPrecision_ClampedToStorageCap(t *testing.T) {
	ctx := context.Background()

	cases := map[string]int32{
		"2":  2,
		"0":  0,
		"9":  6,
		"-1": 0,
	}
	for raw, want := range cases {
		source := seededSource()
		source.values[DecimalPlaces] = models.Setting{Name: DecimalPlaces, Value: raw}
		s := New(source, newFakeCache())
		require.NoError(t, s.Rebuild(ctx))

		assert.Equal(t, want, s.Precision(ctx), "main_decimal=%s", raw)
	}
}

func TestGroupList(t *testing.T) {
	ctx := context.Background()
	s := New(seededSource(), newFakeCache())
	require.NoError(t, s.Rebuild(ctx))

	groups := s.GroupList(ctx, DonationsExemptGroups)
	assert.Equal(t, map[int64]bool{4: true, 7: true}, groups)

	assert.Nil(t, s.GroupList(ctx, "missing"))
}

func TestRebuild_NotifiesLiveView(t *testing.T) {
	ctx := context.Background()
	source := seededSource()
	s := New(source, newFakeCache())

	var seen []map[string]string
	s.OnRebuild(func(flat map[string]string) {
		seen = append(seen, flat)
	})

	require.NoError(t, s.Rebuild(ctx))
	require.Len(t, seen, 1)
	assert.Equal(t, "10", seen[0][IncomeNewPost])

	// A changed value reaches the live view on the next rebuild.
	require.NoError(t, source.UpsertSetting(ctx, &models.Setting{Name: IncomeNewPost, Value: "25"}))
	require.NoError(t, s.Rebuild(ctx))
	require.Len(t, seen, 2)
	assert.Equal(t, "25", seen[1][IncomeNewPost])
}

func TestLoad_RestoresPersistedSnapshot(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()

	first := New(seededSource(), cache)
	require.NoError(t, first.Rebuild(ctx))

	second := New(&fakeSettingSource{values: map[string]models.Setting{}}, cache)
	require.NoError(t, second.Load(ctx))

	value, ok := second.Get(ctx, IncomeNewPost)
	require.True(t, ok)
	assert.Equal(t, "10", value)
}
