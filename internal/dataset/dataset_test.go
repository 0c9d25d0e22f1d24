package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/pkg/config"
	"github.com/wonny/walkforward/pkg/redis"
)

func obs(id string, season int, step int, target, yards float64, team string) Observation {
	return Observation{
		ID:          id,
		Season:      season,
		Step:        contracts.TimeStep(step),
		Target:      target,
		Numeric:     map[string]float64{"yards": yards},
		Categorical: map[string]string{"team": team},
	}
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]Observation{
		obs("a", 2015, 1, 10, 100, "NE"),
		obs("b", 2015, 2, 12, 120, "KC"),
		obs("a", 2016, 1, 11, 110, "NE"),
		obs("b", 2016, 1, 9, 90, "KC"),
		obs("a", 2016, 2, 13, 130, "NE"),
		obs("b", 2016, 3, 8, 80, "KC"),
	})
	require.NoError(t, err)
	return table
}

func TestTable_Columns(t *testing.T) {
	table := sampleTable(t)

	assert.Equal(t, []string{"yards", "team"}, table.Columns(contracts.EncodingNative))
	assert.Equal(t, []string{"yards", "team=KC", "team=NE"}, table.Columns(contracts.EncodingOneHot))
}

func TestTable_SplitIsStrictlyBefore(t *testing.T) {
	table := sampleTable(t)

	b, err := table.Split(2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	// 2015 전체 + 2016 step 1
	assert.Equal(t, []float64{10, 12, 11, 9}, b.TrainY)
	assert.Equal(t, []float64{13}, b.TestY)
	assert.Equal(t, []string{"a"}, b.TestIDs)
	// NE 는 정렬된 범주 [KC, NE] 에서 코드 1
	assert.Equal(t, []float64{130, 1}, b.TestX.Rows[0])
}

func TestTable_SplitOneHot(t *testing.T) {
	table := sampleTable(t)

	b, err := table.Split(3, 2016, contracts.EncodingOneHot)
	require.NoError(t, err)
	assert.Len(t, b.TrainY, 5)
	assert.Equal(t, []float64{80, 1, 0}, b.TestX.Rows[0])
	assert.Equal(t, b.TrainX.Columns, b.TestX.Columns)
}

func TestTable_SplitFaults(t *testing.T) {
	table := sampleTable(t)

	_, err := table.Split(5, 2016, contracts.EncodingNative)
	assert.ErrorIs(t, err, contracts.ErrDataFault)

	_, err = table.Split(1, 2015, contracts.EncodingNative)
	assert.ErrorIs(t, err, contracts.ErrDataFault, "nothing precedes the first row")
}

func TestNewTable_SchemaMismatch(t *testing.T) {
	bad := obs("c", 2016, 1, 1, 1, "NE")
	bad.Numeric = map[string]float64{"carries": 3}

	_, err := NewTable([]Observation{obs("a", 2015, 1, 1, 1, "NE"), bad})
	assert.Error(t, err)

	_, err = NewTable(nil)
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	content := "name,season,week,team,yards,target\n" +
		"a,2015,1,NE,100,10\n" +
		"a,2016,1,NE,110,11\n" +
		"b,2016,1,KC,90,9\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	schema := DefaultCSVSchema()
	schema.Categorical = []string{"team"}

	table, err := LoadCSV(path, schema)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"yards", "team"}, table.Columns(contracts.EncodingNative))
}

func TestLoadCSV_Errors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.csv")
	_, err := LoadCSV(missing, DefaultCSVSchema())
	assert.Error(t, err)

	noTarget := filepath.Join(dir, "no_target.csv")
	require.NoError(t, os.WriteFile(noTarget, []byte("name,season,week\na,2016,1\n"), 0o644))
	_, err = LoadCSV(noTarget, DefaultCSVSchema())
	assert.ErrorContains(t, err, "target")

	badNumber := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badNumber, []byte("name,season,week,yards,target\na,2016,1,x,1\n"), 0o644))
	_, err = LoadCSV(badNumber, DefaultCSVSchema())
	assert.ErrorContains(t, err, "yards")
}

func TestSplitFeatures(t *testing.T) {
	var o Observation
	err := splitFeatures(&o, map[string]any{
		"yards": 120.0,
		"home":  true,
		"team":  "NE",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"yards": 120, "home": 1}, o.Numeric)
	assert.Equal(t, map[string]string{"team": "NE"}, o.Categorical)

	assert.Error(t, splitFeatures(&o, map[string]any{"x": nil}))
	assert.Error(t, splitFeatures(&o, map[string]any{"x": []any{1}}))
}

func TestTableProvider_LazyLoad(t *testing.T) {
	calls := 0
	p := NewTableProvider(func(context.Context) (*Table, error) {
		calls++
		return sampleTable(t), nil
	})

	for _, step := range []contracts.TimeStep{1, 2} {
		_, err := p.GetData(context.Background(), step, 2016, contracts.EncodingNative)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestTableProvider_LoadErrorIsDataFault(t *testing.T) {
	loadErr := errors.New("connection refused")
	p := NewTableProvider(func(context.Context) (*Table, error) { return nil, loadErr })

	_, err := p.GetData(context.Background(), 2, 2016, contracts.EncodingNative)
	assert.ErrorIs(t, err, contracts.ErrDataFault)
	assert.ErrorIs(t, err, loadErr)

	_, err = NewTableProvider(nil).GetData(context.Background(), 2, 2016, contracts.EncodingNative)
	assert.ErrorIs(t, err, contracts.ErrDataFault)
}

func TestCachedProvider_DisabledPassesThrough(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)

	inner := NewStaticProvider(sampleTable(t))
	p := NewCachedProvider("test", inner, redis.NewCache(client, "wf"), 0, zerolog.Nop())

	b, err := p.GetData(context.Background(), 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	assert.Equal(t, []float64{13}, b.TestY)

	_, err = p.GetData(context.Background(), 9, 2016, contracts.EncodingNative)
	assert.ErrorIs(t, err, contracts.ErrDataFault)
}

// countingProvider 내부 공급자 호출 횟수 기록
type countingProvider struct {
	*TableProvider
	calls int
}

func (p *countingProvider) GetData(ctx context.Context, step contracts.TimeStep, heldOut int, enc contracts.Encoding) (*contracts.SplitBundle, error) {
	p.calls++
	return p.TableProvider.GetData(ctx, step, heldOut, enc)
}

func newTestCache(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{Redis: config.RedisConfig{
		Host:    mr.Host(),
		Port:    mr.Port(),
		Enabled: true,
	}}
	client, err := redis.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewCache(client, "wf"), mr
}

func tableWithTruth(t *testing.T, truth float64) *Table {
	t.Helper()
	table, err := NewTable([]Observation{
		obs("a", 2015, 1, 10, 100, "NE"),
		obs("a", 2016, 1, 11, 110, "NE"),
		obs("a", 2016, 2, truth, 130, "NE"),
	})
	require.NoError(t, err)
	return table
}

func TestTable_Fingerprint(t *testing.T) {
	assert.Equal(t, sampleTable(t).Fingerprint(), sampleTable(t).Fingerprint())
	assert.NotEqual(t, tableWithTruth(t, 10).Fingerprint(), tableWithTruth(t, 99).Fingerprint())

	// 같은 값이라도 범주형/숫자형 역할이 다르면 다른 데이터
	numeric, err := NewTable([]Observation{{ID: "a", Season: 2016, Step: 1, Numeric: map[string]float64{"team": 1}}})
	require.NoError(t, err)
	categorical, err := NewTable([]Observation{{ID: "a", Season: 2016, Step: 1, Categorical: map[string]string{"team": "1"}}})
	require.NoError(t, err)
	assert.NotEqual(t, numeric.Fingerprint(), categorical.Fingerprint())
}

func TestCachedProvider_HitReturnsSameBundle(t *testing.T) {
	cache, mr := newTestCache(t)
	inner := &countingProvider{TableProvider: NewStaticProvider(sampleTable(t))}
	p := NewCachedProvider("csv", inner, cache, 0, zerolog.Nop())
	ctx := context.Background()

	first, err := p.GetData(ctx, 2, 2016, contracts.EncodingOneHot)
	require.NoError(t, err)
	second, err := p.GetData(ctx, 2, 2016, contracts.EncodingOneHot)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
	assert.Len(t, mr.Keys(), 1)
}

func TestCachedProvider_DifferentDataNeverShareEntries(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	oldFile := NewCachedProvider("csv", NewStaticProvider(tableWithTruth(t, 10)), cache, 0, zerolog.Nop())
	newFile := NewCachedProvider("csv", NewStaticProvider(tableWithTruth(t, 99)), cache, 0, zerolog.Nop())

	b, err := oldFile.GetData(ctx, 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, b.TestY)

	b, err = newFile.GetData(ctx, 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	assert.Equal(t, []float64{99}, b.TestY)
}

func TestCachedProvider_ResetPicksUpRefreshedData(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	truth := 10.0
	load := func(context.Context) (*Table, error) {
		return NewTable([]Observation{
			obs("a", 2015, 1, 10, 100, "NE"),
			obs("a", 2016, 2, truth, 130, "NE"),
		})
	}
	p := NewCachedProvider("postgres", NewTableProvider(load), cache, 0, zerolog.Nop())

	b, err := p.GetData(ctx, 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, b.TestY)

	truth = 42
	p.Reset()

	b, err = p.GetData(ctx, 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	assert.Equal(t, []float64{42}, b.TestY)
}

func TestCachedProvider_CorruptEntryFallsBack(t *testing.T) {
	cache, mr := newTestCache(t)
	inner := &countingProvider{TableProvider: NewStaticProvider(sampleTable(t))}
	p := NewCachedProvider("csv", inner, cache, 0, zerolog.Nop())
	ctx := context.Background()

	_, err := p.GetData(ctx, 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	for _, k := range mr.Keys() {
		require.NoError(t, mr.Set(k, "{not json"))
	}

	b, err := p.GetData(ctx, 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	assert.Equal(t, []float64{13}, b.TestY)
	assert.Equal(t, 2, inner.calls)

	// 손상된 항목은 다시 기록된다
	_, err = p.GetData(ctx, 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_RedisDownFallsBack(t *testing.T) {
	cache, mr := newTestCache(t)
	inner := &countingProvider{TableProvider: NewStaticProvider(sampleTable(t))}
	p := NewCachedProvider("csv", inner, cache, 0, zerolog.Nop())

	mr.Close()

	b, err := p.GetData(context.Background(), 2, 2016, contracts.EncodingNative)
	require.NoError(t, err)
	assert.Equal(t, []float64{13}, b.TestY)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProvider_LoadFailureIsDataFault(t *testing.T) {
	cache, _ := newTestCache(t)
	p := NewCachedProvider("csv", NewTableProvider(nil), cache, 0, zerolog.Nop())

	_, err := p.GetData(context.Background(), 2, 2016, contracts.EncodingNative)
	assert.ErrorIs(t, err, contracts.ErrDataFault)
}
