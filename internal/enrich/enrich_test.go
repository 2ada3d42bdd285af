package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/config"
	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/platform/jiten"
	"github.com/phrazzld/scry-kanji/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metadata = `{
  "日": {"frequency": 1, "grade": 1, "jlpt": 5, "strokes": 4},
  "月": {"frequency": 23, "kunReadings": ["つき"], "onReadings": ["ゲツ", "ガツ"]},
  "火": {"frequency": 574, "strokes": 4},
  "鬱": {"strokes": 29}
}`

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) FetchReadings(_ context.Context, id string) (jiten.Readings, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	switch id {
	case "日":
		return jiten.Readings{Kun: []string{"ひ", "か"}, On: []string{"ニチ", "ジツ"}}, nil
	case "火":
		return jiten.Readings{Kun: []string{"ひ"}, On: []string{"カ"}}, nil
	default:
		return jiten.Readings{}, domain.ErrDetailUnavailable
	}
}

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(metadata))
	require.NoError(t, err)
	return cat
}

func newEnricher(t *testing.T, f ReadingsFetcher) *Enricher {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	return New(loadCatalog(t), f, config.EnrichConfig{RatePerSecond: 1000, Workers: 2}, log)
}

func TestRun(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{}
	e := newEnricher(t, f)

	var lastProgress Stats
	var mu sync.Mutex
	res, err := e.Run(context.Background(), func(s Stats) {
		mu.Lock()
		lastProgress = s
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, Stats{Total: 4, Processed: 4, Success: 2, Failed: 1, AlreadyHave: 1}, res.Stats)
	assert.ElementsMatch(t, []string{"日", "火", "鬱"}, f.calls, "items with readings are not fetched")
	assert.Equal(t, []string{"ニチ", "ジツ"}, res.Fields["日"][FieldOnReadings])
	assert.NotContains(t, res.Fields, "鬱")

	mu.Lock()
	assert.Equal(t, 4, lastProgress.Processed)
	mu.Unlock()
}

func TestWriteMergesReadings(t *testing.T) {
	t.Parallel()
	e := newEnricher(t, &fakeFetcher{})

	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, res))

	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, []any{"ひ"}, out["火"][FieldKunReadings])
	assert.Equal(t, float64(574), out["火"]["frequency"])
	assert.Equal(t, []any{"つき"}, out["月"][FieldKunReadings], "existing readings are preserved")
	assert.NotContains(t, out["鬱"], FieldKunReadings)

	// the enriched file loads back with the same order
	cat, err := catalog.Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"日", "月", "火", "鬱"}, cat.IDs())
	assert.True(t, cat.HasField("日", FieldOnReadings))
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	e := newEnricher(t, &fakeFetcher{})
	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "kanji_metadata_with_readings.json")
	require.NoError(t, e.WriteFile(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"onReadings"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is removed")
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEnricher(t, &fakeFetcher{})
	res, err := e.Run(ctx, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Stats.Success)
	assert.Equal(t, 1, res.Stats.AlreadyHave)
}
