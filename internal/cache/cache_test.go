package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/commentpulse/internal/model"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("dQw4w9WgXcQ")
	b := CacheKey("dQw4w9WgXcQ")
	c := CacheKey("other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, KeyPrefix))
	assert.Len(t, a, len(KeyPrefix)+64)
}

// exerciseCache runs the behavior every backend shares.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()

	_, found := c.Get("missing")
	assert.False(t, found)

	require.NoError(t, c.Set(CacheKey("a"), []byte("alpha"), time.Hour))
	require.NoError(t, c.Set(CacheKey("b"), []byte("bravo"), 0))

	val, found := c.Get(CacheKey("a"))
	require.True(t, found)
	assert.Equal(t, []byte("alpha"), val)

	require.NoError(t, c.Set(CacheKey("a"), []byte("alpha-2"), time.Hour))
	val, _ = c.Get(CacheKey("a"))
	assert.Equal(t, []byte("alpha-2"), val)

	require.NoError(t, c.Delete(CacheKey("a")))
	_, found = c.Get(CacheKey("a"))
	assert.False(t, found)
	assert.NoError(t, c.Delete(CacheKey("a")))

	require.NoError(t, c.Clear())
	_, found = c.Get(CacheKey("b"))
	assert.False(t, found)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache(time.Hour, time.Minute))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	_, found := c.Get("k")
	assert.False(t, found)
}

func TestDiskCache(t *testing.T) {
	exerciseCache(t, NewDiskCache(t.TempDir(), time.Hour))
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, c.Set("k", []byte("v"), 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	_, found := c.Get("k")
	assert.False(t, found)

	_, err := os.Stat(c.path("k"))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed")
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, os.WriteFile(c.path("k"), []byte("{not json"), 0644))

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestDiskCache_ClearKeepsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, c.Set(CacheKey("a"), []byte("x"), 0))

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0644))

	require.NoError(t, c.Clear())
	_, err := os.Stat(other)
	assert.NoError(t, err)
}

func TestDiskCache_ClearMissingDir(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "never-created"), time.Hour)
	assert.NoError(t, c.Clear())
}

func TestLayeredCache(t *testing.T) {
	exerciseCache(t, NewLayeredCache(NewMemoryCache(time.Hour, time.Minute), NewDiskCache(t.TempDir(), time.Hour)))
}

func TestLayeredCache_PromotesFromBack(t *testing.T) {
	front := NewMemoryCache(time.Hour, time.Minute)
	back := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayeredCache(front, back)

	require.NoError(t, back.Set("k", []byte("v"), 0))

	val, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, []byte("v"), val)

	val, found = front.Get("k")
	require.True(t, found, "hit should be promoted to the front cache")
	assert.Equal(t, []byte("v"), val)
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client, time.Hour)
}

func TestRedisCache(t *testing.T) {
	_, c := newMiniRedis(t)
	exerciseCache(t, c)
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := newMiniRedis(t)

	require.NoError(t, c.Set("k", []byte("v"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, c.Set("d", []byte("v"), 0))
	assert.Equal(t, time.Hour, mr.TTL("d"))

	mr.FastForward(2 * time.Minute)
	_, found := c.Get("k")
	assert.False(t, found)
}

func TestRedisCache_ClearOnlyOwnKeys(t *testing.T) {
	mr, c := newMiniRedis(t)

	require.NoError(t, c.Set(CacheKey("a"), []byte("x"), 0))
	require.NoError(t, c.Set(CacheKey("b"), []byte("y"), 0))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, c.Clear())

	assert.False(t, mr.Exists(CacheKey("a")))
	assert.False(t, mr.Exists(CacheKey("b")))
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisCache_Unreachable(t *testing.T) {
	mr, c := newMiniRedis(t)
	mr.Close()

	_, found := c.Get("k")
	assert.False(t, found)
	assert.Error(t, c.Set("k", []byte("v"), 0))
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	c, err := DialRedis(context.Background(), addr, "", 0, time.Hour)
	require.NoError(t, err)
	assert.NoError(t, c.Close())

	mr.Close()
	_, err = DialRedis(context.Background(), addr, "", 0, time.Hour)
	assert.Error(t, err)
}

func sampleAnalysis(videoID string) *model.Analysis {
	return &model.Analysis{
		VideoID: videoID,
		Result: model.AnalysisResult{
			Comments: []model.AnalyzedComment{{
				RawComment: model.RawComment{ID: "c1", Text: "bagus", Author: "ana", LikeCount: 3},
				Sentiment:  0.3,
				Toxicity: model.ToxicityScore{
					Overall:    0,
					Categories: model.DefaultCategories(),
					Confidence: 0.5,
				},
				Categories: []string{model.TagGeneral},
			}},
			OverallSentiment: model.OverallSentiment{Score: 0.3, Distribution: model.SentimentDistribution{Positive: 1}},
			ToxicitySummary: model.ToxicitySummary{
				Distribution:   model.ToxicityDistribution{Low: 1},
				CategoryCounts: map[string]int{model.CategoryInsult: 0},
			},
			Topics:   []model.TopicEntry{{Name: "general discussion", Count: 1, Sentiment: 0.3}},
			Keywords: []model.KeywordEntry{{Word: "bagus", Count: 1, Sentiment: 0.3}},
		},
		Metadata: model.Metadata{
			AnalyzerPath: model.PathLocalSelected,
			Analyzer:     "keyword",
			CommentCount: 1,
			AnalyzedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func TestResultStore(t *testing.T) {
	backends := map[string]func(t *testing.T) Cache{
		"memory": func(t *testing.T) Cache { return NewMemoryCache(time.Hour, time.Minute) },
		"disk":   func(t *testing.T) Cache { return NewDiskCache(t.TempDir(), time.Hour) },
		"redis": func(t *testing.T) Cache {
			_, c := newMiniRedis(t)
			return c
		},
	}

	for name, newCache := range backends {
		t.Run(name, func(t *testing.T) {
			store := NewResultStore(newCache(t), time.Hour)

			_, found := store.Load("vid1")
			assert.False(t, found)

			want := sampleAnalysis("vid1")
			require.NoError(t, store.Save(want))

			got, found := store.Load("vid1")
			require.True(t, found)
			assert.Equal(t, want, got)

			require.NoError(t, store.Forget("vid1"))
			_, found = store.Load("vid1")
			assert.False(t, found)
		})
	}
}

func TestResultStore_SkipsMissingVideoID(t *testing.T) {
	mem := NewMemoryCache(time.Hour, time.Minute)
	store := NewResultStore(mem, time.Hour)

	require.NoError(t, store.Save(sampleAnalysis("")))
	assert.Zero(t, mem.Len())

	_, found := store.Load("")
	assert.False(t, found)
}

func TestResultStore_DropsCorruptEntry(t *testing.T) {
	mem := NewMemoryCache(time.Hour, time.Minute)
	store := NewResultStore(mem, time.Hour)
	require.NoError(t, mem.Set(CacheKey("vid"), []byte("garbage"), 0))

	_, found := store.Load("vid")
	assert.False(t, found)
	_, found = mem.Get(CacheKey("vid"))
	assert.False(t, found)
}

func TestResultStore_Nil(t *testing.T) {
	var store *ResultStore

	_, found := store.Load("vid")
	assert.False(t, found)
	assert.NoError(t, store.Save(sampleAnalysis("vid")))
	assert.NoError(t, store.Close())
}

func TestFromConfig(t *testing.T) {
	store, err := FromConfig(context.Background(), model.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)

	for _, backend := range []string{"", "memory", "disk", "layered"} {
		store, err := FromConfig(context.Background(), model.CacheConfig{
			Enabled: true, Backend: backend, TTL: time.Hour, Dir: t.TempDir(),
		})
		require.NoError(t, err, backend)
		assert.NotNil(t, store, backend)
	}

	mr := miniredis.RunT(t)
	store, err = FromConfig(context.Background(), model.CacheConfig{
		Enabled: true, Backend: "redis", TTL: time.Hour, RedisAddr: mr.Addr(),
	})
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleAnalysis("vid")))
	assert.True(t, mr.Exists(CacheKey("vid")))
	assert.NoError(t, store.Close())

	_, err = FromConfig(context.Background(), model.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.Error(t, err)
}
