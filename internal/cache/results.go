package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/commentpulse/internal/model"
)

// ResultStore keeps finished analyses keyed by video ID. Last write wins.
type ResultStore struct {
	cache Cache
	ttl   time.Duration
}

// NewResultStore stores analyses in c for ttl.
func NewResultStore(c Cache, ttl time.Duration) *ResultStore {
	return &ResultStore{cache: c, ttl: ttl}
}

// Load returns the stored analysis for videoID. Corrupt entries are dropped.
func (s *ResultStore) Load(videoID string) (*model.Analysis, bool) {
	if s == nil || videoID == "" {
		return nil, false
	}

	key := CacheKey(videoID)
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}

	var analysis model.Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		slog.Warn("[ResultStore] Dropping unreadable entry", slog.String("video_id", videoID), slog.Any("error", err))
		_ = s.cache.Delete(key)
		return nil, false
	}
	return &analysis, true
}

// Save stores an analysis. Analyses without a video ID are not stored.
func (s *ResultStore) Save(analysis *model.Analysis) error {
	if s == nil || analysis == nil || analysis.VideoID == "" {
		return nil
	}

	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := s.cache.Set(CacheKey(analysis.VideoID), data, s.ttl); err != nil {
		return fmt.Errorf("store analysis %s: %w", analysis.VideoID, err)
	}
	return nil
}

// Forget removes the stored analysis for videoID.
func (s *ResultStore) Forget(videoID string) error {
	if s == nil || videoID == "" {
		return nil
	}
	return s.cache.Delete(CacheKey(videoID))
}

// Clear removes every stored analysis from the backend.
func (s *ResultStore) Clear() error {
	if s == nil {
		return nil
	}
	return s.cache.Clear()
}

// Close releases backends that hold connections.
func (s *ResultStore) Close() error {
	if s == nil {
		return nil
	}
	if closer, ok := s.cache.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// FromConfig builds the configured backend. It returns nil when caching is
// disabled.
func FromConfig(ctx context.Context, cfg model.CacheConfig) (*ResultStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var c Cache
	switch cfg.Backend {
	case "", "memory":
		c = NewMemoryCache(cfg.TTL, 10*time.Minute)
	case "disk":
		c = NewDiskCache(cfg.Dir, cfg.TTL)
	case "layered":
		c = NewLayeredCache(NewMemoryCache(cfg.TTL, 10*time.Minute), NewDiskCache(cfg.Dir, cfg.TTL))
	case "redis":
		r, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		c = r
	default:
		return nil, fmt.Errorf("unknown cache backend %q (supported: memory, disk, layered, redis)", cfg.Backend)
	}

	return NewResultStore(c, cfg.TTL), nil
}
