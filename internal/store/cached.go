package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nikhilbhutani/resumeprocessor/internal/cache"
	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

// DocumentCache is the subset of cache.Cache used for read-through caching.
type DocumentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Cached serves Read from a cache and invalidates on every write. Cache
// failures are logged and fall through to the wrapped store. Concurrent
// misses for the same key share one backend read. A read that overlaps a
// write never leaves its result in the cache.
type Cached struct {
	inner  Store
	cache  DocumentCache
	ttl    time.Duration
	group  singleflight.Group
	writes atomic.Uint64
}

func NewCached(inner Store, c DocumentCache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

func cacheKey(c Collection, id string) string {
	return fmt.Sprintf("%s:%s", c, id)
}

func (s *Cached) Create(ctx context.Context, c Collection, doc *models.ResumeDocument) error {
	if err := s.inner.Create(ctx, c, doc); err != nil {
		return err
	}
	s.invalidate(ctx, c, doc.ID)
	return nil
}

func (s *Cached) Read(ctx context.Context, c Collection, id string) (*models.ResumeDocument, error) {
	key := cacheKey(c, id)

	var doc models.ResumeDocument
	err := s.cache.Get(ctx, key, &doc)
	if err == nil {
		return &doc, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("document cache read failed", "key", key, "error", err)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.load(ctx, c, id, key)
	})
	if err != nil {
		return nil, err
	}
	data, _ := v.([]byte)
	if data == nil {
		return nil, nil
	}
	// Each caller decodes its own copy; a shared flight must not alias.
	var out models.ResumeDocument
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &out, nil
}

// load reads id from the wrapped store and fills the cache unless a write
// landed while the read was in flight. It returns the encoded document, or
// nil when absent.
func (s *Cached) load(ctx context.Context, c Collection, id, key string) ([]byte, error) {
	seen := s.writes.Load()
	found, err := s.inner.Read(ctx, c, id)
	if err != nil || found == nil {
		return nil, err
	}
	data, err := json.Marshal(found)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}

	if s.writes.Load() != seen {
		return data, nil
	}
	if err := s.cache.Set(ctx, key, found, s.ttl); err != nil {
		slog.Warn("document cache write failed", "key", key, "error", err)
		return data, nil
	}
	// A write that slipped in during Set may have invalidated before it.
	if s.writes.Load() != seen {
		s.drop(ctx, key)
	}
	return data, nil
}

func (s *Cached) Upsert(ctx context.Context, c Collection, doc *models.ResumeDocument) error {
	if err := s.inner.Upsert(ctx, c, doc); err != nil {
		return err
	}
	s.invalidate(ctx, c, doc.ID)
	return nil
}

func (s *Cached) Query(ctx context.Context, c Collection, opts QueryOptions) ([]*models.ResumeDocument, error) {
	return s.inner.Query(ctx, c, opts)
}

func (s *Cached) Delete(ctx context.Context, c Collection, id string) error {
	if err := s.inner.Delete(ctx, c, id); err != nil {
		return err
	}
	s.invalidate(ctx, c, id)
	return nil
}

func (s *Cached) invalidate(ctx context.Context, c Collection, id string) {
	key := cacheKey(c, id)
	s.writes.Add(1)
	s.group.Forget(key)
	s.drop(ctx, key)
}

func (s *Cached) drop(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.Warn("document cache invalidation failed", "key", key, "error", err)
	}
}
