package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store is an optional write-through persistence layer behind the in-memory
// cache. The in-memory LRU stays authoritative; Store failures are logged
// and never fail a cache operation.
type Store interface {
	Load(ctx context.Context) ([]PersistedEntry, error)
	Put(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// PersistedEntry is one row of the persistent cache store.
type PersistedEntry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// ServiceConfig configures the result cache service.
type ServiceConfig struct {
	Capacity        int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// DefaultServiceConfig returns the default result cache configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Capacity:        DefaultCapacity,
		TTL:             DefaultTTL,
		CleanupInterval: time.Hour,
	}
}

// Service is the result cache shared by all tasks: an in-memory LRU with
// TTL plus optional write-through persistence.
type Service struct {
	lru   *LRUCache
	store Store
	ttl   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a cache service. store may be nil for a purely
// in-memory cache.
func NewService(cfg ServiceConfig, store Store) *Service {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		lru:    NewLRUCache(cfg.Capacity, cfg.TTL),
		store:  store,
		ttl:    cfg.TTL,
		ctx:    ctx,
		cancel: cancel,
	}

	if store != nil {
		s.warmUp()
	}

	s.wg.Add(1)
	go s.cleanupLoop(cfg.CleanupInterval)

	return s
}

// Close stops the cleanup loop and the persistent store.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("cache store close failed", "error", err)
		}
	}
}

// Get returns the cached payload for an exact key match within the TTL.
func (s *Service) Get(_ context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}
	return s.lru.Get(key)
}

// Set stores a payload under the key, writing through to the persistent
// store when one is attached.
func (s *Service) Set(ctx context.Context, key string, value []byte) {
	if key == "" {
		return
	}
	s.lru.Set(key, value, s.ttl)
	if s.store != nil {
		if err := s.store.Put(ctx, key, value, time.Now().Add(s.ttl)); err != nil {
			slog.Warn("cache write-through failed", "key", key, "error", err)
		}
	}
}

// Clear removes all entries from the cache and the persistent store.
func (s *Service) Clear(ctx context.Context) {
	s.lru.Clear()
	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			slog.Warn("cache store clear failed", "error", err)
		}
	}
}

// Size returns the number of in-memory entries.
func (s *Service) Size() int {
	return s.lru.Size()
}

// warmUp loads non-expired persisted entries into the in-memory cache.
func (s *Service) warmUp() {
	entries, err := s.store.Load(s.ctx)
	if err != nil {
		slog.Warn("cache warm-up failed", "error", err)
		return
	}
	now := time.Now()
	loaded := 0
	for _, e := range entries {
		if !e.ExpiresAt.After(now) {
			continue
		}
		s.lru.Set(e.Key, e.Value, e.ExpiresAt.Sub(now))
		loaded++
	}
	if loaded > 0 {
		slog.Info("cache warmed from store", "entries", loaded)
	}
}

// cleanupLoop periodically removes expired entries.
func (s *Service) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if removed := s.lru.CleanupExpired(); removed > 0 {
				slog.Debug("expired cache entries removed", "count", removed)
			}
		}
	}
}
