package vector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// ErrModelUnavailable is returned when the embedding provider cannot be
// reached or validated. Callers fall back to TF-IDF.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Service owns the embedding model handle and selects the vectorization
// strategy per batch. The handle is validated lazily on first need; the
// validation is single-flight and its outcome is shared across tasks.
// A failed validation is recorded so later tasks fall back silently
// instead of retrying every time.
type Service struct {
	embedder EmbeddingService
	model    string

	loadGroup singleflight.Group

	mu         sync.RWMutex
	loaded     bool
	loadFailed bool
	loadTime   time.Duration
}

// NewService creates a vectorization service around an embedding backend.
// A nil embedder disables the embedding strategy entirely.
func NewService(embedder EmbeddingService, model string) *Service {
	return &Service{
		embedder: embedder,
		model:    model,
	}
}

// ModelName returns the configured embedding model name.
func (s *Service) ModelName() string { return s.model }

// ModelLoadTime returns how long the model handle took to validate, or zero
// when it has not been loaded.
func (s *Service) ModelLoadTime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadTime
}

// ModelReady reports whether the embedding backend has been validated.
func (s *Service) ModelReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// EnsureModel validates the embedding backend once. Concurrent callers share
// a single in-flight validation. After a backend failure, subsequent calls
// return ErrModelUnavailable without retrying; a validation aborted by
// cancellation is retried on the next call.
func (s *Service) EnsureModel(ctx context.Context) error {
	s.mu.RLock()
	loaded, failed := s.loaded, s.loadFailed
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	if failed || s.embedder == nil {
		return ErrModelUnavailable
	}

	_, err, _ := s.loadGroup.Do("model", func() (any, error) {
		start := time.Now()
		if _, err := s.embedder.Embed(ctx, "ping"); err != nil {
			// A cancelled task aborting the validation says nothing about
			// the model's health; only a real backend failure is recorded.
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				s.mu.Lock()
				s.loadFailed = true
				s.mu.Unlock()
				slog.Warn("embedding model validation failed, falling back to tfidf",
					"model", s.model, "error", err)
			}
			return nil, errors.Wrap(ErrModelUnavailable, err.Error())
		}
		s.mu.Lock()
		s.loaded = true
		s.loadTime = time.Since(start)
		s.mu.Unlock()
		slog.Info("embedding model ready",
			"model", s.model, "load_time_ms", time.Since(start).Milliseconds())
		return nil, nil
	})
	return err
}

// Vectorize produces one vector per text. When useEmbeddings is true and the
// model is available, the embedding strategy is attempted; any failure
// recomputes the entire batch with TF-IDF so similarity scores stay
// commensurable. TF-IDF is also used directly when useEmbeddings is false.
func (s *Service) Vectorize(ctx context.Context, texts []string, useEmbeddings bool) (BatchResult, error) {
	if len(texts) == 0 {
		return NewTFIDF(nil), nil
	}

	if useEmbeddings {
		if err := s.EnsureModel(ctx); err == nil {
			vectors, err := s.embedder.EmbedBatch(ctx, texts)
			if err == nil && complete(vectors, len(texts)) {
				return NewEmbedded(vectors), nil
			}
			if ctx.Err() != nil {
				return BatchResult{}, ctx.Err()
			}
			slog.Warn("batch embedding degraded to tfidf", "count", len(texts), "error", err)
		} else if ctx.Err() != nil {
			return BatchResult{}, ctx.Err()
		}
	}

	return NewTFIDF(TFIDF(texts)), nil
}

// EmbedOne returns an embedding for a single text, or ok=false when the
// model is unavailable or the call fails. Used for concept vectors and
// card deduplication, where degradation is per-caller rather than fatal.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, bool) {
	if err := s.EnsureModel(ctx); err != nil {
		return nil, false
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

// complete reports whether the provider returned a non-empty vector for
// every input.
func complete(vectors [][]float32, want int) bool {
	if len(vectors) != want {
		return false
	}
	for _, v := range vectors {
		if len(v) == 0 {
			return false
		}
	}
	return true
}
