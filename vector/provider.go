package vector

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// EmbeddingService generates vectors for text.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one vector per text, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// ProviderConfig configures the embedding provider.
type ProviderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	MaxRetries int
	// Timeout bounds each embedding call; a hung provider degrades the
	// whole batch to TF-IDF instead of stalling the task.
	Timeout time.Duration
	// RequestsPerSecond throttles calls to the provider API.
	RequestsPerSecond float64
	Burst             int
	// Concurrency bounds parallel calls in EmbedBatch.
	Concurrency int
}

// DefaultProviderConfig returns the default provider configuration.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		BaseURL:           "https://api.openai.com/v1",
		Model:             "text-embedding-3-small",
		Dimensions:        384,
		MaxRetries:        3,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             20,
		Concurrency:       3,
	}
}

// Provider is an OpenAI-compatible embedding provider with retry,
// rate limiting and per-call timeouts.
type Provider struct {
	client  *openai.Client
	config  ProviderConfig
	limiter *rate.Limiter
}

// NewProvider creates a provider from config.
func NewProvider(cfg ProviderConfig) *Provider {
	defaults := DefaultProviderConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaults.Dimensions
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Model returns the configured model name.
func (p *Provider) Model() string { return p.config.Model }

// Dimensions returns the vector dimension.
func (p *Provider) Dimensions() int { return p.config.Dimensions }

// Embed generates a vector for a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	var result []float32
	err := p.doWithRetry(callCtx, func() error {
		resp, err := p.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(p.config.Model),
			Dimensions: p.config.Dimensions,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	return result, nil
}

// EmbedBatch generates one vector per text with bounded concurrency.
// Result order matches input order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := p.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed item %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// doWithRetry executes fn with exponential backoff.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < p.config.MaxRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			slog.Debug("embedding request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", lastErr)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

var _ EmbeddingService = (*Provider)(nil)
