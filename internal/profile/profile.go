package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration to start the engine.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Data is the data directory for the persistent result cache
	Data string
	// CacheDSN points to the sqlite file backing the result cache.
	// Empty means in-memory only.
	CacheDSN string
	// CacheCapacity bounds the in-memory result cache entry count
	CacheCapacity int
	// CacheTTL is how long cached results stay valid
	CacheTTL time.Duration
	// Version is the current version of the engine
	Version string

	// Embedding backend configuration
	EmbeddingEnabled bool   // TEXTENGINE_EMBEDDING_ENABLED
	EmbeddingAPIKey  string // TEXTENGINE_EMBEDDING_API_KEY
	EmbeddingBaseURL string // TEXTENGINE_EMBEDDING_BASE_URL (default: https://api.openai.com/v1)
	EmbeddingModel   string // TEXTENGINE_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingDims    int    // TEXTENGINE_EMBEDDING_DIMENSIONS (default: 384)

	// Worker configuration
	QueueSize int // TEXTENGINE_QUEUE_SIZE (default: 8)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled returns true if the embedding backend is enabled and
// reachable in principle (an API key or a custom base URL is configured).
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingEnabled && (p.EmbeddingAPIKey != "" || p.EmbeddingBaseURL != "")
}

// FromEnv loads configuration from TEXTENGINE_* environment variables,
// layered over whatever flags already set.
func (p *Profile) FromEnv() {
	v := viper.New()
	v.SetEnvPrefix("textengine")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("embedding_base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("embedding_dimensions", 384)
	v.SetDefault("queue_size", 8)

	if v.IsSet("mode") {
		p.Mode = v.GetString("mode")
	}
	if v.IsSet("data") {
		p.Data = v.GetString("data")
	}
	if v.IsSet("cache_dsn") {
		p.CacheDSN = v.GetString("cache_dsn")
	}
	if v.IsSet("cache_capacity") {
		p.CacheCapacity = v.GetInt("cache_capacity")
	}
	if v.IsSet("cache_ttl") {
		p.CacheTTL = v.GetDuration("cache_ttl")
	}

	p.EmbeddingEnabled = v.GetBool("embedding_enabled")
	p.EmbeddingAPIKey = v.GetString("embedding_api_key")
	p.EmbeddingBaseURL = v.GetString("embedding_base_url")
	p.EmbeddingModel = v.GetString("embedding_model")
	p.EmbeddingDims = v.GetInt("embedding_dimensions")
	p.QueueSize = v.GetInt("queue_size")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	// Persistence is opt-in: no data dir means a purely in-memory cache.
	if p.Data != "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		if p.CacheDSN == "" {
			dbFile := fmt.Sprintf("textengine_%s.db", p.Mode)
			p.CacheDSN = filepath.Join(dataDir, dbFile)
		}
	}

	if p.EmbeddingDims <= 0 {
		p.EmbeddingDims = 384
	}
	if p.QueueSize <= 0 {
		p.QueueSize = 8
	}
	return nil
}
