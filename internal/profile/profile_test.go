package profile

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileDefaults(t *testing.T) {
	clearEngineEnvVars(t)

	p := &Profile{}
	p.FromEnv()

	assert.False(t, p.EmbeddingEnabled)
	assert.Equal(t, "https://api.openai.com/v1", p.EmbeddingBaseURL)
	assert.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	assert.Equal(t, 384, p.EmbeddingDims)
	assert.Equal(t, 8, p.QueueSize)
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		check    func(*testing.T, *Profile)
	}{
		{
			name:     "TEXTENGINE_EMBEDDING_ENABLED=true",
			envVar:   "TEXTENGINE_EMBEDDING_ENABLED",
			envValue: "true",
			check: func(t *testing.T, p *Profile) {
				assert.True(t, p.EmbeddingEnabled)
			},
		},
		{
			name:     "TEXTENGINE_EMBEDDING_API_KEY",
			envVar:   "TEXTENGINE_EMBEDDING_API_KEY",
			envValue: "test-key-123",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "test-key-123", p.EmbeddingAPIKey)
			},
		},
		{
			name:     "TEXTENGINE_EMBEDDING_BASE_URL",
			envVar:   "TEXTENGINE_EMBEDDING_BASE_URL",
			envValue: "https://custom.openai.proxy/v1",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "https://custom.openai.proxy/v1", p.EmbeddingBaseURL)
			},
		},
		{
			name:     "TEXTENGINE_EMBEDDING_MODEL",
			envVar:   "TEXTENGINE_EMBEDDING_MODEL",
			envValue: "custom-embedding-model",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "custom-embedding-model", p.EmbeddingModel)
			},
		},
		{
			name:     "TEXTENGINE_CACHE_TTL",
			envVar:   "TEXTENGINE_CACHE_TTL",
			envValue: "48h",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, 48*time.Hour, p.CacheTTL)
			},
		},
		{
			name:     "TEXTENGINE_QUEUE_SIZE",
			envVar:   "TEXTENGINE_QUEUE_SIZE",
			envValue: "16",
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, 16, p.QueueSize)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEngineEnvVars(t)
			t.Setenv(tt.envVar, tt.envValue)

			p := &Profile{}
			p.FromEnv()
			tt.check(t, p)
		})
	}
}

func TestIsEmbeddingEnabled(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*Profile)
		expected bool
	}{
		{
			name:     "disabled",
			setup:    func(p *Profile) { p.EmbeddingEnabled = false },
			expected: false,
		},
		{
			name: "enabled but no key or URL",
			setup: func(p *Profile) {
				p.EmbeddingEnabled = true
			},
			expected: false,
		},
		{
			name: "enabled with API key",
			setup: func(p *Profile) {
				p.EmbeddingEnabled = true
				p.EmbeddingAPIKey = "test-key"
			},
			expected: true,
		},
		{
			name: "enabled with base URL only",
			setup: func(p *Profile) {
				p.EmbeddingEnabled = true
				p.EmbeddingBaseURL = "http://localhost:11434/v1"
			},
			expected: true,
		},
		{
			name: "disabled with API key",
			setup: func(p *Profile) {
				p.EmbeddingEnabled = false
				p.EmbeddingAPIKey = "test-key"
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{}
			tt.setup(p)
			assert.Equal(t, tt.expected, p.IsEmbeddingEnabled())
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("unknown mode falls back to dev", func(t *testing.T) {
		p := &Profile{Mode: "staging"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "dev", p.Mode)
	})

	t.Run("data dir derives the cache dsn", func(t *testing.T) {
		p := &Profile{Mode: "prod", Data: t.TempDir()}
		require.NoError(t, p.Validate())
		assert.Contains(t, p.CacheDSN, "textengine_prod.db")
	})

	t.Run("missing data dir is an error", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: "/nonexistent/textengine-data"}
		assert.Error(t, p.Validate())
	})

	t.Run("no data dir means in-memory only", func(t *testing.T) {
		p := &Profile{Mode: "dev"}
		require.NoError(t, p.Validate())
		assert.Empty(t, p.CacheDSN)
		assert.Equal(t, 384, p.EmbeddingDims)
		assert.Equal(t, 8, p.QueueSize)
	})
}

func clearEngineEnvVars(t *testing.T) {
	t.Helper()
	for _, envVar := range []string{
		"TEXTENGINE_MODE",
		"TEXTENGINE_DATA",
		"TEXTENGINE_CACHE_DSN",
		"TEXTENGINE_CACHE_CAPACITY",
		"TEXTENGINE_CACHE_TTL",
		"TEXTENGINE_EMBEDDING_ENABLED",
		"TEXTENGINE_EMBEDDING_API_KEY",
		"TEXTENGINE_EMBEDDING_BASE_URL",
		"TEXTENGINE_EMBEDDING_MODEL",
		"TEXTENGINE_EMBEDDING_DIMENSIONS",
		"TEXTENGINE_QUEUE_SIZE",
	} {
		require.NoError(t, os.Unsetenv(envVar))
	}
}
