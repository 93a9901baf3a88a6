package config

import (
	"strings"
	"time"
)

// EngineConfig contains configuration for the external search engine client.
type EngineConfig struct {
	// URL is the base URL of the search engine HTTP API.
	URL string `env:"ENGINE_URL" envDefault:"http://localhost:9200"`

	// RequestTimeout bounds a single engine HTTP request. The job deadline
	// still applies on top through the worker context.
	RequestTimeout time.Duration `env:"ENGINE_REQUEST_TIMEOUT" envDefault:"15m"`

	// MaxMatches is the engine-side cap applied when a request does not set
	// its own limit.
	MaxMatches int `env:"ENGINE_MAX_MATCHES" envDefault:"500"`

	// CacheEnabled turns on the Redis response cache decorator.
	CacheEnabled bool `env:"CACHE_ENABLED" envDefault:"false"`

	// CacheTTL is how long cached engine responses stay valid.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"15m"`
}

// Sanitize applies guardrails to engine configuration values.
func (e *EngineConfig) Sanitize() {
	e.URL = strings.TrimRight(strings.TrimSpace(e.URL), "/")
	if e.URL == "" {
		e.URL = "http://localhost:9200"
	}
	if e.RequestTimeout <= 0 {
		e.RequestTimeout = 15 * time.Minute
	}
	if e.MaxMatches < 1 {
		e.MaxMatches = 1
	}
	if e.CacheTTL <= 0 {
		e.CacheTTL = 15 * time.Minute
	}
}
