package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/domain/model"
)

const cacheKeyPrefix = "seqsearch:engine:"

// CachingEngine decorates an Engine with a read-through response cache.
// Cache failures never fail a search; the decorator degrades to calling
// the inner engine directly.
type CachingEngine struct {
	inner  core.Engine
	cache  core.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// CachingEngineOptions holds the dependencies for creating a CachingEngine.
type CachingEngineOptions struct {
	Inner  core.Engine
	Cache  core.CacheRepository
	TTL    time.Duration
	Logger *slog.Logger
}

// NewCachingEngine creates a caching decorator around an engine client.
func NewCachingEngine(opts CachingEngineOptions) *CachingEngine {
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "engine_cache")
	}
	return &CachingEngine{
		inner:  opts.Inner,
		cache:  opts.Cache,
		ttl:    opts.TTL,
		logger: logger,
	}
}

// Search returns a cached response when one exists for an identical request,
// otherwise it runs the search and stores the response. Only successful
// responses are cached.
func (e *CachingEngine) Search(ctx context.Context, req *model.SearchRequest) (*model.MatchSet, error) {
	key, err := cacheKey(req)
	if err != nil {
		return e.inner.Search(ctx, req)
	}

	if data, getErr := e.cache.Get(ctx, key); getErr == nil && data != nil {
		var cached model.MatchSet
		if json.Unmarshal(data, &cached) == nil {
			if e.logger != nil {
				e.logger.DebugContext(ctx, "engine cache hit", "key", key)
			}
			return &cached, nil
		}
		// Unreadable entry: drop it and fall through to the engine.
		if _, delErr := e.cache.Delete(ctx, key); delErr != nil && e.logger != nil {
			e.logger.Warn("evict corrupt cache entry", "key", key, "error", delErr)
		}
	} else if getErr != nil && e.logger != nil {
		e.logger.Warn("engine cache read failed", "key", key, "error", getErr)
	}

	result, err := e.inner.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(result); marshalErr == nil {
		if setErr := e.cache.Set(ctx, key, data, e.ttl); setErr != nil && e.logger != nil {
			e.logger.Warn("engine cache write failed", "key", key, "error", setErr)
		}
	}
	return result, nil
}

// Health delegates to the inner engine; the cache is advisory and never
// counts against engine health.
func (e *CachingEngine) Health(ctx context.Context) error {
	return e.inner.Health(ctx)
}

// cacheKey derives a stable key from the fields the engine actually sees.
// Filter and timeout stay out of the key: filters run on the caller side
// after the engine responds.
func cacheKey(req *model.SearchRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("nil request")
	}
	data, err := json.Marshal(searchRequest{
		Query:      req.Query,
		Index:      req.Index,
		MaxMatches: req.MaxMatches,
		MinScore:   req.MinScore,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}

var _ core.Engine = (*CachingEngine)(nil)
