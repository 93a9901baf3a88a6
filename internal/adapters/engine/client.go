// Package engine provides the HTTP adapter for the external similarity
// search engine and an optional Redis-backed response cache decorator.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
)

const searchPath = "/v1/search"

// searchRequest is the wire form posted to the engine.
type searchRequest struct {
	Query      string  `json:"query"`
	Index      string  `json:"index,omitempty"`
	MaxMatches int     `json:"max_matches"`
	MinScore   float64 `json:"min_score,omitempty"`
}

// searchResponse is the wire form returned by the engine.
type searchResponse struct {
	Matches   []model.Match `json:"matches"`
	Total     int           `json:"total"`
	Truncated bool          `json:"truncated"`
	Error     string        `json:"error"`
}

// Client talks to the search engine over HTTP. Keep-alives are disabled so
// every search runs on its own connection; workers never share an engine
// session.
type Client struct {
	baseURL    string
	maxMatches int
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOptions holds the dependencies for creating a Client.
type ClientOptions struct {
	Config config.EngineConfig
	Logger *slog.Logger

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// NewClient creates a new engine client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Config.URL == "" {
		return nil, errors.New("engine URL is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Config.RequestTimeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "engine_client")
	}

	return &Client{
		baseURL:    opts.Config.URL,
		maxMatches: opts.Config.MaxMatches,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Search runs one similarity search. Transport and status failures come back
// as backend AppErrors carrying the engine's reason; the caller captures them
// as terminal failed results.
func (c *Client) Search(ctx context.Context, req *model.SearchRequest) (*model.MatchSet, error) {
	if req == nil {
		return nil, apperrors.Validation("search request is required")
	}

	maxMatches := req.MaxMatches
	if maxMatches <= 0 || maxMatches > c.maxMatches {
		maxMatches = c.maxMatches
	}

	body, err := json.Marshal(searchRequest{
		Query:      req.Query,
		Index:      req.Index,
		MaxMatches: maxMatches,
		MinScore:   req.MinScore,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode engine request")
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build engine request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Context errors keep their own codes so the worker can tell a
		// deadline from an engine outage.
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.Wrap(err, apperrors.ErrCodeTimeout, "engine request timed out")
		case errors.Is(err, context.Canceled):
			return nil, apperrors.Wrap(err, apperrors.ErrCodeCanceled, "engine request canceled")
		default:
			return nil, apperrors.Wrap(err, apperrors.ErrCodeBackend, "engine unreachable")
		}
	}
	defer closeBody(resp.Body, c.logger)

	decoded, err := decodeSearchResponse(resp)
	if err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "engine search completed",
			"index", req.Index,
			"matches", len(decoded.Matches),
			"duration", time.Since(start),
		)
	}

	return &model.MatchSet{
		Matches:   decoded.Matches,
		Total:     decoded.Total,
		Truncated: decoded.Truncated,
	}, nil
}

// Health probes the engine's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build engine health request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeBackend, "engine unreachable")
	}
	defer closeBody(resp.Body, c.logger)

	if resp.StatusCode != http.StatusOK {
		return apperrors.Backendf("engine unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func decodeSearchResponse(resp *http.Response) (*searchResponse, error) {
	// The error body is small even on failure; bound reads regardless.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBackend, "read engine response")
	}

	if resp.StatusCode != http.StatusOK {
		var failure searchResponse
		if json.Unmarshal(data, &failure) == nil && failure.Error != "" {
			return nil, apperrors.Backendf("engine rejected search: %s", failure.Error)
		}
		return nil, apperrors.Backendf("engine returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBackend, "decode engine response")
	}
	if decoded.Matches == nil {
		decoded.Matches = []model.Match{}
	}
	return &decoded, nil
}

func closeBody(body io.ReadCloser, logger *slog.Logger) {
	if err := body.Close(); err != nil && logger != nil {
		logger.Warn("close engine response body", "error", err)
	}
}

var _ core.Engine = (*Client)(nil)
