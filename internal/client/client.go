// Package client is a small Go client for the seqsearch HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
)

// maxErrorBodyBytes bounds how much of an error response body is read.
const maxErrorBodyBytes = 1 << 20

// Client calls the seqsearch HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Options holds configuration for New.
type Options struct {
	// BaseURL is the server address, e.g. "http://localhost:8080".
	BaseURL string

	// TokenSource supplies bearer tokens when the server requires auth.
	// Optional.
	TokenSource oauth2.TokenSource

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client

	// RequestTimeout bounds a single API call. Ignored when HTTPClient is
	// set. Defaults to 30s; long-poll result calls extend it as needed.
	RequestTimeout time.Duration
}

// New creates an API client.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, apperrors.Validation("base URL is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if opts.TokenSource != nil {
		httpClient = &http.Client{
			Timeout:   httpClient.Timeout,
			Transport: &oauth2.Transport{Source: opts.TokenSource, Base: httpClient.Transport},
		}
	}

	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// SubmitResponse is the accepted-submission body.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Result is the consuming result body. Either Payload or Error is present.
type Result struct {
	JobID       string          `json:"job_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Failed reports whether the search finished with an execution failure.
func (r *Result) Failed() bool { return r.Error != nil }

// Submit queues a search and returns its job id.
func (c *Client) Submit(ctx context.Context, req *model.SearchRequest) (*SubmitResponse, error) {
	if req == nil {
		return nil, apperrors.Validation("search request is required")
	}

	var out SubmitResponse
	if err := c.do(ctx, callParams{
		method: http.MethodPost,
		path:   "/api/searches",
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status reports the observable state of a search without consuming anything.
func (c *Client) Status(ctx context.Context, jobID string) (*model.SearchStatusResponse, error) {
	var out model.SearchStatusResponse
	if err := c.do(ctx, callParams{
		method: http.MethodGet,
		path:   "/api/searches/" + jobID + "/status",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Result fetches the search outcome. A non-nil result consumes the stored
// row; asking again returns NotFound. A nil result with nil error means the
// search is still running. wait long-polls on the server for up to the given
// duration (zero polls once).
func (c *Client) Result(ctx context.Context, jobID string, wait time.Duration) (*Result, error) {
	path := "/api/searches/" + jobID + "/result"
	if wait > 0 {
		path += "?wait=" + strconv.Itoa(int(wait/time.Second))
	}

	resp, err := c.send(ctx, callParams{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out Result
		if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil {
			return nil, apperrors.Wrap(decodeErr, apperrors.ErrCodeBackend, "decode result response")
		}
		return &out, nil
	case http.StatusAccepted:
		return nil, nil
	default:
		return nil, errorFromResponse(resp)
	}
}

// Cancel stops a running search.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	return c.do(ctx, callParams{
		method: http.MethodPost,
		path:   "/api/searches/" + jobID + "/cancel",
	}, nil)
}

// Stats reports the server's admission capacity.
func (c *Client) Stats(ctx context.Context) (*model.SearchStats, error) {
	var out model.SearchStats
	if err := c.do(ctx, callParams{
		method: http.MethodGet,
		path:   "/api/searches/stats",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type callParams struct {
	method string
	path   string
	body   any
}

func (c *Client) send(ctx context.Context, p callParams) (*http.Response, error) {
	var body io.Reader
	if p.body != nil {
		raw, err := json.Marshal(p.body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, c.baseURL+p.path, body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}
	if p.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBackend, "call api")
	}
	return resp, nil
}

// do sends the request and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, p callParams, out any) error {
	resp, err := c.send(ctx, p)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeBackend, "decode response")
	}
	return nil
}

// errorFromResponse maps the server's JSON error envelope back onto a typed
// error, so callers can use the same predicates as server-side code.
func errorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return &apperrors.AppError{
			Code:    apperrors.ErrorCode(envelope.Error),
			Message: envelope.Message,
		}
	}
	return apperrors.Backendf("api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
