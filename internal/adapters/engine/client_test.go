package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientOptions{
		Config: config.EngineConfig{
			URL:            srv.URL,
			RequestTimeout: 5 * time.Second,
			MaxMatches:     100,
		},
	})
	require.NoError(t, err)
	return client, srv
}

func TestClient_Search_Success(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"target_id": "hit-1", "score": 0.98},
				{"target_id": "hit-2", "score": 0.71},
			},
			"total":     2,
			"truncated": false,
		})
	}))

	result, err := client.Search(context.Background(), &model.SearchRequest{
		Query:      "ATCGATCG",
		Index:      "proteins",
		MaxMatches: 10,
		MinScore:   0.5,
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "hit-1", result.Matches[0].TargetID)
	assert.Equal(t, 2, result.Total)
	assert.False(t, result.Truncated)

	assert.Equal(t, "ATCGATCG", gotBody["query"])
	assert.Equal(t, "proteins", gotBody["index"])
	assert.Equal(t, float64(10), gotBody["max_matches"])
	assert.Equal(t, 0.5, gotBody["min_score"])
}

func TestClient_Search_CapsMaxMatches(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"matches": []any{}, "total": 0})
	}))

	// Unset limits fall back to the configured cap; oversized ones are clamped.
	_, err := client.Search(context.Background(), &model.SearchRequest{Query: "Q"})
	require.NoError(t, err)
	assert.Equal(t, float64(100), gotBody["max_matches"])

	_, err = client.Search(context.Background(), &model.SearchRequest{Query: "Q", MaxMatches: 5000})
	require.NoError(t, err)
	assert.Equal(t, float64(100), gotBody["max_matches"])
}

func TestClient_Search_EngineError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "unknown index: nope"})
	}))

	_, err := client.Search(context.Background(), &model.SearchRequest{Query: "Q", Index: "nope"})
	require.Error(t, err)
	assert.True(t, apperrors.IsBackend(err))
	assert.Contains(t, err.Error(), "unknown index: nope")
}

func TestClient_Search_NonJSONFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	_, err := client.Search(context.Background(), &model.SearchRequest{Query: "Q"})
	require.Error(t, err)
	assert.True(t, apperrors.IsBackend(err))
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Search_Unreachable(t *testing.T) {
	client, srv := newTestClient(t, http.NewServeMux())
	srv.Close()

	_, err := client.Search(context.Background(), &model.SearchRequest{Query: "Q"})
	require.Error(t, err)
	assert.True(t, apperrors.IsBackend(err))
}

func TestClient_Search_ContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and can
		// observe the client aborting; otherwise r.Context() never fires and
		// the httptest server's Close blocks on this handler forever.
		_, _ = io.Copy(io.Discard, r.Body)
		close(blocked)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-blocked
		cancel()
	}()

	_, err := client.Search(ctx, &model.SearchRequest{Query: "Q"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCanceled(err))
}

func TestClient_Search_DeadlineExceeded(t *testing.T) {
	blocked := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client-side abort; see
		// TestClient_Search_ContextCancellation.
		_, _ = io.Copy(io.Discard, r.Body)
		close(blocked)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, &model.SearchRequest{Query: "Q"})
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
	<-blocked
}

func TestClient_Search_NilRequest(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	_, err := client.Search(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestClient_Health(t *testing.T) {
	healthy := true
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthz", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))

	require.NoError(t, client.Health(context.Background()))

	healthy = false
	err := client.Health(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsBackend(err))
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	require.Error(t, err)
}
