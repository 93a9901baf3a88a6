//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRequest_Validate(t *testing.T) {
	tests := []struct {
		name        string
		request     SearchRequest
		expectError bool
		errorMsg    string
	}{
		{
			name:    "minimal valid request",
			request: SearchRequest{Query: "MKTAYIAKQR"},
		},
		{
			name: "all fields set",
			request: SearchRequest{
				Query:          "MKTAYIAKQR",
				Index:          "nr",
				MaxMatches:     100,
				MinScore:       25.5,
				Filter:         "[?score > `30`]",
				TimeoutSeconds: 120,
			},
		},
		{
			name:        "missing query",
			request:     SearchRequest{},
			expectError: true,
			errorMsg:    "query is required",
		},
		{
			name:        "whitespace query",
			request:     SearchRequest{Query: "   \n\t"},
			expectError: true,
			errorMsg:    "query is required",
		},
		{
			name:        "query too long",
			request:     SearchRequest{Query: strings.Repeat("A", MaxQueryLength+1)},
			expectError: true,
			errorMsg:    "query exceeds maximum length",
		},
		{
			name:        "negative max matches",
			request:     SearchRequest{Query: "MKT", MaxMatches: -1},
			expectError: true,
			errorMsg:    "max matches must be >= 0",
		},
		{
			name:        "max matches over limit",
			request:     SearchRequest{Query: "MKT", MaxMatches: MaxMatchLimit + 1},
			expectError: true,
			errorMsg:    "max matches exceeds limit",
		},
		{
			name:        "negative min score",
			request:     SearchRequest{Query: "MKT", MinScore: -0.1},
			expectError: true,
			errorMsg:    "min score must be >= 0",
		},
		{
			name:        "negative timeout",
			request:     SearchRequest{Query: "MKT", TimeoutSeconds: -5},
			expectError: true,
			errorMsg:    "timeout seconds must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSearchRequest_ValidateBoundaryLengths(t *testing.T) {
	req := SearchRequest{Query: strings.Repeat("A", MaxQueryLength)}
	assert.NoError(t, req.Validate())

	req = SearchRequest{Query: "MKT", MaxMatches: MaxMatchLimit}
	assert.NoError(t, req.Validate())
}

func TestSearchResult_Failed(t *testing.T) {
	ok := &SearchResult{JobID: "j1", Payload: []byte(`{"matches":[]}`)}
	assert.False(t, ok.Failed())

	msg := "engine unreachable"
	failed := &SearchResult{JobID: "j2", Error: &msg}
	assert.True(t, failed.Failed())
}
