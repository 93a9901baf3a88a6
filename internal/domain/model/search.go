//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
)

const (
	// MaxQueryLength bounds the accepted query sequence size in bytes.
	MaxQueryLength = 100000
	// MaxMatchLimit bounds the number of matches a caller may request.
	MaxMatchLimit = 5000
)

// SearchRequest represents a request to run one similarity search.
type SearchRequest struct {
	Query          string  `json:"query"`
	Index          string  `json:"index,omitempty"`
	MaxMatches     int     `json:"max_matches,omitempty"`
	MinScore       float64 `json:"min_score,omitempty"`
	Filter         string  `json:"filter,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
}

// Validate validates the SearchRequest fields. Filter expressions are
// compiled separately by the submission path.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return errors.New("query is required")
	}
	if len(r.Query) > MaxQueryLength {
		return errors.New("query exceeds maximum length")
	}
	if r.MaxMatches < 0 {
		return errors.New("max matches must be >= 0")
	}
	if r.MaxMatches > MaxMatchLimit {
		return errors.New("max matches exceeds limit")
	}
	if r.MinScore < 0 {
		return errors.New("min score must be >= 0")
	}
	if r.TimeoutSeconds < 0 {
		return errors.New("timeout seconds must be >= 0")
	}
	return nil
}

// Match represents one scored hit returned by the search engine.
type Match struct {
	TargetID    string  `json:"target_id"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
	Identity    float64 `json:"identity,omitempty"`
}

// MatchSet represents the successful payload of a finished search.
type MatchSet struct {
	Matches   []Match `json:"matches"`
	Total     int     `json:"total"`
	Truncated bool    `json:"truncated,omitempty"`
}
