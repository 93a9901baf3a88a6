// Package query implements the match filter expressions accepted at
// submission time. Filters are JMESPath expressions evaluated against the
// JSON form of the match list after the engine returns.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/seqbase/seqsearch/internal/domain/model"
)

// ErrFilterResultShape indicates a filter evaluated to something other than a
// list of matches.
var ErrFilterResultShape = errors.New("filter must select a list of matches")

// Validate checks a filter expression without evaluating it. Empty expressions
// are allowed and mean no filtering.
func Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return fmt.Errorf("compile filter: %w", err)
	}
	return nil
}

// Apply evaluates expr against the match list and returns the matches the
// expression selects. Expressions that drop every match yield an empty,
// non-nil slice so callers can distinguish "filtered out" from "not run".
func Apply(expr string, matches []model.Match) ([]model.Match, error) {
	if strings.TrimSpace(expr) == "" {
		return matches, nil
	}

	encoded, err := json.Marshal(matches)
	if err != nil {
		return nil, fmt.Errorf("encode matches: %w", err)
	}
	var data any
	if err := json.Unmarshal(encoded, &data); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}

	out, err := jmespath.Search(expr, data)
	if err != nil {
		return nil, fmt.Errorf("evaluate filter: %w", err)
	}
	if out == nil {
		return []model.Match{}, nil
	}

	selected, err := json.Marshal(out)
	if err != nil {
		return nil, ErrFilterResultShape
	}
	var filtered []model.Match
	if err := json.Unmarshal(selected, &filtered); err != nil {
		return nil, ErrFilterResultShape
	}
	if filtered == nil {
		filtered = []model.Match{}
	}
	return filtered, nil
}
