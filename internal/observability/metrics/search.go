package metrics

import (
	"time"

	obserrors "github.com/seqbase/seqsearch/internal/observability/errors"
	"github.com/seqbase/seqsearch/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition constants for search lifecycle metric tagging.
const (
	TransitionSubmitted = "submitted"
	TransitionCompleted = "completed"
	TransitionFailed    = "failed"
	TransitionCancelled = "cancelled"
	TransitionTimedOut  = "timed_out"
	TransitionRecovered = "recovered"
	TransitionConsumed  = "consumed"
)

// SearchMetric captures details about a search lifecycle event for metric emission.
type SearchMetric struct {
	Index      string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitSearchLifecycle emits standardised search lifecycle metrics.
func EmitSearchLifecycle(sink statsd.Sink, in SearchMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"index":      in.Index,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Index == "" {
		tags["index"] = "default"
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("search.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("search.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
