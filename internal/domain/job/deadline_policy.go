package job

import (
	"errors"
	"time"
)

// ErrInvalidDefaultTimeout indicates the configured default timeout is not positive.
var ErrInvalidDefaultTimeout = errors.New("default timeout must be positive")

// ErrInvalidMaxTimeout indicates the configured maximum timeout is below the default.
var ErrInvalidMaxTimeout = errors.New("maximum timeout must not be below the default")

// minTimeout is the smallest execution window a job can be granted.
const minTimeout = time.Second

// TimeoutSource identifies how an execution timeout was resolved.
type TimeoutSource string

const (
	// TimeoutSourceExplicit indicates the caller supplied an in-range duration.
	TimeoutSourceExplicit TimeoutSource = "explicit"
	// TimeoutSourceDefault indicates the default duration was used.
	TimeoutSourceDefault TimeoutSource = "default"
	// TimeoutSourceClamped indicates the requested duration was clamped into the supported range.
	TimeoutSourceClamped TimeoutSource = "clamped"
)

// DeadlinePolicy normalises per-request execution timeouts into the range the
// service is willing to grant.
type DeadlinePolicy struct {
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

// NewDeadlinePolicy constructs a DeadlinePolicy with the provided default and
// maximum timeouts.
func NewDeadlinePolicy(defaultTimeout, maxTimeout time.Duration) (*DeadlinePolicy, error) {
	if defaultTimeout <= 0 {
		return nil, ErrInvalidDefaultTimeout
	}
	if maxTimeout < defaultTimeout {
		return nil, ErrInvalidMaxTimeout
	}
	return &DeadlinePolicy{
		defaultTimeout: defaultTimeout,
		maxTimeout:     maxTimeout,
	}, nil
}

// Default returns the configured default timeout.
func (p *DeadlinePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultTimeout
}

// TimeoutDecision captures the outcome of resolving a timeout request.
type TimeoutDecision struct {
	Timeout   time.Duration
	Source    TimeoutSource
	Requested time.Duration
}

// UsedDefault reports whether the policy fell back to the default timeout.
func (d TimeoutDecision) UsedDefault() bool {
	return d.Source == TimeoutSourceDefault
}

// Clamped reports whether the requested value was clamped into the supported range.
func (d TimeoutDecision) Clamped() bool {
	return d.Source == TimeoutSourceClamped
}

// Resolve normalises the requested duration. A zero request takes the default;
// out-of-range requests are clamped rather than rejected.
func (p *DeadlinePolicy) Resolve(request time.Duration) TimeoutDecision {
	if p == nil {
		return TimeoutDecision{Timeout: 0, Source: TimeoutSourceDefault, Requested: request}
	}

	decision := TimeoutDecision{Requested: request}

	switch {
	case request == 0:
		decision.Timeout = p.defaultTimeout
		decision.Source = TimeoutSourceDefault
	case request < minTimeout:
		decision.Timeout = minTimeout
		decision.Source = TimeoutSourceClamped
	case request > p.maxTimeout:
		decision.Timeout = p.maxTimeout
		decision.Source = TimeoutSourceClamped
	default:
		decision.Timeout = request
		decision.Source = TimeoutSourceExplicit
	}
	return decision
}

// Deadline resolves the requested timeout and anchors it to now.
func (p *DeadlinePolicy) Deadline(now time.Time, request time.Duration) (time.Time, TimeoutDecision) {
	decision := p.Resolve(request)
	return now.Add(decision.Timeout), decision
}
