// Package testutil provides testing utilities and helpers for the seqsearch job system.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/seqbase/seqsearch/internal/domain/model"
)

// SearchRequestBuilder provides a fluent interface for building SearchRequest objects for testing.
type SearchRequestBuilder struct {
	req *model.SearchRequest
}

// NewSearchRequest creates a new SearchRequestBuilder with sensible defaults.
func NewSearchRequest() *SearchRequestBuilder {
	return &SearchRequestBuilder{
		req: &model.SearchRequest{
			Query:      "ATGACCATGATTACGGATTCACTGGCCGTCGTTTTAC",
			Index:      "nt",
			MaxMatches: 100,
		},
	}
}

// WithQuery sets the query sequence.
func (b *SearchRequestBuilder) WithQuery(query string) *SearchRequestBuilder {
	b.req.Query = query
	return b
}

// WithIndex sets the target index name.
func (b *SearchRequestBuilder) WithIndex(index string) *SearchRequestBuilder {
	b.req.Index = index
	return b
}

// WithMaxMatches sets the match cap.
func (b *SearchRequestBuilder) WithMaxMatches(maxMatches int) *SearchRequestBuilder {
	b.req.MaxMatches = maxMatches
	return b
}

// WithMinScore sets the score floor.
func (b *SearchRequestBuilder) WithMinScore(minScore float64) *SearchRequestBuilder {
	b.req.MinScore = minScore
	return b
}

// WithFilter sets the JMESPath match filter.
func (b *SearchRequestBuilder) WithFilter(filter string) *SearchRequestBuilder {
	b.req.Filter = filter
	return b
}

// WithTimeoutSeconds sets the per-job timeout override.
func (b *SearchRequestBuilder) WithTimeoutSeconds(seconds int) *SearchRequestBuilder {
	b.req.TimeoutSeconds = seconds
	return b
}

// Build returns the constructed SearchRequest.
func (b *SearchRequestBuilder) Build() *model.SearchRequest {
	return b.req
}

// MustJSON returns the constructed SearchRequest marshalled to JSON.
func (b *SearchRequestBuilder) MustJSON() json.RawMessage {
	data, err := json.Marshal(b.req)
	if err != nil {
		panic(err)
	}
	return data
}

// JobBuilder provides a fluent interface for building Job rows for testing.
type JobBuilder struct {
	job *model.Job
}

// NewJob creates a new JobBuilder for the given ID with sensible defaults:
// a running job submitted at TestTime with a five minute deadline.
func NewJob(id string) *JobBuilder {
	now := TestTime()
	return &JobBuilder{
		job: &model.Job{
			ID:          id,
			Status:      model.JobStatusRunning,
			Request:     NewSearchRequest().MustJSON(),
			SubmittedAt: now,
			Deadline:    now.Add(5 * time.Minute),
			UpdatedAt:   now,
		},
	}
}

// WithStatus sets the job status.
func (b *JobBuilder) WithStatus(status model.JobStatus) *JobBuilder {
	b.job.Status = status
	return b
}

// WithRequest sets the stored request document.
func (b *JobBuilder) WithRequest(request json.RawMessage) *JobBuilder {
	b.job.Request = request
	return b
}

// WithWorkerHandle sets the worker handle.
func (b *JobBuilder) WithWorkerHandle(handle string) *JobBuilder {
	b.job.WorkerHandle = &handle
	return b
}

// WithSubmittedAt sets the submission time.
func (b *JobBuilder) WithSubmittedAt(submittedAt time.Time) *JobBuilder {
	b.job.SubmittedAt = submittedAt
	return b
}

// WithDeadline sets the expiry deadline.
func (b *JobBuilder) WithDeadline(deadline time.Time) *JobBuilder {
	b.job.Deadline = deadline
	return b
}

// Build returns the constructed Job.
func (b *JobBuilder) Build() *model.Job {
	return b.job
}

// Common test request presets

// NucleotideSearchRequest creates a nucleotide search request with default values.
func NucleotideSearchRequest() *model.SearchRequest {
	return NewSearchRequest().
		WithIndex("nt").
		Build()
}

// ProteinSearchRequest creates a protein search request with default values.
func ProteinSearchRequest() *model.SearchRequest {
	return NewSearchRequest().
		WithQuery("MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQ").
		WithIndex("nr").
		Build()
}

// FilteredSearchRequest creates a search request carrying a JMESPath filter.
func FilteredSearchRequest(filter string) *model.SearchRequest {
	return NewSearchRequest().
		WithFilter(filter).
		Build()
}

// QuickSearchRequest creates a search request with a short explicit timeout.
func QuickSearchRequest(timeoutSeconds int) *model.SearchRequest {
	return NewSearchRequest().
		WithTimeoutSeconds(timeoutSeconds).
		Build()
}
