package data

import "errors"

// Shared sentinel errors for data-layer stores.
var (
	// Job store sentinels.
	ErrJobNotFound   = errors.New("job not found")
	ErrJobIDRequired = errors.New("job_id is required")

	// Result store sentinels.
	ErrResultNotFound = errors.New("search result not found")
)
