package engine

import "codeberg.org/nevala/sysprobe/internal/errors"

const (
	// Sampling errors
	ErrSampleFailed = errors.ErrorCode("engine_sample_failed")
)
