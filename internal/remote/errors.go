package remote

import "codeberg.org/nevala/sysprobe/internal/errors"

const (
	// Lifecycle errors
	ErrInvalidated = errors.ErrorCode("remote_invalidated")
)
