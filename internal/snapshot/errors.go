package snapshot

import "codeberg.org/nevala/sysprobe/internal/errors"

const (
	// Codec errors
	ErrEncodeFailed   = errors.ErrorCode("snapshot_encode_failed")
	ErrDecodeFailed   = errors.ErrorCode("snapshot_decode_failed")
	ErrKindNotAllowed = errors.ErrorCode("snapshot_kind_not_allowed")
	ErrKindMismatch   = errors.ErrorCode("snapshot_kind_mismatch")
)
