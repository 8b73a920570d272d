package local

import "bytes"

// safeString is the only code path allowed to interpret a raw engine text
// buffer. A nil or empty buffer yields ""; otherwise the buffer is read
// up to its NUL terminator and copied. Raw buffers are never dereferenced
// anywhere else.
func safeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}

	return string(b)
}
