package http2

import "fmt"

// FormatError reports a malformed or out-of-bound frame field detected while
// constructing, serializing or decoding a frame. It is never recoverable by
// retrying the same call: the caller must fix the offending value.
type FormatError struct {
	// Field names the header field or payload element that violated its
	// constraint, e.g. "length", "flags", "stream_id", "setting_id".
	Field string
	Msg   string
}

// Error returns a string representation of the FormatError.
func (e *FormatError) Error() string {
	return fmt.Sprintf("frame format error (%s): %s", e.Field, e.Msg)
}

// NewFormatError creates a new FormatError for the given field.
func NewFormatError(field, format string, args ...interface{}) *FormatError {
	return &FormatError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// TruncatedInputError reports that a buffer does not yet contain enough bytes
// for a complete frame. Unlike FormatError this is a recoverable condition:
// the caller should read more bytes from its source and retry the same
// deserialization call with the grown buffer.
type TruncatedInputError struct {
	// Needed is the total number of bytes required for the next frame. While
	// fewer than FrameHeaderLen bytes are available the declared payload
	// length is still unknown, so Needed is FrameHeaderLen.
	Needed int
	// Have is the number of bytes currently available.
	Have int
}

// Error returns a string representation of the TruncatedInputError.
func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("truncated frame: need %d bytes, have %d", e.Needed, e.Have)
}

// NewTruncatedInputError creates a new TruncatedInputError.
func NewTruncatedInputError(needed, have int) *TruncatedInputError {
	return &TruncatedInputError{Needed: needed, Have: have}
}
