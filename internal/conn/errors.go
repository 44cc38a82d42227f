package conn

import "fmt"

// ConnectionClosedError reports that the peer closed the transport while the
// client was still short of a complete frame. It is fatal for the
// connection.
type ConnectionClosedError struct {
	// Buffered is how many bytes of the incomplete frame had been received.
	Buffered int
}

// Error returns a string representation of the ConnectionClosedError.
func (e *ConnectionClosedError) Error() string {
	return fmt.Sprintf("connection closed by peer mid-frame (%d bytes buffered)", e.Buffered)
}

// ProtocolError reports that a received frame violates a handshake-level
// expectation, such as the first frame not being SETTINGS. It is fatal: the
// handshake aborts and the connection must be closed.
type ProtocolError struct {
	Msg string
}

// Error returns a string representation of the ProtocolError.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("http2 protocol error: %s", e.Msg)
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}
