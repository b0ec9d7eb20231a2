package websocket

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Errors returned by Session and the frame codec. Use errors.Is to test for
// them, they are usually wrapped with context.
var (
	// ErrConnectionFailure is returned when a connection could not be
	// accepted, or when the socket of an open session failed or timed out.
	ErrConnectionFailure = xerrors.New("websocket connection failure happened")

	// ErrConnectionClosed is returned by any operation on a closed session
	// and when the peer went away.
	ErrConnectionClosed = xerrors.New("websocket connection was closed")

	// ErrReceiveOutOfRange is returned when a frame declares more bytes than
	// were received.
	ErrReceiveOutOfRange = xerrors.New("received a message out of range")

	// ErrClientMessageWithoutMask is returned when a client frame is not masked.
	ErrClientMessageWithoutMask = xerrors.New("client message without mask")

	// ErrInvalidUTF8 is returned when a text payload is not valid UTF-8.
	ErrInvalidUTF8 = xerrors.New("received a message that is not valid UTF-8")

	// ErrNotWebSocketRequest is returned when the first request on a
	// connection does not ask for a WebSocket upgrade.
	ErrNotWebSocketRequest = xerrors.New("request is not for websocket")

	// ErrMissingKey is returned when an upgrade request has no
	// Sec-WebSocket-Key. It wraps ErrNotWebSocketRequest.
	ErrMissingKey = xerrors.Errorf("missing Sec-WebSocket-Key: %w", ErrNotWebSocketRequest)

	// ErrMalformedRequest is returned when the upgrade request cannot be parsed.
	ErrMalformedRequest = xerrors.New("malformed handshake request")
)

// FrameError is returned when an inbound frame cannot be decoded.
// The session that received it has already been closed.
type FrameError struct {
	Op  string
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("failed to %v frame: %v", e.Op, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// ConnectionError is a socket level failure. It matches ErrConnectionFailure
// with errors.Is and unwraps to the underlying error, so callers can still
// test for os.ErrDeadlineExceeded or a net.Error.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%v: failed to %v: %v", ErrConnectionFailure, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConnectionFailure.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailure
}
