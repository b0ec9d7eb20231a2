package websocket

import (
	"time"

	"cdr.dev/slog"
)

// Config configures a Session. The zero value listens on port 80 of all
// interfaces with no timeouts.
type Config struct {
	// Host and Port are the address Accept listens on.
	// Port defaults to 80.
	Host string
	Port int

	// BufferSize is the size of the single read that must contain a whole
	// inbound frame. Defaults to 4096.
	BufferSize int

	// HandshakeBufferSize is the size of the single read that must contain
	// the whole upgrade request. Defaults to 1024.
	HandshakeBufferSize int

	// ReadTimeout bounds every read from the peer, including the upgrade
	// request. Zero means no timeout.
	ReadTimeout time.Duration

	// WriteTimeout bounds every write to the peer. Zero means no timeout.
	WriteTimeout time.Duration

	// AcceptTimeout bounds how long Accept waits for a client to complete
	// the upgrade, rejected attempts included. Zero means no timeout.
	AcceptTimeout time.Duration

	// LenientHeaders matches the Connection and Upgrade headers the way HTTP
	// defines them, ignoring case. By default names and values must match
	// exactly.
	LenientHeaders bool

	// OnReceive, if set, is called with every text message before Receive
	// returns it. It runs on the receiving goroutine and must not block.
	OnReceive func(s *Session, msg string)

	// Logger receives the session's logs. The zero Logger discards them.
	Logger slog.Logger
}

func (c Config) port() int {
	if c.Port <= 0 {
		return 80
	}
	return c.Port
}

func (c Config) bufferSize() int {
	if c.BufferSize <= 0 {
		return 4096
	}
	return c.BufferSize
}

func (c Config) handshakeBufferSize() int {
	if c.HandshakeBufferSize <= 0 {
		return 1024
	}
	return c.HandshakeBufferSize
}
