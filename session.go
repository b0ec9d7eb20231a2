package websocket

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"cdr.dev/slog"
	"golang.org/x/xerrors"

	"github.com/pwsocket/websocket/internal/bpool"
)

// Session is one server side WebSocket connection.
//
// A Session is owned by a single goroutine: Receive and Send block on the
// socket and must not be called concurrently with each other. State and Close
// may be called from any goroutine. Closing the session unblocks a pending
// Receive, a pending accept or handshake, and is never undone.
type Session struct {
	cfg   Config
	log   slog.Logger
	state atomic.Int32

	// closeMu guards conn, pending and interrupt, which Close reads
	// from any goroutine. pending is the connection being negotiated and
	// interrupt wakes up a blocked accept.
	closeMu   sync.Mutex
	conn      net.Conn
	pending   net.Conn
	interrupt func()

	req *HandshakeRequest
	buf []byte
}

// NewSession returns an unconnected session.
// Call Accept, AcceptListener or Adopt to establish the connection.
func NewSession(cfg Config) *Session {
	return &Session{
		cfg: cfg,
		log: cfg.Logger.Named("websocket"),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// transition moves the session from one state to another. It fails if the
// session is in any other state, with ErrConnectionClosed once it is closed.
func (s *Session) transition(from, to State) error {
	if s.state.CompareAndSwap(int32(from), int32(to)) {
		return nil
	}
	st := s.State()
	if st == StateClosed {
		return ErrConnectionClosed
	}
	return xerrors.Errorf("session is %v, not %v", st, from)
}

// RemoteAddr returns the address of the peer, or nil if the session never
// opened.
func (s *Session) RemoteAddr() net.Addr {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}

// Request returns the upgrade request the session was opened with.
func (s *Session) Request() *HandshakeRequest {
	return s.req
}

// open hands conn to the session. It fails with ErrConnectionClosed if the
// session was closed while the connection was negotiated, the caller then
// owns conn.
func (s *Session) open(conn net.Conn, req *HandshakeRequest) error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	err := s.transition(StateAccepted, StateOpen)
	if err != nil {
		return err
	}

	s.conn = conn
	s.req = req
	s.buf = make([]byte, s.cfg.bufferSize())
	s.log = s.log.With(slog.F("remote_addr", conn.RemoteAddr().String()))

	s.log.Info(context.Background(), "websocket connection established", slog.F("url", req.URL))
	return nil
}

// Receive waits for the next text message.
//
// When the peer sends a close frame the session is closed and Receive
// returns an empty string and a nil error, the following call returns
// ErrConnectionClosed. See ReceiveMessage to tell the two apart.
func (s *Session) Receive() (string, error) {
	m, err := s.ReceiveMessage()
	if err != nil {
		return "", err
	}
	return m.Text, nil
}

// ReceiveMessage performs a single read and decodes the frame it contains.
//
// It returns ErrConnectionClosed without touching the socket if the
// session is not open, and when the peer closed the socket.
// Read failures and timeouts are returned as a *ConnectionError.
// An unmasked or truncated frame is returned as a *FrameError.
// In all those cases the session is closed before returning.
func (s *Session) ReceiveMessage() (Message, error) {
	if s.State() != StateOpen {
		return Message{}, ErrConnectionClosed
	}

	if s.cfg.ReadTimeout > 0 {
		err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if err != nil {
			s.Close()
			return Message{}, &ConnectionError{Op: "read", Err: err}
		}
	}

	n, err := s.conn.Read(s.buf)
	if n == 0 {
		s.Close()
		if err == nil || errors.Is(err, io.EOF) {
			return Message{}, xerrors.Errorf("peer closed the socket: %w", ErrConnectionClosed)
		}
		if s.closedLocally(err) {
			return Message{}, ErrConnectionClosed
		}
		return Message{}, &ConnectionError{Op: "read", Err: err}
	}

	f, err := DecodeFrame(s.buf[:n])
	if err != nil {
		s.log.Debug(context.Background(), "closing after invalid frame", slog.Error(err))
		s.Close()
		return Message{}, err
	}

	if f.Opcode == OpClose {
		s.log.Debug(context.Background(), "peer requested close")
		s.Close()
		return Message{Type: MessageClose}, nil
	}

	text, err := f.Text()
	if err != nil {
		s.Close()
		return Message{}, err
	}

	if s.cfg.OnReceive != nil && s.State() == StateOpen {
		s.cfg.OnReceive(s, text)
	}

	return Message{Type: MessageText, Text: text}, nil
}

// closedLocally reports whether a read failed because Close was called
// while it was blocked.
func (s *Session) closedLocally(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// Send writes msg as a single text frame.
//
// It returns ErrConnectionClosed without touching the socket if the session
// is not open. A failed write closes the session and is returned as a
// *ConnectionError.
func (s *Session) Send(msg string) error {
	if s.State() != StateOpen {
		return ErrConnectionClosed
	}

	err := s.writeFrame(OpText, []byte(msg))
	if err != nil {
		s.Close()
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

func (s *Session) writeFrame(op Opcode, p []byte) error {
	b := bpool.Get(maxHeaderSize + len(p))
	defer bpool.Put(b)

	writeFrame(b, op, p)

	if s.cfg.WriteTimeout > 0 {
		err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err != nil {
			return err
		}
	}

	_, err := s.conn.Write(b.Bytes())
	return err
}

// Close closes the session. It is a no-op on a closed session.
//
// A session that is still accepting stops: the blocked accept or handshake
// is interrupted and Accept returns ErrConnectionClosed.
// An open session first sends an empty close frame. Failing to send it is
// not an error, the socket is closed regardless and only the error from
// closing it is returned.
func (s *Session) Close() error {
	if State(s.state.Swap(int32(StateClosed))) == StateClosed {
		return nil
	}

	s.closeMu.Lock()
	if s.interrupt != nil {
		s.interrupt()
	}
	if s.pending != nil {
		s.pending.Close()
	}
	conn := s.conn
	s.closeMu.Unlock()

	if conn == nil {
		return nil
	}

	err := s.writeFrame(OpClose, nil)
	if err != nil {
		s.log.Debug(context.Background(), "failed to send close frame", slog.Error(err))
	}

	s.log.Debug(context.Background(), "websocket connection closed")
	return conn.Close()
}
