package websocket

import (
	"context"
	"net"
	"strconv"
	"time"

	"cdr.dev/slog"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/pwsocket/websocket/internal/errd"
)

// Accept listens on cfg.Host:cfg.Port and blocks until a client completes
// the WebSocket upgrade, then stops listening and leaves the session open.
//
// See AcceptListener for how connection attempts are handled.
func (s *Session) Accept(ctx context.Context) (err error) {
	defer errd.Wrap(&err, "failed to accept websocket connection")

	err = s.checkUnconnected()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.port()))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		s.setState(StateClosed)
		return &ConnectionError{Op: "listen", Err: err}
	}

	err = s.acceptLoop(ctx, l)
	return multierr.Append(err, l.Close())
}

// AcceptListener is like Accept but accepts on a listener owned by the
// caller, which is left open.
//
// Connection attempts that do not complete the upgrade, because the client
// sent nothing, sent a malformed request or a request that is not a
// WebSocket upgrade, are closed and the session keeps accepting.
//
// A failure to accept, expiry of cfg.AcceptTimeout or cancellation of ctx
// closes the session and returns a *ConnectionError matching
// ErrConnectionFailure. Calling Close stops accepting and returns an error
// wrapping ErrConnectionClosed. Cancellation and Close interrupt a blocked
// accept only if l supports SetDeadline, as *net.TCPListener does.
func (s *Session) AcceptListener(ctx context.Context, l net.Listener) (err error) {
	defer errd.Wrap(&err, "failed to accept websocket connection")

	err = s.checkUnconnected()
	if err != nil {
		return err
	}
	return s.acceptLoop(ctx, l)
}

// Adopt performs the upgrade on conn, which was accepted by the caller.
// Unlike AcceptListener there is a single attempt, on rejection conn is
// closed, the session is closed and the error is returned.
// Close interrupts the handshake by closing conn.
func (s *Session) Adopt(conn net.Conn) (err error) {
	defer errd.Wrap(&err, "failed to adopt connection")

	s.closeMu.Lock()
	err = s.transition(StateUnconnected, StateAccepted)
	if err == nil {
		s.pending = conn
	}
	s.closeMu.Unlock()
	if err != nil {
		return err
	}

	req, err := s.handshake(conn, time.Time{})

	s.closeMu.Lock()
	s.pending = nil
	s.closeMu.Unlock()

	if err == nil {
		err = s.open(conn, req)
	}
	if err != nil {
		conn.Close()
		if State(s.state.Swap(int32(StateClosed))) == StateClosed {
			return xerrors.Errorf("session closed during handshake: %w", ErrConnectionClosed)
		}
		return err
	}
	return nil
}

func (s *Session) checkUnconnected() error {
	if st := s.State(); st != StateUnconnected {
		if st == StateClosed {
			return ErrConnectionClosed
		}
		return xerrors.Errorf("session is %v, not %v", st, StateUnconnected)
	}
	return nil
}

type deadlineListener interface {
	SetDeadline(t time.Time) error
}

func (s *Session) acceptLoop(ctx context.Context, l net.Listener) error {
	err := s.transition(StateUnconnected, StateListening)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "listening for websocket connection", slog.F("addr", l.Addr().String()))

	var acceptDeadline time.Time
	if s.cfg.AcceptTimeout > 0 {
		acceptDeadline = time.Now().Add(s.cfg.AcceptTimeout)
	}

	dl, canInterrupt := l.(deadlineListener)
	if canInterrupt {
		if !acceptDeadline.IsZero() {
			err := dl.SetDeadline(acceptDeadline)
			if err != nil {
				return s.fail(&ConnectionError{Op: "accept", Err: err})
			}
		}
		defer dl.SetDeadline(time.Time{})

		stop := context.AfterFunc(ctx, func() {
			// Wakes up the blocked Accept below.
			dl.SetDeadline(time.Unix(1, 0))
		})
		defer stop()

		// Close wakes up a blocked Accept the same way.
		s.closeMu.Lock()
		s.interrupt = func() {
			dl.SetDeadline(time.Unix(1, 0))
		}
		s.closeMu.Unlock()
	}
	defer func() {
		s.closeMu.Lock()
		s.interrupt = nil
		s.pending = nil
		s.closeMu.Unlock()
	}()

	for {
		if s.State() == StateClosed {
			return s.interrupted()
		}
		if ctx.Err() != nil {
			return s.fail(&ConnectionError{Op: "accept", Err: ctx.Err()})
		}

		conn, err := l.Accept()
		if err != nil {
			if s.State() == StateClosed {
				return s.interrupted()
			}
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return s.fail(&ConnectionError{Op: "accept", Err: err})
		}

		s.closeMu.Lock()
		err = s.transition(StateListening, StateAccepted)
		if err == nil {
			s.pending = conn
		}
		s.closeMu.Unlock()
		if err != nil {
			conn.Close()
			return s.interrupted()
		}

		req, err := s.handshake(conn, acceptDeadline)

		s.closeMu.Lock()
		s.pending = nil
		s.closeMu.Unlock()

		if err != nil {
			s.log.Debug(ctx, "rejected connection attempt",
				slog.F("remote_addr", conn.RemoteAddr().String()),
				slog.Error(err),
			)
			if s.transition(StateAccepted, StateListening) != nil {
				conn.Close()
				return s.interrupted()
			}
			conn.Close()
			continue
		}

		err = s.open(conn, req)
		if err != nil {
			conn.Close()
			return s.interrupted()
		}
		return nil
	}
}

// handshake negotiates the upgrade on conn within ReadTimeout, and no later
// than limit if it is set. The deadline is cleared on success.
func (s *Session) handshake(conn net.Conn, limit time.Time) (*HandshakeRequest, error) {
	var d time.Time
	if s.cfg.ReadTimeout > 0 {
		d = time.Now().Add(s.cfg.ReadTimeout)
	}
	if !limit.IsZero() && (d.IsZero() || limit.Before(d)) {
		d = limit
	}
	if !d.IsZero() {
		err := conn.SetDeadline(d)
		if err != nil {
			return nil, xerrors.Errorf("failed to set handshake deadline: %w", err)
		}
		defer conn.SetDeadline(time.Time{})
	}

	return negotiate(conn, s.cfg.handshakeBufferSize(), s.cfg.LenientHeaders)
}

// interrupted reports that Close stopped the accept loop.
func (s *Session) interrupted() error {
	s.log.Debug(context.Background(), "session closed while accepting")
	return xerrors.Errorf("session closed while accepting: %w", ErrConnectionClosed)
}

func (s *Session) fail(err error) error {
	s.setState(StateClosed)
	s.log.Warn(context.Background(), "stopped accepting", slog.Error(err))
	return err
}
