package websocket

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/pwsocket/websocket/internal/errd"
)

// Upgrade upgrades a request received by a net/http server and returns an
// open Session on the hijacked connection.
//
// net/http canonicalizes header names, so the request is always checked the
// way cfg.LenientHeaders does. A request that is not an upgrade is answered
// with 400 Bad Request and the returned error wraps ErrNotWebSocketRequest.
// The listener settings in cfg are unused.
func Upgrade(w http.ResponseWriter, r *http.Request, cfg Config) (_ *Session, err error) {
	defer errd.Wrap(&err, "failed to upgrade to websocket")

	req := &HandshakeRequest{
		Method: r.Method,
		URL:    r.RequestURI,
		Proto:  r.Proto,
		Header: make(map[string]string, len(r.Header)),
	}
	for k, v := range r.Header {
		req.Header[k] = strings.Join(v, ", ")
	}
	// net/http moves Host out of the header map.
	req.Header["Host"] = r.Host

	key, err := verifyRequest(req, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		err = xerrors.New("response writer does not implement http.Hijacker")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, err
	}

	conn, brw, err := hj.Hijack()
	if err != nil {
		err = xerrors.Errorf("failed to hijack connection: %w", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, err
	}

	if brw.Reader.Buffered() > 0 {
		conn.Close()
		return nil, xerrors.New("client sent data before the handshake completed")
	}

	_, err = conn.Write(handshakeResponse(AcceptKey(key)))
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Op: "write", Err: err}
	}

	// Deadlines set by the http.Server no longer apply.
	err = conn.SetDeadline(time.Time{})
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Op: "set deadline", Err: err}
	}

	s := NewSession(cfg)
	s.setState(StateAccepted)
	err = s.open(conn, req)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}
