package websocket

import (
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/xerrors"

	"github.com/pwsocket/websocket/internal/errd"
)

// HandshakeRequest is the parsed first request of a connection.
type HandshakeRequest struct {
	Method string
	URL    string
	Proto  string

	// Header maps each header name, exactly as received, to its value.
	// A repeated header keeps its last value.
	Header map[string]string
}

// ParseHandshakeRequest parses the request line and headers in b.
// b must hold the complete head of the request, anything after the
// blank line ending the headers is ignored.
// Errors wrap ErrMalformedRequest.
func ParseHandshakeRequest(b []byte) (_ *HandshakeRequest, err error) {
	defer errd.Wrap(&err, "failed to parse handshake request")

	if !utf8.Valid(b) {
		return nil, xerrors.Errorf("request is not valid UTF-8: %w", ErrMalformedRequest)
	}

	lines := strings.Split(string(b), "\r\n")

	rl := strings.Split(lines[0], " ")
	if len(rl) < 3 {
		return nil, xerrors.Errorf("invalid request line %q: %w", lines[0], ErrMalformedRequest)
	}

	r := &HandshakeRequest{
		Method: rl[0],
		URL:    rl[1],
		Proto:  rl[2],
		Header: make(map[string]string, len(lines)-1),
	}

	for _, l := range lines[1:] {
		if l == "" {
			break
		}
		k, v, ok := strings.Cut(l, ": ")
		if !ok {
			return nil, xerrors.Errorf("invalid header line %q: %w", l, ErrMalformedRequest)
		}
		r.Header[k] = v
	}

	return r, nil
}

// Get returns the value of the header named exactly name.
func (r *HandshakeRequest) Get(name string) (string, bool) {
	v, ok := r.Header[name]
	return v, ok
}

func (r *HandshakeRequest) lookup(name string, fold bool) (string, bool) {
	if !fold {
		return r.Get(name)
	}
	for k, v := range r.Header {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// IsWebSocket reports whether the request asks for a WebSocket upgrade:
// the Connection header lists the Upgrade token and the Upgrade header is
// websocket. Header names and values are matched case-sensitively.
func (r *HandshakeRequest) IsWebSocket() bool {
	return r.isWebSocket(false)
}

// isWebSocket with lenient set matches names and tokens case-insensitively,
// as HTTP defines them.
func (r *HandshakeRequest) isWebSocket(lenient bool) bool {
	conn, ok := r.lookup("Connection", lenient)
	if !ok {
		return false
	}
	upgrade, ok := r.lookup("Upgrade", lenient)
	if !ok {
		return false
	}

	if lenient {
		return httpguts.HeaderValuesContainsToken([]string{conn}, "Upgrade") &&
			httpguts.HeaderValuesContainsToken([]string{upgrade}, "websocket")
	}

	if upgrade != "websocket" {
		return false
	}
	for _, tok := range strings.Split(conn, ",") {
		if strings.TrimSpace(tok) == "Upgrade" {
			return true
		}
	}
	return false
}

// Key returns the Sec-WebSocket-Key of the request.
// It returns ErrMissingKey if the header is absent or empty.
func (r *HandshakeRequest) Key() (string, error) {
	return r.key(false)
}

func (r *HandshakeRequest) key(fold bool) (string, error) {
	key, ok := r.lookup("Sec-WebSocket-Key", fold)
	if !ok || key == "" {
		return "", ErrMissingKey
	}
	return key, nil
}

var keyGUID = []byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11")

// AcceptKey returns the Sec-WebSocket-Accept value for a client key.
// See https://tools.ietf.org/html/rfc6455#section-4.2.2
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write(keyGUID)

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func handshakeResponse(accept string) []byte {
	return []byte("HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n\r\n")
}

// verifyRequest checks r is an upgrade request and returns its key.
func verifyRequest(r *HandshakeRequest, lenient bool) (string, error) {
	if !r.isWebSocket(lenient) {
		conn, _ := r.lookup("Connection", lenient)
		upgrade, _ := r.lookup("Upgrade", lenient)
		return "", xerrors.Errorf("Connection %q and Upgrade %q: %w", conn, upgrade, ErrNotWebSocketRequest)
	}
	return r.key(lenient)
}

// negotiate reads the upgrade request from a freshly accepted conn with a
// single read of up to n bytes and answers it with the 101 response.
// Any error means the attempt was rejected and conn should be discarded,
// nothing is written to conn in that case.
func negotiate(conn net.Conn, n int, lenient bool) (_ *HandshakeRequest, err error) {
	defer errd.Wrap(&err, "failed to negotiate handshake")

	b := make([]byte, n)
	n, err = conn.Read(b)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, xerrors.Errorf("failed to read request: %w", err)
	}

	r, err := ParseHandshakeRequest(b[:n])
	if err != nil {
		return nil, err
	}

	key, err := verifyRequest(r, lenient)
	if err != nil {
		return nil, err
	}

	_, err = conn.Write(handshakeResponse(AcceptKey(key)))
	if err != nil {
		return nil, xerrors.Errorf("failed to write response: %w", err)
	}

	return r, nil
}
