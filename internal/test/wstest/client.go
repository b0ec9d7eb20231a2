package wstest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/xerrors"
)

// Key is the sample nonce from RFC 6455 section 1.3.
const Key = "dGhlIHNhbXBsZSBub25jZQ=="

// Accept is the Sec-WebSocket-Accept value for Key.
const Accept = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="

// UpgradeRequest returns a minimal upgrade request for key.
func UpgradeRequest(key string) []byte {
	return []byte("GET /chat HTTP/1.1\r\n" +
		"Host: server.example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n")
}

// Handshake writes the upgrade request for Key to c in one write
// and reads the server response. It errors unless the server switched protocols.
func Handshake(c net.Conn) error {
	_, err := c.Write(UpgradeRequest(Key))
	if err != nil {
		return xerrors.Errorf("failed to write upgrade request: %w", err)
	}

	b := make([]byte, 1024)
	n, err := c.Read(b)
	if err != nil {
		return xerrors.Errorf("failed to read upgrade response: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(b[:n])), nil)
	if err != nil {
		return xerrors.Errorf("failed to parse upgrade response: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return fmt.Errorf("unexpected status: %v", resp.Status)
	}
	if got := resp.Header.Get("Sec-WebSocket-Accept"); got != Accept {
		return fmt.Errorf("unexpected Sec-WebSocket-Accept: %q", got)
	}
	return nil
}

// Conn is a client connection dialed with github.com/gobwas/ws.
type Conn struct {
	net.Conn
	r io.Reader
}

// Client performs Handshake on c and returns it as a client connection.
func Client(c net.Conn) (*Conn, error) {
	err := Handshake(c)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: c, r: c}, nil
}

// Dial connects to the server at addr with the gobwas client.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	c, br, _, err := ws.Dial(ctx, "ws://"+addr)
	if err != nil {
		return nil, xerrors.Errorf("failed to dial %v: %w", addr, err)
	}
	cc := &Conn{Conn: c, r: c}
	if br != nil {
		cc.r = io.MultiReader(br, c)
	}
	return cc, nil
}

// WriteText sends p as one masked text frame in a single write.
// The server decodes exactly one read, so the frame must not be split.
func (c *Conn) WriteText(p string) error {
	_, err := c.Conn.Write(ClientFrame(ws.OpText, []byte(p)))
	return err
}

// ReadText reads the next server frame, which must be a text frame.
func (c *Conn) ReadText() (string, error) {
	b, err := wsutil.ReadServerText(struct {
		io.Reader
		io.Writer
	}{c.r, c.Conn})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadFrame reads the next server frame header and payload.
func (c *Conn) ReadFrame() (ws.Header, []byte, error) {
	h, err := ws.ReadHeader(c.r)
	if err != nil {
		return ws.Header{}, nil, err
	}
	p := make([]byte, h.Length)
	_, err = io.ReadFull(c.r, p)
	return h, p, err
}
