package websocket

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/pwsocket/websocket/internal/test/assert"
	"github.com/pwsocket/websocket/internal/test/wstest"
)

func TestAcceptKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		key    string
		accept string
	}{
		// https://tools.ietf.org/html/rfc6455#section-1.3
		{wstest.Key, wstest.Accept},
		{"x3JJHMbDL1EzLkh9GBhXDw==", "HSmrc0sMlYUkAGmm5OPpG2HaGWk="},
	}

	for _, tc := range testCases {
		assert.Equal(t, "accept key", tc.accept, AcceptKey(tc.key))
	}
}

func TestParseHandshakeRequest(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		req     string
		exp     *HandshakeRequest
		success bool
	}{
		{
			name: "upgrade",
			req:  string(wstest.UpgradeRequest(wstest.Key)),
			exp: &HandshakeRequest{
				Method: "GET",
				URL:    "/chat",
				Proto:  "HTTP/1.1",
				Header: map[string]string{
					"Host":                  "server.example.com",
					"Upgrade":               "websocket",
					"Connection":            "Upgrade",
					"Sec-WebSocket-Key":     wstest.Key,
					"Sec-WebSocket-Version": "13",
				},
			},
			success: true,
		},
		{
			name: "firstSeparatorOnly",
			req:  "GET / HTTP/1.1\r\nX-Time: 12: 30\r\n\r\n",
			exp: &HandshakeRequest{
				Method: "GET",
				URL:    "/",
				Proto:  "HTTP/1.1",
				Header: map[string]string{"X-Time": "12: 30"},
			},
			success: true,
		},
		{
			name: "namesKeepCase",
			req:  "GET / HTTP/1.1\r\nsec-websocket-key: abc\r\n\r\n",
			exp: &HandshakeRequest{
				Method: "GET",
				URL:    "/",
				Proto:  "HTTP/1.1",
				Header: map[string]string{"sec-websocket-key": "abc"},
			},
			success: true,
		},
		{
			name: "bodyIgnored",
			req:  "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello",
			exp: &HandshakeRequest{
				Method: "POST",
				URL:    "/",
				Proto:  "HTTP/1.1",
				Header: map[string]string{"Content-Length": "5"},
			},
			success: true,
		},
		{
			name: "noHeaders",
			req:  "GET / HTTP/1.1",
			exp: &HandshakeRequest{
				Method: "GET",
				URL:    "/",
				Proto:  "HTTP/1.1",
				Header: map[string]string{},
			},
			success: true,
		},
		{
			name: "shortRequestLine",
			req:  "GET /\r\n\r\n",
		},
		{
			name: "garbage",
			req:  "\x16\x03\x01\x02\x00\x01\x00\x01\xfc\x03\x03",
		},
		{
			name: "headerWithoutSeparator",
			req:  "GET / HTTP/1.1\r\nUpgrade:websocket\r\n\r\n",
		},
		{
			name: "empty",
			req:  "",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := ParseHandshakeRequest([]byte(tc.req))
			if !tc.success {
				assert.ErrorIs(t, ErrMalformedRequest, err)
				return
			}
			assert.Success(t, err)
			assert.Equal(t, "request", tc.exp, r)
		})
	}
}

func TestHandshakeRequest_IsWebSocket(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		h       map[string]string
		strict  bool
		lenient bool
	}{
		{
			name:    "exact",
			h:       map[string]string{"Connection": "Upgrade", "Upgrade": "websocket"},
			strict:  true,
			lenient: true,
		},
		{
			name:    "tokenList",
			h:       map[string]string{"Connection": "keep-alive, Upgrade", "Upgrade": "websocket"},
			strict:  true,
			lenient: true,
		},
		{
			name:    "lowerConnectionToken",
			h:       map[string]string{"Connection": "upgrade", "Upgrade": "websocket"},
			lenient: true,
		},
		{
			name:    "mixedCaseUpgrade",
			h:       map[string]string{"Connection": "Upgrade", "Upgrade": "WebSocket"},
			lenient: true,
		},
		{
			name:    "lowerNames",
			h:       map[string]string{"connection": "Upgrade", "upgrade": "websocket"},
			lenient: true,
		},
		{
			name: "missingUpgrade",
			h:    map[string]string{"Connection": "Upgrade"},
		},
		{
			name: "missingConnection",
			h:    map[string]string{"Upgrade": "websocket"},
		},
		{
			name: "otherProtocol",
			h:    map[string]string{"Connection": "Upgrade", "Upgrade": "h2c"},
		},
		{
			name: "notAToken",
			h:    map[string]string{"Connection": "NoUpgrade", "Upgrade": "websocket"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := &HandshakeRequest{Method: "GET", URL: "/", Proto: "HTTP/1.1", Header: tc.h}
			assert.Equal(t, "strict", tc.strict, r.IsWebSocket())
			assert.Equal(t, "lenient", tc.lenient, r.isWebSocket(true))
		})
	}
}

func TestHandshakeRequest_Key(t *testing.T) {
	t.Parallel()

	r := &HandshakeRequest{Header: map[string]string{"Sec-WebSocket-Key": wstest.Key}}
	key, err := r.Key()
	assert.Success(t, err)
	assert.Equal(t, "key", wstest.Key, key)

	for _, h := range []map[string]string{
		{},
		{"Sec-WebSocket-Key": ""},
		{"sec-websocket-key": wstest.Key},
	} {
		r := &HandshakeRequest{Header: h}
		_, err := r.Key()
		assert.ErrorIs(t, ErrMissingKey, err)
		assert.ErrorIs(t, ErrNotWebSocketRequest, err)
	}

	r = &HandshakeRequest{Header: map[string]string{"sec-websocket-key": wstest.Key}}
	key, err = r.key(true)
	assert.Success(t, err)
	assert.Equal(t, "folded key", wstest.Key, key)
}

func Test_handshakeResponse(t *testing.T) {
	t.Parallel()

	exp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n\r\n"
	assert.Equal(t, "response", exp, string(handshakeResponse(AcceptKey(wstest.Key))))
}

func Test_negotiate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		req     []byte
		lenient bool
		expErr  error
	}{
		{
			name: "upgrade",
			req:  wstest.UpgradeRequest(wstest.Key),
		},
		{
			name:    "lenientUpgrade",
			req:     []byte("GET / HTTP/1.1\r\nconnection: upgrade\r\nupgrade: WebSocket\r\nsec-websocket-key: " + wstest.Key + "\r\n\r\n"),
			lenient: true,
		},
		{
			name:   "plainHTTP",
			req:    []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
			expErr: ErrNotWebSocketRequest,
		},
		{
			name:   "strictCase",
			req:    []byte("GET / HTTP/1.1\r\nConnection: upgrade\r\nUpgrade: websocket\r\nSec-WebSocket-Key: " + wstest.Key + "\r\n\r\n"),
			expErr: ErrNotWebSocketRequest,
		},
		{
			name:   "missingKey",
			req:    []byte("GET / HTTP/1.1\r\nConnection: Upgrade\r\nUpgrade: websocket\r\n\r\n"),
			expErr: ErrMissingKey,
		},
		{
			name:   "malformed",
			req:    []byte("hello\r\n\r\n"),
			expErr: ErrMalformedRequest,
		},
		{
			name:   "silent",
			expErr: io.EOF,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server, client := net.Pipe()
			defer client.Close()
			client.SetDeadline(time.Now().Add(time.Second * 10))

			resp := make(chan []byte, 1)
			go func() {
				defer close(resp)
				if len(tc.req) == 0 {
					client.Close()
					return
				}
				_, err := client.Write(tc.req)
				if err != nil {
					return
				}
				b, _ := io.ReadAll(client)
				resp <- b
			}()

			r, err := negotiate(server, 1024, tc.lenient)
			server.Close()
			b := <-resp

			if tc.expErr != nil {
				assert.ErrorIs(t, tc.expErr, err)
				assert.Equal(t, "response", 0, len(b))
				return
			}
			assert.Success(t, err)
			assert.Equal(t, "method", "GET", r.Method)
			assert.Equal(t, "response", string(handshakeResponse(wstest.Accept)), string(b))
		})
	}
}
