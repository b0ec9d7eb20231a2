// Package wstest builds client side traffic for exercising the server.
// It does not import the server package so that in package tests can use it.
package wstest

import (
	"github.com/gobwas/ws"
)

// ClientFrame returns the wire bytes of a single final frame carrying p,
// masked with a random key as a browser would send it.
func ClientFrame(op ws.OpCode, p []byte) []byte {
	return compile(ws.MaskFrame(ws.NewFrame(op, true, p)))
}

// ClientFrameWith is ClientFrame with a fixed mask key.
func ClientFrameWith(op ws.OpCode, p []byte, mask [4]byte) []byte {
	return compile(ws.MaskFrameWith(ws.NewFrame(op, true, p), mask))
}

// UnmaskedFrame returns the wire bytes of a frame carrying p without a mask,
// which servers must reject.
func UnmaskedFrame(op ws.OpCode, p []byte) []byte {
	return compile(ws.NewFrame(op, true, p))
}

func compile(f ws.Frame) []byte {
	b, err := ws.CompileFrame(f)
	if err != nil {
		panic(err)
	}
	return b
}
