package websocket

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"

	"golang.org/x/xerrors"
)

// First byte contains fin, rsv1, rsv2, rsv3 and the opcode.
// Second byte contains the mask flag and payload len.
// Next 8 bytes are the maximum extended payload length.
// Last 4 bytes are the mask key.
// https://tools.ietf.org/html/rfc6455#section-5.2
const maxHeaderSize = 1 + 1 + 8 + 4

// Frame is a single WebSocket frame decoded from one read.
// See https://tools.ietf.org/html/rfc6455#section-5.2
type Frame struct {
	Fin    bool
	Opcode Opcode

	Masked  bool
	MaskKey uint32

	PayloadLength int64

	// Payload holds the unmasked payload. It is nil for close frames,
	// whose payload is never decoded.
	Payload []byte
}

// Text returns the payload as a string after checking it is valid UTF-8.
func (f Frame) Text() (string, error) {
	if !utf8.Valid(f.Payload) {
		return "", &FrameError{Op: "decode", Err: ErrInvalidUTF8}
	}
	return string(f.Payload), nil
}

// DecodeFrame decodes one client frame from p, which must hold the whole
// frame. Bytes past the declared payload are ignored.
//
// A close frame is returned as soon as its opcode is seen. Any other frame
// must be masked and p must contain all of its declared payload. Decode
// failures are returned as a *FrameError wrapping ErrClientMessageWithoutMask
// or ErrReceiveOutOfRange.
func DecodeFrame(p []byte) (Frame, error) {
	f, err := decodeFrame(p)
	if err != nil {
		return Frame{}, &FrameError{Op: "decode", Err: err}
	}
	return f, nil
}

func decodeFrame(p []byte) (Frame, error) {
	if len(p) == 0 {
		return Frame{}, xerrors.Errorf("empty frame: %w", ErrReceiveOutOfRange)
	}

	var f Frame
	f.Fin = p[0]&(1<<7) != 0
	f.Opcode = Opcode(p[0] & 0xf)

	if f.Opcode == OpClose {
		return f, nil
	}

	if len(p) < 2 {
		return Frame{}, xerrors.Errorf("frame header truncated after %v byte: %w", len(p), ErrReceiveOutOfRange)
	}

	f.Masked = p[1]&(1<<7) != 0
	if !f.Masked {
		return Frame{}, ErrClientMessageWithoutMask
	}

	i := 2
	switch n := p[1] &^ (1 << 7); {
	case n < 126:
		f.PayloadLength = int64(n)
	case n == 126:
		if len(p) < i+2 {
			return Frame{}, xerrors.Errorf("16 bit payload length truncated: %w", ErrReceiveOutOfRange)
		}
		f.PayloadLength = int64(binary.BigEndian.Uint16(p[i:]))
		i += 2
	default:
		if len(p) < i+8 {
			return Frame{}, xerrors.Errorf("64 bit payload length truncated: %w", ErrReceiveOutOfRange)
		}
		l := binary.BigEndian.Uint64(p[i:])
		if l > math.MaxInt64 {
			return Frame{}, xerrors.Errorf("payload length %v has the most significant bit set: %w", l, ErrReceiveOutOfRange)
		}
		f.PayloadLength = int64(l)
		i += 8
	}

	if len(p) < i+4 {
		return Frame{}, xerrors.Errorf("mask key truncated: %w", ErrReceiveOutOfRange)
	}
	f.MaskKey = binary.LittleEndian.Uint32(p[i:])
	i += 4

	if remain := int64(len(p) - i); f.PayloadLength > remain {
		return Frame{}, xerrors.Errorf("declared payload length %v but only %v bytes were received: %w", f.PayloadLength, remain, ErrReceiveOutOfRange)
	}

	f.Payload = make([]byte, f.PayloadLength)
	copy(f.Payload, p[i:])
	mask(f.MaskKey, f.Payload)

	return f, nil
}

// EncodeFrame returns a final, unmasked server frame carrying p.
func EncodeFrame(op Opcode, p []byte) []byte {
	var b bytes.Buffer
	writeFrame(&b, op, p)
	return b.Bytes()
}

// writeFrame appends the header and payload of a final, unmasked frame to b.
// Servers never mask, see https://tools.ietf.org/html/rfc6455#section-5.1
func writeFrame(b *bytes.Buffer, op Opcode, p []byte) {
	var h [maxHeaderSize]byte
	h[0] = 1<<7 | byte(op)

	n := 2
	switch l := len(p); {
	case l < 126:
		h[1] = byte(l)
	case l <= math.MaxUint16:
		h[1] = 126
		binary.BigEndian.PutUint16(h[n:], uint16(l))
		n += 2
	default:
		h[1] = 127
		binary.BigEndian.PutUint64(h[n:], uint64(l))
		n += 8
	}

	b.Grow(n + len(p))
	b.Write(h[:n])
	b.Write(p)
}
