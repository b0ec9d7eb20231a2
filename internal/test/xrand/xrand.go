// Package xrand generates random test payloads.
package xrand

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Bytes generates random bytes with length n.
func Bytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Reader.Read(b)
	if err != nil {
		panic(fmt.Sprintf("failed to generate rand bytes: %v", err))
	}
	return b
}

// String generates a random ASCII string with length n.
func String(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[Int(len(alphabet))])
	}
	return sb.String()
}

var multibyte = []string{"é", "ß", "Ж", "水", "€", "🙂"}

// UTF8 generates a random valid UTF-8 string whose encoding is exactly
// n bytes long. Multi byte runes are mixed in until fewer than four bytes
// remain, the tail is padded with ASCII.
func UTF8(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for sb.Len() < n {
		left := n - sb.Len()
		r := multibyte[Int(len(multibyte))]
		if len(r) <= left && Bool() {
			sb.WriteString(r)
			continue
		}
		sb.WriteByte('a' + byte(Int(26)))
	}
	return sb.String()
}

// Bool returns a randomly generated boolean.
func Bool() bool {
	return Int(2) == 1
}

// Int returns a randomly generated integer between [0, max).
func Int(max int) int {
	x, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("failed to get random int: %v", err))
	}
	return int(x.Int64())
}
