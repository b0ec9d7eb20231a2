// Package bpool pools the buffers outbound frames are assembled in.
package bpool

import (
	"bytes"
	"sync"
)

var bpool sync.Pool

// Get returns an empty buffer with room for at least n bytes.
func Get(n int) *bytes.Buffer {
	b, ok := bpool.Get().(*bytes.Buffer)
	if !ok {
		b = &bytes.Buffer{}
	}
	b.Grow(n)
	return b
}

// Put resets b and returns it to the pool.
// Buffers that grew past 1 MiB are dropped so one large message
// does not pin its memory for the life of the process.
func Put(b *bytes.Buffer) {
	if b.Cap() > 1<<20 {
		return
	}
	b.Reset()
	bpool.Put(b)
}
