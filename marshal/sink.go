// sink.go: the growable byte sink the encoder appends to (§2 "Growable byte
// sink"). It is a thin abstraction over the host's buffer type so callers
// that already have a preallocated buffer (e.g. reusing one across many
// marshal calls to cut allocations) can supply it instead of forcing a fresh
// bytes.Buffer every time.
package marshal

import "bytes"

// Sink is an append-only byte buffer. *bytes.Buffer already satisfies it.
type Sink interface {
	WriteByte(b byte) error
	Write(p []byte) (int, error)
	Bytes() []byte
	Len() int
}

// NewSink returns a freshly allocated Sink, used when Marshal is not given
// one explicitly.
func NewSink() Sink {
	return new(bytes.Buffer)
}

func pushBytes(s Sink, b []byte) {
	s.Write(b)
}
