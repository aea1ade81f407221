// api.go: the public entry points (§4.12). A Codec bundles the host
// configuration a call needs beyond the value itself: the opaque type
// registry and the bytecode verifier. Zero-value Codec is usable directly —
// marshaling values that never touch opaque types or closures works with no
// setup at all.
package marshal

import (
	ms "github.com/tekknolagi/janet"
)

// Codec holds host-supplied hooks shared across many marshal/unmarshal
// calls. Safe for concurrent use: each call builds its own encodeState or
// decodeState.
type Codec struct {
	// Types resolves opaque type names on decode (§4.6). Nil rejects every
	// opaque value.
	Types *TypeRegistry

	// Verify is the host bytecode verifier (§4.7). Nil accepts any decoded
	// definition, which is only appropriate for trusted input (tests,
	// same-process round-trips); production decoders of untrusted bytes
	// must set this.
	Verify func(def *ms.FuncDef) bool
}

// Marshal encodes one value to sink (freshly allocated via NewSink if nil),
// consulting reverseRegistry (may be nil) as described in §4.5.
func (c *Codec) Marshal(v ms.Value, reverseRegistry map[identityKey]ms.Value, sink Sink) (Sink, error) {
	if sink == nil {
		sink = NewSink()
	}
	st := newEncodeState(sink, reverseRegistry)
	if err := encodeValue(st, v); err != nil {
		return nil, err
	}
	return sink, nil
}

// Unmarshal decodes one value starting at data[0], consulting
// forwardRegistry (may be nil). next is the offset of the first byte not
// consumed, so callers can decode concatenated values in sequence.
func (c *Codec) Unmarshal(data []byte, forwardRegistry map[string]ms.Value) (value ms.Value, next int, err error) {
	var types func(ms.Keyword) (*ms.OpaqueType, bool)
	if c.Types != nil {
		types = c.Types.Get
	}
	st := newDecodeState(data, forwardRegistry, types, c.Verify)
	v, err := decodeValue(st)
	if err != nil {
		return ms.Null, 0, err
	}
	return v, st.off, nil
}

// Marshal is the zero-configuration entry point: no opaque types, no
// bytecode verification. Suitable for trusted same-process round-trips and
// values that never contain closures or opaque data.
func Marshal(v ms.Value, reverseRegistry map[string]ms.Value) (Sink, error) {
	c := &Codec{}
	var rev map[identityKey]ms.Value
	if reverseRegistry != nil {
		rev = ReverseRegistry(reverseRegistry)
	}
	return c.Marshal(v, rev, nil)
}

// Unmarshal is the zero-configuration entry point matching Marshal.
func Unmarshal(data []byte, forwardRegistry map[string]ms.Value) (ms.Value, int, error) {
	c := &Codec{}
	return c.Unmarshal(data, forwardRegistry)
}
