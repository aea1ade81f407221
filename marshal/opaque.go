// opaque.go: the opaque-value codec (§4.6) and the host type registry it
// dispatches through. Host code registers a *mindscript.OpaqueType once at
// startup; every opaque value of that type is marshaled by name plus a
// callback round-trip instead of by structural copy.
package marshal

import (
	"sync"

	ms "github.com/tekknolagi/janet"
)

// TypeRegistry is the host's get_opaque_type table (§6). Safe for
// concurrent registration and lookup; lookups happen on every decode so a
// RWMutex keeps the common (read-only, post-startup) path cheap.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[ms.Keyword]*ms.OpaqueType
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[ms.Keyword]*ms.OpaqueType)}
}

// Register installs t under its own name, overwriting any previous entry.
func (r *TypeRegistry) Register(t *ms.OpaqueType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Name] = t
}

// Get resolves a type by name, matching the get_opaque_type host interface.
func (r *TypeRegistry) Get(name ms.Keyword) (*ms.OpaqueType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// opaqueWriter adapts an encodeState into the mindscript.OpaqueWriter
// interface an opaque type's Marshal callback receives.
type opaqueWriter struct {
	st *encodeState
}

func (w *opaqueWriter) PushVarint(i int32)   { pushVarint(w.st.sink, i) }
func (w *opaqueWriter) PushByte(b byte)      { w.st.sink.WriteByte(b) }
func (w *opaqueWriter) PushBytes(b []byte)   { pushBytes(w.st.sink, b) }
func (w *opaqueWriter) PushValue(v ms.Value) error {
	return encodeValue(w.st, v)
}

// opaqueReader adapts a decodeState into mindscript.OpaqueReader. Reads are
// bounds-checked against the end of the input, so a misbehaving Unmarshal
// callback fails with truncated instead of reading out of range. Reads are
// not limited to the bytes the matching Marshal callback wrote, and the
// caller trusts the callback to consume exactly its own payload.
type opaqueReader struct {
	st *decodeState
}

func (r *opaqueReader) ReadVarint() (int32, error) {
	n, next, err := readVarint(r.st.data, r.st.off)
	if err != nil {
		return 0, err
	}
	r.st.off = next
	return n, nil
}

func (r *opaqueReader) ReadByte() (byte, error) {
	b, err := r.st.byteAt(r.st.off)
	if err != nil {
		return 0, err
	}
	r.st.off++
	return b, nil
}

func (r *opaqueReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.st.off+n > len(r.st.data) {
		return nil, fail(ErrTruncated, "opaque payload wants %d bytes at offset %d", n, r.st.off)
	}
	b := r.st.data[r.st.off : r.st.off+n]
	r.st.off += n
	return b, nil
}

func (r *opaqueReader) ReadValue() (ms.Value, error) {
	return decodeValue(r.st)
}

func encodeOpaque(st *encodeState, v ms.Value) error {
	o := v.Data.(*ms.OpaqueValue)
	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	if o.Type.Marshal == nil {
		return fail(ErrUnregisteredOpaque, "opaque type %q has no marshal callback", string(o.Type.Name))
	}
	st.markSeen(key)
	st.sink.WriteByte(opOpaque)
	name := []byte(o.Type.Name)
	pushVarint(st.sink, int32(len(name)))
	pushBytes(st.sink, name)
	pushVarint(st.sink, int32(o.Type.Size))
	return o.Type.Marshal(&opaqueWriter{st: st}, o.Data)
}

func decodeOpaque(st *decodeState) (ms.Value, error) {
	off := st.off + 1
	nameLen, next, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	if nameLen < 0 || next+int(nameLen) > len(st.data) {
		return ms.Null, fail(ErrTruncated, "opaque type name truncated at offset %d", off)
	}
	name := ms.Keyword(st.data[next : next+int(nameLen)])
	sizeOff := next + int(nameLen)
	size, sizeNext, err := readVarint(st.data, sizeOff)
	if err != nil {
		return ms.Null, err
	}
	st.off = sizeNext

	if st.getOpaqueType == nil {
		return ms.Null, fail(ErrUnregisteredOpaque, "opaque type %q: no type registry configured", string(name))
	}
	typ, ok := st.getOpaqueType(name)
	if !ok || typ.Unmarshal == nil {
		return ms.Null, fail(ErrUnregisteredOpaque, "opaque type %q is not registered for unmarshal", string(name))
	}
	// Reserve the id before the callback runs: encodeOpaque marks the value
	// seen before its payload, so values the payload pushes take later ids.
	id := st.remember(ms.Null)
	data, err := typ.Unmarshal(&opaqueReader{st: st}, int(size))
	if err != nil {
		return ms.Null, fail(ErrUnregisteredOpaque, "opaque type %q: unmarshal callback failed: %v", string(name), err)
	}
	v := ms.OpaqueValRaw(&ms.OpaqueValue{Type: typ, Data: data})
	st.lookup[id] = v
	return v, nil
}
