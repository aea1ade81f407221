// state.go: the mutable bookkeeping threaded through one marshal or
// unmarshal call. Janet keeps this in four fields tacked onto the VM's
// marshal state (envp, seen, seen_defs, seen_envs, depth folded into
// flags); here it is its own struct per call so concurrent callers never
// share it.
package marshal

import (
	ms "github.com/tekknolagi/janet"
)

// maxDepth bounds recursive descent into nested closures, coroutine frames
// and funcdefs (§4.11). It is deliberately generous: real programs nest a
// few dozen levels at most, this exists to turn a cyclic-by-mistake Go slice
// into a clean error instead of a stack-exhausting panic.
const maxDepth = 4096

// encodeState is passed by pointer through every encode* helper.
type encodeState struct {
	sink Sink

	// seen maps an already-emitted value's identity to the id it was
	// emitted under, so a second occurrence becomes a back-reference
	// (opReference) instead of a second copy (§4.2 "seen table").
	seen   map[identityKey]int32
	nextID int32

	// seenDefs/seenEnvs give function-defs and function-envs their own id
	// space, mirroring Janet's separate marsh_state.seen_defs /
	// seen_envs tables (§4.7/§4.8: a closure may reference the same
	// nested def or captured env more than once).
	seenDefs map[*ms.FuncDef]int32
	nextDef  int32
	seenEnvs map[*ms.FuncEnv]int32
	nextEnv  int32

	// registry maps a value's identity to the symbolic name it should be
	// encoded as instead of its structural contents (§4.5).
	registry map[identityKey]ms.Value

	depth int
}

func newEncodeState(sink Sink, registry map[identityKey]ms.Value) *encodeState {
	return &encodeState{
		sink:     sink,
		seen:     make(map[identityKey]int32),
		seenDefs: make(map[*ms.FuncDef]int32),
		seenEnvs: make(map[*ms.FuncEnv]int32),
		registry: registry,
	}
}

func (st *encodeState) enter() error {
	st.depth++
	if st.depth > maxDepth {
		return fail(ErrStackOverflow, "marshal recursion exceeded %d levels", maxDepth)
	}
	return nil
}

func (st *encodeState) leave() {
	st.depth--
}

// markSeen records v under a fresh id and returns it. Callers must have
// already checked v isn't in st.seen.
func (st *encodeState) markSeen(key identityKey) int32 {
	id := st.nextID
	st.nextID++
	st.seen[key] = id
	return id
}

// decodeState is passed by pointer through every decode* helper.
type decodeState struct {
	data []byte
	off  int

	// lookup is the inverse of encodeState.seen: index i holds the i'th
	// value assigned an id during decode, so opReference can index back
	// into it (§4.2).
	lookup []ms.Value

	defs []*ms.FuncDef
	envs []*ms.FuncEnv

	// forward registry: symbolic name -> value, the decode-side
	// counterpart of encodeState.registry (§4.5).
	registry map[string]ms.Value

	// getOpaqueType resolves a registered opaque kind by name (§4.6).
	getOpaqueType func(name ms.Keyword) (*ms.OpaqueType, bool)

	// verify is the host bytecode verifier (§4.7, §6): a decoded
	// definition that fails it makes the whole unmarshal fail. Nil means
	// "accept everything", used by tests that don't care about verification.
	verify func(*ms.FuncDef) bool

	depth int
}

func newDecodeState(data []byte, registry map[string]ms.Value, getOpaqueType func(ms.Keyword) (*ms.OpaqueType, bool), verify func(*ms.FuncDef) bool) *decodeState {
	return &decodeState{
		data:          data,
		registry:      registry,
		getOpaqueType: getOpaqueType,
		verify:        verify,
	}
}

func (st *decodeState) enter() error {
	st.depth++
	if st.depth > maxDepth {
		return fail(ErrStackOverflow, "unmarshal recursion exceeded %d levels", maxDepth)
	}
	return nil
}

func (st *decodeState) leave() {
	st.depth--
}

// remember appends v to the lookup array and returns its id, mirroring the
// id markSeen assigned it on the encode side.
func (st *decodeState) remember(v ms.Value) int32 {
	id := int32(len(st.lookup))
	st.lookup = append(st.lookup, v)
	return id
}

func (st *decodeState) byteAt(off int) (byte, error) {
	if off >= len(st.data) {
		return 0, fail(ErrTruncated, "need a byte at offset %d, input is %d bytes", off, len(st.data))
	}
	return st.data[off], nil
}
