// registry.go: the registry codec (§4.5) and env_lookup (§4.12). The
// registry lets a caller-supplied set of host singletons (native functions,
// well-known tables) round-trip by name instead of by structural copy.
package marshal

import (
	ms "github.com/tekknolagi/janet"
)

// tryEncodeRegistry checks v against the reverse registry before any normal
// encoding is attempted. encodeValue runs it first for every value; nil,
// bool, int and integral numbers have no identity key (keyFor), so they
// never match an entry and are always emitted inline. Registry lookups thus
// take precedence over structural encodings but not over inline primitives.
func tryEncodeRegistry(st *encodeState, v ms.Value) (bool, error) {
	if st.registry == nil {
		return false, nil
	}
	key, ok := keyFor(v)
	if !ok {
		return false, nil
	}
	sym, found := st.registry[key]
	if !found {
		return false, nil
	}
	if _, alreadySeen := st.seen[key]; alreadySeen {
		// A value already emitted structurally keeps its existing
		// back-reference; the seen-table takes precedence (§4.5).
		return false, nil
	}
	name, ok := sym.Data.(string)
	if !ok {
		return false, fail(ErrNoEncoding, "registry symbol must be a string")
	}
	st.markSeen(key)
	st.sink.WriteByte(opRegistry)
	pushVarint(st.sink, int32(len(name)))
	pushBytes(st.sink, []byte(name))
	return true, nil
}

// decodeRegistry resolves a symbol against the forward registry. A miss
// yields nil rather than failing, matching §4.5 ("a miss yields nil").
func decodeRegistry(st *decodeState) (ms.Value, error) {
	off := st.off + 1
	n, next, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	if n < 0 || next+int(n) > len(st.data) {
		return ms.Null, fail(ErrTruncated, "registry symbol truncated at offset %d", off)
	}
	name := string(st.data[next : next+int(n)])
	st.off = next + int(n)
	if st.registry == nil {
		return ms.Null, nil
	}
	v, ok := st.registry[name]
	if !ok {
		return ms.Null, nil
	}
	return v, nil
}

// ReverseRegistry builds a value->symbol map from a forward name->value
// table, for use as the reverse_registry argument to Marshal.
func ReverseRegistry(forward map[string]ms.Value) map[identityKey]ms.Value {
	rev := make(map[identityKey]ms.Value, len(forward))
	for name, v := range forward {
		key, ok := keyFor(v)
		if !ok {
			continue
		}
		rev[key] = ms.Str(name)
	}
	return rev
}

// EnvLookup walks a scoping table (and its prototype chain) collecting
// symbol-keyed entries into a flat forward registry, mirroring env_lookup
// (§4.12). A "cell" is any table entry; entries shadowed by an inner scope
// are skipped since the outer walk visits innermost first.
func EnvLookup(env *ms.MapObject) map[string]ms.Value {
	out := make(map[string]ms.Value)
	for e := env; e != nil; e = e.Proto {
		for _, k := range e.Keys {
			if _, exists := out[k]; exists {
				continue
			}
			v, ok := e.Entries[k]
			if !ok {
				continue
			}
			out[k] = v
		}
	}
	return out
}
