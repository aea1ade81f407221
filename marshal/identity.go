// identity.go: how the encoder decides whether it has already emitted a
// value. Janet's C implementation keys its seen-table by the tagged Janet
// value itself: heap-allocated kinds compare by pointer (Janet never copies
// them), interned kinds (strings/symbols/keywords) compare by content
// because interning already gave equal content the same pointer, and plain
// doubles compare by bit pattern because that IS the tagged representation.
// identityKey reproduces that behavior over mindscript.Value without
// requiring mindscript's existing string/number representation to change.
package marshal

import (
	"math"
	"reflect"

	ms "github.com/tekknolagi/janet"
)

// identityKind distinguishes the two ways a key can be compared.
type identityKind uint8

const (
	identityPointer identityKind = iota
	identityContent
)

// identityKey is a comparable stand-in for "the object identity of a value",
// suitable as a Go map key even though ms.Value itself is not always
// comparable (its Data field may hold a slice).
type identityKey struct {
	tag  ms.ValueTag
	kind identityKind
	ptr  uintptr
	bits uint64
	str  string
}

// pointerOf extracts a stable pointer for reference-counted kinds backed by
// a Go pointer or slice header.
func pointerOf(v interface{}) uintptr {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.Pointer()
	default:
		return 0
	}
}

// keyFor returns the identity key for v and whether v participates in
// identity tracking at all (nil, bool, every int and integral in-range
// numbers never do: emitting them inline is always cheaper than a
// back-reference).
func keyFor(v ms.Value) (identityKey, bool) {
	switch v.Tag {
	case ms.VTNull, ms.VTBool:
		return identityKey{}, false
	case ms.VTInt:
		return identityKey{}, false
	case ms.VTNum:
		f := v.Data.(float64)
		if isEncodableAsInt(f) {
			return identityKey{}, false
		}
		return identityKey{tag: v.Tag, kind: identityContent, bits: math.Float64bits(f)}, true
	case ms.VTStr:
		return identityKey{tag: v.Tag, kind: identityContent, str: v.Data.(string)}, true
	case ms.VTSymbol:
		return identityKey{tag: v.Tag, kind: identityContent, str: string(v.Data.(ms.Symbol))}, true
	case ms.VTKeyword:
		return identityKey{tag: v.Tag, kind: identityContent, str: string(v.Data.(ms.Keyword))}, true
	case ms.VTBuffer, ms.VTArray, ms.VTMap, ms.VTTuple, ms.VTStruct,
		ms.VTClosure, ms.VTCoroutine, ms.VTOpaque:
		return identityKey{tag: v.Tag, kind: identityPointer, ptr: pointerOf(v.Data)}, true
	default:
		return identityKey{}, false
	}
}

// isEncodableAsInt reports whether f can be written using the integer
// encoding (§4.4: "Numbers that are integers in range take the integer
// encoding"). These never touch the seen-table, matching Janet's
// janet_checkintrange.
func isEncodableAsInt(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	i := int32(f)
	return float64(i) == f
}
