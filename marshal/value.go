// value.go: the primitive value codec (§4.4) plus the top-level dispatch
// every other codec in this package recurses through. encodeValue/decodeValue
// are what funcdef.go, funcenv.go, closure.go and coroutine.go call on
// constants, slots and captured values — this file is the hub the rest of
// the package is built around.
package marshal

import (
	"math"

	ms "github.com/tekknolagi/janet"
)

// encodeValue writes one value to st.sink, consulting the registry and
// seen-table first as required by §4.5 and §4.2.
func encodeValue(st *encodeState, v ms.Value) error {
	if err := st.enter(); err != nil {
		return err
	}
	defer st.leave()

	if hit, err := tryEncodeRegistry(st, v); hit || err != nil {
		return err
	}

	switch v.Tag {
	case ms.VTNull:
		st.sink.WriteByte(opNil)
		return nil
	case ms.VTBool:
		if v.Data.(bool) {
			st.sink.WriteByte(opTrue)
		} else {
			st.sink.WriteByte(opFalse)
		}
		return nil
	case ms.VTInt:
		pushVarint(st.sink, int32(v.Data.(int64)))
		return nil
	case ms.VTNum:
		return encodeNum(st, v)
	case ms.VTStr:
		return encodeStringLike(st, v, opString, []byte(v.Data.(string)))
	case ms.VTSymbol:
		return encodeStringLike(st, v, opSymbol, []byte(v.Data.(ms.Symbol)))
	case ms.VTKeyword:
		return encodeStringLike(st, v, opKeyword, []byte(v.Data.(ms.Keyword)))
	case ms.VTBuffer:
		buf := v.Data.(*ms.BufferObject)
		return encodeStringLike(st, v, opBuffer, buf.Bytes)
	case ms.VTArray:
		return encodeArray(st, v)
	case ms.VTTuple:
		return encodeTuple(st, v)
	case ms.VTMap:
		return encodeTable(st, v)
	case ms.VTStruct:
		return encodeStruct(st, v)
	case ms.VTClosure:
		return encodeClosure(st, v)
	case ms.VTCoroutine:
		return encodeCoroutine(st, v)
	case ms.VTOpaque:
		return encodeOpaque(st, v)
	default:
		return fail(ErrNoEncoding, "no wire encoding for value kind %v", v.Tag)
	}
}

func encodeNum(st *encodeState, v ms.Value) error {
	f := v.Data.(float64)
	if isEncodableAsInt(f) {
		pushVarint(st.sink, int32(f))
		return nil
	}
	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	st.markSeen(key)
	st.sink.WriteByte(opReal)
	var buf [8]byte
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
	pushBytes(st.sink, buf[:])
	return nil
}

func encodeStringLike(st *encodeState, v ms.Value, op byte, bytes []byte) error {
	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	st.markSeen(key)
	st.sink.WriteByte(op)
	pushVarint(st.sink, int32(len(bytes)))
	pushBytes(st.sink, bytes)
	return nil
}

func emitReference(s Sink, id int32) {
	s.WriteByte(opReference)
	pushVarint(s, id)
}

func encodeArray(st *encodeState, v ms.Value) error {
	xs := v.Data.([]ms.Value)
	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	// Arrays are mutable: mark seen before children (§3 invariants) so a
	// self-referential array can be encoded at all.
	st.markSeen(key)
	st.sink.WriteByte(opArray)
	pushVarint(st.sink, int32(len(xs)))
	for _, e := range xs {
		if err := encodeValue(st, e); err != nil {
			return err
		}
	}
	return nil
}

func encodeTuple(st *encodeState, v ms.Value) error {
	t := v.Data.(*ms.TupleObject)
	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	st.sink.WriteByte(opTuple)
	pushVarint(st.sink, int32(len(t.Elems)))
	pushVarint(st.sink, int32(t.Flag))
	for _, e := range t.Elems {
		if err := encodeValue(st, e); err != nil {
			return err
		}
	}
	// Tuples are immutable: mark seen after children (§3 invariants).
	st.markSeen(key)
	return nil
}

func encodeTable(st *encodeState, v ms.Value) error {
	mo := v.Data.(*ms.MapObject)
	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	st.markSeen(key)
	if mo.Proto != nil {
		st.sink.WriteByte(opTableProto)
	} else {
		st.sink.WriteByte(opTable)
	}
	pushVarint(st.sink, int32(len(mo.Keys)))
	if mo.Proto != nil {
		if err := encodeValue(st, ms.Value{Tag: ms.VTMap, Data: mo.Proto}); err != nil {
			return err
		}
	}
	for _, k := range mo.Keys {
		val, ok := mo.Entries[k]
		if !ok {
			continue
		}
		if err := encodeValue(st, ms.Str(k)); err != nil {
			return err
		}
		if err := encodeValue(st, val); err != nil {
			return err
		}
	}
	return nil
}

func encodeStruct(st *encodeState, v ms.Value) error {
	so := v.Data.(*ms.StructObject)
	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	st.sink.WriteByte(opStruct)
	pushVarint(st.sink, int32(len(so.Keys)))
	for i, k := range so.Keys {
		if err := encodeValue(st, k); err != nil {
			return err
		}
		if err := encodeValue(st, so.Vals[i]); err != nil {
			return err
		}
	}
	// Structs are immutable: mark seen after children.
	st.markSeen(key)
	return nil
}

// decodeValue reads one value from st.data at st.off, advancing the cursor.
func decodeValue(st *decodeState) (ms.Value, error) {
	if err := st.enter(); err != nil {
		return ms.Null, err
	}
	defer st.leave()

	b, err := st.byteAt(st.off)
	if err != nil {
		return ms.Null, err
	}

	switch {
	case b < 0xC8:
		n, next, err := readVarint(st.data, st.off)
		if err != nil {
			return ms.Null, err
		}
		st.off = next
		return ms.Int(int64(n)), nil
	case b == opReal:
		return decodeReal(st)
	case b == opNil:
		st.off++
		return ms.Null, nil
	case b == opFalse:
		st.off++
		return ms.Bool(false), nil
	case b == opTrue:
		st.off++
		return ms.Bool(true), nil
	case b == opCoroutine:
		return decodeCoroutine(st)
	case b == opString:
		return decodeStringLike(st, func(bs []byte) ms.Value { return ms.Str(string(bs)) })
	case b == opSymbol:
		return decodeStringLike(st, func(bs []byte) ms.Value { return ms.SymbolVal(string(bs)) })
	case b == opKeyword:
		return decodeStringLike(st, func(bs []byte) ms.Value { return ms.KeywordVal(string(bs)) })
	case b == opArray:
		return decodeArray(st)
	case b == opTuple:
		return decodeTuple(st)
	case b == opTable, b == opTableProto:
		return decodeTable(st, b == opTableProto)
	case b == opStruct:
		return decodeStruct(st)
	case b == opBuffer:
		return decodeStringLike(st, func(bs []byte) ms.Value { return ms.BufferVal(append([]byte(nil), bs...)) })
	case b == opFunction:
		return decodeClosure(st)
	case b == opRegistry:
		return decodeRegistry(st)
	case b == opOpaque:
		return decodeOpaque(st)
	case b == opReference:
		return decodeReference(st)
	default:
		return ms.Null, fail(ErrBadOpcode, "byte 0x%02x at offset %d is not a value opcode", b, st.off)
	}
}

func decodeReference(st *decodeState) (ms.Value, error) {
	st.off++
	id, next, err := readVarint(st.data, st.off)
	if err != nil {
		return ms.Null, err
	}
	st.off = next
	if id < 0 || int(id) >= len(st.lookup) {
		return ms.Null, fail(ErrBadReference, "reference id %d out of range (have %d)", id, len(st.lookup))
	}
	return st.lookup[id], nil
}

func decodeReal(st *decodeState) (ms.Value, error) {
	if st.off+8 >= len(st.data) {
		return ms.Null, fail(ErrTruncated, "real truncated at offset %d", st.off)
	}
	off := st.off + 1
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(st.data[off+i]) << (8 * i)
	}
	st.off = off + 8
	v := ms.Num(math.Float64frombits(bits))
	st.remember(v)
	return v, nil
}

func decodeStringLike(st *decodeState, build func([]byte) ms.Value) (ms.Value, error) {
	off := st.off + 1
	n, next, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	if n < 0 || next+int(n) > len(st.data) {
		return ms.Null, fail(ErrTruncated, "string-like payload of length %d truncated at offset %d", n, next)
	}
	bs := st.data[next : next+int(n)]
	st.off = next + int(n)
	v := build(bs)
	st.remember(v)
	return v, nil
}

func decodeArray(st *decodeState) (ms.Value, error) {
	off := st.off + 1
	n, next, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	st.off = next
	if n < 0 {
		return ms.Null, fail(ErrBadReference, "negative array length at offset %d", off)
	}
	xs := make([]ms.Value, n)
	v := ms.Arr(xs)
	st.remember(v) // pre-mark: array may reference itself
	for i := int32(0); i < n; i++ {
		e, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		xs[i] = e
	}
	return v, nil
}

func decodeTuple(st *decodeState) (ms.Value, error) {
	off := st.off + 1
	n, next, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	flag, next2, err := readVarint(st.data, next)
	if err != nil {
		return ms.Null, err
	}
	st.off = next2
	if n < 0 {
		return ms.Null, fail(ErrBadReference, "negative tuple length at offset %d", off)
	}
	elems := make([]ms.Value, n)
	for i := int32(0); i < n; i++ {
		e, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		elems[i] = e
	}
	v := ms.TupleValRaw(elems, uint32(flag))
	st.remember(v) // post-mark: immutable, cannot cycle through itself
	return v, nil
}

func decodeTable(st *decodeState, hasProto bool) (ms.Value, error) {
	off := st.off + 1
	n, next, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	st.off = next
	if n < 0 {
		return ms.Null, fail(ErrBadReference, "negative table count at offset %d", off)
	}
	// KeyAnn has no wire representation (§4.3): the table opcode carries only
	// keys and values, so a decoded map always starts with annotations empty.
	mo := &ms.MapObject{Entries: map[string]ms.Value{}, KeyAnn: map[string]string{}, Keys: []string{}}
	v := ms.Value{Tag: ms.VTMap, Data: mo}
	st.remember(v) // pre-mark: tables are mutable

	if hasProto {
		protoVal, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		if protoVal.Tag != ms.VTNull {
			proto, ok := protoVal.Data.(*ms.MapObject)
			if !ok {
				return ms.Null, fail(ErrBadReference, "table prototype must itself be a table")
			}
			mo.Proto = proto
		}
	}
	for i := int32(0); i < n; i++ {
		k, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		val, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		ks, ok := k.Data.(string)
		if !ok {
			return ms.Null, fail(ErrBadReference, "table key at entry %d is not a string", i)
		}
		if _, exists := mo.Entries[ks]; !exists {
			mo.Keys = append(mo.Keys, ks)
		}
		mo.Entries[ks] = val
	}
	return v, nil
}

func decodeStruct(st *decodeState) (ms.Value, error) {
	off := st.off + 1
	n, next, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	st.off = next
	if n < 0 {
		return ms.Null, fail(ErrBadReference, "negative struct count at offset %d", off)
	}
	keys := make([]ms.Value, n)
	vals := make([]ms.Value, n)
	for i := int32(0); i < n; i++ {
		k, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		val, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		keys[i] = k
		vals[i] = val
	}
	v := ms.StructValRaw(keys, vals)
	st.remember(v) // post-mark: immutable
	return v, nil
}
