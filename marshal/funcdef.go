// funcdef.go: the function definition codec (§4.7). A definition is
// immutable and commonly shared (a closure created in a loop reuses one
// definition across many instances), so it gets its own id space distinct
// from ordinary values, exactly like environments (funcenv.go).
package marshal

import (
	ms "github.com/tekknolagi/janet"
)

func encodeFuncDef(st *encodeState, def *ms.FuncDef) error {
	if err := st.enter(); err != nil {
		return err
	}
	defer st.leave()

	if id, ok := st.seenDefs[def]; ok {
		st.sink.WriteByte(opFuncDefRef)
		pushVarint(st.sink, id)
		return nil
	}
	id := st.nextDef
	st.nextDef++
	st.seenDefs[def] = id

	def.ComputeFlags()
	pushVarint(st.sink, int32(def.Flags))
	pushVarint(st.sink, def.SlotCount)
	pushVarint(st.sink, def.Arity)
	pushVarint(st.sink, int32(len(def.Constants)))
	pushVarint(st.sink, int32(len(def.Bytecode)))
	if def.Flags&ms.FuncDefFlagHasEnvs != 0 {
		pushVarint(st.sink, int32(len(def.EnvIndices)))
	}
	if def.Flags&ms.FuncDefFlagHasDefs != 0 {
		pushVarint(st.sink, int32(len(def.Defs)))
	}
	if def.Flags&ms.FuncDefFlagHasName != 0 {
		if err := encodeNameLike(st, def.Name); err != nil {
			return err
		}
	}
	if def.Flags&ms.FuncDefFlagHasSource != 0 {
		if err := encodeNameLike(st, def.Source); err != nil {
			return err
		}
	}
	for _, c := range def.Constants {
		if err := encodeValue(st, c); err != nil {
			return err
		}
	}
	for _, w := range def.Bytecode {
		pushBytecodeWord(st.sink, w)
	}
	for _, idx := range def.EnvIndices {
		pushVarint(st.sink, idx)
	}
	for _, nested := range def.Defs {
		if err := encodeFuncDef(st, nested); err != nil {
			return err
		}
	}
	if def.Flags&ms.FuncDefFlagHasSourceMap != 0 {
		encodeSourceMap(st.sink, def.SourceMap)
	}
	return nil
}

func encodeNameLike(st *encodeState, s string) error {
	pushVarint(st.sink, int32(len(s)))
	pushBytes(st.sink, []byte(s))
	return nil
}

func pushBytecodeWord(s Sink, w uint32) {
	var b [4]byte
	b[0] = byte(w)
	b[1] = byte(w >> 8)
	b[2] = byte(w >> 16)
	b[3] = byte(w >> 24)
	pushBytes(s, b[:])
}

func readBytecodeWord(data []byte, off int) (uint32, int, error) {
	if off+4 > len(data) {
		return 0, off, fail(ErrTruncated, "bytecode word truncated at offset %d", off)
	}
	w := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
	return w, off + 4, nil
}

// encodeSourceMap writes (start-running, end-start) deltas so that
// tightly-packed, monotonically increasing ranges (the common case for
// straight-line compiled code) cost a byte or two per entry instead of a
// full 32-bit pair.
func encodeSourceMap(s Sink, ranges []ms.SourceRange) {
	var running int32
	for _, r := range ranges {
		pushVarint(s, r.Start-running)
		pushVarint(s, r.End-r.Start)
		running = r.End
	}
}

func decodeSourceMap(data []byte, off int, count int32) ([]ms.SourceRange, int, error) {
	out := make([]ms.SourceRange, count)
	running := int32(0)
	for i := int32(0); i < count; i++ {
		d1, next, err := readVarint(data, off)
		if err != nil {
			return nil, off, err
		}
		d2, next2, err := readVarint(data, next)
		if err != nil {
			return nil, off, err
		}
		start := running + d1
		end := start + d2
		out[i] = ms.SourceRange{Start: start, End: end}
		running = end
		off = next2
	}
	return out, off, nil
}

// decodeFuncDef reads a definition, verifying it before returning. A leading
// opFuncDefRef byte is a back-reference into the def id space rather than a
// fresh definition, mirroring the dedup check at the top of encodeFuncDef.
func decodeFuncDef(st *decodeState) (*ms.FuncDef, error) {
	if err := st.enter(); err != nil {
		return nil, err
	}
	defer st.leave()

	b, err := st.byteAt(st.off)
	if err != nil {
		return nil, err
	}
	if b == opFuncDefRef {
		id, next, err := readVarint(st.data, st.off+1)
		if err != nil {
			return nil, err
		}
		st.off = next
		if id < 0 || int(id) >= len(st.defs) {
			return nil, fail(ErrBadReference, "funcdef reference id %d out of range (have %d)", id, len(st.defs))
		}
		return st.defs[id], nil
	}

	flags, off, err := readVarint(st.data, st.off)
	if err != nil {
		return nil, err
	}
	def := &ms.FuncDef{Flags: uint32(flags)}
	// Register before filling so a nested self-reference (via funcdef-ref)
	// resolves to this same skeleton, and so a decode failure still leaves
	// a collectible, if incomplete, object reachable only from st.defs.
	st.defs = append(st.defs, def)

	slotCount, off2, err := readVarint(st.data, off)
	if err != nil {
		return nil, err
	}
	arity, off3, err := readVarint(st.data, off2)
	if err != nil {
		return nil, err
	}
	nConsts, off4, err := readVarint(st.data, off3)
	if err != nil {
		return nil, err
	}
	nCode, off5, err := readVarint(st.data, off4)
	if err != nil {
		return nil, err
	}
	def.SlotCount = slotCount
	def.Arity = arity

	cursor := off5
	var nEnvs, nDefs int32
	if def.Flags&ms.FuncDefFlagHasEnvs != 0 {
		nEnvs, cursor, err = readVarint(st.data, cursor)
		if err != nil {
			return nil, err
		}
	}
	if def.Flags&ms.FuncDefFlagHasDefs != 0 {
		nDefs, cursor, err = readVarint(st.data, cursor)
		if err != nil {
			return nil, err
		}
	}
	if def.Flags&ms.FuncDefFlagHasName != 0 {
		def.HasName = true
		def.Name, cursor, err = decodeNameLike(st.data, cursor)
		if err != nil {
			return nil, err
		}
	}
	if def.Flags&ms.FuncDefFlagHasSource != 0 {
		def.HasSource = true
		def.Source, cursor, err = decodeNameLike(st.data, cursor)
		if err != nil {
			return nil, err
		}
	}

	st.off = cursor
	def.Constants = make([]ms.Value, nConsts)
	for i := int32(0); i < nConsts; i++ {
		v, err := decodeValue(st)
		if err != nil {
			return nil, err
		}
		def.Constants[i] = v
	}

	def.Bytecode = make([]uint32, nCode)
	cursor = st.off
	for i := int32(0); i < nCode; i++ {
		var w uint32
		w, cursor, err = readBytecodeWord(st.data, cursor)
		if err != nil {
			return nil, err
		}
		def.Bytecode[i] = w
	}

	def.EnvIndices = make([]int32, nEnvs)
	for i := int32(0); i < nEnvs; i++ {
		var idx int32
		idx, cursor, err = readVarint(st.data, cursor)
		if err != nil {
			return nil, err
		}
		def.EnvIndices[i] = idx
	}
	st.off = cursor

	def.Defs = make([]*ms.FuncDef, nDefs)
	for i := int32(0); i < nDefs; i++ {
		nested, err := decodeFuncDef(st)
		if err != nil {
			return nil, err
		}
		def.Defs[i] = nested
	}

	if def.Flags&ms.FuncDefFlagHasSourceMap != 0 {
		def.HasSourceMap = true
		def.SourceMap, st.off, err = decodeSourceMap(st.data, st.off, nCode)
		if err != nil {
			return nil, err
		}
	}

	if st.verify != nil && !st.verify(def) {
		logVerifyFailure(def.Name)
		return nil, fail(ErrBadBytecode, "definition %q failed bytecode verification", def.Name)
	}
	return def, nil
}

func decodeNameLike(data []byte, off int) (string, int, error) {
	n, next, err := readVarint(data, off)
	if err != nil {
		return "", off, err
	}
	if n < 0 || next+int(n) > len(data) {
		return "", off, fail(ErrTruncated, "name truncated at offset %d", off)
	}
	return string(data[next : next+int(n)]), next + int(n), nil
}
