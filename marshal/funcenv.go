// funcenv.go: the function environment codec (§4.8). Like function
// definitions, environments have their own id space and are commonly
// shared — two closures created by the same enclosing call capture the same
// environment object, and mutating a cell through either must be visible to
// both after a round-trip (§8 scenario 6).
package marshal

import (
	ms "github.com/tekknolagi/janet"
)

func encodeFuncEnv(st *encodeState, env *ms.FuncEnv) error {
	if err := st.enter(); err != nil {
		return err
	}
	defer st.leave()

	if id, ok := st.seenEnvs[env]; ok {
		st.sink.WriteByte(opFuncEnvRef)
		pushVarint(st.sink, id)
		return nil
	}
	// Assign the id before recursing into the owning coroutine: a frame of
	// that coroutine may capture this very environment, and the
	// back-reference it emits must resolve to the id assigned here.
	id := st.nextEnv
	st.nextEnv++
	st.seenEnvs[env] = id

	pushVarint(st.sink, env.Offset)
	pushVarint(st.sink, env.Length)
	if env.IsLive() {
		return encodeValue(st, ms.CoroutineValRaw(env.Coroutine))
	}
	for _, v := range env.Values {
		if err := encodeValue(st, v); err != nil {
			return err
		}
	}
	return nil
}

func decodeFuncEnv(st *decodeState) (*ms.FuncEnv, error) {
	if err := st.enter(); err != nil {
		return nil, err
	}
	defer st.leave()

	b, err := st.byteAt(st.off)
	if err != nil {
		return nil, err
	}
	if b == opFuncEnvRef {
		id, next, err := readVarint(st.data, st.off+1)
		if err != nil {
			return nil, err
		}
		st.off = next
		if id < 0 || int(id) >= len(st.envs) {
			return nil, fail(ErrBadReference, "funcenv reference id %d out of range (have %d)", id, len(st.envs))
		}
		return st.envs[id], nil
	}

	offset, off2, err := readVarint(st.data, st.off)
	if err != nil {
		return nil, err
	}
	length, off3, err := readVarint(st.data, off2)
	if err != nil {
		return nil, err
	}
	st.off = off3

	env := &ms.FuncEnv{Offset: offset, Length: length}
	// Pre-register before decoding the owning coroutine: one of its frames
	// may capture this exact environment and back-reference it.
	st.envs = append(st.envs, env)

	if offset != 0 {
		coroVal, err := decodeValue(st)
		if err != nil {
			return nil, err
		}
		coro, ok := coroVal.Data.(*ms.Coroutine)
		if !ok {
			return nil, fail(ErrBadReference, "environment's owning coroutine decoded to a non-coroutine value")
		}
		if env.Offset != offset || env.Length != length {
			return nil, fail(ErrBadFrame, "environment (offset=%d,length=%d) was reclaimed with different bounds during coroutine decode", offset, length)
		}
		if env.Offset < 0 || int(env.Offset+env.Length) > len(coro.Data) {
			return nil, fail(ErrBadFrame, "live environment [%d,%d) out of range of coroutine data (len %d)", env.Offset, env.Offset+env.Length, len(coro.Data))
		}
		env.Coroutine = coro
		return env, nil
	}

	env.Values = make([]ms.Value, length)
	for i := int32(0); i < length; i++ {
		v, err := decodeValue(st)
		if err != nil {
			return nil, err
		}
		env.Values[i] = v
	}
	return env, nil
}
