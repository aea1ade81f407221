// closure.go: the closure codec (§4.9). A closure is a definition plus one
// captured environment per entry in the definition's EnvIndices. The
// closure is marked seen after its definition but before its environments
// so a closure that (transitively, through one of its own captured
// environments) refers back to itself can still be represented.
package marshal

import (
	ms "github.com/tekknolagi/janet"
)

func encodeClosure(st *encodeState, v ms.Value) error {
	if err := st.enter(); err != nil {
		return err
	}
	defer st.leave()

	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	c := v.Data.(*ms.Closure)
	st.sink.WriteByte(opFunction)
	if err := encodeFuncDef(st, c.Def); err != nil {
		return err
	}
	st.markSeen(key)
	for _, env := range c.Envs {
		if err := encodeFuncEnv(st, env); err != nil {
			return err
		}
	}
	return nil
}

// decodeClosure is invoked with st.off pointing at the opFunction byte.
func decodeClosure(st *decodeState) (ms.Value, error) {
	if err := st.enter(); err != nil {
		return ms.Null, err
	}
	defer st.leave()

	st.off++ // consume opFunction
	def, err := decodeFuncDef(st)
	if err != nil {
		return ms.Null, err
	}
	c := &ms.Closure{Def: def}
	v := ms.ClosureValRaw(c)
	st.remember(v)

	c.Envs = make([]*ms.FuncEnv, len(def.EnvIndices))
	for i := range c.Envs {
		env, err := decodeFuncEnv(st)
		if err != nil {
			return ms.Null, err
		}
		c.Envs[i] = env
	}
	return v, nil
}
