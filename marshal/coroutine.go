// coroutine.go: the coroutine codec (§4.10), the most involved piece of the
// wire format. A coroutine is a chain of stack frames sharing one flat data
// vector; frames are walked and written innermost-first, and decode must
// reconstruct the same (base, top) cursor pair per frame purely from the
// header fields and the previous-frame offsets, since the wire format
// carries no explicit frame count.
package marshal

import (
	ms "github.com/tekknolagi/janet"
)

func encodeCoroutine(st *encodeState, v ms.Value) error {
	if err := st.enter(); err != nil {
		return err
	}
	defer st.leave()

	coro := v.Data.(*ms.Coroutine)
	if coro.Status == ms.CoroutineStatusAlive {
		logAliveCoroutine()
		return fail(ErrAliveCoroutine, "cannot marshal a currently-running coroutine")
	}

	key, _ := keyFor(v)
	if id, ok := st.seen[key]; ok {
		emitReference(st.sink, id)
		return nil
	}
	// Mark seen before walking frames: a captured environment reachable
	// from one of this coroutine's own frames may reference the coroutine
	// right back (funcenv.go's live branch).
	st.markSeen(key)

	flags := coro.Flags
	if coro.Child != nil {
		flags |= ms.CoroutineFlagHasChild
	}
	st.sink.WriteByte(opCoroutine)
	pushVarint(st.sink, int32(flags))
	pushVarint(st.sink, coro.FrameBase)
	pushVarint(st.sink, coro.StackStart)
	pushVarint(st.sink, coro.StackTop)
	pushVarint(st.sink, coro.MaxStack)

	stack := coro.FrameBase
	top := coro.StackStart - ms.FrameHeaderSize
	for _, frame := range coro.Frames {
		frameFlags := frame.Flags
		if frame.Env != nil {
			frameFlags |= ms.FrameFlagHasEnv
		}
		pushVarint(st.sink, int32(frameFlags))
		pushVarint(st.sink, frame.PrevFrame)
		pushVarint(st.sink, frame.PCOffset)
		if frame.Closure == nil {
			return fail(ErrNativeFrame, "coroutine has a native stack frame, cannot marshal")
		}
		if err := encodeValue(st, ms.ClosureValRaw(frame.Closure)); err != nil {
			return err
		}
		if frame.Env != nil {
			if err := encodeFuncEnv(st, frame.Env); err != nil {
				return err
			}
		}
		for i := stack; i < top; i++ {
			if err := encodeValue(st, coro.Data[i]); err != nil {
				return err
			}
		}
		top = stack - ms.FrameHeaderSize
		stack = frame.PrevFrame
	}

	if coro.Child != nil {
		return encodeValue(st, ms.CoroutineValRaw(coro.Child))
	}
	return nil
}

func decodeCoroutine(st *decodeState) (ms.Value, error) {
	if err := st.enter(); err != nil {
		return ms.Null, err
	}
	defer st.leave()

	st.off++ // consume opCoroutine

	coro := &ms.Coroutine{}
	v := ms.CoroutineValRaw(coro)
	st.remember(v) // support cycles through the frame chain immediately

	flags, off, err := readVarint(st.data, st.off)
	if err != nil {
		return ms.Null, err
	}
	frameBase, off, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	stackStart, off, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	stackTop, off, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	maxStack, off, err := readVarint(st.data, off)
	if err != nil {
		return ms.Null, err
	}
	st.off = off

	if frameBase+ms.FrameHeaderSize > stackStart || stackStart > stackTop || stackTop > maxStack {
		return ms.Null, fail(ErrBadFrame, "coroutine has an inconsistent stack setup")
	}

	capacity := int(stackTop) + 10
	coro.Data = make([]ms.Value, capacity)

	stack := frameBase
	top := stackStart - ms.FrameHeaderSize
	var frames []*ms.StackFrame
	for stack > 0 {
		frameFlagsRaw, off2, err := readVarint(st.data, st.off)
		if err != nil {
			return ms.Null, err
		}
		prevFrame, off3, err := readVarint(st.data, off2)
		if err != nil {
			return ms.Null, err
		}
		pcOffset, off4, err := readVarint(st.data, off3)
		if err != nil {
			return ms.Null, err
		}
		st.off = off4
		frameFlags := uint32(frameFlagsRaw)

		funcVal, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		closure, ok := funcVal.Data.(*ms.Closure)
		if !ok {
			return ms.Null, fail(ErrBadFrame, "coroutine frame's function did not decode to a closure")
		}
		def := closure.Def

		var env *ms.FuncEnv
		if frameFlags&ms.FrameFlagHasEnv != 0 {
			frameFlags &^= ms.FrameFlagHasEnv
			offset := stack
			length := top - stack
			env, err = decodeFuncEnv(st)
			if err != nil {
				return ms.Null, err
			}
			if env.Offset != 0 && env.Offset != offset {
				return ms.Null, fail(ErrBadFrame, "funcenv offset does not match coroutine frame")
			}
			if env.Length != 0 && env.Length != length {
				return ms.Null, fail(ErrBadFrame, "funcenv length does not match coroutine frame")
			}
			env.Offset = offset
			env.Length = length
			env.Coroutine = coro
		}

		if def.SlotCount != top-stack {
			return ms.Null, fail(ErrBadFrame, "coroutine frame slot count mismatch: def wants %d, frame has %d", def.SlotCount, top-stack)
		}
		if pcOffset < 0 || int(pcOffset) >= len(def.Bytecode) {
			return ms.Null, fail(ErrBadFrame, "coroutine frame has an invalid program counter")
		}
		if prevFrame+ms.FrameHeaderSize > stack {
			return ms.Null, fail(ErrBadFrame, "coroutine frame does not align with its previous frame")
		}

		for i := stack; i < top; i++ {
			val, err := decodeValue(st)
			if err != nil {
				return ms.Null, err
			}
			coro.Data[i] = val
		}
		slots := coro.Data[stack:top]

		frames = append(frames, &ms.StackFrame{
			PrevFrame: prevFrame,
			Flags:     frameFlags,
			PCOffset:  pcOffset,
			Closure:   closure,
			Env:       env,
			Slots:     slots,
		})

		top = stack - ms.FrameHeaderSize
		stack = prevFrame
	}
	if stack < 0 {
		return ms.Null, fail(ErrBadFrame, "coroutine has too many stack frames")
	}

	coro.FrameBase = frameBase
	coro.StackStart = stackStart
	coro.StackTop = stackTop
	coro.MaxStack = maxStack
	coro.Frames = frames
	coro.Status = ms.CoroutineStatusSuspended

	if uint32(flags)&ms.CoroutineFlagHasChild != 0 {
		flags &^= int32(ms.CoroutineFlagHasChild)
		childVal, err := decodeValue(st)
		if err != nil {
			return ms.Null, err
		}
		child, ok := childVal.Data.(*ms.Coroutine)
		if !ok {
			return ms.Null, fail(ErrBadReference, "coroutine's child did not decode to a coroutine")
		}
		coro.Child = child
	}
	coro.Flags = uint32(flags)
	return v, nil
}
