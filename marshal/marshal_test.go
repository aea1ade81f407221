package marshal

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ms "github.com/tekknolagi/janet"
)

// roundtrip marshals v and unmarshals the result, requiring the whole
// buffer to be consumed.
func roundtrip(t *testing.T, v ms.Value) ms.Value {
	t.Helper()
	sink, err := Marshal(v, nil)
	require.NoError(t, err)
	got, next, err := Unmarshal(sink.Bytes(), nil)
	require.NoError(t, err)
	require.Equal(t, sink.Len(), next)
	return got
}

func TestConcreteScenarios(t *testing.T) {
	sink, err := Marshal(ms.Int(42), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2A}, sink.Bytes())

	sink, err = Marshal(ms.Int(-1), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBF, 0xFF}, sink.Bytes())

	sink, err = Marshal(ms.Int(1_000_000), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC8, 0x00, 0x0F, 0x42, 0x40}, sink.Bytes())

	sink, err = Marshal(ms.Str("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCF, 0x02, 'h', 'i'}, sink.Bytes())
}

func TestRoundtripPrimitives(t *testing.T) {
	cases := []ms.Value{
		ms.Null,
		ms.Bool(true),
		ms.Bool(false),
		ms.Int(0),
		ms.Int(-8192),
		ms.Int(8191),
		ms.Num(3.5),
		ms.Str("hello world"),
		ms.SymbolVal("foo"),
		ms.KeywordVal("bar"),
	}
	for _, v := range cases {
		got := roundtrip(t, v)
		assert.Equal(t, v.Tag, got.Tag)
	}
}

func TestSelfReferentialArray(t *testing.T) {
	a := ms.Arr(make([]ms.Value, 1))
	a.Data.([]ms.Value)[0] = a

	sink, err := Marshal(a, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{opArray, 0x01, opReference, 0x00}, sink.Bytes())

	decoded, next, err := Unmarshal(sink.Bytes(), nil)
	require.NoError(t, err)
	require.Equal(t, sink.Len(), next)
	xs := decoded.Data.([]ms.Value)
	require.Len(t, xs, 1)
	inner := xs[0].Data.([]ms.Value)
	assert.Equal(t, reflect.ValueOf(inner).Pointer(), reflect.ValueOf(xs).Pointer())
}

func TestTailLaw(t *testing.T) {
	sinkA, err := Marshal(ms.Int(1), nil)
	require.NoError(t, err)
	sinkB, err := Marshal(ms.Str("second"), nil)
	require.NoError(t, err)

	both := append(append([]byte{}, sinkA.Bytes()...), sinkB.Bytes()...)

	a, next, err := Unmarshal(both, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Data.(int64))
	assert.NotEqual(t, len(both), next)

	b, next2, err := Unmarshal(both[next:], nil)
	require.NoError(t, err)
	assert.Equal(t, "second", b.Data.(string))
	assert.Equal(t, len(both)-next, next2)
}

func TestRegistryLaw(t *testing.T) {
	shared := ms.Str("host-singleton")
	forward := map[string]ms.Value{"the-thing": shared}
	reverse := ReverseRegistry(forward)

	sink, err := (&Codec{}).Marshal(ms.Str("host-singleton"), reverse, nil)
	require.NoError(t, err)
	assert.Equal(t, byte(opRegistry), sink.Bytes()[0])

	got, _, err := (&Codec{}).Unmarshal(sink.Bytes(), forward)
	require.NoError(t, err)
	assert.Equal(t, "host-singleton", got.Data.(string))
}

func TestRegistryMissDecodesToNull(t *testing.T) {
	forward := map[string]ms.Value{"present": ms.Str("present")}
	reverse := ReverseRegistry(map[string]ms.Value{"absent": ms.Str("absent")})

	sink, err := (&Codec{}).Marshal(ms.Str("absent"), reverse, nil)
	require.NoError(t, err)

	got, _, err := (&Codec{}).Unmarshal(sink.Bytes(), forward)
	require.NoError(t, err)
	assert.Equal(t, ms.VTNull, got.Tag)
}

func TestTupleAndStructIdentity(t *testing.T) {
	shared := ms.Str("shared")
	tup := ms.TupleValRaw([]ms.Value{shared, shared}, 0)
	got := roundtrip(t, tup)
	elems := got.Data.(*ms.TupleObject).Elems
	assert.Equal(t, elems[0].Data.(string), elems[1].Data.(string))

	st := ms.StructValRaw([]ms.Value{ms.Str("k")}, []ms.Value{ms.Int(9)})
	got2 := roundtrip(t, st)
	so := got2.Data.(*ms.StructObject)
	require.Len(t, so.Keys, 1)
	assert.Equal(t, int64(9), so.Vals[0].Data.(int64))
}

func TestTableWithPrototype(t *testing.T) {
	proto := &ms.MapObject{
		Entries: map[string]ms.Value{"inherited": ms.Int(1)},
		Keys:    []string{"inherited"},
	}
	mo := &ms.MapObject{
		Entries: map[string]ms.Value{"own": ms.Int(2)},
		Keys:    []string{"own"},
		Proto:   proto,
	}
	v := ms.Value{Tag: ms.VTMap, Data: mo}

	got := roundtrip(t, v)
	decoded := got.Data.(*ms.MapObject)
	require.NotNil(t, decoded.Proto)
	assert.Equal(t, int64(1), decoded.Proto.Entries["inherited"].Data.(int64))
	assert.Equal(t, int64(2), decoded.Entries["own"].Data.(int64))
}

func TestBadTablePrototypeRejected(t *testing.T) {
	// A table+proto opcode whose prototype value is not itself a table.
	sink := NewSink()
	sink.WriteByte(opTableProto)
	pushVarint(sink, 0) // zero entries
	pushVarint(sink, 42) // prototype: inline integer, not a table
	_, _, err := Unmarshal(sink.Bytes(), nil)
	require.Error(t, err)
}

func TestUnregisteredOpaqueFails(t *testing.T) {
	typ := &ms.OpaqueType{Name: ms.Keyword("no-marshal"), Size: 4}
	o := ms.OpaqueValRaw(&ms.OpaqueValue{Type: typ, Data: 7})
	_, err := Marshal(o, nil)
	assert.ErrorIs(t, err, ErrUnregisteredOpaque)
}

func TestOpaqueRoundtrip(t *testing.T) {
	typ := &ms.OpaqueType{
		Name: ms.Keyword("counter"),
		Size: 4,
		Marshal: func(w ms.OpaqueWriter, data interface{}) error {
			w.PushVarint(int32(data.(int)))
			return nil
		},
		Unmarshal: func(r ms.OpaqueReader, size int) (interface{}, error) {
			n, err := r.ReadVarint()
			return int(n), err
		},
	}
	registry := NewTypeRegistry()
	registry.Register(typ)
	codec := &Codec{Types: registry}

	v := ms.OpaqueValRaw(&ms.OpaqueValue{Type: typ, Data: 99})
	sink, err := codec.Marshal(v, nil, nil)
	require.NoError(t, err)

	got, _, err := codec.Unmarshal(sink.Bytes(), nil)
	require.NoError(t, err)
	ov := got.Data.(*ms.OpaqueValue)
	assert.Equal(t, 99, ov.Data.(int))
	assert.Equal(t, typ.Name, ov.Type.Name)
}

func TestAliveCoroutineRejected(t *testing.T) {
	coro := &ms.Coroutine{Status: ms.CoroutineStatusAlive}
	_, err := Marshal(ms.CoroutineValRaw(coro), nil)
	assert.ErrorIs(t, err, ErrAliveCoroutine)
}

func TestNativeFrameRejected(t *testing.T) {
	coro := &ms.Coroutine{
		FrameBase:  1,
		StackStart: 1,
		StackTop:   1,
		MaxStack:   1,
		Status:     ms.CoroutineStatusSuspended,
		Data:       make([]ms.Value, 2),
		Frames: []*ms.StackFrame{
			{PrevFrame: 0, Closure: nil},
		},
	}
	_, err := Marshal(ms.CoroutineValRaw(coro), nil)
	assert.ErrorIs(t, err, ErrNativeFrame)
}

func makeLeafDef() *ms.FuncDef {
	return &ms.FuncDef{
		Arity:     0,
		SlotCount: 0,
		Bytecode:  []uint32{0x00},
		Constants: []ms.Value{ms.Int(1)},
	}
}

func TestClosureRoundtrip(t *testing.T) {
	def := makeLeafDef()
	c := &ms.Closure{Def: def}
	got := roundtrip(t, ms.ClosureValRaw(c))
	dc := got.Data.(*ms.Closure)
	assert.Equal(t, def.Constants[0].Data.(int64), dc.Def.Constants[0].Data.(int64))
	assert.Equal(t, def.Bytecode, dc.Def.Bytecode)
}

func TestClosureSharedEnvironment(t *testing.T) {
	// Two closures over the same detached environment, marshaled together
	// inside a tuple (§8 scenario 6): after round-trip they must still
	// share one environment, and a mutation via one must be visible
	// through the other.
	def := &ms.FuncDef{EnvIndices: []int32{0}, Bytecode: []uint32{0}}
	env := &ms.FuncEnv{Values: []ms.Value{ms.Int(0)}, Length: 1}
	c1 := &ms.Closure{Def: def, Envs: []*ms.FuncEnv{env}}
	c2 := &ms.Closure{Def: def, Envs: []*ms.FuncEnv{env}}

	tup := ms.TupleValRaw([]ms.Value{ms.ClosureValRaw(c1), ms.ClosureValRaw(c2)}, 0)
	got := roundtrip(t, tup)

	elems := got.Data.(*ms.TupleObject).Elems
	dc1 := elems[0].Data.(*ms.Closure)
	dc2 := elems[1].Data.(*ms.Closure)
	require.Same(t, dc1.Envs[0], dc2.Envs[0])

	dc1.Envs[0].Values[0] = ms.Int(77)
	assert.Equal(t, int64(77), dc2.Envs[0].Values[0].Data.(int64))
}

func TestCoroutineRoundtrip(t *testing.T) {
	def := &ms.FuncDef{SlotCount: 2, Bytecode: []uint32{0, 1, 2}}
	closure := &ms.Closure{Def: def}

	// Single outermost frame: slots span [FrameBase, StackStart-FrameHeaderSize).
	coro := &ms.Coroutine{
		FrameBase:  1,
		StackStart: 4,
		StackTop:   4,
		MaxStack:   16,
		Status:     ms.CoroutineStatusSuspended,
		Data:       make([]ms.Value, 4),
		Frames: []*ms.StackFrame{
			{PrevFrame: 0, PCOffset: 1, Closure: closure, Slots: nil},
		},
	}
	coro.Data[1] = ms.Int(10)
	coro.Data[2] = ms.Int(20)
	coro.Frames[0].Slots = coro.Data[1:3]

	got := roundtrip(t, ms.CoroutineValRaw(coro))
	dcoro := got.Data.(*ms.Coroutine)
	require.Len(t, dcoro.Frames, 1)
	assert.Equal(t, int32(1), dcoro.Frames[0].PCOffset)
	assert.Equal(t, int64(10), dcoro.Data[1].Data.(int64))
	assert.Equal(t, int64(20), dcoro.Data[2].Data.(int64))
	assert.Equal(t, ms.CoroutineStatusSuspended, dcoro.Status)
}

func TestVerifierGate(t *testing.T) {
	rejectAll := func(*ms.FuncDef) bool { return false }
	codec := &Codec{Verify: rejectAll}

	def := makeLeafDef()
	c := &ms.Closure{Def: def}
	sink, err := (&Codec{}).Marshal(ms.ClosureValRaw(c), nil, nil)
	require.NoError(t, err)

	_, _, err = codec.Unmarshal(sink.Bytes(), nil)
	assert.ErrorIs(t, err, ErrBadBytecode)
}

func TestTruncationNeverPanics(t *testing.T) {
	sink, err := Marshal(ms.Arr([]ms.Value{ms.Int(1), ms.Str("two"), ms.Bool(true)}), nil)
	require.NoError(t, err)
	data := sink.Bytes()

	for k := 0; k < len(data); k++ {
		assert.NotPanics(t, func() {
			_, _, _ = Unmarshal(data[:k], nil)
		})
	}
}

func TestBadOpcode(t *testing.T) {
	_, _, err := Unmarshal([]byte{0xCE}, nil)
	assert.ErrorIs(t, err, ErrBadOpcode)
}

func TestEnvLookup(t *testing.T) {
	outer := &ms.MapObject{
		Entries: map[string]ms.Value{"x": ms.Int(1), "y": ms.Int(2)},
		Keys:    []string{"x", "y"},
	}
	inner := &ms.MapObject{
		Entries: map[string]ms.Value{"x": ms.Int(99)},
		Keys:    []string{"x"},
		Proto:   outer,
	}
	got := EnvLookup(inner)
	assert.Equal(t, int64(99), got["x"].Data.(int64))
	assert.Equal(t, int64(2), got["y"].Data.(int64))
}

func TestCachedVerifierMemoizes(t *testing.T) {
	calls := 0
	verify := func(def *ms.FuncDef) bool {
		calls++
		return true
	}
	cv, err := NewCachedVerifier(verify, 8)
	require.NoError(t, err)

	def := makeLeafDef()
	assert.True(t, cv.Verify(def))
	assert.True(t, cv.Verify(def))
	assert.Equal(t, 1, calls)
}
