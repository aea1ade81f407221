// values_ext.go — extended value universe for the marshaling subsystem.
//
// The core interpreter (interpreter.go) only needs the tree-walking value
// kinds (null/bool/int/num/str/array/map/fun/type/module/handle). The
// marshaling subsystem in package marshal needs a wider universe: interned
// symbols and keywords, mutable byte buffers, immutable tuples and structs,
// compiled function definitions with nested children and captured
// environments, and suspendable coroutines. Those kinds are declared here so
// package marshal can operate on ordinary mindscript.Value without either
// package reaching into the other's internals.
//
// New tags live in their own block above 100 so the original ValueTag
// constants never need renumbering.
package mindscript

import "fmt"

const (
	VTSymbol ValueTag = iota + 100
	VTKeyword
	VTBuffer
	VTTuple
	VTStruct
	VTClosure
	VTCoroutine
	VTOpaque
)

// Handle is the payload behind VTHandle: an opaque host-defined value
// identified by a kind tag, e.g. an open file or network connection.
type Handle struct {
	Kind string
	Data any
}

func HandleVal(kind string, data any) Value {
	return Value{Tag: VTHandle, Data: &Handle{Kind: kind, Data: data}}
}

// Symbol is an interned-by-content identifier, distinct from Keyword even
// when the underlying text matches.
type Symbol string

// Keyword is an interned-by-content self-evaluating tag.
type Keyword string

// BufferObject backs VTBuffer: a mutable byte sequence. Unlike strings,
// buffers are never content-interned — two buffers with equal bytes remain
// distinct objects.
type BufferObject struct {
	Bytes []byte
}

// TupleObject backs VTTuple: an immutable ordered sequence carrying a small
// flag word (its upper bits are reserved for host-supplied tags, e.g.
// distinguishing brackets used at parse time).
type TupleObject struct {
	Elems []Value
	Flag  uint32
}

// StructObject backs VTStruct: an immutable ordered key/value mapping.
// Keys and Vals are parallel slices preserving insertion order.
type StructObject struct {
	Keys []Value
	Vals []Value
}

// Get returns the value bound to key, if any.
func (s *StructObject) Get(key Value) (Value, bool) {
	for i, k := range s.Keys {
		if valuesEqual(k, key) {
			return s.Vals[i], true
		}
	}
	return Value{}, false
}

// SourceRange is a half-open byte range into a function definition's source
// text, one entry per bytecode word.
type SourceRange struct {
	Start int32
	End   int32
}

// FuncDef is the immutable, shared record of a compiled function's code,
// constants and metadata. It is never mutated after it is fully decoded or
// compiled; closures reference it directly rather than copying it.
type FuncDef struct {
	Flags     uint32
	Arity     int32
	SlotCount int32

	Constants []Value
	Bytecode  []uint32

	// EnvIndices records, for each declared capture, which lexical depth it
	// closes over. Its length is the closure's "environments count".
	EnvIndices []int32
	Defs       []*FuncDef

	HasName bool
	Name    string

	HasSource bool
	Source    string

	HasSourceMap bool
	SourceMap    []SourceRange
}

const (
	FuncDefFlagHasName      uint32 = 1 << 0
	FuncDefFlagHasSource    uint32 = 1 << 1
	FuncDefFlagHasDefs      uint32 = 1 << 2
	FuncDefFlagHasEnvs      uint32 = 1 << 3
	FuncDefFlagHasSourceMap uint32 = 1 << 4
)

// ComputeFlags derives the flag bits from which optional sections are
// populated, matching them to Name/Source/Defs/EnvIndices/SourceMap.
func (d *FuncDef) ComputeFlags() {
	var f uint32
	if d.Name != "" {
		d.HasName = true
	}
	if d.HasName {
		f |= FuncDefFlagHasName
	}
	if d.Source != "" {
		d.HasSource = true
	}
	if d.HasSource {
		f |= FuncDefFlagHasSource
	}
	if len(d.Defs) > 0 {
		f |= FuncDefFlagHasDefs
	}
	if len(d.EnvIndices) > 0 {
		f |= FuncDefFlagHasEnvs
	}
	if len(d.SourceMap) > 0 {
		d.HasSourceMap = true
	}
	if d.HasSourceMap {
		f |= FuncDefFlagHasSourceMap
	}
	d.Flags = f
}

// FuncEnv is one captured lexical frame. A live environment points into a
// specific coroutine's data vector; a detached environment owns its own
// value vector. Offset==0 always means detached, matching the wire format.
type FuncEnv struct {
	Offset int32
	Length int32

	// Coroutine is set (and Values nil) when Offset != 0.
	Coroutine *Coroutine
	// Values is set (and Coroutine nil) when Offset == 0.
	Values []Value
}

func (e *FuncEnv) IsLive() bool { return e.Offset != 0 }

// Slots returns the live view of this environment's captured cells,
// whichever backing store is active.
func (e *FuncEnv) Slots() []Value {
	if e.IsLive() {
		return e.Coroutine.Data[e.Offset : e.Offset+e.Length]
	}
	return e.Values
}

// Closure is a function definition plus the captured environments its
// definition declares. len(Envs) always equals len(Def.EnvIndices).
type Closure struct {
	Def  *FuncDef
	Envs []*FuncEnv
}

// CoroutineStatus mirrors the small state machine a suspendable call stack
// moves through. Only Alive is forbidden from marshaling.
type CoroutineStatus uint8

const (
	CoroutineStatusAlive CoroutineStatus = iota
	CoroutineStatusSuspended
	CoroutineStatusDead
	CoroutineStatusError
)

const (
	// FrameFlagHasEnv is folded into a frame's flag word when it carries a
	// captured environment (folded in at encode time, stripped at decode).
	FrameFlagHasEnv uint32 = 1 << 30
	// CoroutineFlagHasChild is folded into the coroutine flag word when it
	// awaits a child coroutine.
	CoroutineFlagHasChild uint32 = 1 << 29
	// FrameHeaderSize is the number of data-vector slots reserved as
	// per-frame bookkeeping between a frame's base and its caller's top.
	FrameHeaderSize int32 = 1
)

// StackFrame is one activation record in a coroutine's call stack.
type StackFrame struct {
	PrevFrame int32
	Flags     uint32
	PCOffset  int32
	Closure   *Closure
	Env       *FuncEnv
	// Slots holds the values between this frame's base and the next
	// outward frame's stack top, i.e. this activation's locals.
	Slots []Value
}

// Coroutine is a suspended (or dead) call stack: a chain of frames plus the
// flat value stack backing them, and an optional child it is awaiting.
type Coroutine struct {
	Flags     uint32
	FrameBase int32

	// StackStart sits FrameHeaderSize slots above the end of the innermost
	// frame's locals, which span [FrameBase, StackStart-FrameHeaderSize);
	// the region [StackStart, StackTop) is transient scratch (e.g.
	// arguments being assembled for a call not yet made) rather than any
	// frame's slots.
	StackStart int32
	StackTop   int32
	MaxStack   int32
	Status     CoroutineStatus

	Data []Value
	// Frames is ordered innermost-first, matching encode order (§4.10).
	Frames []*StackFrame
	Child  *Coroutine
}

// OpaqueType describes a host-defined opaque value kind: its declared byte
// size and, if installed, the callbacks that let it participate in
// marshaling. A type with a nil Marshal cannot be marshaled at all.
type OpaqueType struct {
	Name      Keyword
	Size      int
	Marshal   func(w OpaqueWriter, data interface{}) error
	Unmarshal func(r OpaqueReader, size int) (interface{}, error)
}

// OpaqueWriter is the context handed to an opaque type's Marshal callback.
type OpaqueWriter interface {
	PushVarint(i int32)
	PushByte(b byte)
	PushBytes(b []byte)
	PushValue(v Value) error
}

// OpaqueReader is the context handed to an opaque type's Unmarshal callback.
type OpaqueReader interface {
	ReadVarint() (int32, error)
	ReadByte() (byte, error)
	ReadBytes(n int) ([]byte, error)
	ReadValue() (Value, error)
}

// OpaqueValue backs VTOpaque: an instance of a host-defined opaque type.
type OpaqueValue struct {
	Type *OpaqueType
	Data interface{}
}

// Constructors, matching the Bool/Int/Num/Str/Arr convention in interpreter.go.

func SymbolVal(s string) Value   { return Value{Tag: VTSymbol, Data: Symbol(s)} }
func KeywordVal(s string) Value  { return Value{Tag: VTKeyword, Data: Keyword(s)} }
func BufferVal(b []byte) Value   { return Value{Tag: VTBuffer, Data: &BufferObject{Bytes: b}} }
func TupleValRaw(elems []Value, flag uint32) Value {
	return Value{Tag: VTTuple, Data: &TupleObject{Elems: elems, Flag: flag}}
}
func StructValRaw(keys, vals []Value) Value {
	return Value{Tag: VTStruct, Data: &StructObject{Keys: keys, Vals: vals}}
}
func ClosureValRaw(c *Closure) Value       { return Value{Tag: VTClosure, Data: c} }
func CoroutineValRaw(c *Coroutine) Value   { return Value{Tag: VTCoroutine, Data: c} }
func OpaqueValRaw(o *OpaqueValue) Value    { return Value{Tag: VTOpaque, Data: o} }

// ExtString renders the extended tags for Value.String(); interpreter.go's
// String method delegates to this for tags it does not itself know about.
func ExtString(v Value) string {
	switch v.Tag {
	case VTSymbol:
		return fmt.Sprintf("'%s", string(v.Data.(Symbol)))
	case VTKeyword:
		return fmt.Sprintf(":%s", string(v.Data.(Keyword)))
	case VTBuffer:
		return fmt.Sprintf("<buffer len=%d>", len(v.Data.(*BufferObject).Bytes))
	case VTTuple:
		return fmt.Sprintf("<tuple len=%d>", len(v.Data.(*TupleObject).Elems))
	case VTStruct:
		return fmt.Sprintf("<struct len=%d>", len(v.Data.(*StructObject).Keys))
	case VTClosure:
		return "<closure>"
	case VTCoroutine:
		return "<coroutine>"
	case VTOpaque:
		o := v.Data.(*OpaqueValue)
		return fmt.Sprintf("<opaque %s>", string(o.Type.Name))
	default:
		return "<unknown>"
	}
}

// valuesEqual is a small structural-equality helper used by StructObject.Get.
// It intentionally only handles the scalar kinds needed for key lookups in
// this file; the interpreter's own deepEqual (interpreter_ops.go) is the
// general-purpose comparator used at eval time.
func valuesEqual(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case VTNull:
		return true
	case VTBool:
		return a.Data.(bool) == b.Data.(bool)
	case VTInt:
		return a.Data.(int64) == b.Data.(int64)
	case VTNum:
		return a.Data.(float64) == b.Data.(float64)
	case VTStr:
		return a.Data.(string) == b.Data.(string)
	case VTSymbol:
		return a.Data.(Symbol) == b.Data.(Symbol)
	case VTKeyword:
		return a.Data.(Keyword) == b.Data.(Keyword)
	default:
		return false
	}
}
