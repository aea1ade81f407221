// opcode.go: the wire opcode table (§4.3). All opcodes lie in 0xC8..0xDD;
// bytes below 0xC8 are never opcodes, they are the lead byte of an inlined
// integer (see varint.go).
package marshal

const (
	opLongInt    byte = 0xC8 // 4 bytes big-endian
	opReal       byte = 0xC9 // 8 bytes IEEE-754, little-endian on the wire
	opNil        byte = 0xCA
	opFalse      byte = 0xCB
	opTrue       byte = 0xCC
	opCoroutine  byte = 0xCD
	_reservedCE  byte = 0xCE // unreachable: integer-kind prefix, never a lead byte here
	opString     byte = 0xCF
	opSymbol     byte = 0xD0
	opKeyword    byte = 0xD1
	opArray      byte = 0xD2
	opTuple      byte = 0xD3
	opTable      byte = 0xD4
	opTableProto byte = 0xD5
	opStruct     byte = 0xD6
	opBuffer     byte = 0xD7
	opFunction   byte = 0xD8
	opRegistry   byte = 0xD9
	opOpaque     byte = 0xDA
	opReference  byte = 0xDB
	opFuncEnvRef byte = 0xDC
	opFuncDefRef byte = 0xDD
)

var _ = _reservedCE
