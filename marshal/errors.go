// errors.go: the marshal subsystem's error taxonomy.
//
// Every failure kind in §7 of the design gets its own sentinel so callers can
// errors.Is() against a specific cause instead of string-matching messages.
// Wrapping uses github.com/pkg/errors so a failure deep inside a nested
// funcdef or a nine-frame coroutine still carries a stack trace back to the
// entry point that can be logged for diagnosis.
package marshal

import (
	"github.com/pkg/errors"
)

// Sentinel causes, one per row of the §7 error taxonomy. All are terminal:
// there is no partial success and no internal recovery.
var (
	ErrTruncated          = errors.New("truncated")
	ErrBadOpcode          = errors.New("bad_opcode")
	ErrBadReference       = errors.New("bad_reference")
	ErrBadBytecode        = errors.New("bad_bytecode")
	ErrBadFrame           = errors.New("bad_frame")
	ErrAliveCoroutine     = errors.New("alive_coroutine")
	ErrNativeFrame        = errors.New("native_frame")
	ErrUnregisteredOpaque = errors.New("unregistered_opaque")
	ErrNoEncoding         = errors.New("no_encoding")
	ErrStackOverflow      = errors.New("stack_overflow")
)

// fail wraps a sentinel with context and a stack trace captured at the call
// site, e.g. fail(ErrBadOpcode, "byte 0x%02x at offset %d", b, off).
func fail(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}
