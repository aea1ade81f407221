// log.go: diagnostic logging, wired the way chazu-maggie's LSP server wires
// it — package-level commonlog messages, no logger instance threaded
// through every call.
package marshal

import (
	"fmt"

	"github.com/tliron/commonlog"
)

func logVerifyFailure(name string) {
	commonlog.NewErrorMessage(0, fmt.Sprintf("bytecode verification failed for definition %q", name))
}

func logAliveCoroutine() {
	commonlog.NewErrorMessage(0, "refused to marshal an alive coroutine")
}
