// Package assert holds the engine's last-resort invariant checks, for
// conditions that indicate a programming error rather than a runtime or
// transport failure (those go through internal/xerrors and are returned to
// the caller, never aborted on). Adapted from the teacher's utils/assert:
// the abort is still a plain os.Exit(1) after a stderr message, but the
// message now carries the internal/xerrors.Kind the violated invariant
// protects, so an operator reading a crash log sees which subsystem's
// contract broke instead of a bare file:line.
package assert

import (
	"fmt"
	"os"
	"runtime"

	"github.com/lsds/gpureduce/internal/xerrors"
)

func perror(kind xerrors.Kind, loc, msg string) {
	fmt.Fprintf(os.Stderr, "invariant violated [%s] at %s: %s\n", kind, loc, msg)
}

// True aborts the process if ok is false. kind names the error category
// the invariant guards (e.g. xerrors.CollectiveRuntimeError for a device
// precondition); format/v describe what was actually observed. Reserved
// for conditions the spec states a correct caller can never trigger - e.g.
// touching a device-keyed pool with the host pseudo-device id.
func True(ok bool, kind xerrors.Kind, format string, v ...interface{}) {
	if !ok {
		_, fn, line, _ := runtime.Caller(1)
		loc := fmt.Sprintf("%s:%d", fn, line)
		perror(kind, loc, fmt.Sprintf(format, v...))
		os.Exit(1)
	}
}
