package vm

import "fmt"

// Fault is a VM-level error: an uncaught exception, an opcode
// precondition violation, or an out-of-gas/out-of-bounds condition. It
// carries an instruction pointer so logs/tests can pin the faulting
// opcode (spec.md §4.1 "faults transition the engine to FAULT").
type Fault struct {
	IP      int
	Op      string
	Message string
}

func (f *Fault) Error() string {
	if f.Op == "" {
		return f.Message
	}
	return fmt.Sprintf("at instruction %d (%s): %s", f.IP, f.Op, f.Message)
}

func newFault(ip int, op string, format string, args ...any) *Fault {
	return &Fault{IP: ip, Op: op, Message: fmt.Sprintf(format, args...)}
}
