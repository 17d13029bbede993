package vm

import (
	"errors"
	"fmt"
)

// Error definitions
var (
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrCallStackUnderflow = errors.New("call stack underflow")
	ErrInvalidRegister    = errors.New("invalid register")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrMalformedProgram   = errors.New("malformed program")

	// Resource limit errors (exported for embed package)
	ErrInstructionLimit = errors.New("instruction limit exceeded")
)

// ExecError describes a fatal trap raised while executing a program.
type ExecError struct {
	Op  Opcode // opcode being executed, OpInvalid if it could not be decoded
	IP  int    // address of the opcode word
	Err error  // one of the sentinel errors above, possibly wrapped
}

func (e *ExecError) Error() string {
	if e.Op == OpInvalid {
		return fmt.Sprintf("at %04d: %v", e.IP, e.Err)
	}
	return fmt.Sprintf("%s at %04d: %v", e.Op, e.IP, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedProgram, fmt.Sprintf(format, args...))
}
