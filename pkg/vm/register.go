package vm

import "fmt"

// Register identifies a slot in the register file.
type Register int64

const (
	R1 Register = iota
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	R16
	Q // Remainder of the last DIV/DIVV
	Z // Result of the last CMP/CMPV: -1, 0 or 1

	NumRegisters = 18
)

// NumGeneralRegs is the number of general-purpose registers (R1-R16).
const NumGeneralRegs = 16

// Valid reports whether r names a register.
func (r Register) Valid() bool {
	return r >= 0 && r < NumRegisters
}

// String returns the register name used by the disassembler.
func (r Register) String() string {
	switch {
	case r == Q:
		return "Q"
	case r == Z:
		return "Z"
	case r >= R1 && r <= R16:
		return fmt.Sprintf("R%d", int64(r)+1)
	default:
		return fmt.Sprintf("R?%d", int64(r))
	}
}

// RegisterFromString returns the register for the given name.
func RegisterFromString(s string) (Register, bool) {
	switch s {
	case "Q":
		return Q, true
	case "Z":
		return Z, true
	}
	var n int
	if _, err := fmt.Sscanf(s, "R%d", &n); err != nil || n < 1 || n > NumGeneralRegs {
		return 0, false
	}
	if fmt.Sprintf("R%d", n) != s {
		return 0, false
	}
	return Register(n - 1), true
}

// RegisterFile holds the 16 general registers plus the remainder and
// comparison registers. All registers start at zero.
type RegisterFile struct {
	regs [NumRegisters]int64
}

// NewRegisterFile creates a new register file with all registers zeroed.
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{}
}

// Get returns the value of register r.
func (rf *RegisterFile) Get(r Register) (int64, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRegister, int64(r))
	}
	return rf.regs[r], nil
}

// Set writes v into register r.
func (rf *RegisterFile) Set(r Register, v int64) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidRegister, int64(r))
	}
	rf.regs[r] = v
	return nil
}

// Values returns a copy of every register, indexed by Register.
func (rf *RegisterFile) Values() [NumRegisters]int64 {
	return rf.regs
}

// at and put skip validation; callers pass registers that came out of Decode.
func (rf *RegisterFile) at(r Register) int64 {
	return rf.regs[r]
}

func (rf *RegisterFile) put(r Register, v int64) {
	rf.regs[r] = v
}

// Reset clears all registers.
func (rf *RegisterFile) Reset() {
	for i := range rf.regs {
		rf.regs[i] = 0
	}
}
