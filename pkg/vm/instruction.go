package vm

import (
	"fmt"
	"strings"
)

// Instruction is a decoded instruction: an opcode with its typed operands.
// Only the fields named by Op.Operands() are meaningful.
//
// Encoding (one 64-bit word per slot):
//
//	┌────────┬───────────┬───────────┐
//	│ opcode │ operand 1 │ operand 2 │
//	└────────┴───────────┴───────────┘
//
// Register-register forms use Reg1/Reg2, register-immediate forms use
// Reg1/Imm, jumps use Addr (and Reg1 for JZ/JNZ).
type Instruction struct {
	Op   Opcode
	Reg1 Register
	Reg2 Register
	Imm  int64
	Addr int
}

// Width returns the encoded size of the instruction in words.
func (i Instruction) Width() int {
	return i.Op.Width()
}

// Decode decodes the instruction starting at program[ip]. Register
// operands are validated here, so a decoded instruction never names a
// register outside the register file.
func Decode(program []int64, ip int) (Instruction, error) {
	if ip < 0 || ip >= len(program) {
		return Instruction{Op: OpInvalid}, malformed("instruction pointer %d outside program of %d words", ip, len(program))
	}
	op := Opcode(program[ip])
	if !op.Valid() {
		return Instruction{Op: OpInvalid}, malformed("unknown opcode %d", program[ip])
	}

	inst := Instruction{Op: op}
	kinds := op.Operands()
	if ip+len(kinds) >= len(program) {
		return inst, malformed("not enough operands for %s", op)
	}

	regs := 0
	for n, kind := range kinds {
		w := program[ip+1+n]
		switch kind {
		case KindReg:
			r := Register(w)
			if !r.Valid() {
				return inst, fmt.Errorf("%w: %d", ErrInvalidRegister, w)
			}
			if regs == 0 {
				inst.Reg1 = r
			} else {
				inst.Reg2 = r
			}
			regs++
		case KindImm:
			inst.Imm = w
		case KindAddr:
			inst.Addr = int(w)
		}
	}
	return inst, nil
}

// Words returns the encoded form of the instruction.
func (i Instruction) Words() []int64 {
	out := []int64{int64(i.Op)}
	regs := 0
	for _, kind := range i.Op.Operands() {
		switch kind {
		case KindReg:
			if regs == 0 {
				out = append(out, int64(i.Reg1))
			} else {
				out = append(out, int64(i.Reg2))
			}
			regs++
		case KindImm:
			out = append(out, i.Imm)
		case KindAddr:
			out = append(out, int64(i.Addr))
		}
	}
	return out
}

// Encode concatenates the encoded form of each instruction.
func Encode(instrs ...Instruction) []int64 {
	var out []int64
	for _, inst := range instrs {
		out = append(out, inst.Words()...)
	}
	return out
}

// String returns a human-readable representation of the instruction.
func (i Instruction) String() string {
	kinds := i.Op.Operands()
	if len(kinds) == 0 {
		return i.Op.String()
	}

	args := make([]string, 0, len(kinds))
	regs := 0
	for _, kind := range kinds {
		switch kind {
		case KindReg:
			if regs == 0 {
				args = append(args, i.Reg1.String())
			} else {
				args = append(args, i.Reg2.String())
			}
			regs++
		case KindImm:
			if i.Op == OpPrintV && i.Imm >= 0x20 && i.Imm < 0x7f {
				args = append(args, fmt.Sprintf("'%c'", rune(i.Imm)))
			} else {
				args = append(args, fmt.Sprintf("$%d", i.Imm))
			}
		case KindAddr:
			args = append(args, fmt.Sprintf("%d", i.Addr))
		}
	}
	return fmt.Sprintf("%-6s %s", i.Op, strings.Join(args, ", "))
}
