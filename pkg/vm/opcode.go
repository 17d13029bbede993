package vm

// Opcode represents a VM instruction opcode. Its value is the word stored
// in the program.
type Opcode int64

const (
	// ===== No-op / Stack (0-1) =====
	OpNop  Opcode = 0 // no operation
	OpPush Opcode = 1 // push imm

	// ===== Arithmetic (2-9) =====
	OpAdd   Opcode = 2 // r1 = r1 + r2
	OpAddV  Opcode = 3 // r1 = r1 + imm
	OpSub   Opcode = 4 // r1 = r1 - r2
	OpSubV  Opcode = 5 // r1 = r1 - imm
	OpMult  Opcode = 6 // r1 = r1 * r2
	OpMultV Opcode = 7 // r1 = r1 * imm
	OpDiv   Opcode = 8 // Q = r1 % r2, r1 = r1 / r2
	OpDivV  Opcode = 9 // Q = r1 % imm, r1 = r1 / imm

	// ===== Data Movement (10-15) =====
	OpPop   Opcode = 10 // pop and print
	OpMov   Opcode = 11 // dst = src
	OpSet   Opcode = 12 // dst = imm
	OpShow  Opcode = 13 // print r
	OpLoad  Opcode = 14 // push r
	OpStore Opcode = 15 // pop into r

	// ===== Jumps (16-22) =====
	OpJmp Opcode = 16 // ip = addr
	OpJz  Opcode = 17 // if r == 0: ip = addr
	OpJnz Opcode = 18 // if r != 0: ip = addr
	OpJe  Opcode = 19 // if Z == 0: ip = addr
	OpJne Opcode = 20 // if Z != 0: ip = addr
	OpJlt Opcode = 21 // if Z == -1: ip = addr
	OpJgt Opcode = 22 // if Z == 1: ip = addr

	// ===== Compare / Unary (23-28) =====
	OpCmp    Opcode = 23 // Z = compare(r1, r2)
	OpCmpV   Opcode = 24 // Z = compare(r1, imm)
	OpInc    Opcode = 25 // r++
	OpDec    Opcode = 26 // r--
	OpPrint  Opcode = 27 // write r as a character
	OpPrintV Opcode = 28 // write imm as a character

	// ===== Control Flow (29-31) =====
	OpCall Opcode = 29 // push frame, ip = addr
	OpRet  Opcode = 30 // pop frame, ip = return address
	OpStop Opcode = 31 // halt

	// OpInvalid marks a word that is not an opcode.
	OpInvalid Opcode = -1
)

// NumOpcodes is the number of defined opcodes.
const NumOpcodes = 32

// Valid reports whether o is a defined opcode.
func (o Opcode) Valid() bool {
	return o >= OpNop && o <= OpStop
}

// String returns the string representation of an opcode.
func (o Opcode) String() string {
	switch o {
	case OpNop:
		return "NOP"
	case OpPush:
		return "PUSH"

	// Arithmetic
	case OpAdd:
		return "ADD"
	case OpAddV:
		return "ADDV"
	case OpSub:
		return "SUB"
	case OpSubV:
		return "SUBV"
	case OpMult:
		return "MULT"
	case OpMultV:
		return "MULTV"
	case OpDiv:
		return "DIV"
	case OpDivV:
		return "DIVV"

	// Data Movement
	case OpPop:
		return "POP"
	case OpMov:
		return "MOV"
	case OpSet:
		return "SET"
	case OpShow:
		return "SHOW"
	case OpLoad:
		return "LOAD"
	case OpStore:
		return "STORE"

	// Jumps
	case OpJmp:
		return "JMP"
	case OpJz:
		return "JZ"
	case OpJnz:
		return "JNZ"
	case OpJe:
		return "JE"
	case OpJne:
		return "JNE"
	case OpJlt:
		return "JLT"
	case OpJgt:
		return "JGT"

	// Compare / Unary
	case OpCmp:
		return "CMP"
	case OpCmpV:
		return "CMPV"
	case OpInc:
		return "INC"
	case OpDec:
		return "DEC"
	case OpPrint:
		return "PRINT"
	case OpPrintV:
		return "PRINTV"

	// Control Flow
	case OpCall:
		return "CALL"
	case OpRet:
		return "RET"
	case OpStop:
		return "STOP"

	default:
		return "UNKNOWN"
	}
}

// OpcodeFromString returns the opcode for the given mnemonic.
// MOVV is accepted as an alias of SET.
func OpcodeFromString(s string) (Opcode, bool) {
	if s == "MOVV" {
		return OpSet, true
	}
	for o := OpNop; o <= OpStop; o++ {
		if o.String() == s {
			return o, true
		}
	}
	return OpInvalid, false
}

// OperandKind describes how an inline operand word is interpreted.
type OperandKind uint8

const (
	KindReg  OperandKind = iota // register index
	KindImm                     // immediate value
	KindAddr                    // absolute jump/call target
)

// Operands returns the kinds of the inline operands that follow o,
// in program order.
func (o Opcode) Operands() []OperandKind {
	switch o {
	case OpNop, OpPop, OpRet, OpStop:
		return nil
	case OpPush, OpPrintV:
		return []OperandKind{KindImm}
	case OpShow, OpLoad, OpStore, OpInc, OpDec, OpPrint:
		return []OperandKind{KindReg}
	case OpJmp, OpJe, OpJne, OpJlt, OpJgt, OpCall:
		return []OperandKind{KindAddr}
	case OpJz, OpJnz:
		return []OperandKind{KindReg, KindAddr}
	case OpAdd, OpSub, OpMult, OpDiv, OpMov, OpCmp:
		return []OperandKind{KindReg, KindReg}
	case OpAddV, OpSubV, OpMultV, OpDivV, OpSet, OpCmpV:
		return []OperandKind{KindReg, KindImm}
	default:
		return nil
	}
}

// Width returns the encoded size of o in words, including the opcode word.
func (o Opcode) Width() int {
	return 1 + len(o.Operands())
}
