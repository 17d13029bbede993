package vm

import (
	"errors"
	"testing"
)

func TestOpcode_Widths(t *testing.T) {
	tests := []struct {
		op    Opcode
		width int
	}{
		{OpNop, 1},
		{OpPop, 1},
		{OpRet, 1},
		{OpStop, 1},
		{OpPush, 2},
		{OpShow, 2},
		{OpInc, 2},
		{OpDec, 2},
		{OpPrint, 2},
		{OpPrintV, 2},
		{OpJmp, 2},
		{OpJlt, 2},
		{OpCall, 2},
		{OpJz, 3},
		{OpJnz, 3},
		{OpAdd, 3},
		{OpAddV, 3},
		{OpDiv, 3},
		{OpSet, 3},
		{OpMov, 3},
		{OpCmp, 3},
		{OpCmpV, 3},
	}

	for _, tt := range tests {
		if got := tt.op.Width(); got != tt.width {
			t.Errorf("%s.Width() = %d, want %d", tt.op, got, tt.width)
		}
	}
}

func TestOpcode_StringRoundTrip(t *testing.T) {
	for o := OpNop; o <= OpStop; o++ {
		name := o.String()
		if name == "UNKNOWN" {
			t.Errorf("opcode %d has no name", int64(o))
			continue
		}
		got, ok := OpcodeFromString(name)
		if !ok || got != o {
			t.Errorf("OpcodeFromString(%q) = %v, %v", name, got, ok)
		}
	}

	if got, ok := OpcodeFromString("MOVV"); !ok || got != OpSet {
		t.Errorf("expected MOVV alias for SET, got %v, %v", got, ok)
	}
	if _, ok := OpcodeFromString("HALT"); ok {
		t.Error("expected HALT to be unknown")
	}
	if Opcode(NumOpcodes).Valid() {
		t.Error("expected opcode 32 to be invalid")
	}
}

func TestDecode_Operands(t *testing.T) {
	program := []int64{
		int64(OpJnz), int64(R2), 9,
		int64(OpSubV), int64(R3), -4,
		int64(OpMov), int64(R16), int64(Q),
	}

	inst, err := Decode(program, 0)
	if err != nil {
		t.Fatalf("Decode JNZ failed: %v", err)
	}
	if inst.Op != OpJnz || inst.Reg1 != R2 || inst.Addr != 9 {
		t.Errorf("unexpected JNZ decode: %+v", inst)
	}

	inst, err = Decode(program, 3)
	if err != nil {
		t.Fatalf("Decode SUBV failed: %v", err)
	}
	if inst.Op != OpSubV || inst.Reg1 != R3 || inst.Imm != -4 {
		t.Errorf("unexpected SUBV decode: %+v", inst)
	}

	inst, err = Decode(program, 6)
	if err != nil {
		t.Fatalf("Decode MOV failed: %v", err)
	}
	if inst.Op != OpMov || inst.Reg1 != R16 || inst.Reg2 != Q {
		t.Errorf("unexpected MOV decode: %+v", inst)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		program []int64
		ip      int
		want    error
	}{
		{"unknown opcode", []int64{99}, 0, ErrMalformedProgram},
		{"negative opcode", []int64{-1}, 0, ErrMalformedProgram},
		{"missing operand", []int64{int64(OpSet), int64(R1)}, 0, ErrMalformedProgram},
		{"missing address", []int64{int64(OpJmp)}, 0, ErrMalformedProgram},
		{"ip past end", []int64{int64(OpNop)}, 1, ErrMalformedProgram},
		{"ip negative", []int64{int64(OpNop)}, -3, ErrMalformedProgram},
		{"register too large", []int64{int64(OpShow), 18}, 0, ErrInvalidRegister},
		{"register negative", []int64{int64(OpInc), -1}, 0, ErrInvalidRegister},
		{"second register", []int64{int64(OpAdd), 0, 100}, 0, ErrInvalidRegister},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.program, tt.ip)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEncode_MatchesDecode(t *testing.T) {
	instrs := []Instruction{
		{Op: OpSet, Reg1: R1, Imm: 10},
		{Op: OpCmp, Reg1: R1, Reg2: R2},
		{Op: OpJz, Reg1: R4, Addr: 0},
		{Op: OpPrintV, Imm: 'x'},
		{Op: OpCall, Addr: 12},
		{Op: OpRet},
	}

	words := Encode(instrs...)
	if len(words) != 3+3+3+2+2+1 {
		t.Fatalf("unexpected encoded length %d", len(words))
	}

	ip := 0
	for _, want := range instrs {
		got, err := Decode(words, ip)
		if err != nil {
			t.Fatalf("Decode at %d failed: %v", ip, err)
		}
		if got != want {
			t.Errorf("at %d: expected %+v, got %+v", ip, want, got)
		}
		ip += got.Width()
	}
}

func TestInstruction_String(t *testing.T) {
	tests := []struct {
		inst Instruction
		want string
	}{
		{Instruction{Op: OpStop}, "STOP"},
		{Instruction{Op: OpSet, Reg1: R1, Imm: 10}, "SET    R1, $10"},
		{Instruction{Op: OpJnz, Reg1: R2, Addr: 9}, "JNZ    R2, 9"},
		{Instruction{Op: OpPrintV, Imm: 'A'}, "PRINTV 'A'"},
		{Instruction{Op: OpPrintV, Imm: 10}, "PRINTV $10"},
		{Instruction{Op: OpDiv, Reg1: R1, Reg2: Q}, "DIV    R1, Q"},
	}

	for _, tt := range tests {
		if got := tt.inst.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
