// Package vm implements the regvm virtual machine.
//
// The VM is a register-based bytecode interpreter with:
//   - 16 general registers (R1-R16) of signed 64-bit words
//   - a remainder register (Q) written by DIV and a comparison register (Z) written by CMP
//   - a growable operand stack shared by PUSH/POP/LOAD/STORE and CALL/RET frames
//
// A program is a flat sequence of int64 words; each opcode word is followed
// by its inline operands.
//
// Basic usage:
//
//	v := vm.NewVM()
//	v.Load(words)
//	err := v.Execute()
//
// With resource limits:
//
//	v := vm.NewVM()
//	v.SetMaxSteps(10000)
//	v.SetContext(ctx)
//	v.Load(words)
//	err := v.Execute()
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ExecutionStats contains metrics about VM execution for observability.
type ExecutionStats struct {
	StepsExecuted   int64          // Total instructions executed
	ExecutionTimeNs int64          // Execution time in nanoseconds
	OpCounts        map[string]int // Count of each opcode executed
	PeakStackDepth  int            // Deepest operand stack seen
	PeakCallDepth   int            // Deepest call nesting seen
	StackGrows      int            // Buffer growth events
	StackShrinks    int            // Buffer shrink events
}

// VM represents the virtual machine.
type VM struct {
	program []int64
	decoded []Instruction // decode cache, valid where cached[i] is set
	cached  []bool

	registers *RegisterFile
	stack     *Stack
	frames    *CallFrames
	policy    StackPolicy
	ip        int // Instruction pointer
	halted    bool

	out io.Writer

	// Resource limits
	maxSteps  int64
	stepCount int64

	// Context for cancellation
	ctx context.Context

	// Observability
	stats        ExecutionStats
	statsEnabled bool
	trace        *traceRecorder
}

// NewVM creates a new VM instance writing to os.Stdout.
func NewVM() *VM {
	v := &VM{
		registers: NewRegisterFile(),
		policy:    DefaultStackPolicy(),
		out:       os.Stdout,
	}
	v.stack = NewStack(v.policy)
	v.frames = NewCallFrames(v.stack, v.registers)
	return v
}

// Load loads a program into the VM and resets all machine state.
func (vm *VM) Load(program []int64) error {
	vm.program = program
	vm.decoded = make([]Instruction, len(program))
	vm.cached = make([]bool, len(program))
	vm.Reset()
	return nil
}

// Reset returns the machine to its initial state without unloading the program.
func (vm *VM) Reset() {
	vm.ip = 0
	vm.halted = false
	vm.stepCount = 0
	vm.registers.Reset()
	vm.stack = NewStack(vm.policy)
	vm.frames = NewCallFrames(vm.stack, vm.registers)
	if vm.statsEnabled {
		vm.EnableStats()
	}
	if vm.trace != nil {
		vm.trace.reset()
	}
}

// SetOutput sets where SHOW, POP and PRINT write.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetStackPolicy sets the operand stack growth policy. It takes effect on
// the next Load or Reset.
func (vm *VM) SetStackPolicy(p StackPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	vm.policy = p
	return nil
}

// SetMaxSteps sets the maximum number of execution steps. Zero means unlimited.
func (vm *VM) SetMaxSteps(n int64) {
	vm.maxSteps = n
}

// SetContext sets the context for cancellation/timeout.
func (vm *VM) SetContext(ctx context.Context) {
	vm.ctx = ctx
}

// EnableStats enables execution statistics collection.
func (vm *VM) EnableStats() {
	vm.statsEnabled = true
	vm.stats = ExecutionStats{
		OpCounts: make(map[string]int),
	}
}

// Stats returns the execution statistics gathered so far.
// Returns nil if stats were not enabled via EnableStats().
func (vm *VM) Stats() *ExecutionStats {
	if !vm.statsEnabled {
		return nil
	}
	vm.stats.StackGrows, vm.stats.StackShrinks = vm.stack.Resizes()
	return &vm.stats
}

// IP returns the instruction pointer.
func (vm *VM) IP() int {
	return vm.ip
}

// Halted reports whether STOP has been executed.
func (vm *VM) Halted() bool {
	return vm.halted
}

// Program returns the loaded program.
func (vm *VM) Program() []int64 {
	return vm.program
}

// Registers returns a copy of the register file contents.
func (vm *VM) Registers() [NumRegisters]int64 {
	return vm.registers.Values()
}

// StackValues returns a copy of the operand stack, bottom first.
func (vm *VM) StackValues() []int64 {
	return vm.stack.Values()
}

// CallDepth returns the number of outstanding CALLs.
func (vm *VM) CallDepth() int {
	return vm.frames.Depth()
}

// FramePointers returns the stack depth recorded by each outstanding CALL.
func (vm *VM) FramePointers() []int {
	return vm.frames.FramePointers()
}

// Execute runs the loaded program until STOP or a fatal error.
func (vm *VM) Execute() error {
	var startTime time.Time
	if vm.statsEnabled {
		startTime = time.Now()
		defer func() {
			vm.stats.ExecutionTimeNs += time.Since(startTime).Nanoseconds()
		}()
	}

	for !vm.halted {
		// Context cancellation check
		if vm.ctx != nil {
			select {
			case <-vm.ctx.Done():
				return vm.ctx.Err()
			default:
			}
		}

		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes a single instruction. Stepping a halted VM does nothing.
func (vm *VM) Step() error {
	if vm.halted {
		return nil
	}

	// Resource limit check
	if vm.maxSteps > 0 && vm.stepCount >= vm.maxSteps {
		return &ExecError{Op: OpInvalid, IP: vm.ip, Err: ErrInstructionLimit}
	}
	vm.stepCount++

	inst, err := vm.fetch()
	if err != nil {
		return &ExecError{Op: inst.Op, IP: vm.ip, Err: err}
	}

	if vm.trace != nil {
		vm.trace.record(vm.stepCount, vm.ip, inst.Op, vm.stack.Depth(), vm.frames.Depth())
	}

	if err := vm.exec(inst); err != nil {
		return &ExecError{Op: inst.Op, IP: vm.ip, Err: err}
	}

	if vm.statsEnabled {
		vm.stats.StepsExecuted++
		vm.stats.OpCounts[inst.Op.String()]++
		if d := vm.stack.Depth(); d > vm.stats.PeakStackDepth {
			vm.stats.PeakStackDepth = d
		}
		if d := vm.frames.Depth(); d > vm.stats.PeakCallDepth {
			vm.stats.PeakCallDepth = d
		}
	}
	return nil
}

// fetch decodes the instruction at ip, memoizing the result.
func (vm *VM) fetch() (Instruction, error) {
	if vm.ip >= 0 && vm.ip < len(vm.program) && vm.cached[vm.ip] {
		return vm.decoded[vm.ip], nil
	}
	if vm.ip == len(vm.program) {
		return Instruction{Op: OpInvalid}, malformed("ran off the end of the program without STOP")
	}
	inst, err := Decode(vm.program, vm.ip)
	if err != nil {
		return inst, err
	}
	vm.decoded[vm.ip] = inst
	vm.cached[vm.ip] = true
	return inst, nil
}

// exec runs one decoded instruction and moves ip to the next one.
func (vm *VM) exec(inst Instruction) error {
	regs := vm.registers
	next := vm.ip + inst.Width()

	switch inst.Op {
	case OpNop:

	case OpStop:
		vm.halted = true

	// ===== Arithmetic =====
	case OpAdd:
		regs.put(inst.Reg1, regs.at(inst.Reg1)+regs.at(inst.Reg2))
	case OpAddV:
		regs.put(inst.Reg1, regs.at(inst.Reg1)+inst.Imm)
	case OpSub:
		regs.put(inst.Reg1, regs.at(inst.Reg1)-regs.at(inst.Reg2))
	case OpSubV:
		regs.put(inst.Reg1, regs.at(inst.Reg1)-inst.Imm)
	case OpMult:
		regs.put(inst.Reg1, regs.at(inst.Reg1)*regs.at(inst.Reg2))
	case OpMultV:
		regs.put(inst.Reg1, regs.at(inst.Reg1)*inst.Imm)
	case OpDiv:
		if err := vm.divide(inst.Reg1, regs.at(inst.Reg2)); err != nil {
			return err
		}
	case OpDivV:
		if err := vm.divide(inst.Reg1, inst.Imm); err != nil {
			return err
		}
	case OpInc:
		regs.put(inst.Reg1, regs.at(inst.Reg1)+1)
	case OpDec:
		regs.put(inst.Reg1, regs.at(inst.Reg1)-1)

	// ===== Data Movement =====
	case OpSet:
		regs.put(inst.Reg1, inst.Imm)
	case OpMov:
		regs.put(inst.Reg1, regs.at(inst.Reg2))
	case OpPush:
		vm.stack.Push(inst.Imm)
	case OpPop:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.writeNumber(v); err != nil {
			return err
		}
	case OpLoad:
		vm.stack.Push(regs.at(inst.Reg1))
	case OpStore:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		regs.put(inst.Reg1, v)

	// ===== Output =====
	case OpShow:
		if err := vm.writeNumber(regs.at(inst.Reg1)); err != nil {
			return err
		}
	case OpPrint:
		if err := vm.writeChar(regs.at(inst.Reg1)); err != nil {
			return err
		}
	case OpPrintV:
		if err := vm.writeChar(inst.Imm); err != nil {
			return err
		}

	// ===== Compare and Jumps =====
	case OpCmp:
		regs.put(Z, compare(regs.at(inst.Reg1), regs.at(inst.Reg2)))
	case OpCmpV:
		regs.put(Z, compare(regs.at(inst.Reg1), inst.Imm))
	case OpJmp:
		next = inst.Addr
	case OpJz:
		if regs.at(inst.Reg1) == 0 {
			next = inst.Addr
		}
	case OpJnz:
		if regs.at(inst.Reg1) != 0 {
			next = inst.Addr
		}
	case OpJe:
		if regs.at(Z) == 0 {
			next = inst.Addr
		}
	case OpJne:
		if regs.at(Z) != 0 {
			next = inst.Addr
		}
	case OpJlt:
		if regs.at(Z) == -1 {
			next = inst.Addr
		}
	case OpJgt:
		if regs.at(Z) == 1 {
			next = inst.Addr
		}

	// ===== Calls =====
	case OpCall:
		if err := vm.frames.Call(next); err != nil {
			return err
		}
		next = inst.Addr
	case OpRet:
		addr, err := vm.frames.Ret()
		if err != nil {
			return err
		}
		next = addr

	default:
		return malformed("unknown opcode %d", int64(inst.Op))
	}

	vm.ip = next
	return nil
}

// divide sets Q to the remainder and dst to the truncated quotient.
func (vm *VM) divide(dst Register, divisor int64) error {
	if divisor == 0 {
		return ErrDivisionByZero
	}
	dividend := vm.registers.at(dst)
	vm.registers.put(Q, dividend%divisor)
	vm.registers.put(dst, dividend/divisor)
	return nil
}

func compare(a, b int64) int64 {
	switch {
	case a < b:
		return -1
	case a == b:
		return 0
	default:
		return 1
	}
}

func (vm *VM) writeNumber(v int64) error {
	buf := strconv.AppendInt(make([]byte, 0, 21), v, 10)
	buf = append(buf, '\n')
	if _, err := vm.out.Write(buf); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// writeChar writes the low byte of v, like C's putchar.
func (vm *VM) writeChar(v int64) error {
	if _, err := vm.out.Write([]byte{byte(v)}); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
