package vm

import "fmt"

// savedRegs lists, in push order, the registers a CALL preserves.
// R11-R16 are left alone so a callee can return values in them.
var savedRegs = [...]Register{R1, R2, R3, R4, R5, R6, R7, R8, R9, R10, Q, Z}

// FrameSize is the number of words a CALL pushes: the saved registers
// plus the return address.
const FrameSize = len(savedRegs) + 1

// CallFrames implements CALL/RET on top of the operand stack. It only
// touches the stack and register file through their public methods.
type CallFrames struct {
	stack *Stack
	regs  *RegisterFile
	fps   []int // stack depth recorded after each CALL pushed its frame
}

// NewCallFrames creates a call frame manager over the given stack and registers.
func NewCallFrames(stack *Stack, regs *RegisterFile) *CallFrames {
	return &CallFrames{stack: stack, regs: regs}
}

// Call saves R1-R10, Q, Z and the return address on the stack and opens
// a new frame.
func (cf *CallFrames) Call(returnAddr int) error {
	for _, r := range savedRegs {
		v, err := cf.regs.Get(r)
		if err != nil {
			return err
		}
		cf.stack.Push(v)
	}
	cf.stack.Push(int64(returnAddr))
	cf.fps = append(cf.fps, cf.stack.Depth())
	return nil
}

// Ret closes the innermost frame: it discards anything the callee left on
// the stack, restores the saved registers and returns the return address.
func (cf *CallFrames) Ret() (int, error) {
	if len(cf.fps) == 0 {
		return 0, ErrCallStackUnderflow
	}
	fp := cf.fps[len(cf.fps)-1]
	cf.fps = cf.fps[:len(cf.fps)-1]

	if err := cf.stack.Unwind(fp); err != nil {
		return 0, fmt.Errorf("call frame clobbered: %w", err)
	}

	addr, err := cf.stack.Pop()
	if err != nil {
		return 0, err
	}
	for i := len(savedRegs) - 1; i >= 0; i-- {
		v, err := cf.stack.Pop()
		if err != nil {
			return 0, err
		}
		if err := cf.regs.Set(savedRegs[i], v); err != nil {
			return 0, err
		}
	}
	return int(addr), nil
}

// Depth returns the current call nesting depth.
func (cf *CallFrames) Depth() int {
	return len(cf.fps)
}

// FramePointers returns a copy of the recorded frame pointers, outermost first.
func (cf *CallFrames) FramePointers() []int {
	out := make([]int, len(cf.fps))
	copy(out, cf.fps)
	return out
}

// Reset drops every open frame. The stack itself is not touched.
func (cf *CallFrames) Reset() {
	cf.fps = cf.fps[:0]
}
