package vm

import (
	"errors"
	"testing"
)

func newFrames() (*CallFrames, *Stack, *RegisterFile) {
	s := NewStack(smallPolicy())
	rf := NewRegisterFile()
	return NewCallFrames(s, rf), s, rf
}

func TestCallFrames_CallRetRestores(t *testing.T) {
	cf, s, rf := newFrames()

	for r := R1; r < NumRegisters; r++ {
		rf.Set(r, int64(r)+100)
	}
	s.Push(7) // caller's own value

	if err := cf.Call(55); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if cf.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", cf.Depth())
	}
	if s.Depth() != 1+FrameSize {
		t.Fatalf("expected stack depth %d, got %d", 1+FrameSize, s.Depth())
	}

	// Callee clobbers everything and leaves junk on the stack.
	for r := R1; r < NumRegisters; r++ {
		rf.Set(r, -1)
	}
	s.Push(1)
	s.Push(2)

	addr, err := cf.Ret()
	if err != nil {
		t.Fatalf("Ret failed: %v", err)
	}
	if addr != 55 {
		t.Errorf("expected return address 55, got %d", addr)
	}

	for _, r := range savedRegs {
		if v, _ := rf.Get(r); v != int64(r)+100 {
			t.Errorf("expected %s restored to %d, got %d", r, int64(r)+100, v)
		}
	}
	for r := R11; r <= R16; r++ {
		if v, _ := rf.Get(r); v != -1 {
			t.Errorf("expected %s left as callee value -1, got %d", r, v)
		}
	}

	if got := s.Values(); len(got) != 1 || got[0] != 7 {
		t.Errorf("expected caller stack [7], got %v", got)
	}
	if cf.Depth() != 0 {
		t.Errorf("expected depth 0, got %d", cf.Depth())
	}
}

func TestCallFrames_Nested(t *testing.T) {
	cf, _, rf := newFrames()

	for depth := 1; depth <= 50; depth++ {
		rf.Set(R1, int64(depth))
		if err := cf.Call(depth * 10); err != nil {
			t.Fatalf("Call %d failed: %v", depth, err)
		}
	}

	for depth := 50; depth >= 1; depth-- {
		addr, err := cf.Ret()
		if err != nil {
			t.Fatalf("Ret %d failed: %v", depth, err)
		}
		if addr != depth*10 {
			t.Errorf("expected return address %d, got %d", depth*10, addr)
		}
		if v, _ := rf.Get(R1); v != int64(depth) {
			t.Errorf("expected R1 = %d, got %d", depth, v)
		}
	}
}

func TestCallFrames_RetWithoutCall(t *testing.T) {
	cf, _, _ := newFrames()

	if _, err := cf.Ret(); !errors.Is(err, ErrCallStackUnderflow) {
		t.Errorf("expected ErrCallStackUnderflow, got %v", err)
	}
}

func TestCallFrames_ClobberedFrame(t *testing.T) {
	cf, s, _ := newFrames()

	if err := cf.Call(3); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	// Callee pops into its own saved context.
	s.Pop()
	s.Pop()

	if _, err := cf.Ret(); !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("expected ErrStackUnderflow for a clobbered frame, got %v", err)
	}
}

func TestCallFrames_FramePointers(t *testing.T) {
	cf, s, _ := newFrames()
	s.Push(1)
	cf.Call(0)
	s.Push(2)
	cf.Call(0)

	fps := cf.FramePointers()
	want := []int{1 + FrameSize, 2 + 2*FrameSize}
	if len(fps) != len(want) {
		t.Fatalf("expected %d frame pointers, got %d", len(want), len(fps))
	}
	for i := range want {
		if fps[i] != want[i] {
			t.Errorf("frame %d: expected %d, got %d", i, want[i], fps[i])
		}
	}

	cf.Reset()
	if cf.Depth() != 0 {
		t.Errorf("expected depth 0 after reset, got %d", cf.Depth())
	}
}
