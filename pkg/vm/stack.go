package vm

import (
	"fmt"
	"math"
)

// StackPolicy controls how the operand stack grows and shrinks.
type StackPolicy struct {
	InitialCapacity int     // Capacity allocated up front, and the floor for shrinking
	GrowthFactor    float64 // Capacity multiplier applied when a push finds the buffer full
	ShrinkThreshold float64 // Shrink when depth/capacity falls to or below this ratio
}

// DefaultStackPolicy returns the policy used when none is configured.
func DefaultStackPolicy() StackPolicy {
	return StackPolicy{
		InitialCapacity: 256,
		GrowthFactor:    1.25,
		ShrinkThreshold: 0.5,
	}
}

// Validate checks that the policy can make progress.
func (p StackPolicy) Validate() error {
	if p.InitialCapacity < 1 {
		return fmt.Errorf("stack initial capacity must be positive, got %d", p.InitialCapacity)
	}
	if p.GrowthFactor <= 1 {
		return fmt.Errorf("stack growth factor must be > 1, got %g", p.GrowthFactor)
	}
	if p.ShrinkThreshold < 0 || p.ShrinkThreshold*p.GrowthFactor >= 1 {
		return fmt.Errorf("stack shrink threshold %g must be >= 0 and below 1/growth factor", p.ShrinkThreshold)
	}
	return nil
}

// Stack is a growable LIFO of words. The stack pointer indexes the top
// element; -1 means empty.
type Stack struct {
	data   []int64
	sp     int
	policy StackPolicy

	grows   int
	shrinks int
}

// NewStack creates an empty stack. An invalid policy is replaced by the default.
func NewStack(policy StackPolicy) *Stack {
	if policy.Validate() != nil {
		policy = DefaultStackPolicy()
	}
	return &Stack{
		data:   make([]int64, policy.InitialCapacity),
		sp:     -1,
		policy: policy,
	}
}

// Push appends v, growing the buffer first if it is full.
func (s *Stack) Push(v int64) {
	if s.sp+1 >= len(s.data) {
		s.resize(grownCap(len(s.data), s.policy.GrowthFactor))
		s.grows++
	}
	s.sp++
	s.data[s.sp] = v
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (int64, error) {
	if s.sp < 0 {
		return 0, ErrStackUnderflow
	}
	v := s.data[s.sp]
	s.sp--
	s.maybeShrink()
	return v, nil
}

// Peek returns the top value without removing it.
func (s *Stack) Peek() (int64, error) {
	if s.sp < 0 {
		return 0, ErrStackUnderflow
	}
	return s.data[s.sp], nil
}

// Depth returns the number of elements on the stack.
func (s *Stack) Depth() int {
	return s.sp + 1
}

// Cap returns the current buffer capacity.
func (s *Stack) Cap() int {
	return len(s.data)
}

// Pointer returns the stack pointer (index of the top element, -1 if empty).
func (s *Stack) Pointer() int {
	return s.sp
}

// Resizes reports how many times the buffer has grown and shrunk.
func (s *Stack) Resizes() (grows, shrinks int) {
	return s.grows, s.shrinks
}

// Unwind discards everything above depth so that Depth() == depth.
// It fails if the stack already holds fewer than depth elements.
func (s *Stack) Unwind(depth int) error {
	if depth < 0 || depth > s.Depth() {
		return fmt.Errorf("%w: cannot unwind to depth %d from %d", ErrStackUnderflow, depth, s.Depth())
	}
	s.sp = depth - 1
	s.maybeShrink()
	return nil
}

// Values returns a copy of the stack contents, bottom first.
func (s *Stack) Values() []int64 {
	out := make([]int64, s.Depth())
	copy(out, s.data[:s.Depth()])
	return out
}

// Reset empties the stack and returns the buffer to its initial capacity.
func (s *Stack) Reset() {
	s.data = make([]int64, s.policy.InitialCapacity)
	s.sp = -1
	s.grows = 0
	s.shrinks = 0
}

func (s *Stack) maybeShrink() {
	c := len(s.data)
	if c <= s.policy.InitialCapacity {
		return
	}
	if float64(s.Depth()) > float64(c)*s.policy.ShrinkThreshold {
		return
	}
	n := grownCap(s.Depth(), s.policy.GrowthFactor)
	if n < s.policy.InitialCapacity {
		n = s.policy.InitialCapacity
	}
	if n >= c {
		return
	}
	s.resize(n)
	s.shrinks++
}

func (s *Stack) resize(n int) {
	buf := make([]int64, n)
	copy(buf, s.data[:s.Depth()])
	s.data = buf
}

// grownCap returns ceil(n*factor), always at least n+1.
func grownCap(n int, factor float64) int {
	g := int(math.Ceil(float64(n) * factor))
	if g <= n {
		g = n + 1
	}
	return g
}
