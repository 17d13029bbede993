package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a point-in-time copy of the machine state.
type Snapshot struct {
	IP            int     `cbor:"1,keyasint"`
	Halted        bool    `cbor:"2,keyasint"`
	Registers     []int64 `cbor:"3,keyasint"`
	Stack         []int64 `cbor:"4,keyasint"`
	FramePointers []int   `cbor:"5,keyasint"`
	Steps         int64   `cbor:"6,keyasint"`
}

// Snapshot captures the current machine state.
func (vm *VM) Snapshot() *Snapshot {
	regs := vm.registers.Values()
	return &Snapshot{
		IP:            vm.ip,
		Halted:        vm.halted,
		Registers:     regs[:],
		Stack:         vm.stack.Values(),
		FramePointers: vm.frames.FramePointers(),
		Steps:         vm.stepCount,
	}
}

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// MarshalSnapshot serializes a Snapshot to canonical CBOR.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}
	if len(s.Registers) != NumRegisters {
		return nil, fmt.Errorf("vm: snapshot has %d registers, want %d", len(s.Registers), NumRegisters)
	}
	return &s, nil
}
