package gpu

import "fmt"

// FaultKind classifies everything the simulator can report. Faults are values
// handed to a FaultSink; the simulator never recovers silently and never
// substitutes a default value for a failed access.
type FaultKind int

const (
	// FaultDecode reports an instruction word with no defined opcode.
	FaultDecode FaultKind = iota
	// FaultArithmetic reports a divide by zero on an active lane.
	FaultArithmetic
	// FaultMemory reports an out-of-bounds address in either memory space.
	FaultMemory
	// FaultRegister reports a write to a read-only identity register.
	FaultRegister
	// FaultControl reports a RECONV with an empty divergence stack, a
	// divergent branch with no reachable reconvergence marker, or a jump
	// outside program memory.
	FaultControl
)

func (this FaultKind) String() string {
	switch this {
	case FaultDecode:
		return "DecodeFault"
	case FaultArithmetic:
		return "ArithmeticFault"
	case FaultMemory:
		return "MemoryFault"
	case FaultRegister:
		return "RegisterFault"
	case FaultControl:
		return "ControlFault"
	default:
		return "UnknownFault"
	}
}

// Fault attributes one fault to a specific lane of a specific block.
type Fault struct {
	CoreID  int
	BlockID int
	Lane    int
	PC      int
	Kind    FaultKind
	Detail  string
}

func (this Fault) String() string {
	return fmt.Sprintf("%s core=%d block=%d lane=%d pc=%d: %s",
		this.Kind, this.CoreID, this.BlockID, this.Lane, this.PC, this.Detail)
}

// FaultSink receives fault reports as they happen. The sink decides the
// policy; the reporting core has already retired the faulting lane and keeps
// the other lanes' state intact.
type FaultSink interface {
	ReportFault(fault Fault)
}
