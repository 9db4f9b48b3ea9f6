package gpu

import "tinygpu/src/isa"

// RegisterFile holds one thread's registers: R0-R12 general purpose plus the
// read-only identity registers %blockIdx, %blockDim and %threadIdx, computed
// once at thread creation and never mutated afterwards. Values are signed
// 32-bit; arithmetic wraps in two's complement.
type RegisterFile struct {
	regs [isa.NumRegisters]int32
}

func (this *RegisterFile) Init(blockID int, blockDim int, threadIdx int) {
	for i := 0; i < isa.NumGpRegisters; i++ {
		this.regs[i] = 0
	}
	this.regs[isa.BlockIdx] = int32(blockID)
	this.regs[isa.BlockDim] = int32(blockDim)
	this.regs[isa.ThreadIdx] = int32(threadIdx)
}

func (this *RegisterFile) Read(index int) int32 {
	return this.regs[index&0xF]
}

// Write stores value into a general-purpose register. Writes to the identity
// registers are rejected and the caller reports a RegisterFault.
func (this *RegisterFile) Write(index int, value int32) bool {
	index &= 0xF
	if index >= isa.NumGpRegisters {
		return false
	}
	this.regs[index] = value
	return true
}
