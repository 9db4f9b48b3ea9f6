package gpu

import (
	"fmt"

	"tinygpu/src/isa"
	"tinygpu/src/misc"
)

type CoreState int

const (
	CoreStateIdle CoreState = iota
	CoreStateRunning
)

// threadContext is one lane's private state: registers plus the NZP condition
// bits, which only CMP writes.
type threadContext struct {
	regs RegisterFile
	n    bool
	z    bool
	p    bool
}

// Core executes one block to completion in lock-step: every active lane of
// the current mask runs the same instruction at the single shared PC each
// step. Lanes never get independent program counters; a divergent branch
// narrows the mask and parks the other subset on the divergence stack until
// the matching RECONV marker.
type Core struct {
	id      int
	config  *DeviceConfig
	program *ProgramMemory
	icache  *InstructionCache
	global  *DataMemory
	sink    FaultSink

	state   CoreState
	block   *Block
	shared  *DataMemory
	threads []*threadContext
	mask    ActiveMask
	stack   *DivergenceStack
	pc      int

	executed int64
	stat     *misc.StatFactory
}

func (this *Core) Init(
	id int,
	config *DeviceConfig,
	program *ProgramMemory,
	global *DataMemory,
	sink FaultSink,
) {
	this.id = id
	this.config = config
	this.program = program
	this.global = global
	this.sink = sink

	this.icache = new(InstructionCache)
	this.icache.Init(fmt.Sprintf("Core[%d]_icache", id), config.ICacheCapacity, program)

	this.stack = new(DivergenceStack)
	this.stack.Init()

	this.state = CoreStateIdle
	this.executed = 0

	this.stat = new(misc.StatFactory)
	this.stat.Init(fmt.Sprintf("Core[%d]", id))
}

func (this *Core) ID() int {
	return this.id
}

func (this *Core) IsIdle() bool {
	return this.state == CoreStateIdle
}

func (this *Core) Block() *Block {
	return this.block
}

func (this *Core) PC() int {
	return this.pc
}

func (this *Core) Mask() ActiveMask {
	return this.mask
}

func (this *Core) DivergenceDepth() int {
	return this.stack.Depth()
}

func (this *Core) InstructionCache() *InstructionCache {
	return this.icache
}

func (this *Core) SharedMemory() *DataMemory {
	return this.shared
}

// ExecutedInstructions counts lock-step instruction issues since Init.
func (this *Core) ExecutedInstructions() int64 {
	return this.executed
}

func (this *Core) StatFactory() *misc.StatFactory {
	return this.stat
}

// AssignBlock hands a block to an idle core. Shared memory and the per-thread
// register files live exactly as long as the block; blockDim is the launch's
// threads-per-block so global thread ids stay dense even for a trailing
// partial block.
func (this *Core) AssignBlock(block *Block, blockDim int) {
	if this.state != CoreStateIdle {
		err := fmt.Errorf("core %d cannot accept block %d while busy", this.id, block.ID)
		panic(err)
	}

	this.block = block

	this.shared = new(DataMemory)
	this.shared.Init(fmt.Sprintf("SharedMemory[block_%d]", block.ID),
		this.config.SharedMemSize, this.config.DataMemChannels)

	this.threads = make([]*threadContext, block.ThreadCount)
	for lane := 0; lane < block.ThreadCount; lane++ {
		thread := new(threadContext)
		thread.regs.Init(block.ID, blockDim, lane)
		this.threads[lane] = thread
	}

	this.mask = NewActiveMask(block.ThreadCount)
	this.stack.Init()
	this.pc = 0
	this.state = CoreStateRunning

	this.stat.Increment("blocks_assigned", 1)
}

// Step executes one lock-step instruction over the active mask.
func (this *Core) Step() {
	if this.state != CoreStateRunning {
		return
	}

	word, ok := this.icache.Fetch(this.pc)
	if !ok {
		this.blockFault(FaultMemory, fmt.Sprintf("instruction fetch outside program memory: %d", this.pc))
		return
	}

	this.executed++
	this.stat.Increment("instructions", 1)

	inst := isa.Decode(word)
	if inst.Unknown {
		this.blockFault(FaultDecode, fmt.Sprintf("unknown instruction word %016b", word))
		return
	}

	switch inst.Op {
	case isa.OpNop:
		this.pc++

	case isa.OpCmp:
		for _, lane := range this.mask.Lanes() {
			thread := this.threads[lane]
			a := thread.regs.Read(inst.Rs)
			b := thread.regs.Read(inst.Rt)
			thread.n, thread.z, thread.p = AluCompare(a, b)
		}
		this.pc++

	case isa.OpAdd, isa.OpSub, isa.OpMul, isa.OpDiv:
		this.executeArithmetic(inst)

	case isa.OpLdr:
		this.executeLoad(inst, this.global)

	case isa.OpLds:
		this.executeLoad(inst, this.shared)

	case isa.OpStr:
		this.executeStore(inst, this.global)

	case isa.OpSts:
		this.executeStore(inst, this.shared)

	case isa.OpConst:
		faulted := make([]int, 0)
		for _, lane := range this.mask.Lanes() {
			thread := this.threads[lane]
			if !thread.regs.Write(inst.Rd, int32(inst.Imm8)) {
				this.reportFault(lane, FaultRegister,
					fmt.Sprintf("write to read-only register %d", inst.Rd))
				faulted = append(faulted, lane)
			}
		}
		this.pc++
		this.retireLanes(faulted)

	case isa.OpBrnzp:
		this.executeBranch(inst)

	case isa.OpJmp:
		lane := this.mask.LowestActive()
		target := int(this.threads[lane].regs.Read(inst.Rs))
		if target < 0 || target >= this.program.Size() {
			this.blockFault(FaultControl, fmt.Sprintf("jump outside program memory: %d", target))
			return
		}
		this.pc = target

	case isa.OpReconv:
		this.executeReconverge()

	case isa.OpRet:
		retiring := this.mask.Lanes()
		this.pc++
		this.retireLanes(retiring)
	}
}

func (this *Core) executeArithmetic(inst isa.Instruction) {
	faulted := make([]int, 0)

	for _, lane := range this.mask.Lanes() {
		thread := this.threads[lane]
		a := thread.regs.Read(inst.Rs)
		b := thread.regs.Read(inst.Rt)

		value, ok := AluExecute(inst.Op, a, b)
		if !ok {
			this.reportFault(lane, FaultArithmetic, "divide by zero")
			faulted = append(faulted, lane)
			continue
		}

		if !thread.regs.Write(inst.Rd, value) {
			this.reportFault(lane, FaultRegister,
				fmt.Sprintf("write to read-only register %d", inst.Rd))
			faulted = append(faulted, lane)
		}
	}

	this.pc++
	this.retireLanes(faulted)
}

func (this *Core) executeLoad(inst isa.Instruction, memory *DataMemory) {
	faulted := make([]int, 0)

	for _, lane := range this.mask.Lanes() {
		thread := this.threads[lane]
		addr := thread.regs.Read(inst.Rs)

		value, ok := memory.Read(addr)
		if !ok {
			this.reportFault(lane, FaultMemory,
				fmt.Sprintf("load outside %d-byte memory: %d", memory.Size(), addr))
			faulted = append(faulted, lane)
			continue
		}

		if !thread.regs.Write(inst.Rd, int32(value)) {
			this.reportFault(lane, FaultRegister,
				fmt.Sprintf("write to read-only register %d", inst.Rd))
			faulted = append(faulted, lane)
		}
	}

	this.pc++
	this.retireLanes(faulted)
}

func (this *Core) executeStore(inst isa.Instruction, memory *DataMemory) {
	faulted := make([]int, 0)

	for _, lane := range this.mask.Lanes() {
		thread := this.threads[lane]
		addr := thread.regs.Read(inst.Rs)
		value := thread.regs.Read(inst.Rt)

		if !memory.Write(addr, uint8(value)) {
			this.reportFault(lane, FaultMemory,
				fmt.Sprintf("store outside %d-byte memory: %d", memory.Size(), addr))
			faulted = append(faulted, lane)
		}
	}

	this.pc++
	this.retireLanes(faulted)
}

// executeBranch evaluates BRnzp per active lane against that lane's own NZP
// bits. When lanes disagree the branch diverges: the full pre-branch mask and
// the taken subset are pushed, and the fall-through subset runs first.
func (this *Core) executeBranch(inst isa.Instruction) {
	taken := make(ActiveMask, len(this.mask))
	notTaken := make(ActiveMask, len(this.mask))
	takenCount := 0
	activeCount := 0

	for _, lane := range this.mask.Lanes() {
		thread := this.threads[lane]
		activeCount++

		hit := (thread.n && inst.Nzp&0b100 != 0) ||
			(thread.z && inst.Nzp&0b010 != 0) ||
			(thread.p && inst.Nzp&0b001 != 0)
		if hit {
			taken[lane] = true
			takenCount++
		} else {
			notTaken[lane] = true
		}
	}

	switch {
	case takenCount == activeCount:
		this.pc = inst.Imm8

	case takenCount == 0:
		this.pc++

	default:
		reconvergePC, found := this.findReconvergeMarker(this.pc + 1)
		if !found {
			this.blockFault(FaultControl, "divergent branch with no reachable reconvergence marker")
			return
		}

		this.stack.Push(&DivergenceEntry{
			Saved:        this.mask.Clone(),
			ReconvergePC: reconvergePC,
			Pending:      taken,
			PendingPC:    inst.Imm8,
		})
		this.mask = notTaken
		this.pc++

		this.stat.Increment("divergent_branches", 1)
	}
}

// executeReconverge services an explicit RECONV marker. If the innermost
// split still has a pending subset, that subset runs now (second pass);
// otherwise the split is popped and the saved mask restored. An empty stack
// is reported and the marker then behaves as a NOP.
func (this *Core) executeReconverge() {
	top := this.stack.Top()
	if top == nil {
		this.reportFault(this.mask.LowestActive(), FaultControl,
			"RECONV with empty divergence stack")
		this.pc++
		return
	}

	if top.HasPending() {
		// With nested splits the push-time scan may have stopped at an inner
		// marker; the parked subset must resume at the marker actually reached.
		top.ReconvergePC = this.pc
		this.mask = top.Pending
		this.pc = top.PendingPC
		top.Pending = nil
		return
	}

	entry := this.stack.Pop()
	this.mask = entry.Saved
	this.pc++

	this.stat.Increment("reconvergences", 1)
}

// findReconvergeMarker scans program memory for the next RECONV word. The
// scan peeks the backing store directly; it models the decoder's knowledge of
// marker placement, not an instruction fetch. The result is a reachability
// check and an initial resume point; executeReconverge re-anchors the entry
// to the marker the first subset actually reaches.
func (this *Core) findReconvergeMarker(from int) (int, bool) {
	for addr := from; addr < this.program.Size(); addr++ {
		word, ok := this.program.Peek(addr)
		if !ok {
			break
		}
		if isa.Opcode(word>>12) == isa.OpReconv {
			return addr, true
		}
	}
	return 0, false
}

// retireLanes drops lanes from the current mask and from every stacked mask,
// then unwinds the divergence stack if the current mask emptied. Used both
// for RET and for faulting lanes.
func (this *Core) retireLanes(lanes []int) {
	if len(lanes) == 0 {
		return
	}

	for _, lane := range lanes {
		this.mask[lane] = false
		this.stack.RetireLane(lane)
		this.stat.Increment("lanes_retired", 1)
	}

	this.unwindIfEmpty()
}

// unwindIfEmpty keeps the invariant that at least one lane is active whenever
// the block is not finished: pending subsets resume first, exhausted splits
// pop, and the block retires when nothing is left anywhere.
func (this *Core) unwindIfEmpty() {
	for !this.mask.Any() {
		top := this.stack.Top()
		if top == nil {
			this.retireBlock()
			return
		}

		if top.HasPending() {
			this.mask = top.Pending
			this.pc = top.PendingPC
			top.Pending = nil
			return
		}

		entry := this.stack.Pop()
		this.mask = entry.Saved
		this.pc = entry.ReconvergePC + 1
	}
}

func (this *Core) retireBlock() {
	this.stat.Increment("blocks_retired", 1)

	// Shared memory and thread state live only as long as the block.
	this.block = nil
	this.shared = nil
	this.threads = nil
	this.mask = nil
	this.stack.Init()
	this.pc = 0
	this.state = CoreStateIdle
}

func (this *Core) reportFault(lane int, kind FaultKind, detail string) {
	this.stat.Increment("faults", 1)

	if this.sink == nil {
		return
	}

	blockID := -1
	if this.block != nil {
		blockID = this.block.ID
	}

	this.sink.ReportFault(Fault{
		CoreID:  this.id,
		BlockID: blockID,
		Lane:    lane,
		PC:      this.pc,
		Kind:    kind,
		Detail:  detail,
	})
}

// blockFault reports a front-end fault that no single lane can make progress
// past (bad fetch, unknown opcode, bad jump, missing marker). It is
// attributed to the lowest active lane and retires the whole block.
func (this *Core) blockFault(kind FaultKind, detail string) {
	this.reportFault(this.mask.LowestActive(), kind, detail)

	for lane := range this.mask {
		this.mask[lane] = false
		this.stack.RetireLane(lane)
	}
	this.retireBlock()
}
