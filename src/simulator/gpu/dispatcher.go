package gpu

import (
	"fmt"

	"tinygpu/src/misc"
)

// blockQueue is a simple FIFO holding blocks waiting for a core.
type blockQueue struct {
	items []*Block
}

func (this *blockQueue) enqueue(block *Block) {
	this.items = append(this.items, block)
}

func (this *blockQueue) dequeue() (*Block, bool) {
	if len(this.items) == 0 {
		return nil, false
	}

	block := this.items[0]
	this.items[0] = nil
	this.items = this.items[1:]

	return block, true
}

func (this *blockQueue) isEmpty() bool {
	return len(this.items) == 0
}

// Dispatcher assigns queued blocks to idle cores, one block per idle core per
// dispatch round, until the queue drains and every core has retired its
// block. There is no preemption: a core runs its block to retirement before
// it becomes eligible again.
type Dispatcher struct {
	cores  []*Core
	launch *LaunchConfig

	queue            blockQueue
	blocksDispatched int
	dispatchedBlocks map[int]bool

	stat *misc.StatFactory
}

func (this *Dispatcher) Init(cores []*Core, launch *LaunchConfig) {
	if len(cores) == 0 {
		err := fmt.Errorf("dispatcher needs at least one core")
		panic(err)
	}
	if err := launch.Validate(); err != nil {
		panic(err)
	}

	this.cores = cores
	this.launch = launch

	this.queue = blockQueue{items: make([]*Block, 0)}
	for _, block := range launch.Blocks() {
		this.queue.enqueue(block)
	}

	this.blocksDispatched = 0
	this.dispatchedBlocks = make(map[int]bool)

	this.stat = new(misc.StatFactory)
	this.stat.Init("Dispatcher")
	this.stat.Increment("blocks_total", int64(launch.BlockCount()))
}

// Tick runs one dispatch round: every currently idle core receives one queued
// block, if any remain.
func (this *Dispatcher) Tick() {
	for _, core := range this.cores {
		if !core.IsIdle() {
			continue
		}

		block, ok := this.queue.dequeue()
		if !ok {
			return
		}

		if this.dispatchedBlocks[block.ID] {
			err := fmt.Errorf("block %d dispatched twice", block.ID)
			panic(err)
		}
		this.dispatchedBlocks[block.ID] = true

		core.AssignBlock(block, this.launch.ThreadsPerBlock)
		this.blocksDispatched++
		this.stat.Increment("blocks_dispatched", 1)
	}
}

// BlocksDispatched is monotonically non-decreasing and reaches the block
// count exactly once per block.
func (this *Dispatcher) BlocksDispatched() int {
	return this.blocksDispatched
}

// IsFinished reports whether the queue is empty and every core is idle.
func (this *Dispatcher) IsFinished() bool {
	if !this.queue.isEmpty() {
		return false
	}

	for _, core := range this.cores {
		if !core.IsIdle() {
			return false
		}
	}
	return true
}

func (this *Dispatcher) StatFactory() *misc.StatFactory {
	return this.stat
}
