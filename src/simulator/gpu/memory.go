package gpu

import (
	"fmt"

	"tinygpu/src/misc"
)

// DataMemory is a byte-addressed store used both for global memory (one
// instance shared by every core) and shared memory (one instance per block,
// created at block launch and dropped at retirement). Up to `channels`
// transactions per step are accepted without head-of-line blocking; the
// functional model serves them in lane order, so a read observes the latest
// committed write that precedes it in program order on the same lane's
// timeline. Cross-lane same-step ordering to the same address is undefined
// and left to the program.
type DataMemory struct {
	name     string
	data     []uint8
	channels int

	stat *misc.StatFactory
}

func (this *DataMemory) Init(name string, size int, channels int) {
	if size <= 0 {
		err := fmt.Errorf("data memory %s needs a positive size", name)
		panic(err)
	}
	if channels <= 0 {
		channels = 1
	}

	this.name = name
	this.data = make([]uint8, size)
	this.channels = channels

	this.stat = new(misc.StatFactory)
	this.stat.Init(name)
}

func (this *DataMemory) Size() int {
	return len(this.data)
}

func (this *DataMemory) Channels() int {
	return this.channels
}

// Load copies initial contents starting at address 0, clipped to the size.
func (this *DataMemory) Load(content []uint8) {
	copy(this.data, content)
}

func (this *DataMemory) Read(addr int32) (uint8, bool) {
	if addr < 0 || int(addr) >= len(this.data) {
		return 0, false
	}

	this.stat.Increment("reads", 1)
	return this.data[addr], true
}

func (this *DataMemory) Write(addr int32, value uint8) bool {
	if addr < 0 || int(addr) >= len(this.data) {
		return false
	}

	this.stat.Increment("writes", 1)
	this.data[addr] = value
	return true
}

// Snapshot returns a copy of the full contents for result checking.
func (this *DataMemory) Snapshot() []uint8 {
	snapshot := make([]uint8, len(this.data))
	copy(snapshot, this.data)
	return snapshot
}

func (this *DataMemory) StatFactory() *misc.StatFactory {
	return this.stat
}

// ProgramMemory is the read-only instruction store. It is loaded exactly once
// before any core starts and is immutable for the run; unloaded words read as
// zero (NOP). Every Read is a backing-store access, which the per-core
// instruction caches are there to avoid.
type ProgramMemory struct {
	words  []uint16
	loaded bool
	reads  int64
}

func (this *ProgramMemory) Init(size int) {
	if size <= 0 {
		err := fmt.Errorf("program memory needs a positive size")
		panic(err)
	}

	this.words = make([]uint16, size)
	this.loaded = false
	this.reads = 0
}

func (this *ProgramMemory) Size() int {
	return len(this.words)
}

func (this *ProgramMemory) Load(program []uint16) {
	if this.loaded {
		err := fmt.Errorf("program memory is already loaded")
		panic(err)
	}
	if len(program) > len(this.words) {
		err := fmt.Errorf("program of %d words exceeds program memory size %d",
			len(program), len(this.words))
		panic(err)
	}

	copy(this.words, program)
	this.loaded = true
}

func (this *ProgramMemory) Read(addr int) (uint16, bool) {
	if addr < 0 || addr >= len(this.words) {
		return 0, false
	}

	this.reads++
	return this.words[addr], true
}

// Reads counts backing-store accesses since load.
func (this *ProgramMemory) Reads() int64 {
	return this.reads
}

// Peek reads a word without counting a backing-store access. Used for
// control-flow scans, not for instruction fetch.
func (this *ProgramMemory) Peek(addr int) (uint16, bool) {
	if addr < 0 || addr >= len(this.words) {
		return 0, false
	}
	return this.words[addr], true
}
