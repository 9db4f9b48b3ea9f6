package simulator

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"tinygpu/src/misc"
	"tinygpu/src/simulator/gpu"
)

// Trace is the observability side channel for verification tooling: the
// dispatch counter sampled once per cycle and the summed instruction-cache
// backing-store accesses. The external harness is the sole consumer.
type Trace struct {
	Cycles                int
	BlocksDispatched      []int
	ICacheBackingAccesses int64
	InstructionsExecuted  int64
}

// RunResult carries everything a harness checks after a run.
type RunResult struct {
	Memory []uint8
	Trace  *Trace
	Faults []gpu.Fault
}

// Simulator owns one kernel launch: program memory, global memory, the cores
// and the dispatcher. Cores are stepped round-robin, one instruction per
// simulated cycle, which satisfies the same-lane program-order guarantee of
// the memory model without real concurrency.
type Simulator struct {
	config *gpu.DeviceConfig
	launch *gpu.LaunchConfig

	program    *gpu.ProgramMemory
	global     *gpu.DataMemory
	cores      []*gpu.Core
	dispatcher *gpu.Dispatcher

	cycle  int
	halted bool
	faults []gpu.Fault
	trace  *Trace

	stat *misc.StatFactory
}

func (this *Simulator) Init(config *gpu.DeviceConfig, launch *gpu.LaunchConfig) {
	if config == nil {
		config = gpu.DefaultDeviceConfig()
	}
	if err := config.Validate(); err != nil {
		panic(err)
	}
	if err := launch.Validate(); err != nil {
		panic(err)
	}

	this.config = config
	this.launch = launch

	this.program = new(gpu.ProgramMemory)
	this.program.Init(config.ProgramMemSize)

	this.global = new(gpu.DataMemory)
	this.global.Init("GlobalMemory", config.GlobalMemSize, config.DataMemChannels)

	this.cores = make([]*gpu.Core, 0, config.NumCores)
	for i := 0; i < config.NumCores; i++ {
		core := new(gpu.Core)
		core.Init(i, config, this.program, this.global, this)
		this.cores = append(this.cores, core)
	}

	this.dispatcher = new(gpu.Dispatcher)
	this.dispatcher.Init(this.cores, launch)

	this.cycle = 0
	this.halted = false
	this.faults = make([]gpu.Fault, 0)
	this.trace = &Trace{BlocksDispatched: make([]int, 0)}

	this.stat = new(misc.StatFactory)
	this.stat.Init("Simulator")

	logrus.WithFields(logrus.Fields{
		"cores":             config.NumCores,
		"total_threads":     launch.TotalThreads,
		"threads_per_block": launch.ThreadsPerBlock,
		"blocks":            launch.BlockCount(),
	}).Debug("simulator initialized")
}

func (this *Simulator) LoadProgram(program []uint16) {
	this.program.Load(program)
}

func (this *Simulator) LoadData(data []uint8) {
	this.global.Load(data)
}

// ReportFault implements gpu.FaultSink. Faults are recorded and logged; under
// the halt policy the run stops after the current cycle, otherwise the
// faulting lane has already been retired by its core and the run goes on.
func (this *Simulator) ReportFault(fault gpu.Fault) {
	this.faults = append(this.faults, fault)
	this.stat.Increment("faults", 1)

	logrus.WithFields(logrus.Fields{
		"core":  fault.CoreID,
		"block": fault.BlockID,
		"lane":  fault.Lane,
		"pc":    fault.PC,
		"kind":  fault.Kind.String(),
	}).Warn(fault.Detail)

	if misc.RuntimeFaultPolicy() == misc.FaultPolicyHalt {
		this.halted = true
	}
}

func (this *Simulator) Faults() []gpu.Fault {
	return this.faults
}

func (this *Simulator) GlobalMemory() *gpu.DataMemory {
	return this.global
}

func (this *Simulator) Dispatcher() *gpu.Dispatcher {
	return this.dispatcher
}

func (this *Simulator) Cores() []*gpu.Core {
	return this.cores
}

func (this *Simulator) CurrentCycle() int {
	return this.cycle
}

func (this *Simulator) IsFinished() bool {
	if this.halted {
		return true
	}
	if this.cycle >= this.config.MaxCycles {
		return true
	}
	return this.dispatcher.IsFinished()
}

// Cycle runs one simulated tick: a dispatch round, then one lock-step
// instruction on every busy core.
func (this *Simulator) Cycle() {
	this.dispatcher.Tick()

	for _, core := range this.cores {
		core.Step()
	}

	this.cycle++
	this.stat.Increment("cycles", 1)
	this.trace.BlocksDispatched = append(this.trace.BlocksDispatched, this.dispatcher.BlocksDispatched())
}

// Run drives the simulation to completion and snapshots the results.
func (this *Simulator) Run() *RunResult {
	for !this.IsFinished() {
		this.Cycle()
	}

	if this.cycle >= this.config.MaxCycles && !this.dispatcher.IsFinished() {
		logrus.WithField("max_cycles", this.config.MaxCycles).
			Warn("simulation hit the cycle limit before all blocks retired")
	}

	this.trace.Cycles = this.cycle
	for _, core := range this.cores {
		this.trace.ICacheBackingAccesses += core.InstructionCache().Counters().BackingAccesses
		this.trace.InstructionsExecuted += core.ExecutedInstructions()
	}

	return &RunResult{
		Memory: this.global.Snapshot(),
		Trace:  this.trace,
		Faults: this.faults,
	}
}

// Dump writes every component's counters to one stats file under dirpath.
func (this *Simulator) Dump(dirpath string) {
	lines := make([]string, 0)
	lines = append(lines, this.stat.ToLines()...)
	lines = append(lines, this.dispatcher.StatFactory().ToLines()...)
	lines = append(lines, this.global.StatFactory().ToLines()...)

	for _, core := range this.cores {
		lines = append(lines, core.StatFactory().ToLines()...)
		lines = append(lines, core.InstructionCache().StatFactory().ToLines()...)
	}

	lines = append(lines, fmt.Sprintf("Simulator_blocks_dispatched: %d", this.dispatcher.BlocksDispatched()))

	file_dumper := new(misc.FileDumper)
	file_dumper.Init(filepath.Join(dirpath, "tinygpu_log.txt"))
	file_dumper.WriteLines(lines)
}

// Run executes one kernel launch end to end.
// A nil device config selects the reference configuration.
func Run(
	program []uint16,
	data []uint8,
	launch *gpu.LaunchConfig,
	config *gpu.DeviceConfig,
) *RunResult {
	simulator := new(Simulator)
	simulator.Init(config, launch)
	simulator.LoadProgram(program)
	simulator.LoadData(data)

	return simulator.Run()
}
