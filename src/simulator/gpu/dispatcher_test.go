package gpu

import (
	"testing"

	"tinygpu/src/isa"
)

func TestLaunchConfigBlocks(t *testing.T) {
	t.Parallel()

	launch := &LaunchConfig{TotalThreads: 10, ThreadsPerBlock: 4}
	if err := launch.Validate(); err != nil {
		t.Fatalf("valid launch rejected: %v", err)
	}
	if launch.BlockCount() != 3 {
		t.Fatalf("expected 3 blocks, got %d", launch.BlockCount())
	}

	blocks := launch.Blocks()
	expected := []int{4, 4, 2}
	for i, threads := range expected {
		if blocks[i].ID != i || blocks[i].ThreadCount != threads {
			t.Fatalf("block %d: got %+v", i, blocks[i])
		}
	}

	bad := &LaunchConfig{TotalThreads: 0, ThreadsPerBlock: 4}
	if err := bad.Validate(); err == nil {
		t.Fatalf("zero-thread launch must be rejected")
	}
}

func TestDispatcherDrainsQueue(t *testing.T) {
	t.Parallel()

	config := DefaultDeviceConfig()

	programMemory := new(ProgramMemory)
	programMemory.Init(config.ProgramMemSize)
	programMemory.Load([]uint16{isa.Ret()})

	global := new(DataMemory)
	global.Init("GlobalMemory", config.GlobalMemSize, config.DataMemChannels)

	sink := new(faultCollector)

	cores := make([]*Core, 0, 2)
	for i := 0; i < 2; i++ {
		core := new(Core)
		core.Init(i, config, programMemory, global, sink)
		cores = append(cores, core)
	}

	launch := &LaunchConfig{TotalThreads: 32, ThreadsPerBlock: 4}

	dispatcher := new(Dispatcher)
	dispatcher.Init(cores, launch)

	previous := 0
	for cycle := 0; !dispatcher.IsFinished(); cycle++ {
		if cycle > 1000 {
			t.Fatalf("dispatcher did not drain within 1000 cycles")
		}

		dispatcher.Tick()

		dispatched := dispatcher.BlocksDispatched()
		if dispatched < previous {
			t.Fatalf("dispatch counter went backwards: %d -> %d", previous, dispatched)
		}
		if dispatched > launch.BlockCount() {
			t.Fatalf("dispatched %d blocks out of %d", dispatched, launch.BlockCount())
		}
		previous = dispatched

		for _, core := range cores {
			core.Step()
		}
	}

	if dispatcher.BlocksDispatched() != 8 {
		t.Fatalf("expected 8 dispatched blocks, got %d", dispatcher.BlocksDispatched())
	}
	if len(sink.faults) != 0 {
		t.Fatalf("unexpected faults %v", sink.faults)
	}
}

func TestDeviceConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultDeviceConfig().Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	config := DefaultDeviceConfig()
	config.NumCores = 0
	if err := config.Validate(); err == nil {
		t.Fatalf("zero-core config must be rejected")
	}

	config = DefaultDeviceConfig()
	config.GlobalMemSize = 0
	if err := config.Validate(); err == nil {
		t.Fatalf("zero-size memory must be rejected")
	}
}
