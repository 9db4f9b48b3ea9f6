package gpu

import "fmt"

// Block is one dispatch unit: a group of lanes launched together and assigned
// as a whole to a single core.
type Block struct {
	ID          int
	ThreadCount int
}

// LaunchConfig describes one kernel launch.
type LaunchConfig struct {
	TotalThreads    int
	ThreadsPerBlock int
}

func (this *LaunchConfig) Validate() error {
	if this.TotalThreads <= 0 {
		return fmt.Errorf("total_threads must be positive, got %d", this.TotalThreads)
	}
	if this.ThreadsPerBlock <= 0 {
		return fmt.Errorf("threads_per_block must be positive, got %d", this.ThreadsPerBlock)
	}
	return nil
}

// BlockCount derives ceil(total_threads / threads_per_block).
func (this *LaunchConfig) BlockCount() int {
	return (this.TotalThreads + this.ThreadsPerBlock - 1) / this.ThreadsPerBlock
}

// Blocks materializes the dispatch queue. The last block carries the
// remainder when total_threads is not a multiple of threads_per_block.
func (this *LaunchConfig) Blocks() []*Block {
	count := this.BlockCount()
	blocks := make([]*Block, 0, count)

	remaining := this.TotalThreads
	for id := 0; id < count; id++ {
		threads := this.ThreadsPerBlock
		if threads > remaining {
			threads = remaining
		}
		blocks = append(blocks, &Block{ID: id, ThreadCount: threads})
		remaining -= threads
	}

	return blocks
}

// DeviceConfig fixes the simulated device. The reference configuration uses
// an 8-bit address space for both memories, a single-channel program port and
// a four-channel data port.
type DeviceConfig struct {
	NumCores        int
	ICacheCapacity  int
	ProgramMemSize  int
	GlobalMemSize   int
	SharedMemSize   int
	DataMemChannels int
	MaxCycles       int
}

func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		NumCores:        2,
		ICacheCapacity:  16,
		ProgramMemSize:  256,
		GlobalMemSize:   256,
		SharedMemSize:   256,
		DataMemChannels: 4,
		MaxCycles:       50000,
	}
}

func (this *DeviceConfig) Validate() error {
	if this.NumCores <= 0 {
		return fmt.Errorf("num_cores must be positive, got %d", this.NumCores)
	}
	if this.ProgramMemSize <= 0 || this.GlobalMemSize <= 0 || this.SharedMemSize <= 0 {
		return fmt.Errorf("memory sizes must be positive")
	}
	if this.MaxCycles <= 0 {
		return fmt.Errorf("max_cycles must be positive, got %d", this.MaxCycles)
	}
	return nil
}
