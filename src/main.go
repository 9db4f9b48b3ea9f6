package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tinygpu/src/isa"
	"tinygpu/src/misc"
	"tinygpu/src/simulator"
	"tinygpu/src/simulator/gpu"
)

var (
	programPath     string
	dataPath        string
	totalThreads    int
	threadsPerBlock int
	numCores        int
	icacheCapacity  int
	maxCycles       int
	faultPolicy     string
	logDirpath      string
	verbose         int
)

func main() {
	root := &cobra.Command{
		Use:   "tinygpu",
		Short: "Functional simulator for the Tiny-GPU SIMT core",
		Long: `tinygpu reproduces the observable behavior of the Tiny-GPU core:
lock-step SIMT execution with explicit RECONV reconvergence markers, global
and per-block shared memory, per-core instruction caches and a multi-core
block dispatcher.`,
		SilenceUsage: true,
	}

	root.AddCommand(initRunCommand())
	root.AddCommand(initDisasmCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initRunCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "run",
		Short: "Run a kernel to completion and print the final global memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKernel()
		},
	}

	command.Flags().StringVar(&programPath, "program", "", "path to the program word listing")
	command.Flags().StringVar(&dataPath, "data", "", "path to the initial data memory image")
	command.Flags().IntVar(&totalThreads, "threads", 4, "total thread count of the launch")
	command.Flags().IntVar(&threadsPerBlock, "threads-per-block", 4, "threads per block")
	command.Flags().IntVar(&numCores, "cores", 2, "number of cores")
	command.Flags().IntVar(&icacheCapacity, "icache-capacity", 16,
		"instruction cache capacity per core (<=0 disables caching)")
	command.Flags().IntVar(&maxCycles, "max-cycles", 50000, "cycle limit before the run is abandoned")
	command.Flags().StringVar(&faultPolicy, "fault-policy", string(misc.DefaultFaultPolicy()),
		"reaction to lane faults (continue|halt)")
	command.Flags().StringVar(&logDirpath, "log-dirpath", "", "directory for the stats dump (optional)")
	command.Flags().IntVar(&verbose, "verbose", 0, "verbosity of the simulation")
	_ = command.MarkFlagRequired("program")

	return command
}

func initDisasmCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "disasm",
		Short: "Disassemble a program word listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := loadProgram(programPath)
			if err != nil {
				return err
			}
			for _, line := range isa.FormatProgram(program) {
				fmt.Println(line)
			}
			return nil
		},
	}

	command.Flags().StringVar(&programPath, "program", "", "path to the program word listing")
	_ = command.MarkFlagRequired("program")

	return command
}

func runKernel() error {
	configureLogging()

	policy, ok := misc.FaultPolicyFromString(faultPolicy)
	if !ok {
		return fmt.Errorf("unknown fault policy %q", faultPolicy)
	}
	misc.SetRuntimeFaultPolicy(policy)

	program, err := loadProgram(programPath)
	if err != nil {
		return err
	}

	var data []uint8
	if dataPath != "" {
		loader := new(misc.FileLoader)
		loader.Init(dataPath)
		lines, err := loader.ReadLines()
		if err != nil {
			return err
		}
		if data, err = isa.ParseData(lines); err != nil {
			return err
		}
	}

	launch := &gpu.LaunchConfig{
		TotalThreads:    totalThreads,
		ThreadsPerBlock: threadsPerBlock,
	}
	if err := launch.Validate(); err != nil {
		return err
	}

	config := gpu.DefaultDeviceConfig()
	config.NumCores = numCores
	config.ICacheCapacity = icacheCapacity
	config.MaxCycles = maxCycles
	if err := config.Validate(); err != nil {
		return err
	}

	if verbose > 0 {
		for _, line := range isa.FormatProgram(program) {
			fmt.Println(line)
		}
	}

	sim := new(simulator.Simulator)
	sim.Init(config, launch)
	sim.LoadProgram(program)
	sim.LoadData(data)

	result := sim.Run()

	if logDirpath != "" {
		sim.Dump(logDirpath)
	}

	printResult(result)

	if len(result.Faults) > 0 {
		return fmt.Errorf("%d fault(s) reported", len(result.Faults))
	}
	return nil
}

func configureLogging() {
	switch {
	case verbose >= 2:
		logrus.SetLevel(logrus.DebugLevel)
	case verbose == 1:
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}

func loadProgram(path string) ([]uint16, error) {
	loader := new(misc.FileLoader)
	loader.Init(path)

	lines, err := loader.ReadLines()
	if err != nil {
		return nil, err
	}

	program, err := isa.ParseProgram(lines)
	if err != nil {
		return nil, err
	}
	if len(program) == 0 {
		return nil, fmt.Errorf("program %s contains no instructions", path)
	}
	return program, nil
}

func printResult(result *simulator.RunResult) {
	fmt.Printf("cycles: %d\n", result.Trace.Cycles)
	fmt.Printf("instructions: %d\n", result.Trace.InstructionsExecuted)
	fmt.Printf("icache backing accesses: %d\n", result.Trace.ICacheBackingAccesses)
	if samples := len(result.Trace.BlocksDispatched); samples > 0 {
		fmt.Printf("blocks dispatched: %d\n", result.Trace.BlocksDispatched[samples-1])
	}

	fmt.Println("non-zero global memory:")
	for addr, value := range result.Memory {
		if value != 0 {
			fmt.Printf("  mem[%3d] = %d\n", addr, value)
		}
	}
}
