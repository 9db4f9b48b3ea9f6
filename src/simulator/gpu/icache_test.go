package gpu

import (
	"testing"

	"tinygpu/src/isa"
)

func newTestProgramMemory(words []uint16) *ProgramMemory {
	program := new(ProgramMemory)
	program.Init(256)
	program.Load(words)
	return program
}

func TestInstructionCacheHitAvoidsBacking(t *testing.T) {
	t.Parallel()

	program := newTestProgramMemory([]uint16{isa.Const(isa.R1, 1), isa.Ret()})

	cache := new(InstructionCache)
	cache.Init("Core[0]_icache", 8, program)

	for i := 0; i < 5; i++ {
		if word, ok := cache.Fetch(0); !ok || word != isa.Const(isa.R1, 1) {
			t.Fatalf("fetch %d: got %016b (ok=%v)", i, word, ok)
		}
	}

	counters := cache.Counters()
	if counters.Fetches != 5 || counters.Hits != 4 || counters.Misses != 1 {
		t.Fatalf("unexpected counters %+v", counters)
	}
	if counters.BackingAccesses != 1 {
		t.Fatalf("expected exactly 1 backing access, got %d", counters.BackingAccesses)
	}
	if program.Reads() != 1 {
		t.Fatalf("program memory saw %d reads", program.Reads())
	}
}

func TestInstructionCacheLruEviction(t *testing.T) {
	t.Parallel()

	program := newTestProgramMemory([]uint16{
		isa.Const(isa.R1, 0), isa.Const(isa.R1, 1), isa.Const(isa.R1, 2),
	})

	cache := new(InstructionCache)
	cache.Init("Core[0]_icache", 2, program)

	cache.Fetch(0) // miss, cache {0}
	cache.Fetch(1) // miss, cache {1 0}
	cache.Fetch(0) // hit,  cache {0 1}
	cache.Fetch(2) // miss, evicts 1
	cache.Fetch(0) // hit
	cache.Fetch(1) // miss again, evicts 2

	counters := cache.Counters()
	if counters.Hits != 2 || counters.Misses != 4 {
		t.Fatalf("unexpected counters %+v", counters)
	}
	if counters.Evictions != 2 {
		t.Fatalf("expected 2 evictions, got %d", counters.Evictions)
	}
	if counters.BackingAccesses != 4 {
		t.Fatalf("expected 4 backing accesses, got %d", counters.BackingAccesses)
	}
}

func TestInstructionCacheDisabled(t *testing.T) {
	t.Parallel()

	program := newTestProgramMemory([]uint16{isa.Ret()})

	cache := new(InstructionCache)
	cache.Init("Core[0]_icache", 0, program)

	cache.Fetch(0)
	cache.Fetch(0)

	counters := cache.Counters()
	if counters.BackingAccesses != 2 {
		t.Fatalf("disabled cache must forward every fetch, got %d backing accesses",
			counters.BackingAccesses)
	}
}

func TestInstructionCacheOutOfBounds(t *testing.T) {
	t.Parallel()

	program := newTestProgramMemory([]uint16{isa.Ret()})

	cache := new(InstructionCache)
	cache.Init("Core[0]_icache", 8, program)

	if _, ok := cache.Fetch(256); ok {
		t.Fatalf("fetch outside program memory must fail")
	}
	if _, ok := cache.Fetch(-1); ok {
		t.Fatalf("negative fetch must fail")
	}

	// A failed fetch is not a backing-store access, matching the program
	// memory's own accounting.
	if counters := cache.Counters(); counters.BackingAccesses != 0 {
		t.Fatalf("failed fetches counted %d backing accesses", counters.BackingAccesses)
	}
	if program.Reads() != 0 {
		t.Fatalf("program memory counted %d reads for failed fetches", program.Reads())
	}
}
