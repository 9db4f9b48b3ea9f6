package gpu

import (
	"testing"

	"tinygpu/src/isa"
)

func TestDataMemoryBounds(t *testing.T) {
	t.Parallel()

	memory := new(DataMemory)
	memory.Init("GlobalMemory", 256, 4)

	if memory.Channels() != 4 {
		t.Fatalf("expected 4 channels, got %d", memory.Channels())
	}

	if !memory.Write(0, 17) || !memory.Write(255, 42) {
		t.Fatalf("in-bounds writes were rejected")
	}
	if memory.Write(-1, 1) || memory.Write(256, 1) {
		t.Fatalf("out-of-bounds writes were accepted")
	}

	if value, ok := memory.Read(255); !ok || value != 42 {
		t.Fatalf("read back: expected 42, got %d (ok=%v)", value, ok)
	}
	if _, ok := memory.Read(256); ok {
		t.Fatalf("out-of-bounds read was accepted")
	}
}

func TestDataMemoryLoadAndSnapshot(t *testing.T) {
	t.Parallel()

	memory := new(DataMemory)
	memory.Init("GlobalMemory", 8, 0) // non-positive channel count falls back to 1
	memory.Load([]uint8{1, 2, 3})

	if memory.Channels() != 1 {
		t.Fatalf("expected the single-channel fallback, got %d", memory.Channels())
	}

	snapshot := memory.Snapshot()
	if len(snapshot) != 8 || snapshot[0] != 1 || snapshot[2] != 3 || snapshot[3] != 0 {
		t.Fatalf("unexpected snapshot %v", snapshot)
	}

	// Snapshot 是副本, 修改不回写。
	snapshot[0] = 99
	if value, _ := memory.Read(0); value != 1 {
		t.Fatalf("snapshot aliased the live contents")
	}
}

func TestProgramMemoryLoadOnce(t *testing.T) {
	t.Parallel()

	program := new(ProgramMemory)
	program.Init(16)
	program.Load([]uint16{isa.Nop(), isa.Ret()})

	defer func() {
		if recover() == nil {
			t.Fatalf("second load must panic")
		}
	}()
	program.Load([]uint16{isa.Nop()})
}

func TestProgramMemoryReadAccounting(t *testing.T) {
	t.Parallel()

	program := new(ProgramMemory)
	program.Init(16)
	program.Load([]uint16{isa.Const(isa.R1, 7), isa.Ret()})

	if word, ok := program.Read(0); !ok || word != isa.Const(isa.R1, 7) {
		t.Fatalf("read 0: got %016b (ok=%v)", word, ok)
	}
	if _, ok := program.Read(16); ok {
		t.Fatalf("out-of-bounds read was accepted")
	}
	if reads := program.Reads(); reads != 1 {
		t.Fatalf("expected 1 counted read, got %d", reads)
	}

	// Peek 不计入取指访问。
	if word, ok := program.Peek(1); !ok || word != isa.Ret() {
		t.Fatalf("peek 1: got %016b (ok=%v)", word, ok)
	}
	if reads := program.Reads(); reads != 1 {
		t.Fatalf("peek must not count as a backing access, got %d", reads)
	}

	// 未装载的字读出为零 (NOP)。
	if word, ok := program.Read(5); !ok || word != 0 {
		t.Fatalf("unloaded word: got %016b (ok=%v)", word, ok)
	}
}
