package gpu

import (
	"container/list"

	"tinygpu/src/misc"
)

// ICacheCounters is a snapshot of one cache's accounting. BackingAccesses is
// the number that verification cares about: fetches the cache could not
// serve and had to forward to program memory.
type ICacheCounters struct {
	Fetches         int64
	Hits            int64
	Misses          int64
	Evictions       int64
	BackingAccesses int64
}

type icacheEntry struct {
	addr    int
	word    uint16
	element *list.Element
}

// InstructionCache sits between a core's shared PC and program memory. Fixed
// capacity, least-recently-used replacement. Program memory is immutable for
// the run so there is no coherence concern. A capacity <= 0 disables caching
// and every fetch becomes a backing-store access.
type InstructionCache struct {
	capacity int
	backing  *ProgramMemory

	entries map[int]*icacheEntry
	lru     *list.List

	counters ICacheCounters
	stat     *misc.StatFactory
}

func (this *InstructionCache) Init(name string, capacity int, backing *ProgramMemory) {
	this.capacity = capacity
	this.backing = backing
	this.entries = make(map[int]*icacheEntry)
	this.lru = list.New()
	this.counters = ICacheCounters{}

	this.stat = new(misc.StatFactory)
	this.stat.Init(name)
}

func (this *InstructionCache) Capacity() int {
	return this.capacity
}

// Fetch returns the instruction word at addr. On a hit no backing-store
// access happens; on a miss the word is read from program memory, counted,
// and inserted, evicting the least recently used entry when full. The bool
// is false only when addr lies outside program memory.
func (this *InstructionCache) Fetch(addr int) (uint16, bool) {
	this.counters.Fetches++
	this.stat.Increment("fetches", 1)

	if entry, exists := this.entries[addr]; exists {
		this.counters.Hits++
		this.stat.Increment("hits", 1)
		this.lru.MoveToFront(entry.element)
		return entry.word, true
	}

	this.counters.Misses++
	this.stat.Increment("misses", 1)

	word, ok := this.backing.Read(addr)
	if !ok {
		return 0, false
	}
	this.counters.BackingAccesses++
	this.stat.Increment("backing_accesses", 1)

	if this.capacity <= 0 {
		return word, true
	}

	for this.lru.Len() >= this.capacity {
		back := this.lru.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*icacheEntry)
		this.lru.Remove(back)
		delete(this.entries, victim.addr)
		this.counters.Evictions++
		this.stat.Increment("evictions", 1)
	}

	entry := &icacheEntry{addr: addr, word: word}
	entry.element = this.lru.PushFront(entry)
	this.entries[addr] = entry

	return word, true
}

func (this *InstructionCache) Counters() ICacheCounters {
	return this.counters
}

func (this *InstructionCache) StatFactory() *misc.StatFactory {
	return this.stat
}
