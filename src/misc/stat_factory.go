package misc

import (
	"fmt"
	"sort"
	"sync"
)

// StatFactory collects named monotonic counters for one component. Components
// create their own factory with a unique name; the platform gathers the lines
// of every factory when dumping statistics.
type StatFactory struct {
	name   string
	values map[string]int64
	mu     sync.Mutex
}

func (this *StatFactory) Init(name string) {
	this.name = name
	this.values = make(map[string]int64)
}

func (this *StatFactory) Name() string {
	return this.name
}

// Increment adds delta to the named counter, creating it on first use. A zero
// delta is allowed and simply materializes the counter.
func (this *StatFactory) Increment(key string, delta int64) {
	this.mu.Lock()
	defer this.mu.Unlock()

	this.values[key] += delta
}

func (this *StatFactory) Value(key string) int64 {
	this.mu.Lock()
	defer this.mu.Unlock()

	return this.values[key]
}

// ToLines renders every counter as "name_key: value", sorted by key so dump
// files stay diffable between runs.
func (this *StatFactory) ToLines() []string {
	this.mu.Lock()
	defer this.mu.Unlock()

	keys := make([]string, 0, len(this.values))
	for key := range this.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s_%s: %d", this.name, key, this.values[key]))
	}
	return lines
}
