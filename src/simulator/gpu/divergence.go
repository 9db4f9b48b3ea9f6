package gpu

// DivergenceEntry is one saved split on the reconvergence stack. The saved
// mask is the full pre-branch mask; pending holds the not-yet-executed subset
// of the split together with its entry PC. The fall-through subset runs
// first, so for a freshly pushed entry pending is the taken subset.
// ReconvergePC starts as the next marker found at push time and is re-anchored
// to the marker the first subset actually reaches when the pending subset
// takes over.
type DivergenceEntry struct {
	Saved        ActiveMask
	ReconvergePC int
	Pending      ActiveMask
	PendingPC    int
}

// HasPending reports whether the other half of the split still has to run.
func (this *DivergenceEntry) HasPending() bool {
	return this.Pending != nil && this.Pending.Any()
}

// DivergenceStack tracks nested divergent branches for one core. Pushed on a
// divergent BRnzp, popped when execution reaches the matching RECONV marker
// with no pending subset left.
type DivergenceStack struct {
	entries []*DivergenceEntry
}

func (this *DivergenceStack) Init() {
	this.entries = make([]*DivergenceEntry, 0)
}

func (this *DivergenceStack) Depth() int {
	return len(this.entries)
}

func (this *DivergenceStack) Push(entry *DivergenceEntry) {
	this.entries = append(this.entries, entry)
}

// Top returns the innermost entry without removing it, or nil when empty.
func (this *DivergenceStack) Top() *DivergenceEntry {
	if len(this.entries) == 0 {
		return nil
	}
	return this.entries[len(this.entries)-1]
}

func (this *DivergenceStack) Pop() *DivergenceEntry {
	if len(this.entries) == 0 {
		return nil
	}

	entry := this.entries[len(this.entries)-1]
	this.entries[len(this.entries)-1] = nil
	this.entries = this.entries[:len(this.entries)-1]

	return entry
}

// RetireLane removes a retired lane from every saved and pending mask so a
// later restore can never resurrect it.
func (this *DivergenceStack) RetireLane(lane int) {
	for _, entry := range this.entries {
		if lane < len(entry.Saved) {
			entry.Saved[lane] = false
		}
		if entry.Pending != nil && lane < len(entry.Pending) {
			entry.Pending[lane] = false
		}
	}
}
