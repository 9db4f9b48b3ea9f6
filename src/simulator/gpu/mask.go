package gpu

// ActiveMask records which lanes of a core execute the current shared
// instruction. The mask only narrows through divergence or lane retirement
// and is only widened by restoring a previously saved mask.
type ActiveMask []bool

func NewActiveMask(lanes int) ActiveMask {
	mask := make(ActiveMask, lanes)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

func (this ActiveMask) Clone() ActiveMask {
	clone := make(ActiveMask, len(this))
	copy(clone, this)
	return clone
}

func (this ActiveMask) Any() bool {
	for _, active := range this {
		if active {
			return true
		}
	}
	return false
}

func (this ActiveMask) CountActive() int {
	count := 0
	for _, active := range this {
		if active {
			count++
		}
	}
	return count
}

// Lanes returns the indices of active lanes in ascending order.
func (this ActiveMask) Lanes() []int {
	lanes := make([]int, 0, len(this))
	for i, active := range this {
		if active {
			lanes = append(lanes, i)
		}
	}
	return lanes
}

// LowestActive returns the first active lane, or -1 when the mask is empty.
func (this ActiveMask) LowestActive() int {
	for i, active := range this {
		if active {
			return i
		}
	}
	return -1
}
