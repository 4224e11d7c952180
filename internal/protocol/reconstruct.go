package protocol

// DiffReconstructor turns a stream of per-epoch deltas back into absolute
// values. The first call seeds the running values as-is; every later call
// adds its deltas to them.
type DiffReconstructor struct {
	last   []int64
	seeded bool
}

// NewDiffReconstructor creates a reconstructor for the given channel count.
func NewDiffReconstructor(channels int) *DiffReconstructor {
	return &DiffReconstructor{last: make([]int64, channels)}
}

// Apply folds one epoch into the running values and returns a copy of them.
func (d *DiffReconstructor) Apply(values []int64) []int64 {
	if !d.seeded {
		copy(d.last, values)
		d.seeded = true
	} else {
		for i, v := range values {
			d.last[i] += v
		}
	}
	out := make([]int64, len(d.last))
	copy(out, d.last)
	return out
}

// Reset forgets the running values.
func (d *DiffReconstructor) Reset() {
	clear(d.last)
	d.seeded = false
}
