package engine

// frontier holds the current and next propagation waves.
//
// Both buffers are preallocated to the arena capacity. A component id
// appears at most once per wave, so neither buffer ever grows.
//
// De-duplication uses an epoch stamp per component instead of a set: an id
// is already queued for the next wave when its mark equals the current
// epoch. Advancing to a new wave bumps the epoch, which invalidates every
// mark at once.
type frontier struct {
	current []int
	next    []int
	marks   []uint32
	epoch   uint32
}

func newFrontier(capacity int) *frontier {
	f := &frontier{
		current: make([]int, 0, capacity),
		next:    make([]int, 0, capacity),
		marks:   make([]uint32, capacity),
	}
	f.bump()
	return f
}

// reset drops both waves. Used at the start of every propagation, since a
// failed propagation may leave ids queued.
func (f *frontier) reset() {
	f.current = f.current[:0]
	f.next = f.next[:0]
	f.bump()
}

// push schedules id for the next wave unless it is already scheduled.
func (f *frontier) push(id int) {
	if f.marks[id] == f.epoch {
		return
	}
	f.marks[id] = f.epoch
	f.next = append(f.next, id)
}

// advance makes the next wave current and reports whether it is non-empty.
func (f *frontier) advance() bool {
	f.current, f.next = f.next, f.current[:0]
	f.bump()
	return len(f.current) > 0
}

func (f *frontier) bump() {
	f.epoch++
	if f.epoch == 0 {
		// Wrapped: stale marks could collide with the new epoch.
		clear(f.marks)
		f.epoch = 1
	}
}
