package engine

// DefaultMaxIterations is the default number of evaluations a single
// component may receive within one propagation.
const DefaultMaxIterations = 255

// IterationGuard counts evaluations per component within one propagation
// and enforces the iteration limit.
//
// One guard serves a whole sketch. Counts are reset at the start of every
// InputValues call, so the limit bounds work per propagation rather than per
// session. Together with change-gated propagation this guarantees that every
// call terminates, even for feedback that never settles.
type IterationGuard struct {
	limit  int
	counts []int
}

// NewIterationGuard creates a guard for up to capacity components.
func NewIterationGuard(limit, capacity int) *IterationGuard {
	return &IterationGuard{
		limit:  limit,
		counts: make([]int, capacity),
	}
}

// Check increments the evaluation count of component id and validates it
// against the limit.
//
// Returns InfiniteLoopError if the limit is exceeded.
func (g *IterationGuard) Check(id int) error {
	g.counts[id]++
	if g.counts[id] > g.limit {
		return &InfiniteLoopError{
			ComponentID: id,
			Iterations:  g.counts[id],
			Limit:       g.limit,
		}
	}
	return nil
}

// Reset zeroes the counts of the first n components.
func (g *IterationGuard) Reset(n int) {
	clear(g.counts[:n])
}

// count returns the evaluation count of component id in the current
// propagation.
func (g *IterationGuard) count(id int) int {
	return g.counts[id]
}

// Limit returns the maximum evaluations per component per propagation.
func (g *IterationGuard) Limit() int {
	return g.limit
}
