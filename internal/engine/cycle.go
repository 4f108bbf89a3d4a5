package engine

import (
	"slices"
)

// FeedbackLoops returns the groups of components that feed back into
// themselves: every strongly connected component of the edge graph with more
// than one member, plus single components connected to their own input.
//
// Feedback is legal (FM and resonant patches depend on it); this is a
// diagnostic for hosts and for explaining an InfiniteLoopError. Each group is
// sorted by id and groups are ordered by their smallest id, so the result is
// deterministic.
//
// Not intended for the per-sample path: it allocates.
func (s *Sketch) FeedbackLoops() [][]int {
	t := &tarjan{
		sketch:  s,
		index:   make([]int, len(s.components)),
		lowlink: make([]int, len(s.components)),
		onStack: make([]bool, len(s.components)),
	}
	for i := range t.index {
		t.index[i] = -1
	}

	for id := range s.components {
		if t.index[id] < 0 {
			t.strongConnect(id)
		}
	}

	slices.SortFunc(t.loops, func(a, b []int) int {
		return a[0] - b[0]
	})
	return t.loops
}

// LoopContaining returns the feedback group that contains id, or nil if id
// is not part of any feedback loop.
func (s *Sketch) LoopContaining(id int) []int {
	for _, loop := range s.FeedbackLoops() {
		if slices.Contains(loop, id) {
			return loop
		}
	}
	return nil
}

type tarjan struct {
	sketch  *Sketch
	next    int
	index   []int
	lowlink []int
	onStack []bool
	stack   []int
	loops   [][]int
}

func (t *tarjan) strongConnect(v int) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	selfLoop := false
	for _, d := range t.sketch.components[v].Fanout {
		w := d.ComponentID
		if w == v {
			selfLoop = true
		}
		if t.index[w] < 0 {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}

	var group []int
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		group = append(group, w)
		if w == v {
			break
		}
	}

	if len(group) > 1 || selfLoop {
		slices.Sort(group)
		t.loops = append(t.loops, group)
	}
}
