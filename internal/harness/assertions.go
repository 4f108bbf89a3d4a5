package harness

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/sketch/internal/engine"
	"github.com/roach88/sketch/internal/patch"
)

// checkLoop compares the action error against the expected loop component.
// It returns a failure message and false on mismatch.
func checkLoop(inst *patch.Instance, want string, err error) (string, bool) {
	var le *engine.InfiniteLoopError
	isLoop := errors.As(err, &le)

	switch {
	case want == "" && err == nil:
		return "", true
	case want == "":
		return fmt.Sprintf("unexpected error: %v", err), false
	case err == nil:
		return fmt.Sprintf("expected loop at %q, action settled", want), false
	case !isLoop:
		return fmt.Sprintf("expected loop at %q, got: %v", want, err), false
	}

	id, ok := inst.IDs[want]
	if !ok {
		return fmt.Sprintf("expect_loop names unknown component %q", want), false
	}
	if le.ComponentID != id {
		return fmt.Sprintf("expected loop at %q (id %d), got id %d (%q)",
			want, id, le.ComponentID, inst.Name(le.ComponentID)), false
	}
	return "", true
}

// checkExpectations returns one message per failed expectation.
func checkExpectations(inst *patch.Instance, expect []Expectation) []string {
	var msgs []string
	for _, e := range expect {
		id, ok := inst.IDs[e.Component]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("expect names unknown component %q", e.Component))
			continue
		}
		tol := e.Tolerance
		if tol == 0 {
			tol = DefaultTolerance
		}
		got := inst.Sketch.OutputValue(id)
		if !withinTolerance(got, e.Value, tol) {
			msgs = append(msgs, fmt.Sprintf("%s: expected %v ± %v, got %v", e.Component, e.Value, tol, got))
		}
	}
	return msgs
}

func withinTolerance(got, want, tol float64) bool {
	if math.IsInf(want, 0) {
		return got == want
	}
	return math.Abs(got-want) <= tol
}
