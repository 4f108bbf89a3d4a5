package harness

import (
	"encoding/json"
	"math"
)

// Sample is a float64 that survives JSON encoding when it is not finite:
// NaN and infinities are written as the strings "NaN", "+Inf" and "-Inf".
type Sample float64

// MarshalJSON implements json.Marshaler.
func (s Sample) MarshalJSON() ([]byte, error) {
	v := float64(s)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler and accepts both the string
// forms written by MarshalJSON and plain numbers.
func (s *Sample) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"NaN"`:
		*s = Sample(math.NaN())
		return nil
	case `"+Inf"`:
		*s = Sample(math.Inf(1))
		return nil
	case `"-Inf"`:
		*s = Sample(math.Inf(-1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Sample(v)
	return nil
}

// TraceEvent records the observable effect of one step.
type TraceEvent struct {
	Step  int    `json:"step"`
	Kind  string `json:"kind"`
	Ticks int64  `json:"ticks"`

	// Status is the host status code of the action.
	Status int `json:"status"`

	// Outputs holds the tap outputs after the step, or the tap-major block
	// for process steps.
	Outputs []Sample `json:"outputs"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations match.
	Pass bool `json:"pass"`

	// Taps names the recorded components, in tap order.
	Taps []string `json:"taps"`

	// Trace contains one event per executed step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Taps:   []string{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
