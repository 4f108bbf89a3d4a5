package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sketch/internal/engine"
	"github.com/roach88/sketch/internal/patch"
	"github.com/roach88/sketch/internal/sampler"
)

// Harness is the test execution engine for one scenario run.
type Harness struct {
	inst    *patch.Instance
	sampler *sampler.Sampler
	logger  *slog.Logger
	result  *Result
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger passed to the sketch. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario builds a fresh sketch from its patch. Execution stops at
// the first step whose action fails unexpectedly; expectation mismatches
// are collected and execution continues.
//
// The returned error is reserved for scenarios that cannot run at all (an
// unreadable patch, a patch whose initial inputs do not settle).
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		result: NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}

	def := scenario.Patch
	if def == nil {
		loaded, err := patch.Load(scenario.PatchFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load patch: %w", err)
		}
		def = loaded
	}

	engineOpts := []engine.Option{engine.WithLogger(h.logger)}
	if scenario.MaxIterations > 0 {
		engineOpts = append(engineOpts, engine.WithMaxIterations(scenario.MaxIterations))
	}
	inst, err := patch.Build(def, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build patch: %w", err)
	}
	h.inst = inst
	h.sampler = sampler.New(inst.Sketch)

	for _, id := range inst.Taps {
		h.result.Taps = append(h.result.Taps, inst.Name(id))
	}

	for i, step := range scenario.Steps {
		if !h.executeStep(i, step) {
			break
		}
	}

	return h.result, nil
}

// executeStep runs one step and reports whether execution may continue.
func (h *Harness) executeStep(index int, step Step) bool {
	event := TraceEvent{Step: index, Kind: step.Kind()}

	var (
		err   error
		block []float64
	)
	switch event.Kind {
	case StepTick:
		for range step.Tick {
			if err = h.inst.Sketch.Tick(); err != nil {
				break
			}
		}
	case StepProcess:
		block, err = h.sampler.Process(step.Process, h.inst.Taps)
	case StepInject:
		err = h.inst.Input(*step.Inject)
	}

	event.Status = engine.StatusCode(err)
	event.Ticks = h.inst.Sketch.Ticks()
	if event.Kind == StepProcess && err == nil {
		event.Outputs = samples(block)
	} else {
		event.Outputs = h.tapOutputs()
	}
	h.result.Trace = append(h.result.Trace, event)

	if msg, ok := checkLoop(h.inst, step.ExpectLoop, err); !ok {
		h.result.AddError(fmt.Sprintf("steps[%d] %s: %s", index, event.Kind, msg))
	}
	if err != nil && step.ExpectLoop == "" {
		return false
	}

	for _, msg := range checkExpectations(h.inst, step.Expect) {
		h.result.AddError(fmt.Sprintf("steps[%d] %s: %s", index, event.Kind, msg))
	}
	return true
}

func (h *Harness) tapOutputs() []Sample {
	out := make([]Sample, len(h.inst.Taps))
	for i, id := range h.inst.Taps {
		out[i] = Sample(h.inst.Sketch.OutputValue(id))
	}
	return out
}

func samples(block []float64) []Sample {
	out := make([]Sample, len(block))
	for i, v := range block {
		out[i] = Sample(v)
	}
	return out
}
