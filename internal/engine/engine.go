package engine

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/roach88/sketch/internal/component"
)

// DefaultCapacity is the default maximum number of components in a sketch.
const DefaultCapacity = 4096

// Input injects Value into one destination slot.
type Input struct {
	Destination component.Destination
	Value       float64
}

// Sketch owns every component of a signal graph and runs propagation.
//
// A Sketch is not safe for concurrent use. Hosts that need serialized entry
// points from several goroutines wrap it (see package host).
//
// INVARIANTS:
//   - component ids are indices into components and are never reused
//   - len(components) <= capacity; the backing array is never reallocated
//   - fan-out destinations always reference existing components and a slot
//     in [1, component.InputCount)
type Sketch struct {
	components []component.Component
	sampleRate float64
	capacity   int
	seed       uint64

	guard    *IterationGuard
	frontier *frontier
	rng      *rand.Rand
	clock    *Clock
	logger   *slog.Logger

	maxIterations int
}

// Option allows configuration of sketch parameters.
type Option func(*Sketch)

// WithCapacity sets the maximum number of components.
//
// Default: 4096 (DefaultCapacity)
func WithCapacity(capacity int) Option {
	return func(s *Sketch) {
		s.capacity = capacity
	}
}

// WithMaxIterations sets the per-component evaluation limit per propagation.
//
// Default: 255 (DefaultMaxIterations)
// Use WithMaxIterations(3) for testing loop detection.
func WithMaxIterations(n int) Option {
	return func(s *Sketch) {
		s.maxIterations = n
	}
}

// WithSeed sets the seed of the Noise generator. The generator is reseeded
// on every Reset.
func WithSeed(seed uint64) Option {
	return func(s *Sketch) {
		s.seed = seed
	}
}

// WithLogger sets the logger used for construction and failure diagnostics.
// The propagation hot path never logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sketch) {
		s.logger = l
	}
}

// New creates an empty sketch running at sampleRate.
//
// All storage is allocated here; later calls reuse it.
func New(sampleRate float64, opts ...Option) (*Sketch, error) {
	s := &Sketch{
		capacity:      DefaultCapacity,
		maxIterations: DefaultMaxIterations,
		clock:         NewClock(),
	}

	// Apply options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.capacity <= 0 {
		return nil, NewRuntimeError(ErrCodeCapacityExceeded,
			fmt.Sprintf("capacity must be positive, got %d", s.capacity), -1, -1)
	}
	if s.maxIterations <= 0 {
		s.maxIterations = DefaultMaxIterations
	}

	s.components = make([]component.Component, 0, s.capacity)
	s.guard = NewIterationGuard(s.maxIterations, s.capacity)
	s.frontier = newFrontier(s.capacity)

	if err := s.Reset(sampleRate); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset removes every component, sets a new sample rate and rewinds the
// clock and the Noise generator. Ids handed out before Reset become invalid.
func (s *Sketch) Reset(sampleRate float64) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return NewRuntimeError(ErrCodeInvalidSampleRate,
			fmt.Sprintf("sample rate must be positive and finite, got %v", sampleRate), -1, -1)
	}

	clear(s.components[:cap(s.components)])
	s.components = s.components[:0]
	s.sampleRate = sampleRate
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed))
	s.clock.Reset()
	s.frontier.reset()

	s.logger.Debug("sketch reset",
		"sample_rate", sampleRate,
		"capacity", s.capacity,
		"seed", s.seed,
	)
	return nil
}

// SampleRate returns the sample rate in Hz.
func (s *Sketch) SampleRate() float64 {
	return s.sampleRate
}

// Len returns the number of components created since the last Reset.
func (s *Sketch) Len() int {
	return len(s.components)
}

// Capacity returns the maximum number of components.
func (s *Sketch) Capacity() int {
	return s.capacity
}

// MaxIterations returns the per-component evaluation limit per propagation.
func (s *Sketch) MaxIterations() int {
	return s.maxIterations
}

// Ticks returns the number of ticks completed since the last Reset.
func (s *Sketch) Ticks() int64 {
	return s.clock.Current()
}

// CreateComponent appends a component of type t and returns its id.
func (s *Sketch) CreateComponent(t component.Type) (int, error) {
	if !t.Valid() {
		return -1, NewRuntimeError(ErrCodeUnknownType,
			fmt.Sprintf("unknown component type %d", int(t)), -1, -1)
	}
	if len(s.components) >= s.capacity {
		return -1, NewRuntimeError(ErrCodeCapacityExceeded,
			fmt.Sprintf("sketch holds at most %d components", s.capacity), -1, -1)
	}

	id := len(s.components)
	s.components = append(s.components, component.New(t))

	s.logger.Debug("component created", "id", id, "type", t.String())
	return id, nil
}

// Connect appends an edge carrying the output of srcID into slot dstSlot of
// dstID. Cycles are allowed, and so are duplicate edges.
//
// Slot 0 carries dt and cannot be connected.
func (s *Sketch) Connect(srcID, dstID, dstSlot int) error {
	if err := s.checkComponent(srcID); err != nil {
		return err
	}
	if err := s.checkUserSlot(dstID, dstSlot); err != nil {
		return err
	}

	src := &s.components[srcID]
	src.Fanout = append(src.Fanout, component.Destination{
		ComponentID: dstID,
		Slot:        dstSlot,
	})

	s.logger.Debug("components connected", "src", srcID, "dst", dstID, "slot", dstSlot)
	return nil
}

// OutputValue returns the current output of component id. Ids outside the
// created range read as 0.
func (s *Sketch) OutputValue(id int) float64 {
	if id < 0 || id >= len(s.components) {
		return 0
	}
	return s.components[id].Output
}

// Component returns a copy of component id for inspection. The returned
// Fanout slice must not be modified.
func (s *Sketch) Component(id int) (component.Component, bool) {
	if id < 0 || id >= len(s.components) {
		return component.Component{}, false
	}
	return s.components[id], true
}

// TypeOf returns the type of component id. Ids outside the created range
// return an invalid Type.
func (s *Sketch) TypeOf(id int) component.Type {
	if id < 0 || id >= len(s.components) {
		return component.Type(-1)
	}
	return s.components[id].Type
}

// InputValue writes value into slot of component id and propagates the
// result. Slot 0 is reserved for the tick driver.
func (s *Sketch) InputValue(id, slot int, value float64) error {
	if err := s.checkUserSlot(id, slot); err != nil {
		return err
	}

	s.beginPropagation()
	s.components[id].Inputs[slot] = value
	s.frontier.push(id)
	return s.propagate()
}

// InputValues writes a batch of values and propagates them together.
//
// Every destination is validated before anything is written, so a rejected
// batch leaves the sketch untouched. Slot 0 is accepted here; this is the
// primitive that Tick is built on.
func (s *Sketch) InputValues(inputs []Input) error {
	for _, in := range inputs {
		if err := s.checkSlot(in.Destination.ComponentID, in.Destination.Slot); err != nil {
			return err
		}
	}

	s.beginPropagation()
	for _, in := range inputs {
		d := in.Destination
		s.components[d.ComponentID].Inputs[d.Slot] = in.Value
		s.frontier.push(d.ComponentID)
	}
	return s.propagate()
}

// Tick advances the sketch by one sample: dt = 1/sample_rate is injected
// into slot 0 of every component and the graph is left to settle.
func (s *Sketch) Tick() error {
	dt := 1 / s.sampleRate

	s.beginPropagation()
	for id := range s.components {
		s.components[id].Inputs[component.DiffTimeSlot] = dt
		s.frontier.push(id)
	}
	if err := s.propagate(); err != nil {
		return err
	}

	s.clock.Next()
	return nil
}

func (s *Sketch) beginPropagation() {
	s.guard.Reset(len(s.components))
	s.frontier.reset()
}

// propagate evaluates waves until one is empty.
// CRITICAL: no allocation on the success path.
func (s *Sketch) propagate() error {
	for s.frontier.advance() {
		for _, id := range s.frontier.current {
			if err := s.guard.Check(id); err != nil {
				s.logger.Debug("propagation did not settle",
					"component", id,
					"type", s.components[id].Type.String(),
					"limit", s.guard.Limit(),
				)
				return err
			}

			c := &s.components[id]
			if !c.Evaluate(s.rng) {
				continue
			}

			out := c.Output
			for _, d := range c.Fanout {
				s.components[d.ComponentID].Inputs[d.Slot] = out
				s.frontier.push(d.ComponentID)
			}
		}
	}
	return nil
}

func (s *Sketch) checkComponent(id int) error {
	if id < 0 || id >= len(s.components) {
		return NewRuntimeError(ErrCodeUnknownComponent,
			fmt.Sprintf("component id out of range [0, %d)", len(s.components)), id, -1)
	}
	return nil
}

func (s *Sketch) checkSlot(id, slot int) error {
	if err := s.checkComponent(id); err != nil {
		return err
	}
	if slot < 0 || slot >= component.InputCount {
		return NewRuntimeError(ErrCodeInvalidSlot,
			fmt.Sprintf("slot out of range [0, %d)", component.InputCount), id, slot)
	}
	return nil
}

func (s *Sketch) checkUserSlot(id, slot int) error {
	if err := s.checkSlot(id, slot); err != nil {
		return err
	}
	if slot == component.DiffTimeSlot {
		return NewRuntimeError(ErrCodeReservedSlot,
			"slot 0 carries the tick delta and cannot be written directly", id, slot)
	}
	return nil
}
