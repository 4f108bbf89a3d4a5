package patch

import (
	"fmt"

	"github.com/roach88/sketch/internal/component"
	"github.com/roach88/sketch/internal/engine"
)

// Instance is a patch built into a live sketch.
type Instance struct {
	Sketch *engine.Sketch

	// IDs maps component names to sketch ids.
	IDs map[string]int

	// Names maps sketch ids back to component names.
	Names []string

	// Taps holds the tap ids, in the order the patch lists them.
	Taps []int
}

// Build creates a sketch at the patch's sample rate and seed, then creates
// the components, applies the connections and injects the inputs.
//
// An input that sends the sketch into a loop fails the build; the returned
// error satisfies engine.IsInfiniteLoopError.
func Build(def *Definition, opts ...engine.Option) (*Instance, error) {
	opts = append([]engine.Option{engine.WithSeed(def.Seed)}, opts...)
	s, err := engine.New(def.SampleRate, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sketch: %w", err)
	}

	inst := &Instance{
		Sketch: s,
		IDs:    make(map[string]int, len(def.Components)),
		Names:  make([]string, 0, len(def.Components)),
	}

	for _, c := range def.Components {
		t, err := component.ParseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", c.Name, err)
		}
		id, err := s.CreateComponent(t)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", c.Name, err)
		}
		inst.IDs[c.Name] = id
		inst.Names = append(inst.Names, c.Name)
	}

	for _, c := range def.Connections {
		src, dst, err := inst.lookupPair(c.From, c.To)
		if err != nil {
			return nil, err
		}
		slot, err := resolveSlot(s.TypeOf(dst), c.Slot, c.Port)
		if err != nil {
			return nil, fmt.Errorf("connect %s -> %s: %w", c.From, c.To, err)
		}
		if err := s.Connect(src, dst, slot); err != nil {
			return nil, fmt.Errorf("connect %s -> %s: %w", c.From, c.To, err)
		}
	}

	for _, in := range def.Inputs {
		if err := inst.Input(in); err != nil {
			return nil, err
		}
	}

	for _, name := range def.Taps {
		id, ok := inst.IDs[name]
		if !ok {
			return nil, fmt.Errorf("tap: unknown component %q", name)
		}
		inst.Taps = append(inst.Taps, id)
	}

	return inst, nil
}

// Input resolves in against the patch names and injects it into the
// sketch.
func (inst *Instance) Input(in InputDef) error {
	id, ok := inst.IDs[in.Component]
	if !ok {
		return fmt.Errorf("input: unknown component %q", in.Component)
	}
	slot, err := resolveSlot(inst.Sketch.TypeOf(id), in.Slot, in.Port)
	if err != nil {
		return fmt.Errorf("input %s: %w", in.Component, err)
	}
	if err := inst.Sketch.InputValue(id, slot, in.Value); err != nil {
		return fmt.Errorf("input %s[%d] = %v: %w", in.Component, slot, in.Value, err)
	}
	return nil
}

// Name returns the patch name of component id, or "" if unknown.
func (inst *Instance) Name(id int) string {
	if id < 0 || id >= len(inst.Names) {
		return ""
	}
	return inst.Names[id]
}

func (inst *Instance) lookupPair(from, to string) (int, int, error) {
	src, ok := inst.IDs[from]
	if !ok {
		return 0, 0, fmt.Errorf("connect: unknown source %q", from)
	}
	dst, ok := inst.IDs[to]
	if !ok {
		return 0, 0, fmt.Errorf("connect: unknown destination %q", to)
	}
	return src, dst, nil
}
