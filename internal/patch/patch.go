// Package patch reads patch definitions: named components, the
// connections between them, initial input values and the taps to record.
//
// Patches are plain data. They can be written as YAML, CUE or HCL; every
// format decodes into the same Definition, which Build turns into a live
// sketch. Patch names and component names are NFC-normalized on load so
// that visually identical names resolve to the same component.
package patch

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/sketch/internal/component"
)

// DefaultSampleRate is used when a patch does not set sample_rate.
const DefaultSampleRate = 44100

// Definition is a decoded patch.
type Definition struct {
	// Name identifies the patch in render logs.
	Name string `yaml:"name" json:"name"`

	// SampleRate in Hz. Zero means DefaultSampleRate.
	SampleRate float64 `yaml:"sample_rate,omitempty" json:"sample_rate,omitempty"`

	// Seed for the Noise generator.
	Seed uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Components are created in order; their position is their id.
	Components []ComponentDef `yaml:"components" json:"components"`

	// Connections are applied after every component exists.
	Connections []Connection `yaml:"connections,omitempty" json:"connections,omitempty"`

	// Inputs are injected one at a time after the connections, in order.
	Inputs []InputDef `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	// Taps name the components whose outputs a render records.
	Taps []string `yaml:"taps,omitempty" json:"taps,omitempty"`
}

// ComponentDef declares one named component.
type ComponentDef struct {
	Name string `yaml:"name" json:"name"`

	// Type is a component type name, matched by component.ParseType.
	Type string `yaml:"type" json:"type"`
}

// Connection routes the output of From into one input of To.
//
// The input is chosen either by Slot number or by Port name (one of the
// destination type's slot names, e.g. "frequency"). Setting both is an
// error unless they agree.
type Connection struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
	Slot int    `yaml:"slot,omitempty" json:"slot,omitempty"`
	Port string `yaml:"port,omitempty" json:"port,omitempty"`
}

// InputDef sets one input of a component to a constant.
type InputDef struct {
	Component string  `yaml:"component" json:"component"`
	Slot      int     `yaml:"slot,omitempty" json:"slot,omitempty"`
	Port      string  `yaml:"port,omitempty" json:"port,omitempty"`
	Value     float64 `yaml:"value" json:"value"`
}

// Normalize applies defaults and NFC-normalizes every name. Load and Parse
// call it; definitions built in code should call it before Validate.
func (d *Definition) Normalize() {
	d.Name = norm.NFC.String(d.Name)
	if d.SampleRate == 0 {
		d.SampleRate = DefaultSampleRate
	}
	for i := range d.Components {
		d.Components[i].Name = norm.NFC.String(d.Components[i].Name)
	}
	for i := range d.Connections {
		d.Connections[i].From = norm.NFC.String(d.Connections[i].From)
		d.Connections[i].To = norm.NFC.String(d.Connections[i].To)
	}
	for i := range d.Inputs {
		d.Inputs[i].Component = norm.NFC.String(d.Inputs[i].Component)
	}
	for i := range d.Taps {
		d.Taps[i] = norm.NFC.String(d.Taps[i])
	}
}

// Validate checks names, types and slots. Every problem found is reported,
// joined with errors.Join.
func (d *Definition) Validate() error {
	var errs []error

	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !(d.SampleRate > 0) {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %v", d.SampleRate))
	}
	if len(d.Components) == 0 {
		errs = append(errs, errors.New("components list is required and must be non-empty"))
	}

	types := make(map[string]component.Type, len(d.Components))
	for i, c := range d.Components {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("components[%d]: name is required", i))
			continue
		}
		if _, dup := types[c.Name]; dup {
			errs = append(errs, fmt.Errorf("components[%d]: duplicate name %q", i, c.Name))
			continue
		}
		t, err := component.ParseType(c.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("components[%d] %q: %w", i, c.Name, err))
			continue
		}
		types[c.Name] = t
	}

	for i, c := range d.Connections {
		if _, ok := types[c.From]; !ok {
			errs = append(errs, fmt.Errorf("connections[%d]: unknown source %q", i, c.From))
		}
		t, ok := types[c.To]
		if !ok {
			errs = append(errs, fmt.Errorf("connections[%d]: unknown destination %q", i, c.To))
			continue
		}
		if _, err := resolveSlot(t, c.Slot, c.Port); err != nil {
			errs = append(errs, fmt.Errorf("connections[%d] %s -> %s: %w", i, c.From, c.To, err))
		}
	}

	for i, in := range d.Inputs {
		t, ok := types[in.Component]
		if !ok {
			errs = append(errs, fmt.Errorf("inputs[%d]: unknown component %q", i, in.Component))
			continue
		}
		if _, err := resolveSlot(t, in.Slot, in.Port); err != nil {
			errs = append(errs, fmt.Errorf("inputs[%d] %s: %w", i, in.Component, err))
		}
	}

	for i, name := range d.Taps {
		if _, ok := types[name]; !ok {
			errs = append(errs, fmt.Errorf("taps[%d]: unknown component %q", i, name))
		}
	}

	return errors.Join(errs...)
}

// resolveSlot turns a slot number or port name into a slot index in
// [1, component.InputCount).
func resolveSlot(t component.Type, slot int, port string) (int, error) {
	if port != "" {
		for i, name := range t.Slots() {
			if name == port {
				if slot != 0 && slot != i+1 {
					return 0, fmt.Errorf("port %q is slot %d, not %d", port, i+1, slot)
				}
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("%s has no port %q", t, port)
	}
	if slot < 1 || slot >= component.InputCount {
		return 0, fmt.Errorf("slot %d outside [1, %d)", slot, component.InputCount)
	}
	return slot, nil
}
