package component

import (
	"fmt"
	"strings"
)

// Type identifies the behavior of a component.
//
// The numeric values follow the host-facing enumeration and must not be
// reordered.
type Type int

const (
	Amplifier Type = iota
	Buffer
	Differentiator
	Distributor
	Divider
	Integrator
	LowerSaturator
	Mixer
	Noise
	Saw
	Sine
	Square
	Subtractor
	Triangle
	UpperSaturator
	And
	Not
	Or
)

// typeCount is the number of defined types.
const typeCount = int(Or) + 1

var typeNames = [typeCount]string{
	Amplifier:      "Amplifier",
	Buffer:         "Buffer",
	Differentiator: "Differentiator",
	Distributor:    "Distributor",
	Divider:        "Divider",
	Integrator:     "Integrator",
	LowerSaturator: "LowerSaturator",
	Mixer:          "Mixer",
	Noise:          "Noise",
	Saw:            "Saw",
	Sine:           "Sine",
	Square:         "Square",
	Subtractor:     "Subtractor",
	Triangle:       "Triangle",
	UpperSaturator: "UpperSaturator",
	And:            "And",
	Not:            "Not",
	Or:             "Or",
}

// typeSlots names the user-facing input slots (1..n) of each type.
var typeSlots = [typeCount][]string{
	Amplifier:      {"in1", "in2"},
	Buffer:         {"in"},
	Differentiator: {"in"},
	Distributor:    {"in"},
	Divider:        {"dividend", "divisor"},
	Integrator:     {"in", "reset"},
	LowerSaturator: {"in", "floor"},
	Mixer:          {"in1", "in2"},
	Noise:          nil,
	Saw:            {"frequency"},
	Sine:           {"frequency"},
	Square:         {"frequency", "duty"},
	Subtractor:     {"minuend", "subtrahend"},
	Triangle:       {"frequency"},
	UpperSaturator: {"in", "ceiling"},
	And:            {"in1", "in2"},
	Not:            {"in"},
	Or:             {"in1", "in2"},
}

// Valid reports whether t is one of the defined types.
func (t Type) Valid() bool {
	return t >= 0 && int(t) < typeCount
}

// String returns the canonical name of the type.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Slots returns the names of the user-facing input slots of t, in slot order
// starting at slot 1. The returned slice must not be modified.
func (t Type) Slots() []string {
	if !t.Valid() {
		return nil
	}
	return typeSlots[t]
}

// Stateful reports whether t keeps state in its registers or output across
// ticks.
func (t Type) Stateful() bool {
	switch t {
	case Buffer, Differentiator, Integrator, Noise, Saw, Sine, Square, Triangle:
		return true
	}
	return false
}

// Types returns every defined type in enumeration order.
func Types() []Type {
	out := make([]Type, typeCount)
	for i := range out {
		out[i] = Type(i)
	}
	return out
}

// ParseType resolves a type name. Matching ignores case, underscores,
// hyphens and spaces, so "lower_saturator" and "LowerSaturator" both work.
func ParseType(name string) (Type, error) {
	key := foldName(name)
	for i, n := range typeNames {
		if foldName(n) == key {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown component type %q", name)
}

func foldName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(s))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid component type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
