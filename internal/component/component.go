package component

import "math"

const (
	// InputCount is the number of input slots on every component.
	InputCount = 8

	// RegisterCount is the number of persistent registers on every component.
	RegisterCount = 8

	// DiffTimeSlot is the input slot reserved for the per-tick time delta.
	DiffTimeSlot = 0
)

// epsilon is the smallest output movement that counts as a change (2^-52).
const epsilon = 0x1p-52

const twoPi = 2 * math.Pi

// Slot and register layout shared by the behavior table.
const (
	in1Slot   = 1
	in2Slot   = 2
	resetSlot = 2
	dutySlot  = 2

	freqSlot = 1

	valueRegister = 0
	prevRegister  = 0
	phaseRegister = 0
)

// defaultDuty makes an unconnected Square duty slot produce a half cycle.
const defaultDuty = 0.5

// Destination addresses one input slot of one component. It is copied by
// value and never holds a reference to the component itself.
type Destination struct {
	ComponentID int `json:"component_id"`
	Slot        int `json:"slot"`
}

// Source supplies uniformly distributed values in [0, 1) to Noise
// components. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

// Component is one node of the signal graph.
type Component struct {
	Type      Type
	Inputs    [InputCount]float64
	Registers [RegisterCount]float64
	Output    float64

	// Fanout lists the destinations that receive Output whenever it
	// changes. Duplicates are permitted. It only grows at construction
	// time; evaluation never appends to it.
	Fanout []Destination
}

// New returns a zeroed component of type t.
func New(t Type) Component {
	c := Component{Type: t}
	if t == Square {
		c.Inputs[dutySlot] = defaultDuty
	}
	return c
}

// Evaluate computes the next output from the current input slots, updates
// registers and reports whether the output changed by at least epsilon.
//
// The dt slot is cleared before returning.
func (c *Component) Evaluate(rng Source) bool {
	in := &c.Inputs
	dt := in[DiffTimeSlot]

	var next float64
	switch c.Type {
	case Amplifier:
		next = in[in1Slot] * in[in2Slot]
	case Mixer:
		next = in[in1Slot] + in[in2Slot]
	case Subtractor:
		next = in[in1Slot] - in[in2Slot]
	case Divider:
		next = in[in1Slot] / in[in2Slot]
	case LowerSaturator:
		next = math.Max(in[in1Slot], in[in2Slot])
	case UpperSaturator:
		next = math.Min(in[in1Slot], in[in2Slot])
	case Distributor:
		next = in[in1Slot]
	case Buffer:
		c.Registers[valueRegister] = in[in1Slot]
		if dt == 0 {
			next = c.Output
		} else {
			next = c.Registers[valueRegister]
		}
	case Differentiator:
		if dt == 0 {
			next = c.Output
		} else {
			v := in[in1Slot]
			next = (v - c.Registers[prevRegister]) / dt
			c.Registers[prevRegister] = v
		}
	case Integrator:
		if in[resetSlot] < 0.5 {
			c.Registers[valueRegister] += in[in1Slot] * dt
		} else {
			c.Registers[valueRegister] = 0
		}
		next = c.Registers[valueRegister]
	case Noise:
		if dt == 0 {
			next = c.Output
		} else {
			next = rng.Float64()*2 - 1
		}
	case Sine:
		next = math.Sin(c.advancePhase(dt))
	case Saw:
		next = (c.advancePhase(dt) - math.Pi) / math.Pi
	case Triangle:
		phase := c.advancePhase(dt)
		if phase < math.Pi {
			next = phase*2/math.Pi - 1
		} else {
			next = 1 - (phase-math.Pi)*2/math.Pi
		}
	case Square:
		if c.advancePhase(dt) < twoPi*in[dutySlot] {
			next = 1
		} else {
			next = -1
		}
	case And:
		next = gate(in[in1Slot] >= 0.5 && in[in2Slot] >= 0.5)
	case Or:
		next = gate(in[in1Slot] >= 0.5 || in[in2Slot] >= 0.5)
	case Not:
		next = gate(in[in1Slot] < 0.5)
	default:
		next = c.Output
	}

	changed := math.Abs(c.Output-next) >= epsilon
	c.Output = next
	in[DiffTimeSlot] = 0

	return changed
}

// advancePhase moves the phase accumulator by 2π·frequency·dt, wraps it
// modulo 2π and returns the new phase.
func (c *Component) advancePhase(dt float64) float64 {
	phase := c.Registers[phaseRegister] + twoPi*c.Inputs[freqSlot]*dt
	phase = math.Mod(phase, twoPi)
	c.Registers[phaseRegister] = phase
	return phase
}

func gate(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
