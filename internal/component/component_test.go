package component

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource returns a fixed sequence of values, cycling when exhausted.
type fixedSource struct {
	values []float64
	idx    int
	calls  int
}

func (s *fixedSource) Float64() float64 {
	v := s.values[s.idx%len(s.values)]
	s.idx++
	s.calls++
	return v
}

func withInputs(t Type, a, b float64) Component {
	c := New(t)
	c.Inputs[1] = a
	c.Inputs[2] = b
	return c
}

func TestEvaluate_StatelessTypes(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		a, b float64
		want float64
	}{
		{"amplifier", Amplifier, 3, 4, 12},
		{"mixer", Mixer, 2, 3, 5},
		{"subtractor", Subtractor, 2, 3, -1},
		{"divider", Divider, 3, 4, 0.75},
		{"lower saturator picks max", LowerSaturator, -2, 0.5, 0.5},
		{"upper saturator picks min", UpperSaturator, -2, 0.5, -2},
		{"distributor", Distributor, 7.25, 99, 7.25},
		{"and both high", And, 0.5, 1, 1},
		{"and one low", And, 0.49, 1, 0},
		{"or one high", Or, 0, 0.5, 1},
		{"or both low", Or, 0.1, 0.2, 0},
		{"not low", Not, 0.2, 0, 1},
		{"not high", Not, 0.5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := withInputs(tt.typ, tt.a, tt.b)
			c.Evaluate(nil)
			assert.Equal(t, tt.want, c.Output)

			// Identical inputs give identical output and no change.
			changed := c.Evaluate(nil)
			assert.False(t, changed)
			assert.Equal(t, tt.want, c.Output)
		})
	}
}

func TestEvaluate_ChangeFlag(t *testing.T) {
	c := withInputs(Mixer, 0, 0)
	assert.False(t, c.Evaluate(nil), "0+0 does not move a zero output")

	c.Inputs[1] = 1
	assert.True(t, c.Evaluate(nil))

	c.Inputs[1] = 1 + 0x1p-60
	assert.False(t, c.Evaluate(nil), "movement below epsilon is not a change")
}

func TestEvaluate_DividerIsUnguarded(t *testing.T) {
	c := withInputs(Divider, 1, 0)
	assert.True(t, c.Evaluate(nil))
	assert.True(t, math.IsInf(c.Output, 1))

	c = withInputs(Divider, 0, 0)
	c.Evaluate(nil)
	assert.True(t, math.IsNaN(c.Output))
}

func TestEvaluate_ClearsDiffTime(t *testing.T) {
	for _, typ := range Types() {
		c := New(typ)
		c.Inputs[DiffTimeSlot] = 0.25
		c.Evaluate(&fixedSource{values: []float64{0.5}})
		assert.Zero(t, c.Inputs[DiffTimeSlot], typ.String())
	}
}

func TestEvaluate_IntegratorAccumulates(t *testing.T) {
	const (
		v  = 0.75
		dt = 1.0 / 48000
		k  = 1000
	)

	c := New(Integrator)
	c.Inputs[1] = v
	for i := 0; i < k; i++ {
		c.Inputs[DiffTimeSlot] = dt
		c.Evaluate(nil)
	}

	assert.InDelta(t, v*dt*k, c.Output, 1e-12)

	// Reset clears the accumulator.
	c.Inputs[2] = 1
	c.Inputs[DiffTimeSlot] = dt
	assert.True(t, c.Evaluate(nil))
	assert.Zero(t, c.Output)
	assert.Zero(t, c.Registers[0])
}

func TestEvaluate_IntegratorIgnoresZeroDiffTime(t *testing.T) {
	c := New(Integrator)
	c.Inputs[1] = 5
	assert.False(t, c.Evaluate(nil))
	assert.Zero(t, c.Output)
}

func TestEvaluate_BufferHoldsWithoutDiffTime(t *testing.T) {
	c := New(Buffer)
	c.Inputs[1] = 3
	c.Inputs[DiffTimeSlot] = 0.5
	require.True(t, c.Evaluate(nil))
	assert.Equal(t, 3.0, c.Output)

	// A later wave in the same tick sees dt == 0.
	c.Inputs[1] = 9
	assert.False(t, c.Evaluate(nil))
	assert.Equal(t, 3.0, c.Output)
	assert.Equal(t, 9.0, c.Registers[0], "register still samples the input")

	c.Inputs[DiffTimeSlot] = 0.5
	assert.True(t, c.Evaluate(nil))
	assert.Equal(t, 9.0, c.Output)
}

func TestEvaluate_DifferentiatorHoldsWithoutDiffTime(t *testing.T) {
	c := New(Differentiator)
	c.Inputs[1] = 1
	c.Inputs[DiffTimeSlot] = 0.5
	require.True(t, c.Evaluate(nil))
	assert.Equal(t, 2.0, c.Output)

	c.Inputs[1] = 100
	assert.False(t, c.Evaluate(nil))
	assert.Equal(t, 2.0, c.Output)
	assert.Equal(t, 1.0, c.Registers[0], "no state update while dt is zero")

	c.Inputs[DiffTimeSlot] = 0.5
	c.Evaluate(nil)
	assert.Equal(t, 198.0, c.Output)
}

func TestEvaluate_NoiseDrawsOncePerTick(t *testing.T) {
	src := &fixedSource{values: []float64{0.75, 0.25}}
	c := New(Noise)

	assert.False(t, c.Evaluate(src))
	assert.Zero(t, src.calls)

	c.Inputs[DiffTimeSlot] = 1.0 / 44100
	assert.True(t, c.Evaluate(src))
	assert.Equal(t, 0.5, c.Output)
	assert.Equal(t, 1, src.calls)

	// Same tick, later wave: held.
	assert.False(t, c.Evaluate(src))
	assert.Equal(t, 0.5, c.Output)
	assert.Equal(t, 1, src.calls)

	c.Inputs[DiffTimeSlot] = 1.0 / 44100
	c.Evaluate(src)
	assert.Equal(t, -0.5, c.Output)
}

func TestEvaluate_OscillatorZeroFrequencyIsConstant(t *testing.T) {
	for _, typ := range []Type{Sine, Saw, Triangle, Square} {
		c := New(typ)
		c.Evaluate(nil)
		first := c.Output
		for i := 0; i < 10; i++ {
			c.Inputs[DiffTimeSlot] = 0.01
			assert.False(t, c.Evaluate(nil), typ.String())
			assert.Equal(t, first, c.Output, typ.String())
		}
	}
}

func TestEvaluate_OscillatorPhaseWraps(t *testing.T) {
	const dt = 0.123

	c := New(Sine)
	c.Inputs[1] = 1
	want := 0.0
	for i := 0; i < 100; i++ {
		c.Inputs[DiffTimeSlot] = dt
		c.Evaluate(nil)
		want = math.Mod(want+2*math.Pi*dt, 2*math.Pi)

		phase := c.Registers[0]
		require.GreaterOrEqual(t, phase, 0.0)
		require.Less(t, phase, 2*math.Pi)
		assert.InDelta(t, want, phase, 1e-9)
		assert.InDelta(t, math.Sin(want), c.Output, 1e-9)
	}
}

func TestEvaluate_OscillatorShapes(t *testing.T) {
	// dt*freq = 1/8 of a cycle per evaluation.
	const dt = 0.125

	saw := New(Saw)
	saw.Inputs[1] = 1
	saw.Inputs[DiffTimeSlot] = dt
	saw.Evaluate(nil)
	assert.InDelta(t, -0.75, saw.Output, 1e-12)

	tri := New(Triangle)
	tri.Inputs[1] = 1
	tri.Inputs[DiffTimeSlot] = dt
	tri.Evaluate(nil)
	assert.InDelta(t, -0.5, tri.Output, 1e-12)
	for i := 0; i < 4; i++ {
		tri.Inputs[DiffTimeSlot] = dt
		tri.Evaluate(nil)
	}
	// Phase 5π/4: descending half.
	assert.InDelta(t, 0.5, tri.Output, 1e-12)
}

func TestEvaluate_SquareDefaultsToHalfCycle(t *testing.T) {
	c := New(Square)
	c.Inputs[1] = 1

	var outputs []float64
	for i := 0; i < 8; i++ {
		c.Inputs[DiffTimeSlot] = 0.15
		c.Evaluate(nil)
		outputs = append(outputs, c.Output)
	}

	// Phases 0.3π, 0.6π, ... 2.1π (wrapped) against a threshold of π.
	assert.Equal(t, []float64{1, 1, 1, -1, -1, -1, 1, 1}, outputs)
}

func TestEvaluate_SquareDuty(t *testing.T) {
	c := New(Square)
	c.Inputs[1] = 1
	c.Inputs[2] = 0.25
	c.Inputs[DiffTimeSlot] = 0.2
	c.Evaluate(nil)
	assert.Equal(t, 1.0, c.Output)

	c.Inputs[DiffTimeSlot] = 0.2
	c.Evaluate(nil)
	assert.Equal(t, -1.0, c.Output)

	c = New(Square)
	c.Inputs[2] = 0
	c.Evaluate(nil)
	assert.Equal(t, -1.0, c.Output, "zero duty never goes high")
}

func TestNew_FanoutEmpty(t *testing.T) {
	c := New(Mixer)
	assert.Empty(t, c.Fanout)
	assert.Equal(t, Mixer, c.Type)
}
