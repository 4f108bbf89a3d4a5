package engine

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sketch/internal/component"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSketch(t *testing.T, sampleRate float64, opts ...Option) *Sketch {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := New(sampleRate, opts...)
	require.NoError(t, err)
	return s
}

func create(t *testing.T, s *Sketch, typ component.Type) int {
	t.Helper()
	id, err := s.CreateComponent(typ)
	require.NoError(t, err)
	return id
}

func connect(t *testing.T, s *Sketch, src, dst, slot int) {
	t.Helper()
	require.NoError(t, s.Connect(src, dst, slot))
}

func TestNew_Defaults(t *testing.T) {
	s := newTestSketch(t, 44100)

	assert.Equal(t, 44100.0, s.SampleRate())
	assert.Equal(t, DefaultCapacity, s.Capacity())
	assert.Equal(t, DefaultMaxIterations, s.MaxIterations())
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Ticks())
}

func TestNew_InvalidSampleRate(t *testing.T) {
	for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := New(rate, WithLogger(quietLogger()))
		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeInvalidSampleRate), "rate %v", rate)
		assert.Equal(t, StatusInvalidSampleRate, StatusCode(err))
	}
}

func TestNew_InvalidCapacity(t *testing.T) {
	_, err := New(44100, WithCapacity(0), WithLogger(quietLogger()))
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeCapacityExceeded))
}

func TestCreateComponent_SequentialIDs(t *testing.T) {
	s := newTestSketch(t, 44100)

	for want := 0; want < 5; want++ {
		id, err := s.CreateComponent(component.Mixer)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, 5, s.Len())
}

func TestCreateComponent_UnknownType(t *testing.T) {
	s := newTestSketch(t, 44100)

	_, err := s.CreateComponent(component.Type(200))
	require.Error(t, err)
	assert.Equal(t, StatusUnknownType, StatusCode(err))
	assert.Zero(t, s.Len())
}

func TestCreateComponent_CapacityExceeded(t *testing.T) {
	s := newTestSketch(t, 44100, WithCapacity(2))

	create(t, s, component.Sine)
	create(t, s, component.Sine)

	_, err := s.CreateComponent(component.Sine)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeCapacityExceeded))
	assert.Equal(t, StatusCapacityExceeded, StatusCode(err))
	assert.Equal(t, 2, s.Len())
}

func TestConnect_Validation(t *testing.T) {
	s := newTestSketch(t, 44100)
	a := create(t, s, component.Distributor)
	b := create(t, s, component.Mixer)

	tests := []struct {
		name          string
		src, dst, slot int
		code          RuntimeErrorCode
	}{
		{"unknown source", 7, b, 1, ErrCodeUnknownComponent},
		{"negative source", -1, b, 1, ErrCodeUnknownComponent},
		{"unknown destination", a, 9, 1, ErrCodeUnknownComponent},
		{"slot too high", a, b, component.InputCount, ErrCodeInvalidSlot},
		{"negative slot", a, b, -1, ErrCodeInvalidSlot},
		{"dt slot reserved", a, b, 0, ErrCodeReservedSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Connect(tt.src, tt.dst, tt.slot)
			require.Error(t, err)
			assert.True(t, HasCode(err, tt.code), err.Error())
		})
	}

	c, ok := s.Component(a)
	require.True(t, ok)
	assert.Empty(t, c.Fanout, "rejected connections are not recorded")
}

func TestConnect_DuplicatesAndCyclesAllowed(t *testing.T) {
	s := newTestSketch(t, 44100)
	a := create(t, s, component.Mixer)
	b := create(t, s, component.Mixer)

	connect(t, s, a, b, 1)
	connect(t, s, a, b, 1)
	connect(t, s, b, a, 2)
	connect(t, s, a, a, 1)

	c, _ := s.Component(a)
	assert.Equal(t, []component.Destination{
		{ComponentID: b, Slot: 1},
		{ComponentID: b, Slot: 1},
		{ComponentID: a, Slot: 1},
	}, c.Fanout)
}

// Mixer with inputs 2.0 and 3.0 outputs 5.0 on injection, without a tick.
func TestInputValue_MixerSettlesImmediately(t *testing.T) {
	s := newTestSketch(t, 44100)
	m := create(t, s, component.Mixer)

	require.NoError(t, s.InputValue(m, 1, 2.0))
	require.NoError(t, s.InputValue(m, 2, 3.0))

	assert.Equal(t, 5.0, s.OutputValue(m))
	assert.Zero(t, s.Ticks())
}

// Sine2 feeds Sine1's frequency; one tick at 440 Hz advances Sine1's phase
// by 2π·440/44100.
func TestTick_FrequencyModulatedSine(t *testing.T) {
	s := newTestSketch(t, 44100)
	sine1 := create(t, s, component.Sine)
	sine2 := create(t, s, component.Sine)
	connect(t, s, sine2, sine1, 1)

	require.NoError(t, s.InputValue(sine1, 1, 440.0))
	assert.Zero(t, s.OutputValue(sine1), "no time has passed yet")

	require.NoError(t, s.Tick())

	phase := 2 * math.Pi * 440 / 44100
	c, _ := s.Component(sine1)
	assert.InDelta(t, 0.06268937721449021, c.Registers[0], 1e-12)
	assert.InDelta(t, phase, c.Registers[0], 1e-12)
	assert.InDelta(t, 0.06264832417874368, s.OutputValue(sine1), 1e-12)
	assert.Zero(t, s.OutputValue(sine2))
	assert.Equal(t, int64(1), s.Ticks())
}

// A self-feedback mixer with no damping never settles.
func TestInputValue_SelfFeedbackDetected(t *testing.T) {
	s := newTestSketch(t, 44100)
	create(t, s, component.Sine) // offset the id so it is not 0
	m := create(t, s, component.Mixer)
	connect(t, s, m, m, 1)

	err := s.InputValue(m, 2, 1.0)
	require.Error(t, err)

	var loopErr *InfiniteLoopError
	require.ErrorAs(t, err, &loopErr)
	assert.Equal(t, m, loopErr.ComponentID)
	assert.Equal(t, DefaultMaxIterations+1, loopErr.Iterations)
	assert.Equal(t, DefaultMaxIterations, loopErr.Limit)
	assert.Equal(t, StatusInfiniteLoopBase+m, StatusCode(err))
	assert.True(t, IsInfiniteLoopError(err))

	// The tick that follows fails the same way.
	err = s.Tick()
	require.ErrorAs(t, err, &loopErr)
	assert.Equal(t, m, loopErr.ComponentID)
	assert.Zero(t, s.Ticks(), "failed ticks do not advance the clock")
}

func TestInputValue_CustomIterationLimit(t *testing.T) {
	s := newTestSketch(t, 44100, WithMaxIterations(3))
	m := create(t, s, component.Mixer)
	connect(t, s, m, m, 1)

	err := s.InputValue(m, 2, 1.0)
	var loopErr *InfiniteLoopError
	require.ErrorAs(t, err, &loopErr)
	assert.Equal(t, 4, loopErr.Iterations)
	assert.Equal(t, 3.0, s.OutputValue(m), "three evaluations ran before the guard tripped")
}

func TestInputValue_DampedFeedbackSettles(t *testing.T) {
	s := newTestSketch(t, 44100)
	mix := create(t, s, component.Mixer)
	amp := create(t, s, component.Amplifier)
	connect(t, s, mix, amp, 1)
	connect(t, s, amp, mix, 2)

	require.NoError(t, s.InputValue(amp, 2, 0.5))
	require.NoError(t, s.InputValue(mix, 1, 1.0))

	// x = 1 + x/2 converges to 2.
	assert.InDelta(t, 2.0, s.OutputValue(mix), 1e-12)
	assert.InDelta(t, 1.0, s.OutputValue(amp), 1e-12)
	assert.Less(t, s.guard.count(mix), DefaultMaxIterations)
}

func TestInputValue_ReservedSlot(t *testing.T) {
	s := newTestSketch(t, 44100)
	b := create(t, s, component.Buffer)

	err := s.InputValue(b, component.DiffTimeSlot, 1)
	require.Error(t, err)
	assert.Equal(t, StatusReservedSlot, StatusCode(err))
}

func TestInputValue_OutOfRange(t *testing.T) {
	s := newTestSketch(t, 44100)

	err := s.InputValue(0, 1, 1)
	require.Error(t, err)
	assert.Equal(t, StatusUnknownComponent, StatusCode(err))
}

func TestInputValues_RejectsWholeBatch(t *testing.T) {
	s := newTestSketch(t, 44100)
	m := create(t, s, component.Mixer)

	err := s.InputValues([]Input{
		{Destination: component.Destination{ComponentID: m, Slot: 1}, Value: 4},
		{Destination: component.Destination{ComponentID: m, Slot: 12}, Value: 4},
	})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeInvalidSlot))

	c, _ := s.Component(m)
	assert.Zero(t, c.Inputs[1], "nothing written when any destination is invalid")
	assert.Zero(t, s.OutputValue(m))
}

func TestInputValues_Batch(t *testing.T) {
	s := newTestSketch(t, 44100)
	m := create(t, s, component.Mixer)

	require.NoError(t, s.InputValues([]Input{
		{Destination: component.Destination{ComponentID: m, Slot: 1}, Value: 2},
		{Destination: component.Destination{ComponentID: m, Slot: 2}, Value: 3},
	}))

	assert.Equal(t, 5.0, s.OutputValue(m))
	assert.Equal(t, 1, s.guard.count(m), "one wave evaluates a component once")
}

func TestInputValues_WaveDeduplication(t *testing.T) {
	s := newTestSketch(t, 44100)
	src := create(t, s, component.Distributor)
	left := create(t, s, component.Distributor)
	right := create(t, s, component.Distributor)
	sum := create(t, s, component.Mixer)
	connect(t, s, src, left, 1)
	connect(t, s, src, right, 1)
	connect(t, s, left, sum, 1)
	connect(t, s, right, sum, 2)

	require.NoError(t, s.InputValue(src, 1, 1.5))

	assert.Equal(t, 3.0, s.OutputValue(sum))
	assert.Equal(t, 1, s.guard.count(sum), "both branches arrive in the same wave")
}

func TestInputValue_UnchangedOutputStopsPropagation(t *testing.T) {
	s := newTestSketch(t, 44100)
	gate := create(t, s, component.Not)
	sink := create(t, s, component.Distributor)
	connect(t, s, gate, sink, 1)

	// Not(0) = 1 changes from the initial 0 and propagates.
	require.NoError(t, s.InputValue(gate, 1, 0.1))
	assert.Equal(t, 1.0, s.OutputValue(sink))

	// Not(0.2) is still 1: the sink is never scheduled.
	require.NoError(t, s.InputValue(gate, 1, 0.2))
	assert.Zero(t, s.guard.count(sink))
}

func TestTick_IntegratorRamp(t *testing.T) {
	s := newTestSketch(t, 100)
	in := create(t, s, component.Integrator)
	require.NoError(t, s.InputValue(in, 1, 1))

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Tick())
	}

	assert.InDelta(t, 0.1, s.OutputValue(in), 1e-12)
	assert.Equal(t, int64(10), s.Ticks())
}

// Inputs arriving in a later wave of the same tick see dt == 0, so a Buffer
// holds its output until the next tick.
func TestTick_BufferHoldsWithinPass(t *testing.T) {
	s := newTestSketch(t, 10)
	buf := create(t, s, component.Buffer)
	osc := create(t, s, component.Saw)
	connect(t, s, osc, buf, 1)

	require.NoError(t, s.InputValue(osc, 1, 1))
	assert.Zero(t, s.OutputValue(buf), "injection pass carries no dt")

	for i := 0; i < 5; i++ {
		prev := s.OutputValue(osc)
		require.NoError(t, s.Tick())

		// The buffer ran in wave 1 before the saw moved, then again in
		// wave 2 with dt cleared: it delays by exactly one sample.
		assert.Equal(t, prev, s.OutputValue(buf), "tick %d", i)
		assert.NotEqual(t, prev, s.OutputValue(osc))
	}
}

func TestTick_NoiseIsSeeded(t *testing.T) {
	render := func(seed uint64) []float64 {
		s := newTestSketch(t, 44100, WithSeed(seed))
		n := create(t, s, component.Noise)
		var out []float64
		for i := 0; i < 32; i++ {
			require.NoError(t, s.Tick())
			v := s.OutputValue(n)
			require.GreaterOrEqual(t, v, -1.0)
			require.Less(t, v, 1.0)
			out = append(out, v)
		}
		return out
	}

	assert.Equal(t, render(7), render(7))
	assert.NotEqual(t, render(7), render(8))
}

func TestReset(t *testing.T) {
	s := newTestSketch(t, 44100, WithSeed(3))
	n := create(t, s, component.Noise)
	require.NoError(t, s.Tick())
	first := s.OutputValue(n)

	require.NoError(t, s.Reset(48000))
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Ticks())
	assert.Equal(t, 48000.0, s.SampleRate())
	assert.Zero(t, s.OutputValue(n))

	n = create(t, s, component.Noise)
	require.NoError(t, s.Tick())
	assert.Equal(t, first, s.OutputValue(n), "generator is reseeded")

	err := s.Reset(0)
	assert.True(t, HasCode(err, ErrCodeInvalidSampleRate))
}

func TestOutputValue_OutOfRange(t *testing.T) {
	s := newTestSketch(t, 44100)
	assert.Zero(t, s.OutputValue(-1))
	assert.Zero(t, s.OutputValue(3))

	_, ok := s.Component(3)
	assert.False(t, ok)
}

func TestRecoversAfterLoopError(t *testing.T) {
	s := newTestSketch(t, 44100)
	loop := create(t, s, component.Mixer)
	connect(t, s, loop, loop, 1)
	plain := create(t, s, component.Mixer)

	require.Error(t, s.InputValue(loop, 2, 1))
	require.NoError(t, s.InputValue(plain, 1, 4))
	assert.Equal(t, 4.0, s.OutputValue(plain))
}

func TestTick_DoesNotAllocate(t *testing.T) {
	s := newTestSketch(t, 44100)
	osc := create(t, s, component.Sine)
	amp := create(t, s, component.Amplifier)
	noise := create(t, s, component.Noise)
	connect(t, s, osc, amp, 1)
	connect(t, s, noise, amp, 2)
	require.NoError(t, s.InputValue(osc, 1, 220))

	allocs := testing.AllocsPerRun(200, func() {
		_ = s.Tick()
	})
	assert.Zero(t, allocs)

	batch := []Input{{Destination: component.Destination{ComponentID: osc, Slot: 1}, Value: 330}}
	allocs = testing.AllocsPerRun(200, func() {
		_ = s.InputValues(batch)
	})
	assert.Zero(t, allocs)
}
