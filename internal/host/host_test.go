package host

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sketch/internal/component"
	"github.com/roach88/sketch/internal/engine"
	"github.com/roach88/sketch/internal/sampler"
	"github.com/roach88/sketch/internal/testutil"
)

func openTest(t *testing.T, sampleRate float64, opts ...Option) *Handle {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.QuietLogger())}, opts...)
	h, err := Open(sampleRate, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestOpen_InvalidSampleRate(t *testing.T) {
	_, err := Open(0, WithLogger(testutil.QuietLogger()))
	require.Error(t, err)
	assert.True(t, engine.HasCode(err, engine.ErrCodeInvalidSampleRate))
}

func TestHandle_StatusCodes(t *testing.T) {
	h := openTest(t, 44100, WithEngineOptions(engine.WithCapacity(2)))

	assert.Equal(t, 0, h.CreateComponent(int(component.Sine)))
	assert.Equal(t, 1, h.CreateComponent(int(component.Mixer)))
	assert.Equal(t, engine.StatusCapacityExceeded, h.CreateComponent(int(component.Mixer)))

	assert.Equal(t, engine.StatusUnknownType, h.CreateComponent(99))
	assert.Equal(t, engine.StatusUnknownComponent, h.Connect(0, 7, 1))
	assert.Equal(t, engine.StatusInvalidSlot, h.Connect(0, 1, 8))
	assert.Equal(t, engine.StatusReservedSlot, h.Connect(0, 1, 0))
	assert.Equal(t, engine.StatusReservedSlot, h.InputValue(0, 0, 1))
	assert.Equal(t, engine.StatusSuccess, h.Connect(0, 1, 1))
	assert.Equal(t, engine.StatusSuccess, h.InputValue(0, 1, 440))
	assert.Equal(t, engine.StatusSuccess, h.Tick())

	assert.InDelta(t, 0.0626, h.GetOutputValue(1), 1e-4)
	assert.Zero(t, h.GetOutputValue(42))
	assert.Equal(t, engine.StatusInvalidSampleRate, h.Reset(-1))
}

func TestHandle_InfiniteLoopStatus(t *testing.T) {
	h := openTest(t, 44100)

	h.CreateComponent(int(component.Sine))
	loop := h.CreateComponent(int(component.Mixer))
	require.Equal(t, engine.StatusSuccess, h.Connect(loop, loop, 1))

	assert.Equal(t, engine.StatusInfiniteLoopBase+loop, h.InputValue(loop, 2, 1))
	assert.Equal(t, 1+loop, h.Tick())
}

func TestHandle_ProcessRegisteredTaps(t *testing.T) {
	h := openTest(t, 2)

	ramp := h.CreateComponent(int(component.Integrator))
	inv := h.CreateComponent(int(component.Not))
	require.Equal(t, engine.StatusSuccess, h.InputValue(ramp, 1, 1))

	require.Equal(t, engine.StatusSuccess, h.AppendTap(ramp))
	require.Equal(t, engine.StatusSuccess, h.AppendTap(inv))
	assert.Equal(t, []int{ramp, inv}, h.Taps())
	assert.Equal(t, engine.StatusUnknownComponent, h.AppendTap(9))

	require.Equal(t, engine.StatusSuccess, h.Process(3))
	buf := h.Buffer()
	assert.Equal(t, []float64{0.5, 1, 1.5}, buf[0:3])
	assert.Equal(t, []float64{1, 1, 1}, buf[3:6])

	require.Equal(t, engine.StatusSuccess, h.ClearTaps())
	assert.Empty(t, h.Taps())

	require.Equal(t, engine.StatusSuccess, h.ProcessTaps(2, []int{ramp}))
	assert.Equal(t, []float64{2, 2.5}, h.Buffer()[0:2])
}

func TestHandle_TapLimit(t *testing.T) {
	h := openTest(t, 44100, WithSamplerOptions(sampler.WithMaxTaps(1), sampler.WithMaxSamples(4)))

	id := h.CreateComponent(int(component.Saw))
	require.Equal(t, engine.StatusSuccess, h.AppendTap(id))
	assert.Equal(t, engine.StatusBufferExceeded, h.AppendTap(id))
	assert.Equal(t, engine.StatusBufferExceeded, h.Process(5))
	assert.Len(t, h.Buffer(), 4)
}

func TestHandle_ResetClearsTaps(t *testing.T) {
	h := openTest(t, 44100)

	id := h.CreateComponent(int(component.Saw))
	require.Equal(t, engine.StatusSuccess, h.AppendTap(id))
	require.Equal(t, engine.StatusSuccess, h.Reset(48000))

	assert.Empty(t, h.Taps())
	assert.Equal(t, engine.StatusUnknownComponent, h.InputValue(id, 1, 1))
	assert.Equal(t, 0, h.CreateComponent(int(component.Saw)), "ids restart at zero")
}

func TestHandle_Closed(t *testing.T) {
	h, err := Open(44100, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)
	id := h.CreateComponent(int(component.Sine))

	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "second close is a no-op")

	assert.Equal(t, engine.StatusClosed, h.CreateComponent(int(component.Sine)))
	assert.Equal(t, engine.StatusClosed, h.Connect(id, id, 1))
	assert.Equal(t, engine.StatusClosed, h.InputValue(id, 1, 1))
	assert.Equal(t, engine.StatusClosed, h.Tick())
	assert.Equal(t, engine.StatusClosed, h.AppendTap(id))
	assert.Equal(t, engine.StatusClosed, h.ClearTaps())
	assert.Equal(t, engine.StatusClosed, h.Process(1))
	assert.Equal(t, engine.StatusClosed, h.ProcessTaps(1, nil))
	assert.Equal(t, engine.StatusClosed, h.Reset(44100))
	assert.Zero(t, h.GetOutputValue(id))
}

func TestHandle_IndependentInstances(t *testing.T) {
	a := openTest(t, 2)
	b := openTest(t, 4)

	ra := a.CreateComponent(int(component.Integrator))
	rb := b.CreateComponent(int(component.Integrator))
	a.InputValue(ra, 1, 1)
	b.InputValue(rb, 1, 1)

	a.Tick()
	b.Tick()

	assert.Equal(t, 0.5, a.GetOutputValue(ra))
	assert.Equal(t, 0.25, b.GetOutputValue(rb))
}

func TestHandle_ConcurrentCalls(t *testing.T) {
	h := openTest(t, 44100)
	ramp := h.CreateComponent(int(component.Integrator))
	require.Equal(t, engine.StatusSuccess, h.InputValue(ramp, 1, 44100))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.Tick()
				h.GetOutputValue(ramp)
			}
		}()
	}
	wg.Wait()

	assert.InDelta(t, 800, h.GetOutputValue(ramp), 1e-6)
}

func TestWrap_ExistingSketch(t *testing.T) {
	s := testutil.NewSketch(t, 2)
	ramp := testutil.Create(t, s, component.Integrator)
	testutil.Input(t, s, ramp, 1, 1)

	h := Wrap(s, WithLogger(testutil.QuietLogger()))
	defer h.Close()

	require.Equal(t, engine.StatusSuccess, h.AppendTap(ramp))
	require.Equal(t, engine.StatusSuccess, h.Process(2))
	assert.Equal(t, []float64{0.5, 1}, h.Buffer()[:2])
	assert.Equal(t, int64(2), h.Ticks())
	assert.Equal(t, int64(2), s.Ticks(), "the handle drives the wrapped sketch")
}
