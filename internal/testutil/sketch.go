// Package testutil provides helpers for building sketches in tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sketch/internal/component"
	"github.com/roach88/sketch/internal/engine"
)

// QuietLogger returns a logger that discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewSketch creates a sketch with a discarding logger. Options are applied
// after the logger, so a test may still supply its own.
func NewSketch(t testing.TB, sampleRate float64, opts ...engine.Option) *engine.Sketch {
	t.Helper()
	opts = append([]engine.Option{engine.WithLogger(QuietLogger())}, opts...)
	s, err := engine.New(sampleRate, opts...)
	require.NoError(t, err)
	return s
}

// Create adds a component of type typ and returns its id.
func Create(t testing.TB, s *engine.Sketch, typ component.Type) int {
	t.Helper()
	id, err := s.CreateComponent(typ)
	require.NoError(t, err)
	return id
}

// Connect routes src into slot of dst.
func Connect(t testing.TB, s *engine.Sketch, src, dst, slot int) {
	t.Helper()
	require.NoError(t, s.Connect(src, dst, slot))
}

// Input writes value into slot of id and requires propagation to settle.
func Input(t testing.TB, s *engine.Sketch, id, slot int, value float64) {
	t.Helper()
	require.NoError(t, s.InputValue(id, slot, value))
}

// Record ticks s n times and returns the output of id after each tick.
func Record(t testing.TB, s *engine.Sketch, id, n int) []float64 {
	t.Helper()
	out := make([]float64, n)
	for i := range out {
		require.NoError(t, s.Tick())
		out[i] = s.OutputValue(id)
	}
	return out
}
