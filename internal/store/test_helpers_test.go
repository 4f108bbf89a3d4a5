package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRender creates a successful two-tap render.
func createTestRender(name string) *Render {
	return &Render{
		PatchName:       name,
		PatchHash:       "hash-" + name,
		SampleRate:      4,
		Samples:         3,
		Status:          0,
		FailedTick:      -1,
		FailedComponent: -1,
		Taps: []Tap{
			{ComponentID: 0, Name: "ramp", Samples: []float64{0.25, 0.5, 0.75}},
			{ComponentID: 2, Name: "gate", Samples: []float64{1, 0, 1}},
		},
	}
}
