package store

import "github.com/google/uuid"

// Render is one entry of the render log.
type Render struct {
	// ID is a UUIDv7 string. WriteRender assigns one when empty.
	ID string

	// Seq orders renders. Assigned by WriteRender.
	Seq int64

	PatchName  string
	PatchHash  string
	SampleRate float64

	// Samples is the requested block length per tap.
	Samples int

	// Status is the host status code of the render (0 on success).
	Status int

	// FailedTick and FailedComponent locate an aborted render, or are -1.
	FailedTick      int
	FailedComponent int

	// Taps holds the recorded regions. ListRenders leaves Samples nil.
	Taps []Tap
}

// Tap is the recorded output of one component.
type Tap struct {
	ComponentID int
	Name        string
	Samples     []float64
}

// NewID returns a time-ordered UUIDv7 string.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
