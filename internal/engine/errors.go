package engine

import (
	"errors"
	"fmt"
)

// Status codes returned across the host surface.
const (
	// StatusSuccess reports a call that completed normally.
	StatusSuccess = 0

	// StatusInfiniteLoopBase is added to the offending component id when
	// propagation fails to settle.
	StatusInfiniteLoopBase = 1

	StatusUnknownComponent  = -1
	StatusInvalidSlot       = -2
	StatusReservedSlot      = -3
	StatusCapacityExceeded  = -4
	StatusInvalidSampleRate = -5
	StatusUnknownType       = -6
	StatusBufferExceeded    = -7
	StatusClosed            = -8

	// StatusInternal is returned for errors that carry no status of their own.
	StatusInternal = -100
)

// RuntimeError represents misuse of the sketch detected by bounds checking.
//
// Runtime errors include:
//   - Unknown component: id outside the created range
//   - Invalid slot: slot outside [0, component.InputCount)
//   - Reserved slot: user write or connection targeting the dt slot
//   - Capacity exceeded: more components than the arena holds
//
// None of these mutate the sketch.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ComponentID identifies the component involved, or -1.
	ComponentID int

	// Slot identifies the slot involved, or -1.
	Slot int
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeUnknownComponent  RuntimeErrorCode = "UNKNOWN_COMPONENT"
	ErrCodeInvalidSlot       RuntimeErrorCode = "INVALID_SLOT"
	ErrCodeReservedSlot      RuntimeErrorCode = "RESERVED_SLOT"
	ErrCodeCapacityExceeded  RuntimeErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeInvalidSampleRate RuntimeErrorCode = "INVALID_SAMPLE_RATE"
	ErrCodeUnknownType       RuntimeErrorCode = "UNKNOWN_TYPE"
	ErrCodeBufferExceeded    RuntimeErrorCode = "BUFFER_EXCEEDED"
	ErrCodeClosed            RuntimeErrorCode = "CLOSED"
)

var statusByCode = map[RuntimeErrorCode]int{
	ErrCodeUnknownComponent:  StatusUnknownComponent,
	ErrCodeInvalidSlot:       StatusInvalidSlot,
	ErrCodeReservedSlot:      StatusReservedSlot,
	ErrCodeCapacityExceeded:  StatusCapacityExceeded,
	ErrCodeInvalidSampleRate: StatusInvalidSampleRate,
	ErrCodeUnknownType:       StatusUnknownType,
	ErrCodeBufferExceeded:    StatusBufferExceeded,
	ErrCodeClosed:            StatusClosed,
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.ComponentID >= 0 && e.Slot >= 0:
		return fmt.Sprintf("%s: %s (component=%d, slot=%d)", e.Code, e.Message, e.ComponentID, e.Slot)
	case e.ComponentID >= 0:
		return fmt.Sprintf("%s: %s (component=%d)", e.Code, e.Message, e.ComponentID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status returns the host status code for the error.
func (e *RuntimeError) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return StatusInternal
}

// NewRuntimeError creates a RuntimeError. Pass -1 for an unused id or slot.
func NewRuntimeError(code RuntimeErrorCode, message string, componentID, slot int) *RuntimeError {
	return &RuntimeError{
		Code:        code,
		Message:     message,
		ComponentID: componentID,
		Slot:        slot,
	}
}

// HasCode reports whether err is a RuntimeError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// InfiniteLoopError is returned when a propagation does not settle: one
// component was evaluated more than the iteration limit within a single
// InputValues call.
type InfiniteLoopError struct {
	ComponentID int // The component whose iteration count overflowed
	Iterations  int // Evaluations attempted, including the failing one
	Limit       int // Maximum allowed evaluations per propagation
}

// Error implements the error interface.
func (e *InfiniteLoopError) Error() string {
	return fmt.Sprintf("infinite loop detected at component %d: %d iterations > %d limit",
		e.ComponentID, e.Iterations, e.Limit)
}

// Status returns the host status code: StatusInfiniteLoopBase plus the
// offending component id.
func (e *InfiniteLoopError) Status() int {
	return StatusInfiniteLoopBase + e.ComponentID
}

// IsInfiniteLoopError returns true if the error is an InfiniteLoopError.
// Uses errors.As to handle wrapped errors.
func IsInfiniteLoopError(err error) bool {
	var le *InfiniteLoopError
	return errors.As(err, &le)
}

// StatusCode maps an error to the host status code. nil maps to
// StatusSuccess.
func StatusCode(err error) int {
	if err == nil {
		return StatusSuccess
	}
	var le *InfiniteLoopError
	if errors.As(err, &le) {
		return le.Status()
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Status()
	}
	return StatusInternal
}
