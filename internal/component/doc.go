// Package component implements the per-node evaluation rules of the signal graph.
//
// A Component is a plain value: a type tag, a fixed array of input slots, a
// fixed array of persistent registers, the current output and an ordered
// fan-out list of destinations. Components never reference each other
// directly; every cross-reference is a (component id, slot) pair resolved by
// the owning arena in package engine.
//
// Slot 0 of every component carries the per-tick time delta (dt). It is
// written by the tick driver and cleared by Evaluate, so dt-gated behavior
// (Buffer, Differentiator, Noise, oscillators, Integrator) advances at most
// once per tick no matter how many propagation waves revisit the component.
//
// Evaluate reports whether the output moved by at least machine epsilon.
// That flag is the only thing that drives propagation. Arithmetic is left
// unchecked: division by zero and similar produce IEEE special values that
// flow through the graph as-is.
package component
