// Package engine implements the sketch: an arena of components and the
// wave-based propagation scheduler that evaluates them one sample at a time.
//
// ARCHITECTURE:
//
// Arena:
// All components live by value in one preallocated slice, addressed by the
// integer id returned from CreateComponent. Ids are stable for the lifetime
// of the sketch; there is no deletion, only a whole-sketch Reset. Edges are
// (component id, slot) destinations stored on the source component, so the
// graph has no ownership cycles even when its signal path is cyclic.
//
// Propagation:
//  1. InputValues resets every component's iteration count.
//  2. Each injected value is written into its slot; the distinct affected
//     ids form the first wave.
//  3. Every id in the wave is evaluated once. Components whose output did
//     not change stop there. Components whose output changed write it into
//     every fan-out slot, and the destinations form the next wave
//     (de-duplicated, first-seen order).
//  4. Propagation settles when a wave is empty.
//
// Tick injects dt = 1/sample_rate into slot 0 of every component and runs
// one propagation. Components clear their own dt slot during evaluation, so
// later waves in the same tick see dt == 0 and do not advance time again.
//
// CRITICAL PATTERNS:
//
// Termination:
// A component evaluated more than MaxIterations times (default 255) within a
// single propagation fails the call with InfiniteLoopError. This is the only
// runtime failure; numeric results are never sanitised.
//
// Real-time safety:
// The arena, the wave buffers and the iteration counters are sized at
// construction. InputValues, Tick and OutputValue do not allocate on the
// success path.
//
// Determinism:
// Waves are processed in insertion order and Noise draws from a per-sketch
// seeded generator, so identical construction and input sequences produce
// identical output streams.
package engine
