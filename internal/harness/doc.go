// Package harness runs conformance scenarios against the real engine.
//
// # Scenario Format
//
// Scenarios are YAML files. The patch is given inline or by path, followed
// by a list of steps. Each step performs at most one action and may then
// check component outputs:
//
//	name: integrator-ramp
//	description: "What this scenario validates"
//	patch:                  # or patch_file: ../patches/ramp.hcl
//	  name: ramp
//	  sample_rate: 2
//	  components:
//	    - {name: ramp, type: Integrator}
//	  inputs:
//	    - {component: ramp, port: in, value: 1}
//	  taps: [ramp]
//	steps:
//	  - tick: 1
//	    expect:
//	      - {component: ramp, value: 0.5}
//	  - process: 3
//	  - inject: {component: ramp, port: reset, value: 1}
//	  - tick: 1
//	    expect_loop: acc    # the action must fail at component "acc"
//
// # Actions
//
//   - tick: N runs N ticks
//   - process: N runs the sampler for N samples over the patch taps
//   - inject: writes one input and propagates it
//
// A step without an action only evaluates its expectations.
//
// # Traces
//
// Every step appends one event to the trace: the step kind, the tick count
// afterwards, the status code of the action and the tap outputs (the whole
// tap-major block for process steps). Traces marshal deterministically and
// are compared against golden files under testdata/golden.
package harness
