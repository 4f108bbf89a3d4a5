package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sketch/internal/component"
	"github.com/roach88/sketch/internal/engine"
	"github.com/roach88/sketch/internal/harness"
	"github.com/roach88/sketch/internal/patch"
)

// EdgeInfo is one fan-out edge of an inspected component.
type EdgeInfo struct {
	To   string `json:"to"`
	Slot int    `json:"slot"`
	Port string `json:"port,omitempty"`
}

// ComponentInfo describes one component of an inspected patch.
type ComponentInfo struct {
	ID     int            `json:"id"`
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Output harness.Sample `json:"output"`
	Fanout []EdgeInfo     `json:"fanout"`
}

// InspectResult holds the structure of a built patch.
type InspectResult struct {
	Patch         string          `json:"patch"`
	Hash          string          `json:"hash"`
	SampleRate    float64         `json:"sample_rate"`
	Seed          uint64          `json:"seed"`
	Components    []ComponentInfo `json:"components"`
	FeedbackLoops [][]string      `json:"feedback_loops"`
	Taps          []string        `json:"taps"`
}

// String renders the result for text output.
func (r InspectResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patch: %s\n", r.Patch)
	fmt.Fprintf(&b, "Hash: %s\n", r.Hash)
	fmt.Fprintf(&b, "Sample rate: %g Hz, seed %d\n", r.SampleRate, r.Seed)
	fmt.Fprintf(&b, "Components (%d):\n", len(r.Components))
	for _, c := range r.Components {
		fmt.Fprintf(&b, "  #%-3d %-12s %-15s out=%g\n", c.ID, c.Name, c.Type, c.Output)
		for _, e := range c.Fanout {
			port := e.Port
			if port == "" {
				port = fmt.Sprintf("slot %d", e.Slot)
			}
			fmt.Fprintf(&b, "         -> %s.%s\n", e.To, port)
		}
	}
	if len(r.FeedbackLoops) == 0 {
		b.WriteString("Feedback loops: none\n")
	} else {
		fmt.Fprintf(&b, "Feedback loops (%d):\n", len(r.FeedbackLoops))
		for _, loop := range r.FeedbackLoops {
			fmt.Fprintf(&b, "  %s\n", strings.Join(loop, ", "))
		}
	}
	fmt.Fprintf(&b, "Taps: %s", strings.Join(r.Taps, ", "))
	return b.String()
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <patch>",
		Short: "Show the structure of a patch",
		Long: `Build a patch without ticking it and print its components, edges,
feedback loops and content hash.

Feedback loops are legal; they are listed so that a loop reported by
render can be traced back to the components involved.

Exit codes:
  0 - Patch built
  1 - Patch inputs did not settle
  2 - Command error (bad patch, I/O failure)

Examples:
  sketch inspect patch.yaml
  sketch inspect patch.hcl --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	def, err := patch.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load patch", err)
	}
	hash, err := patch.Hash(def)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash patch", err)
	}
	inst, err := patch.Build(def, engine.WithLogger(opts.logger()))
	if err != nil {
		if engine.IsInfiniteLoopError(err) {
			return WrapExitError(ExitFailure, "patch inputs did not settle", err)
		}
		return WrapExitError(ExitCommandError, "failed to build patch", err)
	}

	f := newFormatter(opts, cmd)
	return f.Success(describe(def, inst, hash))
}

func describe(def *patch.Definition, inst *patch.Instance, hash string) InspectResult {
	s := inst.Sketch
	r := InspectResult{
		Patch:         def.Name,
		Hash:          hash,
		SampleRate:    s.SampleRate(),
		Seed:          def.Seed,
		Components:    make([]ComponentInfo, 0, s.Len()),
		FeedbackLoops: [][]string{},
		Taps:          append([]string{}, def.Taps...),
	}

	for id := 0; id < s.Len(); id++ {
		c, _ := s.Component(id)
		info := ComponentInfo{
			ID:     id,
			Name:   inst.Name(id),
			Type:   c.Type.String(),
			Output: harness.Sample(c.Output),
			Fanout: make([]EdgeInfo, 0, len(c.Fanout)),
		}
		for _, d := range c.Fanout {
			info.Fanout = append(info.Fanout, EdgeInfo{
				To:   inst.Name(d.ComponentID),
				Slot: d.Slot,
				Port: portName(s.TypeOf(d.ComponentID), d.Slot),
			})
		}
		r.Components = append(r.Components, info)
	}

	for _, loop := range s.FeedbackLoops() {
		names := make([]string, len(loop))
		for i, id := range loop {
			names[i] = inst.Name(id)
		}
		r.FeedbackLoops = append(r.FeedbackLoops, names)
	}
	return r
}

// portName returns the name of a user slot, or "" if t has no such slot.
func portName(t component.Type, slot int) string {
	slots := t.Slots()
	if slot < 1 || slot > len(slots) {
		return ""
	}
	return slots[slot-1]
}
