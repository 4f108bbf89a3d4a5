package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sketch/internal/component"
)

// TypeInfo describes one component type.
type TypeInfo struct {
	Number   int      `json:"number"`
	Name     string   `json:"name"`
	Slots    []string `json:"slots"`
	Stateful bool     `json:"stateful"`
}

// TypesResult lists every component type.
type TypesResult struct {
	Types []TypeInfo `json:"types"`
}

// String renders the result for text output.
func (r TypesResult) String() string {
	var b strings.Builder
	for i, t := range r.Types {
		if i > 0 {
			b.WriteByte('\n')
		}
		state := ""
		if t.Stateful {
			state = " (stateful)"
		}
		slots := "-"
		if len(t.Slots) > 0 {
			slots = strings.Join(t.Slots, ", ")
		}
		fmt.Fprintf(&b, "%2d  %-15s %s%s", t.Number, t.Name, slots, state)
	}
	return b.String()
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List component types",
		Long: `List every component type with its host type number and the names
of its input slots. Slot names start at slot 1; slot 0 carries the tick
delta and is never listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return f.Success(listTypes())
		},
	}
}

func listTypes() TypesResult {
	var r TypesResult
	for _, t := range component.Types() {
		slots := t.Slots()
		if slots == nil {
			slots = []string{}
		}
		r.Types = append(r.Types, TypeInfo{
			Number:   int(t),
			Name:     t.String(),
			Slots:    slots,
			Stateful: t.Stateful(),
		})
	}
	return r
}
