package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sketch/internal/store"
)

// RendersOptions holds flags for the renders command.
type RendersOptions struct {
	*RootOptions
	Database string
	Hash     string // only renders of this patch hash
}

// RenderEntry is one row of the render log.
type RenderEntry struct {
	ID              string   `json:"id"`
	Seq             int64    `json:"seq"`
	Patch           string   `json:"patch"`
	Hash            string   `json:"hash"`
	SampleRate      float64  `json:"sample_rate"`
	Samples         int      `json:"samples"`
	Status          int      `json:"status"`
	FailedTick      int      `json:"failed_tick"`
	FailedComponent int      `json:"failed_component"`
	Taps            []string `json:"taps"`
}

// RendersResult lists render log entries.
type RendersResult struct {
	Renders []RenderEntry `json:"renders"`
}

// String renders the result for text output.
func (r RendersResult) String() string {
	if len(r.Renders) == 0 {
		return "No renders recorded."
	}
	var b strings.Builder
	for i, e := range r.Renders {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := "✓"
		if e.Status != 0 {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %4d  %s  %-16s %s  %d samples  [%s]",
			mark, e.Seq, e.ID, e.Patch, shortHash(e.Hash), e.Samples, strings.Join(e.Taps, ", "))
		if e.Status != 0 {
			fmt.Fprintf(&b, "  aborted at tick %d (component %d)", e.FailedTick, e.FailedComponent)
		}
	}
	return b.String()
}

// NewRendersCommand creates the renders command.
func NewRendersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RendersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "renders [id]",
		Short: "List or show logged renders",
		Long: `List the renders recorded with "sketch render --db", oldest first.
With an id, show that render only. With --hash, list only renders of the
patch with that content hash (see "sketch inspect").

Examples:
  sketch renders --db renders.db
  sketch renders --db renders.db --hash 3f2a...
  sketch renders --db renders.db 01928f7e-5a1b-7c3d-9e2f-0123456789ab --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenders(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "render log database (required)")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "only list renders of this patch hash")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRenders(ctx context.Context, opts *RendersOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database, store.WithLogger(opts.logger()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open render log", err)
	}
	defer st.Close()

	var renders []store.Render
	if len(args) == 1 {
		r, err := st.ReadRender(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitFailure, fmt.Sprintf("render %s not found", args[0]))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read render", err)
		}
		renders = []store.Render{r}
	} else if opts.Hash != "" {
		renders, err = st.RendersOfPatch(ctx, opts.Hash)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list renders", err)
		}
	} else {
		renders, err = st.ListRenders(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list renders", err)
		}
	}

	result := RendersResult{Renders: make([]RenderEntry, 0, len(renders))}
	for _, r := range renders {
		taps := make([]string, 0, len(r.Taps))
		for _, t := range r.Taps {
			taps = append(taps, t.Name)
		}
		result.Renders = append(result.Renders, RenderEntry{
			ID:              r.ID,
			Seq:             r.Seq,
			Patch:           r.PatchName,
			Hash:            r.PatchHash,
			SampleRate:      r.SampleRate,
			Samples:         r.Samples,
			Status:          r.Status,
			FailedTick:      r.FailedTick,
			FailedComponent: r.FailedComponent,
			Taps:            taps,
		})
	}

	return newFormatter(opts.RootOptions, cmd).Success(result)
}
