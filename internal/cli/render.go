package cli

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sketch/internal/engine"
	"github.com/roach88/sketch/internal/harness"
	"github.com/roach88/sketch/internal/host"
	"github.com/roach88/sketch/internal/patch"
	"github.com/roach88/sketch/internal/sampler"
	"github.com/roach88/sketch/internal/store"
	"github.com/roach88/sketch/internal/wav"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Samples    int
	Taps       []string // overrides the patch taps
	Out        string   // WAV output path
	Encoding   string   // "pcm16" | "float32"
	Database   string   // render log
	SampleRate float64  // overrides the patch sample rate
	Seed       uint64
	Chunk      int
}

// TapSummary describes one recorded tap. Non-finite values are written
// to JSON as "NaN", "+Inf" and "-Inf".
type TapSummary struct {
	Name        string         `json:"name"`
	ComponentID int            `json:"component_id"`
	Min         harness.Sample `json:"min"`
	Max         harness.Sample `json:"max"`
	Last        harness.Sample `json:"last"`
}

// RenderResult holds the outcome of a render.
type RenderResult struct {
	ID              string       `json:"id,omitempty"`
	Patch           string       `json:"patch"`
	Hash            string       `json:"hash"`
	SampleRate      float64      `json:"sample_rate"`
	Samples         int          `json:"samples"`
	Rendered        int          `json:"rendered"`
	Status          int          `json:"status"`
	FailedTick      int          `json:"failed_tick"`
	FailedComponent int          `json:"failed_component"`
	Taps            []TapSummary `json:"taps"`
	Out             string       `json:"out,omitempty"`
}

// String renders the result for text output.
func (r RenderResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patch: %s (%s)\n", r.Patch, shortHash(r.Hash))
	if r.ID != "" {
		fmt.Fprintf(&b, "Render: %s\n", r.ID)
	}
	fmt.Fprintf(&b, "Samples: %d/%d at %g Hz\n", r.Rendered, r.Samples, r.SampleRate)
	for _, tap := range r.Taps {
		fmt.Fprintf(&b, "  %-12s #%-4d min=%-10.6g max=%-10.6g last=%.6g\n",
			tap.Name, tap.ComponentID, tap.Min, tap.Max, tap.Last)
	}
	if r.Out != "" {
		fmt.Fprintf(&b, "Wrote: %s\n", r.Out)
	}
	if r.Status != engine.StatusSuccess {
		fmt.Fprintf(&b, "✗ aborted at tick %d: component %d did not settle (status %d)",
			r.FailedTick, r.FailedComponent, r.Status)
	} else {
		b.WriteString("✓ render complete")
	}
	return b.String()
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <patch>",
		Short: "Render a patch",
		Long: `Build a patch, run it for a number of samples and record its taps.

The patch file may be YAML, CUE or HCL. Tap outputs can be written to a
WAV file (one channel per tap) and logged to a SQLite render log.

Exit codes:
  0 - Render complete
  1 - Render aborted (a feedback loop did not settle)
  2 - Command error (bad patch, unknown tap, I/O failure)

Examples:
  sketch render patch.yaml --samples 44100 --out out.wav
  sketch render patch.hcl --tap osc --tap mix --encoding float32 --out out.wav
  sketch render patch.cue --db renders.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Samples, "samples", "n", 44100, "number of samples to render")
	cmd.Flags().StringArrayVar(&opts.Taps, "tap", nil, "component to record (repeatable, overrides patch taps)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write taps to this WAV file")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "pcm16", "WAV sample encoding (pcm16|float32)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the render to this SQLite render log")
	cmd.Flags().Float64Var(&opts.SampleRate, "sample-rate", 0, "override the patch sample rate")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "override the patch noise seed")
	cmd.Flags().IntVar(&opts.Chunk, "chunk", sampler.DefaultMaxSamples, "samples per processing block")

	return cmd
}

func runRender(ctx context.Context, opts *RenderOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger()

	if opts.Samples < 0 {
		return NewExitError(ExitCommandError, "--samples must not be negative")
	}
	if opts.Chunk <= 0 {
		return NewExitError(ExitCommandError, "--chunk must be positive")
	}
	encoding, err := wav.ParseEncoding(opts.Encoding)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --encoding", err)
	}

	def, err := patch.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load patch", err)
	}
	if opts.SampleRate != 0 {
		def.SampleRate = opts.SampleRate
	}
	if cmd.Flags().Changed("seed") {
		def.Seed = opts.Seed
	}
	if len(opts.Taps) > 0 {
		def.Taps = opts.Taps
		if err := def.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid --tap", err)
		}
	}
	if len(def.Taps) == 0 {
		return NewExitError(ExitCommandError, "no taps: set taps in the patch or pass --tap")
	}

	hash, err := patch.Hash(def)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash patch", err)
	}

	inst, err := patch.Build(def, engine.WithLogger(logger))
	if err != nil {
		if engine.IsInfiniteLoopError(err) {
			return WrapExitError(ExitFailure, "patch inputs did not settle", err)
		}
		return WrapExitError(ExitCommandError, "failed to build patch", err)
	}

	logger.Debug("rendering",
		"patch", def.Name,
		"hash", hash,
		"samples", opts.Samples,
		"taps", len(inst.Taps),
	)

	channels, result, err := render(inst, opts.Samples, opts.Chunk, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register taps", err)
	}
	result.Patch = def.Name
	result.Hash = hash

	if opts.Out != "" {
		if err := writeWAV(opts.Out, encoding, def.SampleRate, channels); err != nil {
			return WrapExitError(ExitCommandError, "failed to write WAV", err)
		}
		result.Out = opts.Out
	}

	if opts.Database != "" {
		id, err := logRender(ctx, opts.Database, logger, inst, result, channels)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record render", err)
		}
		result.ID = id
	}

	f := newFormatter(opts.RootOptions, cmd)
	if err := f.Success(result); err != nil {
		return err
	}

	if result.Status != engine.StatusSuccess {
		return NewExitError(ExitFailure, fmt.Sprintf("render aborted at tick %d", result.FailedTick))
	}
	return nil
}

// render drives the patch through a host handle in blocks of chunk
// samples and collects each tap into its own channel. On a loop the
// channels are cut to the samples completed before the failing tick.
func render(inst *patch.Instance, samples, chunk int, logger *slog.Logger) ([][]float64, RenderResult, error) {
	h := host.Wrap(inst.Sketch,
		host.WithLogger(logger),
		host.WithSamplerOptions(
			sampler.WithMaxSamples(chunk),
			sampler.WithMaxTaps(len(inst.Taps)),
		),
	)
	defer h.Close()

	for _, id := range inst.Taps {
		if status := h.AppendTap(id); status != engine.StatusSuccess {
			return nil, RenderResult{}, fmt.Errorf("tap %d (%s): status %d", id, inst.Name(id), status)
		}
	}

	channels := make([][]float64, len(inst.Taps))
	for i := range channels {
		channels[i] = make([]float64, 0, samples)
	}

	result := RenderResult{
		SampleRate:      inst.Sketch.SampleRate(),
		Samples:         samples,
		FailedTick:      -1,
		FailedComponent: -1,
	}

	start := h.Ticks()
	for done := 0; done < samples; {
		n := min(chunk, samples-done)
		status := h.Process(n)

		completed := int(h.Ticks()-start) - done
		buf := h.Buffer()
		for t := range channels {
			channels[t] = append(channels[t], sampler.Region(buf, n, t)[:completed]...)
		}
		done += completed

		if status != engine.StatusSuccess {
			result.Status = status
			result.FailedTick = done
			if status >= engine.StatusInfiniteLoopBase {
				result.FailedComponent = status - engine.StatusInfiniteLoopBase
			}
			logger.Warn("render aborted", "tick", done, "status", status)
			break
		}
	}
	result.Rendered = len(channels[0])

	for t, id := range inst.Taps {
		result.Taps = append(result.Taps, summarize(inst.Name(id), id, channels[t]))
	}
	return channels, result, nil
}

func summarize(name string, id int, samples []float64) TapSummary {
	s := TapSummary{Name: name, ComponentID: id}
	if len(samples) == 0 {
		return s
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	s.Min, s.Max = harness.Sample(lo), harness.Sample(hi)
	s.Last = harness.Sample(samples[len(samples)-1])
	return s
}

func writeWAV(path string, enc wav.Encoding, sampleRate float64, channels [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wav.Write(f, enc, uint32(math.Round(sampleRate)), channels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func logRender(ctx context.Context, dbPath string, logger *slog.Logger, inst *patch.Instance, result RenderResult, channels [][]float64) (string, error) {
	st, err := store.Open(dbPath, store.WithLogger(logger))
	if err != nil {
		return "", err
	}
	defer st.Close()

	r := &store.Render{
		PatchName:       result.Patch,
		PatchHash:       result.Hash,
		SampleRate:      result.SampleRate,
		Samples:         result.Samples,
		Status:          result.Status,
		FailedTick:      result.FailedTick,
		FailedComponent: result.FailedComponent,
	}
	for t, id := range inst.Taps {
		r.Taps = append(r.Taps, store.Tap{
			ComponentID: id,
			Name:        inst.Name(id),
			Samples:     channels[t],
		})
	}
	if err := st.WriteRender(ctx, r); err != nil {
		return "", err
	}
	return r.ID, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
