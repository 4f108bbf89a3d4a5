// Package host exposes a sketch and its sampler through integer status
// codes, the calling convention of embedding runtimes.
//
// A Handle replaces process-wide engine state: each handle owns one sketch,
// one sampler and one registered tap list, and every entry point is
// serialized by the handle's mutex.
//
// Status codes:
//
//	0          success
//	1 + id     propagation did not settle; id is the offending component
//	-1 .. -8   bounds errors (see engine.Status* constants)
//	-100       internal error
package host

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/sketch/internal/component"
	"github.com/roach88/sketch/internal/engine"
	"github.com/roach88/sketch/internal/sampler"
)

// Handle is one engine instance. It is safe for concurrent use.
type Handle struct {
	mu      sync.Mutex
	sketch  *engine.Sketch
	sampler *sampler.Sampler
	taps    []int
	closed  bool
	logger  *slog.Logger

	engineOpts  []engine.Option
	samplerOpts []sampler.Option
}

// Option configures a Handle.
type Option func(*Handle)

// WithEngineOptions passes options through to engine.New.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(h *Handle) {
		h.engineOpts = append(h.engineOpts, opts...)
	}
}

// WithSamplerOptions passes options through to sampler.New.
func WithSamplerOptions(opts ...sampler.Option) Option {
	return func(h *Handle) {
		h.samplerOpts = append(h.samplerOpts, opts...)
	}
}

// WithLogger sets the logger for the handle and its sketch.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handle) {
		h.logger = l
	}
}

// Open creates a handle running at sampleRate.
func Open(sampleRate float64, opts ...Option) (*Handle, error) {
	h := newHandle(opts)

	engineOpts := append([]engine.Option{engine.WithLogger(h.logger)}, h.engineOpts...)
	s, err := engine.New(sampleRate, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("open sketch: %w", err)
	}

	h.attach(s)
	return h, nil
}

// Wrap creates a handle around an existing sketch, typically one built
// from a patch. Engine options are ignored; the sketch is already
// configured.
func Wrap(s *engine.Sketch, opts ...Option) *Handle {
	h := newHandle(opts)
	h.attach(s)
	return h
}

func newHandle(opts []Option) *Handle {
	h := &Handle{}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

func (h *Handle) attach(s *engine.Sketch) {
	h.sketch = s
	h.sampler = sampler.New(s, h.samplerOpts...)
	h.taps = make([]int, 0, h.sampler.MaxTaps())

	h.logger.Info("host opened",
		"sample_rate", s.SampleRate(),
		"components", s.Len(),
		"capacity", s.Capacity(),
		"max_samples", h.sampler.MaxSamples(),
		"max_taps", h.sampler.MaxTaps(),
	)
}

// Ticks returns the number of ticks completed since the last reset.
func (h *Handle) Ticks() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sketch.Ticks()
}

// Reset clears the sketch and the registered taps and sets a new sample
// rate.
func (h *Handle) Reset(sampleRate float64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	if err := h.sketch.Reset(sampleRate); err != nil {
		return engine.StatusCode(err)
	}
	h.taps = h.taps[:0]
	return engine.StatusSuccess
}

// CreateComponent creates a component of the given type number and returns
// its id, or a negative status code.
func (h *Handle) CreateComponent(typ int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	id, err := h.sketch.CreateComponent(component.Type(typ))
	if err != nil {
		return engine.StatusCode(err)
	}
	return id
}

// Connect routes the output of src into slot of dst.
func (h *Handle) Connect(src, dst, slot int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	return engine.StatusCode(h.sketch.Connect(src, dst, slot))
}

// InputValue writes value into slot of component id and propagates.
func (h *Handle) InputValue(id, slot int, value float64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	return engine.StatusCode(h.sketch.InputValue(id, slot, value))
}

// Tick advances the sketch by one sample.
func (h *Handle) Tick() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	return engine.StatusCode(h.sketch.Tick())
}

// GetOutputValue returns the output of component id. Unknown ids and a
// closed handle read as 0.
func (h *Handle) GetOutputValue(id int) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	return h.sketch.OutputValue(id)
}

// AppendTap registers id as the next tap used by Process.
func (h *Handle) AppendTap(id int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	if id < 0 || id >= h.sketch.Len() {
		return engine.StatusUnknownComponent
	}
	if len(h.taps) >= h.sampler.MaxTaps() {
		return engine.StatusBufferExceeded
	}
	h.taps = append(h.taps, id)
	return engine.StatusSuccess
}

// ClearTaps removes every registered tap.
func (h *Handle) ClearTaps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	h.taps = h.taps[:0]
	return engine.StatusSuccess
}

// Taps returns a copy of the registered taps.
func (h *Handle) Taps() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.taps...)
}

// Process runs n ticks recording the registered taps into the export
// buffer.
func (h *Handle) Process(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	return h.process(n, h.taps)
}

// ProcessTaps runs n ticks recording the given taps into the export
// buffer.
func (h *Handle) ProcessTaps(n int, taps []int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return engine.StatusClosed
	}
	return h.process(n, taps)
}

func (h *Handle) process(n int, taps []int) int {
	_, err := h.sampler.Process(n, taps)
	if err != nil {
		h.logger.Warn("process aborted", "samples", n, "taps", len(taps), "error", err)
	}
	return engine.StatusCode(err)
}

// Buffer returns the export buffer. After a successful Process(n) with k
// taps, tap i occupies Buffer()[i*n : (i+1)*n]. The slice is reused by the
// next call and must not be retained across calls on another goroutine.
func (h *Handle) Buffer() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sampler.Buffer()
}

// Close releases the handle. Every later call returns StatusClosed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.taps = nil
	h.logger.Info("host closed", "ticks", h.sketch.Ticks())
	return nil
}
