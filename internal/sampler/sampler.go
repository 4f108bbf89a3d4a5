// Package sampler drives a sketch for a block of samples and records the
// outputs of tapped components into a preallocated export buffer.
//
// The buffer is laid out tap-major: the samples of tap i occupy
// buffer[i*n : (i+1)*n] for a block of n samples, so one tap's region can
// be handed to a playback channel without striding.
package sampler

import (
	"fmt"

	"github.com/roach88/sketch/internal/engine"
)

const (
	// DefaultMaxSamples is the default block length limit.
	DefaultMaxSamples = 4096

	// DefaultMaxTaps is the default limit on taps per block.
	DefaultMaxTaps = 64
)

// Sampler records tap outputs of one sketch.
type Sampler struct {
	sketch     *engine.Sketch
	buffer     []float64
	maxSamples int
	maxTaps    int
}

// Option allows configuration of sampler limits.
type Option func(*Sampler)

// WithMaxSamples sets the maximum block length.
func WithMaxSamples(n int) Option {
	return func(p *Sampler) {
		p.maxSamples = n
	}
}

// WithMaxTaps sets the maximum number of taps per block.
func WithMaxTaps(n int) Option {
	return func(p *Sampler) {
		p.maxTaps = n
	}
}

// New creates a sampler for s. The export buffer (maxSamples*maxTaps
// values) is allocated here.
func New(s *engine.Sketch, opts ...Option) *Sampler {
	p := &Sampler{
		sketch:     s,
		maxSamples: DefaultMaxSamples,
		maxTaps:    DefaultMaxTaps,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxSamples <= 0 {
		p.maxSamples = DefaultMaxSamples
	}
	if p.maxTaps <= 0 {
		p.maxTaps = DefaultMaxTaps
	}
	p.buffer = make([]float64, p.maxSamples*p.maxTaps)
	return p
}

// MaxSamples returns the maximum block length.
func (p *Sampler) MaxSamples() int {
	return p.maxSamples
}

// MaxTaps returns the maximum number of taps per block.
func (p *Sampler) MaxTaps() int {
	return p.maxTaps
}

// Buffer returns the whole export buffer. Hosts may read it directly; its
// contents are overwritten by the next Process call.
func (p *Sampler) Buffer() []float64 {
	return p.buffer
}

// Process runs n ticks. After each tick the output of every tap is stored
// in that tap's region of the export buffer. The returned slice aliases the
// export buffer and holds len(taps)*n values.
//
// If a tick fails, Process stops and returns a *ProcessError. Samples
// recorded before the failing tick are left in place; the rest of the
// returned slice is stale.
func (p *Sampler) Process(n int, taps []int) ([]float64, error) {
	if err := p.check(n, taps); err != nil {
		return nil, err
	}

	out := p.buffer[:n*len(taps)]
	for i := 0; i < n; i++ {
		if err := p.sketch.Tick(); err != nil {
			return out, newProcessError(i, err)
		}
		for t, id := range taps {
			out[t*n+i] = p.sketch.OutputValue(id)
		}
	}
	return out, nil
}

// Region returns the samples of tap index tap from a block of n samples
// returned by Process.
func Region(block []float64, n, tap int) []float64 {
	return block[tap*n : (tap+1)*n]
}

func (p *Sampler) check(n int, taps []int) error {
	if n < 0 || n > p.maxSamples {
		return engine.NewRuntimeError(engine.ErrCodeBufferExceeded,
			fmt.Sprintf("block length %d outside [0, %d]", n, p.maxSamples), -1, -1)
	}
	if len(taps) > p.maxTaps {
		return engine.NewRuntimeError(engine.ErrCodeBufferExceeded,
			fmt.Sprintf("%d taps exceed the limit of %d", len(taps), p.maxTaps), -1, -1)
	}
	for _, id := range taps {
		if id < 0 || id >= p.sketch.Len() {
			return engine.NewRuntimeError(engine.ErrCodeUnknownComponent,
				fmt.Sprintf("tap references component outside [0, %d)", p.sketch.Len()), id, -1)
		}
	}
	return nil
}
