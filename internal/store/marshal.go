package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// marshalSamples packs samples as little-endian IEEE 754 float64 values.
func marshalSamples(samples []float64) []byte {
	b := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

// unmarshalSamples reverses marshalSamples.
func unmarshalSamples(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("unmarshal samples: blob length %d is not a multiple of 8", len(b))
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}
