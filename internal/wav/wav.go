// Package wav writes tap regions as RIFF/WAVE files, one channel per tap.
package wav

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Encoding selects the sample format.
type Encoding int

const (
	// PCM16 stores signed 16-bit integers; values are clamped to [-1, 1].
	PCM16 Encoding = iota

	// Float32 stores IEEE 754 single precision values unclamped.
	Float32
)

// WAVE format tags.
const (
	formatPCM   uint16 = 1
	formatFloat uint16 = 3
)

// ParseEncoding accepts "pcm16" or "float32".
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "pcm16", "pcm", "int16":
		return PCM16, nil
	case "float32", "float", "f32":
		return Float32, nil
	}
	return 0, fmt.Errorf("unknown WAV encoding %q (want pcm16 or float32)", s)
}

// String returns the flag spelling of e.
func (e Encoding) String() string {
	switch e {
	case PCM16:
		return "pcm16"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

func (e Encoding) bits() uint16 {
	if e == Float32 {
		return 32
	}
	return 16
}

func (e Encoding) tag() uint16 {
	if e == Float32 {
		return formatFloat
	}
	return formatPCM
}

// Header mirrors the canonical 44-byte RIFF/WAVE header.
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// NewHeader builds the header for frames samples per channel.
func NewHeader(enc Encoding, sampleRate uint32, channels uint16, frames int) Header {
	blockAlign := channels * enc.bits() / 8
	dataSize := uint32(frames) * uint32(blockAlign)
	return Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   enc.tag(),
		NumChannels:   channels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: enc.bits(),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// Write encodes channels as an interleaved WAVE stream. Every channel must
// hold the same number of samples.
func Write(w io.Writer, enc Encoding, sampleRate uint32, channels [][]float64) error {
	if len(channels) == 0 {
		return errors.New("wav: at least one channel is required")
	}
	if len(channels) > math.MaxUint16 {
		return fmt.Errorf("wav: %d channels exceed the format limit", len(channels))
	}
	frames := len(channels[0])
	for i, ch := range channels {
		if len(ch) != frames {
			return fmt.Errorf("wav: channel %d has %d samples, channel 0 has %d", i, len(ch), frames)
		}
	}

	bw := bufio.NewWriter(w)
	hdr := NewHeader(enc, sampleRate, uint16(len(channels)), frames)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}

	var buf [4]byte
	for i := 0; i < frames; i++ {
		for _, ch := range channels {
			var b []byte
			switch enc {
			case Float32:
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(ch[i])))
				b = buf[:4]
			default:
				binary.LittleEndian.PutUint16(buf[:], uint16(toPCM16(ch[i])))
				b = buf[:2]
			}
			if _, err := bw.Write(b); err != nil {
				return fmt.Errorf("wav: write samples: %w", err)
			}
		}
	}
	return bw.Flush()
}

// ReadHeader decodes the 44-byte header at the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	var hdr Header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return Header{}, fmt.Errorf("wav: read header: %w", err)
	}
	if string(hdr.ChunkID[:]) != "RIFF" || string(hdr.Format[:]) != "WAVE" {
		return Header{}, errors.New("wav: not a RIFF/WAVE stream")
	}
	return hdr, nil
}

// toPCM16 clamps v to [-1, 1] and scales it to int16. NaN maps to 0.
func toPCM16(v float64) int16 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= 1:
		return math.MaxInt16
	case v <= -1:
		return -math.MaxInt16
	}
	return int16(math.Round(v * math.MaxInt16))
}
