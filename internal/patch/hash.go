package patch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// hashDomain separates patch hashes from any other SHA-256 use.
const hashDomain = "sketch/patch/v1"

// hashForm is the canonical encoding of a Definition. Fields are written in
// declaration order, there are no maps, and every float is spelled with
// strconv's shortest round-trip form ("+Inf", "-Inf" and "NaN" included).
type hashForm struct {
	Name        string         `json:"name"`
	SampleRate  string         `json:"sample_rate"`
	Seed        uint64         `json:"seed"`
	Components  []ComponentDef `json:"components"`
	Connections []Connection   `json:"connections"`
	Inputs      []hashInput    `json:"inputs"`
	Taps        []string       `json:"taps"`
}

type hashInput struct {
	Component string `json:"component"`
	Slot      int    `json:"slot"`
	Port      string `json:"port"`
	Value     string `json:"value"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func canonical(def *Definition) hashForm {
	f := hashForm{
		Name:        def.Name,
		SampleRate:  formatFloat(def.SampleRate),
		Seed:        def.Seed,
		Components:  append([]ComponentDef{}, def.Components...),
		Connections: append([]Connection{}, def.Connections...),
		Inputs:      make([]hashInput, 0, len(def.Inputs)),
		Taps:        append([]string{}, def.Taps...),
	}
	for _, in := range def.Inputs {
		f.Inputs = append(f.Inputs, hashInput{
			Component: in.Component,
			Slot:      in.Slot,
			Port:      in.Port,
			Value:     formatFloat(in.Value),
		})
	}
	return f
}

// Hash returns a content address for the patch: hex SHA-256 over a domain
// tag, a NUL separator and the canonical JSON form of the definition. Two
// definitions that differ only in source format hash the same.
func Hash(def *Definition) (string, error) {
	data, err := json.Marshal(canonical(def))
	if err != nil {
		return "", fmt.Errorf("marshal patch: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
