package patch

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Format identifies a patch file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks a format by file extension. JSON files are read as
// YAML.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("unsupported patch file extension %q", filepath.Ext(path))
}

// Load reads, decodes and validates a patch file.
func Load(path string) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch file: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes and validates patch source. filename is only used in
// diagnostics.
func Parse(data []byte, format Format, filename string) (*Definition, error) {
	var (
		def *Definition
		err error
	)
	switch format {
	case FormatYAML:
		def, err = parseYAML(data)
	case FormatCUE:
		def, err = parseCUE(data, filename)
	case FormatHCL:
		def, err = parseHCL(data, filename)
	default:
		return nil, fmt.Errorf("unsupported patch format %q", format)
	}
	if err != nil {
		return nil, err
	}

	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid patch %s: %w", filename, err)
	}
	return def, nil
}

func parseYAML(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &def, nil
}

func parseCUE(data []byte, filename string) (*Definition, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE patch is not concrete: %w", err)
	}

	var def Definition
	if err := value.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &def, nil
}

// hclPatchFile is the top-level structure of an HCL patch.
type hclPatchFile struct {
	Name        string          `hcl:"name,optional"`
	SampleRate  float64         `hcl:"sample_rate,optional"`
	Seed        uint64          `hcl:"seed,optional"`
	Components  []hclComponent  `hcl:"component,block"`
	Connections []hclConnection `hcl:"connect,block"`
	Inputs      []hclInput      `hcl:"input,block"`
	Taps        []string        `hcl:"taps,optional"`
}

type hclComponent struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
}

type hclConnection struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
	Slot int    `hcl:"slot,optional"`
	Port string `hcl:"port,optional"`
}

type hclInput struct {
	Component string  `hcl:"component"`
	Slot      int     `hcl:"slot,optional"`
	Port      string  `hcl:"port,optional"`
	Value     float64 `hcl:"value"`
}

// hclEvalContext exposes constants usable in HCL expressions, e.g.
// value = tau * 0.25.
func hclEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"pi":  cty.NumberFloatVal(math.Pi),
			"tau": cty.NumberFloatVal(2 * math.Pi),
		},
	}
}

func parseHCL(data []byte, filename string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclPatchFile
	diags = gohcl.DecodeBody(file.Body, hclEvalContext(), &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	def := &Definition{
		Name:       parsed.Name,
		SampleRate: parsed.SampleRate,
		Seed:       parsed.Seed,
		Taps:       parsed.Taps,
	}
	for _, c := range parsed.Components {
		def.Components = append(def.Components, ComponentDef(c))
	}
	for _, c := range parsed.Connections {
		def.Connections = append(def.Connections, Connection(c))
	}
	for _, in := range parsed.Inputs {
		def.Inputs = append(def.Inputs, InputDef(in))
	}
	return def, nil
}
