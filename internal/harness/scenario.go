package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sketch/internal/patch"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Patch is the inline patch under test.
	Patch *patch.Definition `yaml:"patch,omitempty"`

	// PatchFile is a patch file path, resolved relative to the scenario
	// file. Exactly one of Patch and PatchFile must be set.
	PatchFile string `yaml:"patch_file,omitempty"`

	// MaxIterations overrides the per-component evaluation limit.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// Step is one action followed by optional output checks.
type Step struct {
	// Tick runs this many ticks.
	Tick int `yaml:"tick,omitempty"`

	// Process runs the sampler for this many samples.
	Process int `yaml:"process,omitempty"`

	// Inject writes one input value.
	Inject *patch.InputDef `yaml:"inject,omitempty"`

	// ExpectLoop names the component at which the action must fail to
	// settle. Empty means the action must succeed.
	ExpectLoop string `yaml:"expect_loop,omitempty"`

	// Expect checks component outputs after the action.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// Kind returns the action name of the step: "tick", "process", "inject" or
// "expect".
func (s Step) Kind() string {
	switch {
	case s.Tick > 0:
		return StepTick
	case s.Process > 0:
		return StepProcess
	case s.Inject != nil:
		return StepInject
	}
	return StepExpect
}

// Step kind constants.
const (
	StepTick    = "tick"
	StepProcess = "process"
	StepInject  = "inject"
	StepExpect  = "expect"
)

// Expectation checks the output of one component.
type Expectation struct {
	Component string  `yaml:"component"`
	Value     float64 `yaml:"value"`

	// Tolerance is the allowed absolute difference. Zero means
	// DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// DefaultTolerance is used by expectations that set no tolerance.
const DefaultTolerance = 1e-9

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// A relative patch_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.PatchFile != "" && !filepath.IsAbs(scenario.PatchFile) {
		scenario.PatchFile = filepath.Join(filepath.Dir(path), scenario.PatchFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// An inline patch is normalized and validated here.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}

	if s.Description == "" {
		return errors.New("description is required")
	}

	switch {
	case s.Patch == nil && s.PatchFile == "":
		return errors.New("one of patch or patch_file is required")
	case s.Patch != nil && s.PatchFile != "":
		return errors.New("patch and patch_file are mutually exclusive")
	case s.Patch != nil:
		s.Patch.Normalize()
		if err := s.Patch.Validate(); err != nil {
			return fmt.Errorf("patch: %w", err)
		}
	default:
		if _, err := os.Stat(s.PatchFile); os.IsNotExist(err) {
			return fmt.Errorf("patch file not found: %s", s.PatchFile)
		}
	}

	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		actions := 0
		if step.Tick > 0 {
			actions++
		}
		if step.Process > 0 {
			actions++
		}
		if step.Inject != nil {
			actions++
		}
		if step.Tick < 0 || step.Process < 0 {
			return fmt.Errorf("steps[%d]: tick and process counts must be positive", i)
		}
		if actions > 1 {
			return fmt.Errorf("steps[%d]: at most one of tick, process and inject per step", i)
		}
		if actions == 0 && step.ExpectLoop != "" {
			return fmt.Errorf("steps[%d]: expect_loop needs an action", i)
		}
		if actions == 0 && len(step.Expect) == 0 {
			return fmt.Errorf("steps[%d]: step does nothing", i)
		}
		for j, e := range step.Expect {
			if e.Component == "" {
				return fmt.Errorf("steps[%d].expect[%d]: component is required", i, j)
			}
			if e.Tolerance < 0 {
				return fmt.Errorf("steps[%d].expect[%d]: tolerance must not be negative", i, j)
			}
		}
	}

	return nil
}
