package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one materialization test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Data is the dataset root. LoadScenario resolves it relative to the
	// scenario file.
	Data string `yaml:"data"`

	// Version selects a dataset version; empty means latest.
	Version string `yaml:"version,omitempty"`

	// Stack lists overlay names, applied in order.
	Stack []string `yaml:"stack,omitempty"`

	// Shares and Target resolve the stack through share records instead.
	Shares []ShareStep `yaml:"shares,omitempty"`
	Target string      `yaml:"target,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// ShareStep seeds one share record.
type ShareStep struct {
	Target   string   `yaml:"target"`
	Overlays []string `yaml:"overlays"`
}

// Assertion checks one property of the materialized result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Overlay string `yaml:"overlay,omitempty"`
	Table   string `yaml:"table,omitempty"`
	Field   string `yaml:"field,omitempty"`

	// ID selects the row for equals.
	ID string `yaml:"id,omitempty"`
	// Value is the expected value for equals.
	Value any `yaml:"value,omitempty"`

	// Needed and Available refine insufficient; zero means any.
	Needed    int `yaml:"needed,omitempty"`
	Available int `yaml:"available,omitempty"`
}

// Assertion type constants.
const (
	AssertMaterializes = "materializes"
	AssertInsufficient = "insufficient"
	AssertValueFrom    = "value_from"
	AssertUnchanged    = "unchanged"
	AssertEquals       = "equals"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative data path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Data != "" && !filepath.IsAbs(scenario.Data) {
		scenario.Data = filepath.Join(filepath.Dir(path), scenario.Data)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Data == "" {
		return fmt.Errorf("data is required")
	}
	if _, err := os.Stat(s.Data); os.IsNotExist(err) {
		return fmt.Errorf("data root not found: %s", s.Data)
	}

	if len(s.Stack) > 0 && s.Target != "" {
		return fmt.Errorf("stack and target are mutually exclusive")
	}
	if len(s.Shares) > 0 && s.Target == "" {
		return fmt.Errorf("shares require a target")
	}
	for i, sh := range s.Shares {
		if sh.Target == "" {
			return fmt.Errorf("shares[%d]: target is required", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	require := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("assertions[%d]: %s requires %s", index, a.Type, field)
		}
		return nil
	}

	switch a.Type {
	case AssertMaterializes:
		return nil
	case AssertInsufficient:
		if err := require("overlay", a.Overlay); err != nil {
			return err
		}
		return require("table", a.Table)
	case AssertValueFrom:
		for _, f := range []struct{ name, value string }{
			{"table", a.Table}, {"field", a.Field}, {"overlay", a.Overlay},
		} {
			if err := require(f.name, f.value); err != nil {
				return err
			}
		}
		return nil
	case AssertUnchanged:
		if err := require("table", a.Table); err != nil {
			return err
		}
		return require("field", a.Field)
	case AssertEquals:
		for _, f := range []struct{ name, value string }{
			{"table", a.Table}, {"id", a.ID}, {"field", a.Field},
		} {
			if err := require(f.name, f.value); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
}
