package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StrictMode selects the driver's NotFound policy.
	StrictMode bool `yaml:"strict_mode,omitempty"`

	// IDPrefix prefixes generated ids. Defaults to "id".
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// InitialData maps object names to seed records. Kept as a node so
	// record field order survives decoding.
	InitialData yaml.Node `yaml:"initial_data,omitempty"`

	// Steps run in order against one driver instance.
	Steps []Step `yaml:"steps"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// Step is one driver operation.
type Step struct {
	// Op is the operation: create, update, delete, find_one, find, count, distinct.
	Op string `yaml:"op"`

	// Object is the target table.
	Object string `yaml:"object"`

	// ID addresses update, delete and find_one.
	ID any `yaml:"id,omitempty"`

	// Data is the record for create and the patch for update.
	Data yaml.Node `yaml:"data,omitempty"`

	// Query is a query-shaped mapping for find and find_one.
	Query map[string]any `yaml:"query,omitempty"`

	// Filters is a filter expression, bare or query-shaped, for count and distinct.
	Filters any `yaml:"filters,omitempty"`

	// Field is the distinct field.
	Field string `yaml:"field,omitempty"`

	// Expect is checked against the step's outcome. Nil means the step
	// must not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Error is the expected error kind: conflict, not_found or invalid_request.
	Error string `yaml:"error,omitempty"`

	// Absent expects find_one or update to return no record.
	Absent bool `yaml:"absent,omitempty"`

	// IDs is the exact ordered list of ids find returns.
	IDs []any `yaml:"ids,omitempty"`

	// Count is the count result, or the number of records find returns.
	Count *int `yaml:"count,omitempty"`

	// Values is the exact distinct result.
	Values yaml.Node `yaml:"values,omitempty"`

	// Removed is the delete result.
	Removed *bool `yaml:"removed,omitempty"`

	// Record is a subset the returned record must match.
	Record yaml.Node `yaml:"record,omitempty"`

	// Present lists fields the returned record must hold with non-null values.
	Present []string `yaml:"present,omitempty"`
}

// Operation names.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpFindOne  = "find_one"
	OpFind     = "find"
	OpCount    = "count"
	OpDistinct = "distinct"
)

var knownErrors = []string{"conflict", "not_found", "invalid_request"}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	scenario.Path = path
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml / *.yml file in dir, sorted by file
// name. A non-empty pattern keeps only scenarios whose name matches it
// (path.Match syntax).
func LoadScenarios(dir, pattern string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	var out []*Scenario
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if pattern != "" {
			ok, err := filepath.Match(pattern, s.Name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.InitialData.Kind != 0 && s.InitialData.Kind != yaml.MappingNode {
		return fmt.Errorf("initial_data must be a mapping of object names to record lists")
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single step based on its operation.
func validateStep(index int, st *Step) error {
	if st.Object == "" {
		return fmt.Errorf("steps[%d]: object is required", index)
	}

	switch st.Op {
	case OpCreate:
		if st.Data.Kind != yaml.MappingNode {
			return fmt.Errorf("steps[%d]: data mapping is required for create", index)
		}
	case OpUpdate:
		if st.ID == nil {
			return fmt.Errorf("steps[%d]: id is required for update", index)
		}
		if st.Data.Kind != yaml.MappingNode {
			return fmt.Errorf("steps[%d]: data mapping is required for update", index)
		}
	case OpDelete:
		if st.ID == nil {
			return fmt.Errorf("steps[%d]: id is required for delete", index)
		}
	case OpDistinct:
		if st.Field == "" {
			return fmt.Errorf("steps[%d]: field is required for distinct", index)
		}
	case OpFindOne, OpFind, OpCount:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	if st.Expect != nil && st.Expect.Error != "" && !slices.Contains(knownErrors, st.Expect.Error) {
		return fmt.Errorf("steps[%d].expect: unknown error kind %q, must be one of %v", index, st.Expect.Error, knownErrors)
	}
	return nil
}
