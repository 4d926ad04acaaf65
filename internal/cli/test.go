package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/harness"
)

// DriverAll runs every scenario against every built-in driver.
const DriverAll = "all"

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Driver string // memory | sqlite | all
	Filter string // scenario filter (glob pattern)
	Golden string // golden directory; empty skips golden comparison
	Update bool   // regenerate golden files
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Driver string   `json:"driver"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios against one or all drivers.

Each scenario runs on a fresh driver with a fixed clock and sequential
ids. With --golden, traces are compared with <golden>/<name>.golden;
--update rewrites those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  tabula test ./scenarios
  tabula test ./scenarios --driver all --golden ./golden
  tabula test ./scenarios --filter "scenario_d_*"
  tabula test ./scenarios --golden ./golden --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "memory", "driver to test: memory|sqlite|all")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden file directory")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Validate directories
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Update && opts.Golden == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("--update requires --golden"))
	}

	drivers, err := selectDrivers(opts.Driver)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("invalid --driver: %w", err))
	}

	scenarios, err := harness.LoadScenarios(scenariosDir, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("failed to load scenarios: %w", err))
	}

	if len(scenarios) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarios)*len(drivers)),
	}
	for _, name := range drivers {
		for _, scenario := range scenarios {
			scenResult := runScenario(scenario, name, opts, cmd)
			result.Scenarios = append(result.Scenarios, scenResult)
			result.Total++
			if scenResult.Pass {
				result.Passed++
			} else {
				result.Failed++
			}
		}
	}

	// Output results
	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}

	return outputTestText(cmd, result)
}

// selectDrivers expands the --driver flag into driver names.
func selectDrivers(name string) ([]string, error) {
	all := harness.DriverNames()
	if name == DriverAll {
		return all, nil
	}
	if !slices.Contains(all, name) {
		return nil, fmt.Errorf("unknown driver %q, must be one of %v or %q", name, all, DriverAll)
	}
	return []string{name}, nil
}

// runScenario executes a single scenario on one driver and returns the result.
func runScenario(scenario *harness.Scenario, driverName string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	label := fmt.Sprintf("%s [%s]", scenario.Name, driverName)
	res := ScenarioResult{Name: scenario.Name, Driver: driverName}

	fail := func(errs ...string) ScenarioResult {
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", label)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		res.Errors = errs
		return res
	}

	result, err := harness.Run(cmd.Context(), scenario, harness.Drivers[driverName])
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}

	if opts.Golden != "" {
		snapshot, err := harness.Snapshot(scenario.Name, result)
		if err != nil {
			return fail(fmt.Sprintf("snapshot failed: %v", err))
		}
		goldenPath := filepath.Join(opts.Golden, scenario.Name+".golden")

		if opts.Update {
			if err := updateGoldenFile(goldenPath, snapshot); err != nil {
				return fail(fmt.Sprintf("failed to update golden file: %v", err))
			}
		} else {
			match, err := compareWithGolden(goldenPath, snapshot)
			if err != nil {
				return fail(fmt.Sprintf("golden comparison failed: %v", err))
			}
			if !match {
				return fail("trace does not match golden file (run with --update to regenerate)")
			}
		}
	}

	if !result.Pass {
		return fail(result.Errors...)
	}

	if opts.Format != "json" {
		if opts.Update {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", label)
		} else {
			fmt.Fprintf(w, "✓ %s\n", label)
		}
	}
	res.Pass = true
	return res
}

// updateGoldenFile writes the current trace as the golden file.
func updateGoldenFile(goldenPath string, snapshot []byte) error {
	// Ensure golden directory exists
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, snapshot, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the snapshot against the golden file.
func compareWithGolden(goldenPath string, snapshot []byte) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(goldenData, snapshot), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
