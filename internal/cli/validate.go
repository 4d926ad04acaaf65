package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/config"
	"github.com/roach88/tabula/internal/errdefs"
)

// ValidationIssue is one problem found in a configuration.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// TableSize reports how many records a seeded table holds.
type TableSize struct {
	Object  string `json:"object"`
	Records int    `json:"records"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Driver     string            `json:"driver,omitempty"`
	StrictMode bool              `json:"strict_mode"`
	Tables     []TableSize       `json:"tables,omitempty"`
	Errors     []ValidationIssue `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	SessionOptions
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a configuration and its initial data",
		Long: `Load a CUE configuration, seed the configured driver with its
initialData and report the size of every table.

Duplicate identifiers inside initialData fail validation with CONFLICT.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	addSessionFlags(cmd, &opts.SessionOptions)
	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	if err := checkPath(formatter, path); err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, path)
	if err != nil {
		return outputValidationErrors(formatter, []ValidationIssue{issueFor(err)})
	}
	defer s.close(ctx, &opts.SessionOptions, cmd.ErrOrStderr())

	result := ValidationResult{
		Valid:      true,
		Driver:     s.config.Driver,
		StrictMode: s.config.StrictMode,
	}
	for _, object := range s.config.Objects {
		formatter.VerboseLog("Counting table: %s", object)
		n, err := s.driver.Count(ctx, object, nil)
		if err != nil {
			return formatter.Fail(ExitCodeFor(err), ErrorCode(err), err)
		}
		result.Tables = append(result.Tables, TableSize{Object: object, Records: n})
	}

	return outputValidateSuccess(formatter, result)
}

// issueFor converts a load or seed error into a ValidationIssue.
func issueFor(err error) ValidationIssue {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		issue := ValidationIssue{Field: cfgErr.Field, Message: cfgErr.Message, Code: ErrCodeConfig}
		if cfgErr.Pos.IsValid() {
			issue.Line = cfgErr.Pos.Line()
		}
		return issue
	}
	if code := errdefs.CodeOf(err); code != "" {
		return ValidationIssue{Field: "initialData", Message: err.Error(), Code: string(code)}
	}
	return ValidationIssue{Field: "config", Message: err.Error(), Code: ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Configuration valid (%s driver, strict=%t)\n", result.Driver, result.StrictMode)
	for _, t := range result.Tables {
		fmt.Fprintf(formatter.Writer, "  %s: %d record(s)\n", t.Object, t.Records)
	}
	return nil
}

// outputValidationErrors outputs validation issues.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationIssue) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
