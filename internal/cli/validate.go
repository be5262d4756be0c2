package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stockpile/internal/layout"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                     `json:"valid"`
	Errors     []layout.ValidationError `json:"errors,omitempty"`
	Resources  int                      `json:"resources,omitempty"`
	GroupTypes int                      `json:"group_types,omitempty"`
	Layouts    []string                 `json:"layouts,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <layouts-dir>",
		Short: "Validate layout catalogs",
		Long: `Validate a directory of CUE layout definitions.

Checks resource declarations, group types, policies and filters and
reports every problem found, without writing any output.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, layoutsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadCatalog(layoutsDir, LoadModeCollectAll)

	// Directory-level problems are command errors
	if loadResult == nil {
		code, message := parseLoadError(loadErrors[0])
		_ = formatter.Error(code, message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, layoutsDir)

	if len(loadErrors) > 0 {
		return outputValidationErrors(formatter, toValidationErrors(loadErrors))
	}

	c := loadResult.Catalog
	for _, name := range c.LayoutNames() {
		formatter.VerboseLog("Validated layout: %s", name)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{
			Valid:      true,
			Resources:  len(c.Resources),
			GroupTypes: len(c.GroupTypes),
			Layouts:    c.LayoutNames(),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ All layouts valid (%d resource(s), %d group type(s), %d layout(s))\n",
		len(c.Resources), len(c.GroupTypes), len(c.Layouts))
	return nil
}

// toValidationErrors converts load errors to validation errors.
func toValidationErrors(errs []error) []layout.ValidationError {
	out := make([]layout.ValidationError, 0, len(errs))
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			field := loadErr.Field
			if field == "" {
				field = "load"
			}
			out = append(out, layout.ValidationError{
				Field:   field,
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    loadErr.LineNumber(),
			})
			continue
		}
		out = append(out, layout.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric})
	}
	return out
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []layout.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, ValidationResult{Errors: errs}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return failure
}
