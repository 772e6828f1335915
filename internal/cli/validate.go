package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchxml/fetchir"
	"github.com/roach88/fetchxml/logging"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Entity string            `json:"entity,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition>",
		Short: "Validate a query definition without rendering it",
		Long: `Validate a YAML, JSON or CUE query definition without printing XML.

Unlike render, which stops at the first rejected builder call, validate
walks the whole query tree and reports every problem it finds.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	runID := opts.runIDs().Generate()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		TraceID:   runID,
	}
	log := opts.newLogger(formatter.GetErrWriter(), runID).With(logging.Fields{"file": path})

	def, err := LoadDefinition(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	issues, err := validateDefinition(def, log)
	if err != nil {
		return outputQueryError(formatter, err)
	}
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	return outputValidateSuccess(formatter, def.Entity)
}

// validateDefinition collects every tree-level problem first. Only a tree
// that passes is replayed through the builder, which also catches values
// the tree cannot represent, such as an explicit top of zero. A non-nil
// error means rendering itself failed.
func validateDefinition(def *Definition, log *logging.Logger) ([]ValidationIssue, error) {
	var issues []ValidationIssue
	for _, err := range fetchir.ValidateQuery(def.Query()) {
		var ve *fetchir.ValidationError
		if errors.As(err, &ve) {
			issues = append(issues, newValidationIssue(ve))
			continue
		}
		issues = append(issues, ValidationIssue{Field: "query", Message: err.Error()})
	}
	if len(issues) > 0 {
		log.Debug("query tree rejected", logging.Fields{"errors": len(issues)})
		return issues, nil
	}

	_, err := def.Builder(log).Build()
	var ve *fetchir.ValidationError
	if errors.As(err, &ve) {
		return []ValidationIssue{newValidationIssue(ve)}, nil
	}
	return nil, err
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, entity string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Entity: entity})
	}

	fmt.Fprintf(formatter.Writer, "✓ Query definition for %q is valid\n", entity)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		err := formatter.respond(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error:  &CLIError{Code: ErrCodeValidation, Message: issues[0].Message},
		})
		if err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Fprintf(formatter.Writer, "at %s\n", issue.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n\n", ErrCodeValidation, issue.Field, issue.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
