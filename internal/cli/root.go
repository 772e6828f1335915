package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchxml/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string // "debug" | "info" | "warn" | "error"

	// RunIDs overrides the run id source. Nil means UUIDv7Generator.
	RunIDs RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the fetchxml CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetchxml",
		Short: "Render fetch XML queries from declarative definitions",
		Long: `fetchxml renders fetch XML query documents from YAML, JSON or CUE
query definitions. Every definition is replayed through the fluent query
builder, so the same validation rules apply as in Go code.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
				return err
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "debug", "minimum level of verbose diagnostics (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) runIDs() RunIDGenerator {
	if o.RunIDs != nil {
		return o.RunIDs
	}
	return UUIDv7Generator{}
}

// newLogger builds the diagnostics logger for one run. Diagnostics are only
// written with --verbose and always go to w, never to the result stream.
func (o *RootOptions) newLogger(w io.Writer, runID string) *logging.Logger {
	return logging.New(logging.Config{
		Level:   o.LogLevel,
		Enabled: o.Verbose,
		Pretty:  o.Format != "json",
		Output:  w,
	}).With(logging.Fields{"run_id": runID})
}
