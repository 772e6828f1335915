package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/fetchxml/logging"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output string // Output file path (empty = stdout)
	Watch  bool   // Re-render whenever the definition changes
}

// RenderResult is the data payload of a successful render.
type RenderResult struct {
	Entity string `json:"entity"`
	XML    string `json:"xml"`
	Output string `json:"output,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <definition>",
		Short: "Render a query definition to fetch XML",
		Long: `Render a YAML, JSON or CUE query definition to a fetch XML document.

The definition is replayed through the query builder; the first rejected
call aborts the render with its validation error. With --watch the command
keeps running and re-renders every time the file is saved.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return runWatch(cmd.Context(), opts, args[0], cmd)
			}
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write XML to file instead of stdout")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-render when the definition changes")

	return cmd
}

// runRender loads, builds and prints one definition.
func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	runID := opts.runIDs().Generate()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		TraceID:   runID,
	}
	log := opts.newLogger(formatter.GetErrWriter(), runID).With(logging.Fields{"file": path})

	def, err := LoadDefinition(path)
	if err != nil {
		log.Error("definition load failed", logging.Fields{"error": err.Error()})
		return outputLoadError(formatter, err)
	}

	xml, err := def.Builder(log).Build()
	if err != nil {
		return outputQueryError(formatter, err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(xml), 0o644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("failed to write %s: %v", opts.Output, err), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		log.Info("fetch XML written", logging.Fields{"output": opts.Output, "bytes": len(xml)})
	}

	if opts.Format == "json" {
		return formatter.Success(RenderResult{Entity: def.Entity, XML: xml, Output: opts.Output})
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ Wrote %s\n", opts.Output)
		return nil
	}
	return formatter.Success(xml)
}

// runWatch renders once, then again after every change to path until ctx
// is cancelled. Failed renders are reported and watching continues.
func runWatch(ctx context.Context, opts *RenderOptions, path string, cmd *cobra.Command) error {
	log := opts.newLogger(cmd.ErrOrStderr(), opts.runIDs().Generate()).With(logging.Fields{"file": path})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create file watcher", err)
	}
	defer watcher.Close()

	// Editors often save by replacing the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		_ = formatter.Error(ErrCodeWatchFailed, fmt.Sprintf("cannot watch %s: %v", path, err), nil)
		return WrapExitError(ExitCommandError, "failed to watch definition", err)
	}

	_ = runRender(opts, path, cmd)
	log.Info("watching definition", nil)

	target := filepath.Clean(path)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			log.Info("watch stopped", nil)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("definition changed", logging.Fields{"op": event.Op.String()})
			pending = time.After(watchDebounce)

		case <-pending:
			pending = nil
			_ = runRender(opts, path, cmd)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Continue watching despite errors
			log.Error("file watcher error", logging.Fields{"error": err.Error()})
		}
	}
}
