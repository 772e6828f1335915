// Command fetchxml renders fetch XML queries from YAML, JSON or CUE query
// definitions.
//
// Usage:
//
//	# Print the XML for a definition
//	fetchxml render queries/active_accounts.yaml
//
//	# Write the XML to a file and re-render on every save
//	fetchxml render queries/active_accounts.cue --output active.xml --watch
//
//	# Report every problem in a definition
//	fetchxml validate --format json queries/active_accounts.yaml
//
// Exit codes: 0 on success, 1 when the query is invalid or cannot be
// rendered, 2 when the definition cannot be loaded.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/fetchxml/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
