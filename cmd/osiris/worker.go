package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/osiris-data/osiris/internal/builtins"
	"github.com/osiris-data/osiris/internal/driver"
	"github.com/osiris-data/osiris/internal/remoteproxy"
)

// newWorkerCmd is the hidden entry point a sandbox subprocess re-execs
// into: it speaks the remote proxy RPC protocol over its own
// stdin/stdout rather than a network socket, so the host's subprocess
// Sandbox and a would-be container/VM sandbox satisfy the same
// execadapter.Sandbox contract.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "__worker",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			drivers := driver.NewRegistry()
			drivers.Register(builtins.CSVExtractor{})
			drivers.Register(builtins.CSVWriter{})

			conn := stdioReadWriter{r: os.Stdin, w: os.Stdout}
			worker := remoteproxy.NewWorker(conn, drivers)
			return worker.Serve(context.Background())
		},
	}
}
