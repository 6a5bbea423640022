package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := rootOptions{}

	cmd := &cobra.Command{
		Use:           "osiris",
		Short:         "Osiris compiles and runs deterministic ETL pipeline manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.basePath, "base-path", "", "Filesystem root for builds, runs, indexes, and AIOP exports")
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "Named deployment profile (dev, staging, prod, ...)")
	cmd.PersistentFlags().StringVar(&opts.componentsDir, "components", "components", "Directory of component specification YAML files")
	cmd.PersistentFlags().StringVar(&opts.connectionsYML, "connections", "", "Path to the connections file (omit for pipelines with no connection references)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "CLI log level")
	cmd.PersistentFlags().BoolVar(&opts.humanLogs, "human-logs", true, "Render CLI logs as human-readable console output instead of JSON")

	cmd.AddCommand(newCompileCmd(&opts))
	cmd.AddCommand(newValidateCmd(&opts))
	cmd.AddCommand(newRunCmd(&opts))
	cmd.AddCommand(newIndexCmd(&opts))
	cmd.AddCommand(newAIOPCmd(&opts))
	cmd.AddCommand(newWorkerCmd())

	return cmd
}
