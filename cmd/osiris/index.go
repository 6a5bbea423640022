package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osiris-data/osiris/internal/fscontract"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the run index",
	}

	cmd.AddCommand(newIndexListCmd(root))
	cmd.AddCommand(newIndexShowCmd(root))
	return cmd
}

func newIndexListCmd(root *rootOptions) *cobra.Command {
	var pipeline string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List run records, optionally filtered to one pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*root)
			if err != nil {
				return err
			}

			path := a.Layout.GlobalIndexPath()
			if pipeline != "" {
				path = a.Layout.PipelineIndexPath(pipeline)
			}

			records, err := fscontract.ReadAll(path)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Printf("%s\t%s\t%s\t%s\trows=%d\n", r.RunID, r.PipelineSlug, r.ManifestShort, r.Status, r.TotalRows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pipeline, "pipeline", "", "Restrict listing to one pipeline slug")
	return cmd
}

func newIndexShowCmd(root *rootOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one run record by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID == "" {
				return newUsageError("index show requires --run <run_id>")
			}

			a, err := newApp(*root)
			if err != nil {
				return err
			}

			records, err := fscontract.ReadAll(a.Layout.GlobalIndexPath())
			if err != nil {
				return err
			}
			for _, r := range records {
				if r.RunID == runID {
					fmt.Printf("run_id: %s\npipeline_slug: %s\nmanifest_hash: %s\nmanifest_short: %s\nprofile: %s\nstarted_at: %s\nended_at: %s\nstatus: %s\nduration_ms: %d\ntotal_rows: %d\nartifacts_path: %s\n",
						r.RunID, r.PipelineSlug, r.ManifestHash, r.ManifestShort, r.Profile,
						r.StartedAt.Format("2006-01-02T15:04:05Z"), r.EndedAt.Format("2006-01-02T15:04:05Z"),
						r.Status, r.DurationMS, r.TotalRows, r.ArtifactsPath)
					return nil
				}
			}
			return newUsageError(fmt.Sprintf("no run record found for run_id %q", runID))
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id to show")
	return cmd
}
