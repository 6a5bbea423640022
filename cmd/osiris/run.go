package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/osiris-data/osiris/internal/connection"
	"github.com/osiris-data/osiris/internal/execadapter"
	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/localrun"
	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/session"
)

type runOptions struct {
	manifestPath    string
	remote          bool
	remoteTransport string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run <pipeline-slug>",
		Short: "Execute the latest compiled manifest for a pipeline, locally or in a remote sandbox",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*root)
			if err != nil {
				return err
			}

			profile := a.Config.Profile

			manifestPath := opts.manifestPath
			buildDir := ""
			if manifestPath == "" {
				if len(args) != 1 {
					return newUsageError("run requires a pipeline slug, or --manifest <path>")
				}
				slug := args[0]
				short, hash, ok := fscontract.ReadLatestPointer(a.Layout, slug)
				if !ok {
					return newUsageError(fmt.Sprintf("no compiled manifest found for pipeline %q; run `osiris compile` first", slug))
				}
				manifestPath = a.Layout.ManifestPath(profile, slug, short, hash)
				buildDir = a.Layout.BuildDir(profile, slug, short, hash)
			}

			manifest, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}
			if buildDir == "" {
				buildDir = a.Layout.BuildDir(profile, manifest.Pipeline.ID, manifest.Meta.ManifestShort, manifest.Meta.ManifestHash)
			}

			redact := session.NewRedactor(connection.IsSecretField)

			var adapter execadapter.Adapter
			if opts.remote {
				var sandbox execadapter.Sandbox
				switch opts.remoteTransport {
				case "", "subprocess":
					sandbox = subprocessSandbox{}
				case "websocket":
					sandbox = websocketSandbox{}
				default:
					return newUsageError(fmt.Sprintf("unknown --remote-transport %q; want subprocess or websocket", opts.remoteTransport))
				}
				adapter = execadapter.NewRemote(sandbox, a.Registry, a.Resolver, redact)
			} else {
				runner := localrun.New(a.Registry, a.Drivers, a.Resolver)
				adapter = execadapter.NewLocal(runner, redact)
			}

			ctx := context.Background()
			runID := fmt.Sprintf("run-%d-%s", time.Now().UTC().Unix(), uuid.NewString()[:8])

			prepared, err := adapter.Prepare(ctx, manifest, profile, buildDir, a.Layout, runID)
			if err != nil {
				return err
			}
			result, err := adapter.Execute(ctx, prepared)
			if err != nil {
				return err
			}

			collected, err := adapter.Collect(ctx, result, a.Layout, runID)
			if err != nil {
				return err
			}

			writer := fscontract.NewRunIndexWriter(a.Layout)
			if err := writer.Append(collected.Record); err != nil {
				return err
			}

			a.Logger.Info("run finished", map[string]any{
				"run_id": runID, "status": string(collected.Record.Status), "total_rows": collected.Record.TotalRows,
			})
			fmt.Printf("%s %s total_rows=%d\n", runID, collected.Record.Status, collected.Record.TotalRows)

			if collected.Record.Status != model.RunCompleted {
				return fmt.Errorf("run %s did not complete (status=%s)", runID, collected.Record.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "Explicit manifest.yaml path, overriding the pipeline's latest compiled build")
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "Execute inside a sandboxed worker via the remote transparent proxy")
	cmd.Flags().StringVar(&opts.remoteTransport, "remote-transport", "subprocess", "Sandbox transport for --remote: subprocess or websocket")

	return cmd
}

func loadManifest(path string) (model.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Manifest{}, err
	}
	var manifest model.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return model.Manifest{}, err
	}
	return manifest, nil
}
