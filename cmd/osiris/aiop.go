package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/osiris-data/osiris/internal/aiop"
	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

func newAIOPCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aiop",
		Short: "Inspect and export AI Operation Packages",
	}
	cmd.AddCommand(newAIOPExportCmd(root))
	return cmd
}

func newAIOPExportCmd(root *rootOptions) *cobra.Command {
	var runID, pipeline, format, policyMode string
	var last bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build the Evidence/Semantic/Narrative/Metadata export for one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*root)
			if err != nil {
				return err
			}

			policy := a.Config.AIOPPolicy
			if format != "" {
				if format != "json" && format != "md" {
					return newUsageError(fmt.Sprintf("unknown --format %q; want json or md", format))
				}
				policy.Format = format
			}
			if policyMode != "" {
				if policyMode != string(aiop.ModeCore) && policyMode != string(aiop.ModeAnnex) {
					return newUsageError(fmt.Sprintf("unknown --policy %q; want core or annex", policyMode))
				}
				policy.Mode = aiop.Mode(policyMode)
			}

			record, err := resolveRunRecord(a, runID, pipeline, last)
			if err != nil {
				return err
			}

			manifestPath := a.Layout.ManifestPath(record.Profile, record.PipelineSlug, record.ManifestShort, record.ManifestHash)
			manifest, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}

			sessionDir := a.Layout.SessionDir(record.RunID)
			events, err := readEvents(filepath.Join(sessionDir, "events.jsonl"))
			if err != nil {
				return err
			}
			metrics, err := readMetrics(filepath.Join(sessionDir, "metrics.jsonl"))
			if err != nil {
				return err
			}
			artifacts, err := listArtifacts(a.Layout.ArtifactsDir(record.RunID))
			if err != nil {
				return err
			}

			var failures []string
			for _, ev := range events {
				if ev.Event != model.EventStepFailed {
					continue
				}
				if msg, ok := ev.Payload["error"].(string); ok {
					failures = append(failures, msg)
				}
			}

			input := aiop.Input{
				Manifest:  manifest,
				Run:       record,
				Events:    events,
				Metrics:   metrics,
				Errors:    failures,
				Artifacts: artifacts,
			}

			reader := fscontract.NewRunIndexReader(a.Layout)
			summary, data, annex, err := aiop.Export(input, policy, reader)
			if err != nil {
				return err
			}

			outDir := a.Layout.AIOPDir(record.Profile, record.PipelineSlug, record.ManifestShort, record.ManifestHash, record.RunID)
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			summaryPath := a.Layout.AIOPSummaryPath(record.Profile, record.PipelineSlug, record.ManifestShort, record.ManifestHash, record.RunID)
			if err := os.WriteFile(summaryPath, data, 0o644); err != nil {
				return err
			}

			if len(annex) > 0 {
				annexDir := a.Layout.AIOPAnnexDir(record.Profile, record.PipelineSlug, record.ManifestShort, record.ManifestHash, record.RunID)
				if err := os.MkdirAll(annexDir, 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(filepath.Join(annexDir, "timeline.ndjson"), annex, 0o644); err != nil {
					return err
				}
			}

			outputPath := summaryPath
			if policy.Format == "md" {
				runCardPath := a.Layout.AIOPRunCardPath(record.Profile, record.PipelineSlug, record.ManifestShort, record.ManifestHash, record.RunID)
				if err := os.WriteFile(runCardPath, []byte(renderRunCard(summary)), 0o644); err != nil {
					return err
				}
				outputPath = runCardPath
			}

			a.Logger.Info("aiop export written", map[string]any{
				"run_id": record.RunID, "truncated": summary.Metadata.Truncated, "size_bytes": summary.Metadata.SizeBytes,
				"format": policy.Format, "policy": string(policy.Mode),
			})
			fmt.Println(outputPath)

			if summary.Metadata.Truncated && policy.Mode != aiop.ModeAnnex {
				return streamyerrors.NewAIOPError("TruncationApplied", fmt.Errorf("core export exceeded max_core_bytes; timeline was truncated"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id to export")
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "Restrict --last to one pipeline slug")
	cmd.Flags().BoolVar(&last, "last", false, "Export the run that ended most recently, whatever its status, instead of a specific --run id")
	cmd.Flags().StringVar(&format, "format", "", "Output format: json (summary.json, default) or md (run-card.md)")
	cmd.Flags().StringVar(&policyMode, "policy", "", "Oversize-evidence handling: core (truncate, default) or annex (spill to NDJSON shards)")

	return cmd
}

// resolveRunRecord finds the run record --run or --last refers to, scoped
// to --pipeline's per-pipeline index when given, else the global index.
func resolveRunRecord(a *app, runID, pipeline string, last bool) (model.RunRecord, error) {
	if runID == "" && !last {
		return model.RunRecord{}, newUsageError("aiop export requires --run <run_id> or --last")
	}

	path := a.Layout.GlobalIndexPath()
	if pipeline != "" {
		path = a.Layout.PipelineIndexPath(pipeline)
	}
	records, err := fscontract.ReadAll(path)
	if err != nil {
		return model.RunRecord{}, err
	}

	if runID != "" {
		for _, r := range records {
			if r.RunID == runID {
				return r, nil
			}
		}
		return model.RunRecord{}, newUsageError(fmt.Sprintf("no run record found for run_id %q", runID))
	}

	var best *model.RunRecord
	for i := range records {
		r := records[i]
		if best == nil || r.EndedAt.After(best.EndedAt) {
			best = &r
		}
	}
	if best == nil {
		return model.RunRecord{}, newUsageError("no run records found; run `osiris run` first")
	}
	return *best, nil
}

func readEvents(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []model.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func readMetrics(path string) ([]model.Metric, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var metrics []model.Metric
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var m model.Metric
		if err := json.Unmarshal(line, &m); err != nil {
			continue
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// listArtifacts returns every file under dir, relative to dir, sorted for
// determinism. A missing artifacts dir (no artifacts written) is not an
// error.
func listArtifacts(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func renderRunCard(s aiop.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", s.Metadata.RunID)
	fmt.Fprintf(&b, "Pipeline: %s\n\n", s.Semantic.PipelineID)
	fmt.Fprintf(&b, "%s\n\n", s.Narrative.Text)
	fmt.Fprintf(&b, "- manifest_hash: %s\n", s.Metadata.ManifestHash)
	fmt.Fprintf(&b, "- size_bytes: %d\n", s.Metadata.SizeBytes)
	fmt.Fprintf(&b, "- truncated: %t\n", s.Metadata.Truncated)
	if s.Metadata.Delta.FirstRun {
		b.WriteString("- delta: first run of this manifest\n")
	} else {
		fmt.Fprintf(&b, "- delta: total_rows %+d vs run %s\n", s.Metadata.Delta.TotalRowsDelta, s.Metadata.Delta.PreviousRunID)
	}
	return b.String()
}
