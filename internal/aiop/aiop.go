// Package aiop implements the AIOP Export: a deterministic, four-layer
// (Evidence/Semantic/Narrative/Metadata) document built from one run's
// artifacts after collect. Canonical serialization reuses plain
// encoding/json, whose map[string]T marshaling already sorts keys
// lexicographically — the same determinism guarantee the compiler's
// canonical.go builds by hand for YAML, achieved here for free because
// JSON's standard library marshaler already behaves that way.
package aiop

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Density controls how much of the event timeline Evidence retains.
type Density string

const (
	DensityMinimal Density = "minimal"
	DensityMedium  Density = "medium"
	DensityVerbose Density = "verbose"
)

// Policy configures export size and content, with precedence CLI flags
// > environment variables > config file > defaults (enforced by the
// caller building Policy, not by this package).
type Policy struct {
	MaxCoreBytes    int
	TimelineDensity Density
	MetricsTopK     int
	Format          string // "json" | "md"
	SchemaMode      string // "strict" | "lenient"
	Mode            Mode   // "core" | "annex"
}

// Mode selects what happens to evidence the core export's size budget
// can't hold: Core drops it (marking truncated), Annex spills it to
// NDJSON shard files alongside summary.json instead of dropping it.
type Mode string

const (
	ModeCore  Mode = "core"
	ModeAnnex Mode = "annex"
)

// DefaultPolicy returns the built-in defaults, used when no flag, env
// var, or config file overrides them.
func DefaultPolicy() Policy {
	return Policy{MaxCoreBytes: 1 << 20, TimelineDensity: DensityMedium, MetricsTopK: 5, Format: "json", SchemaMode: "strict", Mode: ModeCore}
}

// TimelineEntry is one retained event in the Evidence layer.
type TimelineEntry struct {
	TS    string         `json:"ts"`
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// MetricSample is one retained metric in the Evidence layer's
// top-K-per-step view.
type MetricSample struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

// Evidence is the filtered timeline, top-K metrics per step, captured
// errors, and artifact path references.
type Evidence struct {
	Timeline        []TimelineEntry         `json:"timeline"`
	MetricsByStep   map[string][]MetricSample `json:"metrics_by_step"`
	Errors          []string                `json:"errors"`
	ArtifactRefs    []string                `json:"artifact_refs"`
}

// StepNode describes one step in the Semantic layer's DAG view.
type StepNode struct {
	ID        string   `json:"id"`
	Component string   `json:"component"`
	Mode      string   `json:"mode"`
	Needs     []string `json:"needs,omitempty"`
}

// Semantic is the DAG, the manifest's declared intent, and component
// metadata.
type Semantic struct {
	PipelineID string     `json:"pipeline_id"`
	Steps      []StepNode `json:"steps"`
}

// Narrative is generated prose that cites evidence ids.
type Narrative struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations"`
}

// Delta captures how this run compares to the previous run of the same
// manifest.
type Delta struct {
	FirstRun        bool   `json:"first_run"`
	PreviousRunID   string `json:"previous_run_id,omitempty"`
	TotalRowsDelta  int64  `json:"total_rows_delta,omitempty"`
}

// Metadata is the export's identity, size/truncation bookkeeping, and
// delta-vs-previous-run analysis.
type Metadata struct {
	ManifestHash  string `json:"manifest_hash"`
	ManifestShort string `json:"manifest_short"`
	RunID         string `json:"run_id"`
	SizeBytes     int    `json:"size_bytes"`
	Truncated     bool   `json:"truncated"`
	Redacted      bool   `json:"redacted"`
	AnnexPath     string `json:"annex_path,omitempty"`
	Delta         Delta  `json:"delta"`
}

// Summary is the full four-layer AIOP document, serialized as
// summary.json.
type Summary struct {
	Evidence  Evidence  `json:"evidence"`
	Semantic  Semantic  `json:"semantic"`
	Narrative Narrative `json:"narrative"`
	Metadata  Metadata  `json:"metadata"`
}

// Input bundles everything Export needs to read from one run's
// artifacts; the caller (the run command, or `aiop export`) gathers
// these from the session's events.jsonl/metrics.jsonl, the manifest,
// and the run record.
type Input struct {
	Manifest  model.Manifest
	Run       model.RunRecord
	Events    []model.Event
	Metrics   []model.Metric
	Errors    []string
	Artifacts []string
}

// Export builds a Summary for one run, looking up the previous
// completed run of the same manifest_hash via reader for the delta
// layer, then applies policy's size bound, truncating the timeline if
// the canonical core exceeds MaxCoreBytes. When policy.Mode is
// ModeAnnex, the entries truncation would otherwise drop are instead
// returned as NDJSON shard bytes for the caller to write under
// Layout.AIOPAnnexDir; ModeCore simply drops them. The third return
// value is nil whenever nothing was truncated or Mode is ModeCore.
func Export(input Input, policy Policy, reader *fscontract.RunIndexReader) (Summary, []byte, []byte, error) {
	summary := Summary{
		Evidence:  buildEvidence(input, policy),
		Semantic:  buildSemantic(input.Manifest),
		Narrative: buildNarrative(input),
		Metadata: Metadata{
			ManifestHash:  input.Run.ManifestHash,
			ManifestShort: input.Run.ManifestShort,
			RunID:         input.Run.RunID,
			Redacted:      true,
		},
	}

	if reader != nil {
		prev, err := reader.FindPrevious(input.Run.ManifestHash, input.Run.RunID)
		if err != nil {
			return Summary{}, nil, nil, streamyerrors.NewAIOPError("DeterminismMismatch", err)
		}
		if prev == nil {
			summary.Metadata.Delta = Delta{FirstRun: true}
		} else {
			summary.Metadata.Delta = Delta{
				FirstRun:       false,
				PreviousRunID:  prev.RunID,
				TotalRowsDelta: input.Run.TotalRows - prev.TotalRows,
			}
		}
	} else {
		summary.Metadata.Delta = Delta{FirstRun: true}
	}

	bytes, err := json.Marshal(summary)
	if err != nil {
		return Summary{}, nil, nil, streamyerrors.NewAIOPError("DeterminismMismatch", err)
	}

	var annex []byte
	if policy.MaxCoreBytes > 0 && len(bytes) > policy.MaxCoreBytes {
		kept, dropped := splitTimelineForTruncation(summary.Evidence.Timeline)
		summary.Evidence.Timeline = kept
		summary.Metadata.Truncated = true
		if policy.Mode == ModeAnnex && len(dropped) > 0 {
			annex = marshalNDJSON(dropped)
			summary.Metadata.AnnexPath = "annex/timeline.ndjson"
		}
		bytes, err = json.Marshal(summary)
		if err != nil {
			return Summary{}, nil, nil, streamyerrors.NewAIOPError("DeterminismMismatch", err)
		}
	}

	summary.Metadata.SizeBytes = len(bytes)
	bytes, err = json.Marshal(summary)
	if err != nil {
		return Summary{}, nil, nil, streamyerrors.NewAIOPError("DeterminismMismatch", err)
	}

	return summary, bytes, annex, nil
}

func buildEvidence(input Input, policy Policy) Evidence {
	var timeline []TimelineEntry
	for _, ev := range input.Events {
		if policy.TimelineDensity == DensityMinimal && ev.Event != model.EventStepFailed && ev.Event != model.EventRunEnd {
			continue
		}
		timeline = append(timeline, TimelineEntry{
			TS:    ev.TS.UTC().Format("2006-01-02T15:04:05.000000000Z"),
			Event: string(ev.Event),
			Data:  ev.Payload,
		})
	}

	byStep := make(map[string][]MetricSample)
	for _, m := range input.Metrics {
		step := m.Tags["step"]
		byStep[step] = append(byStep[step], MetricSample{Metric: m.Metric, Value: m.Value, Unit: string(m.Unit)})
	}
	topK := policy.MetricsTopK
	if topK <= 0 {
		topK = 5
	}
	for step, samples := range byStep {
		sort.Slice(samples, func(i, j int) bool { return samples[i].Value > samples[j].Value })
		if len(samples) > topK {
			samples = samples[:topK]
		}
		byStep[step] = samples
	}

	return Evidence{
		Timeline:      timeline,
		MetricsByStep: byStep,
		Errors:        append([]string(nil), input.Errors...),
		ArtifactRefs:  append([]string(nil), input.Artifacts...),
	}
}

func buildSemantic(manifest model.Manifest) Semantic {
	steps := make([]StepNode, 0, len(manifest.Steps))
	for _, s := range manifest.Steps {
		steps = append(steps, StepNode{ID: s.ID, Component: s.Component, Mode: string(s.Mode), Needs: s.Needs})
	}
	return Semantic{PipelineID: manifest.Pipeline.ID, Steps: steps}
}

func buildNarrative(input Input) Narrative {
	if input.Run.Status != model.RunCompleted {
		return Narrative{Text: "run did not complete successfully", Citations: []string{"metadata.run_id"}}
	}
	return Narrative{
		Text:      "pipeline completed successfully",
		Citations: []string{"metadata.run_id"},
	}
}

// splitTimelineForTruncation keeps the first and last few entries of
// the timeline (marking the omission) and returns the middle entries it
// dropped separately, so the caller can spill them to an annex shard
// instead of losing them outright.
func splitTimelineForTruncation(timeline []TimelineEntry) (kept, dropped []TimelineEntry) {
	if len(timeline) <= 4 {
		return timeline, nil
	}
	keep := 2
	dropped = append([]TimelineEntry(nil), timeline[keep:len(timeline)-keep]...)
	kept = append([]TimelineEntry(nil), timeline[:keep]...)
	kept = append(kept, TimelineEntry{Event: "truncated", Data: map[string]any{"omitted": len(dropped)}})
	kept = append(kept, timeline[len(timeline)-keep:]...)
	return kept, dropped
}

// marshalNDJSON renders entries as newline-delimited JSON, the annex
// shard format spec.md names.
func marshalNDJSON(entries []TimelineEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
