package aiop

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/model"
)

func sampleInput(runID string, endedAt time.Time, rows int64) Input {
	return Input{
		Manifest: model.Manifest{
			Pipeline: model.Pipeline{ID: "orders"},
			Steps: []model.ManifestStep{
				{ID: "extract_orders", Component: "db.extractor", Mode: model.ModeRead},
				{ID: "load_orders", Component: "db.writer", Mode: model.ModeWrite, Needs: []string{"extract_orders"}},
			},
		},
		Run: model.RunRecord{
			RunID:         runID,
			ManifestHash:  "deadbeefcafe",
			ManifestShort: "deadbee",
			Status:        model.RunCompleted,
			EndedAt:       endedAt,
			TotalRows:     rows,
		},
		Events: []model.Event{
			{TS: endedAt, Event: model.EventStepStart, Payload: map[string]any{"step_id": "extract_orders"}},
			{TS: endedAt, Event: model.EventStepComplete, Payload: map[string]any{"step_id": "extract_orders"}},
		},
		Metrics: []model.Metric{
			{Metric: model.MetricRowsRead, Value: float64(rows), Unit: model.UnitRows, Tags: map[string]string{"step": "extract_orders"}},
		},
	}
}

func TestExportIsDeterministicForIdenticalInput(t *testing.T) {
	t.Parallel()

	input := sampleInput("run-1", time.Unix(1700000000, 0).UTC(), 3)

	_, first, _, err := Export(input, DefaultPolicy(), nil)
	require.NoError(t, err)
	_, second, _, err := Export(input, DefaultPolicy(), nil)
	require.NoError(t, err)

	require.JSONEq(t, string(first), string(second))
}

func TestExportMarksFirstRunWhenNoPreviousExists(t *testing.T) {
	t.Parallel()

	layout := fscontract.NewLayout(t.TempDir())
	reader := fscontract.NewRunIndexReader(layout)

	input := sampleInput("run-1", time.Unix(1700000000, 0).UTC(), 3)
	summary, _, _, err := Export(input, DefaultPolicy(), reader)
	require.NoError(t, err)
	require.True(t, summary.Metadata.Delta.FirstRun)
}

func TestExportComputesDeltaAgainstPreviousRun(t *testing.T) {
	t.Parallel()

	layout := fscontract.NewLayout(t.TempDir())
	writer := fscontract.NewRunIndexWriter(layout)
	reader := fscontract.NewRunIndexReader(layout)

	prev := model.RunRecord{
		RunID: "run-1", PipelineSlug: "orders", ManifestHash: "deadbeefcafe",
		Status: model.RunCompleted, EndedAt: time.Unix(1700000000, 0).UTC(), TotalRows: 3,
	}
	require.NoError(t, writer.Append(prev))

	input := sampleInput("run-2", time.Unix(1700000100, 0).UTC(), 5)
	summary, _, _, err := Export(input, DefaultPolicy(), reader)
	require.NoError(t, err)
	require.False(t, summary.Metadata.Delta.FirstRun)
	require.Equal(t, "run-1", summary.Metadata.Delta.PreviousRunID)
	require.Equal(t, int64(2), summary.Metadata.Delta.TotalRowsDelta)
}

func TestExportTruncatesTimelineWhenOverBudget(t *testing.T) {
	t.Parallel()

	input := sampleInput("run-1", time.Unix(1700000000, 0).UTC(), 3)
	for i := 0; i < 200; i++ {
		input.Events = append(input.Events, model.Event{
			TS: input.Run.EndedAt, Event: model.EventStepComplete,
			Payload: map[string]any{"step_id": "extract_orders", "filler": "0123456789"},
		})
	}

	summary, raw, annex, err := Export(input, Policy{MaxCoreBytes: 512, TimelineDensity: DensityVerbose, MetricsTopK: 5, Mode: ModeCore}, nil)
	require.NoError(t, err)
	require.True(t, summary.Metadata.Truncated)
	require.Empty(t, summary.Metadata.AnnexPath)
	require.Nil(t, annex)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
}

func TestExportSpillsTruncatedEntriesToAnnexWhenModeIsAnnex(t *testing.T) {
	t.Parallel()

	input := sampleInput("run-1", time.Unix(1700000000, 0).UTC(), 3)
	for i := 0; i < 200; i++ {
		input.Events = append(input.Events, model.Event{
			TS: input.Run.EndedAt, Event: model.EventStepComplete,
			Payload: map[string]any{"step_id": "extract_orders", "filler": "0123456789"},
		})
	}

	summary, _, annex, err := Export(input, Policy{MaxCoreBytes: 512, TimelineDensity: DensityVerbose, MetricsTopK: 5, Mode: ModeAnnex}, nil)
	require.NoError(t, err)
	require.True(t, summary.Metadata.Truncated)
	require.Equal(t, "annex/timeline.ndjson", summary.Metadata.AnnexPath)
	require.NotEmpty(t, annex)

	lines := strings.Split(strings.TrimRight(string(annex), "\n"), "\n")
	for _, line := range lines {
		var entry TimelineEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
	}
}

func TestExportProducesValidJSONWithManifestHash(t *testing.T) {
	t.Parallel()

	input := sampleInput("run-1", time.Unix(1700000000, 0).UTC(), 3)
	_, raw, _, err := Export(input, DefaultPolicy(), nil)
	require.NoError(t, err)

	require.True(t, json.Valid(raw))
	require.Contains(t, string(raw), `"manifest_hash":"deadbeefcafe"`)
}
