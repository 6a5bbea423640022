package main

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osiris-data/osiris/internal/aiop"
	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/model"
)

func newTestRunRecord(runID string, endedAt time.Time) model.RunRecord {
	return model.RunRecord{
		RunID:         runID,
		PipelineSlug:  "orders",
		ManifestHash:  "deadbeef",
		ManifestShort: "deadbee",
		Profile:       "prod",
		StartedAt:     endedAt.Add(-time.Second),
		EndedAt:       endedAt,
		Status:        model.RunCompleted,
		TotalRows:     3,
	}
}

func TestResolveRunRecordFindsExactRunID(t *testing.T) {
	t.Parallel()

	layout := fscontract.NewLayout(t.TempDir())
	writer := fscontract.NewRunIndexWriter(layout)
	require.NoError(t, writer.Append(newTestRunRecord("run-1", time.Now().UTC())))
	require.NoError(t, writer.Append(newTestRunRecord("run-2", time.Now().UTC().Add(time.Minute))))

	a := &app{Layout: layout}
	record, err := resolveRunRecord(a, "run-1", "", false)
	require.NoError(t, err)
	require.Equal(t, "run-1", record.RunID)
}

func TestResolveRunRecordLastPicksMostRecentlyEnded(t *testing.T) {
	t.Parallel()

	layout := fscontract.NewLayout(t.TempDir())
	writer := fscontract.NewRunIndexWriter(layout)
	now := time.Now().UTC()
	require.NoError(t, writer.Append(newTestRunRecord("run-old", now)))
	require.NoError(t, writer.Append(newTestRunRecord("run-new", now.Add(time.Hour))))

	a := &app{Layout: layout}
	record, err := resolveRunRecord(a, "", "", true)
	require.NoError(t, err)
	require.Equal(t, "run-new", record.RunID)
}

func TestResolveRunRecordRejectsNeitherRunNorLast(t *testing.T) {
	t.Parallel()

	a := &app{Layout: fscontract.NewLayout(t.TempDir())}
	_, err := resolveRunRecord(a, "", "", false)
	require.Error(t, err)
}

func TestReadEventsRoundTripsPayloadThroughJSONL(t *testing.T) {
	t.Parallel()

	ev := model.Event{
		TS:      time.Now().UTC(),
		Session: "run-1",
		Event:   model.EventStepComplete,
		Payload: map[string]any{"step_id": "extract_orders", "rows_processed": float64(3)},
	}
	line, err := json.Marshal(ev)
	require.NoError(t, err)

	path := t.TempDir() + "/events.jsonl"
	require.NoError(t, os.WriteFile(path, append(line, '\n'), 0o644))

	events, err := readEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, model.EventStepComplete, events[0].Event)
	require.Equal(t, "extract_orders", events[0].Payload["step_id"])
}

func TestReadEventsToleratesMissingFile(t *testing.T) {
	t.Parallel()

	events, err := readEvents(t.TempDir() + "/does-not-exist.jsonl")
	require.NoError(t, err)
	require.Nil(t, events)
}

func TestListArtifactsSortsRelativePaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/b.csv", []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(dir+"/a.csv", []byte("a"), 0o644))

	artifacts, err := listArtifacts(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.csv", "b.csv"}, artifacts)
}

func TestListArtifactsToleratesMissingDir(t *testing.T) {
	t.Parallel()

	artifacts, err := listArtifacts(t.TempDir() + "/missing")
	require.NoError(t, err)
	require.Nil(t, artifacts)
}

func TestRenderRunCardMarksFirstRun(t *testing.T) {
	t.Parallel()

	summary := aiop.Summary{
		Semantic: aiop.Semantic{PipelineID: "orders"},
		Narrative: aiop.Narrative{Text: "pipeline completed successfully"},
		Metadata: aiop.Metadata{
			RunID: "run-1", ManifestHash: "deadbeef", SizeBytes: 128,
			Delta: aiop.Delta{FirstRun: true},
		},
	}

	card := renderRunCard(summary)
	require.Contains(t, card, "run-1")
	require.Contains(t, card, "first run of this manifest")
}
