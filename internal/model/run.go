package model

import "time"

// RunStatus enumerates the terminal states of one run record.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunRecord is one JSONL line appended to the global run index and to the
// per-pipeline and per-manifest indexes. ManifestHash is always pure hex;
// writers must reject any record whose hash contains a colon.
type RunRecord struct {
	RunID          string    `json:"run_id"`
	PipelineSlug   string    `json:"pipeline_slug"`
	ManifestHash   string    `json:"manifest_hash"`
	ManifestShort  string    `json:"manifest_short"`
	Profile        string    `json:"profile"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	Status         RunStatus `json:"status"`
	DurationMS     int64     `json:"duration_ms"`
	TotalRows      int64     `json:"total_rows"`
	AIOPPath       string    `json:"aiop_path"`
	ArtifactsPath  string    `json:"artifacts_path"`
}
