// Package execadapter implements the Execution Adapter: a polymorphic
// sum type over {Local, Remote} sharing one three-phase lifecycle
// (prepare -> execute -> collect) so callers never branch on adapter
// identity. Local and Remote MUST produce identical event/metric kinds,
// artifact layout, and run-index records for the same manifest.
package execadapter

import (
	"context"
	"time"

	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/session"
)

// PreparedRun is the output of prepare: everything execute needs to
// drive the manifest's DAG, with no further disk or registry lookups.
type PreparedRun struct {
	Manifest  model.Manifest
	Profile   string
	BuildDir  string
	Session   *session.Session
	StartedAt time.Time

	// Extra carries variant-specific state (e.g. Remote's sandbox proxy
	// and teardown func) between this variant's own Prepare and Execute;
	// other variants ignore it.
	Extra any
}

// ExecutionResult is the output of execute: the run's outcome plus the
// session that observed it, not yet finalized to disk.
type ExecutionResult struct {
	Prepared PreparedRun
	Summary  model.RunSummary
}

// CollectedRun is the output of collect: the finalized run record and
// aggregate figures, ready for the run index and AIOP export.
type CollectedRun struct {
	Record model.RunRecord
}

// Adapter is the shared contract every execution variant implements.
// runID is generated by the caller before Prepare (not inside it) so the
// session directory Prepare opens is addressable by that same id for the
// whole lifecycle: Collect and a later `aiop export --run <id>` both
// derive it from layout.SessionDir(runID).
type Adapter interface {
	Prepare(ctx context.Context, manifest model.Manifest, profile, buildDir string, layout fscontract.Layout, runID string) (PreparedRun, error)
	Execute(ctx context.Context, prepared PreparedRun) (ExecutionResult, error)
	Collect(ctx context.Context, result ExecutionResult, layout fscontract.Layout, runID string) (CollectedRun, error)
}

// collect is shared by every Adapter implementation: it closes the
// session, derives total duration, and builds the run record. Variants
// differ only in how execute() drove the DAG, not in how collect()
// finalizes it.
func collect(result ExecutionResult, layout fscontract.Layout, runID string) (CollectedRun, error) {
	prepared := result.Prepared
	endedAt := time.Now().UTC()

	if err := prepared.Session.Close(); err != nil {
		return CollectedRun{}, err
	}

	record := model.RunRecord{
		RunID:         runID,
		PipelineSlug:  prepared.Manifest.Pipeline.ID,
		ManifestHash:  prepared.Manifest.Meta.ManifestHash,
		ManifestShort: prepared.Manifest.Meta.ManifestShort,
		Profile:       prepared.Profile,
		StartedAt:     prepared.StartedAt,
		EndedAt:       endedAt,
		Status:        result.Summary.Status,
		DurationMS:    endedAt.Sub(prepared.StartedAt).Milliseconds(),
		TotalRows:     result.Summary.TotalRows,
		ArtifactsPath: prepared.Session.ArtifactsDir(),
	}

	return CollectedRun{Record: record}, nil
}
