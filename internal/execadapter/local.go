package execadapter

import (
	"context"
	"time"

	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/localrun"
	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/session"
)

// Local executes a compiled manifest in-process via the Local Runner.
type Local struct {
	Runner *localrun.Runner
	Redact session.Redactor
}

// NewLocal constructs a Local adapter over runner.
func NewLocal(runner *localrun.Runner, redact session.Redactor) *Local {
	return &Local{Runner: runner, Redact: redact}
}

// Prepare opens a fresh session rooted at layout.SessionDir(runID), so
// this run's telemetry stays addressable by runID for its whole
// lifetime. Local execution needs nothing else prepared: the manifest's
// materialized configs already sit on disk at buildDir/steps/*.yaml.
func (l *Local) Prepare(ctx context.Context, manifest model.Manifest, profile, buildDir string, layout fscontract.Layout, runID string) (PreparedRun, error) {
	sess, err := session.New(layout.SessionDir(runID), l.Redact)
	if err != nil {
		return PreparedRun{}, err
	}
	return PreparedRun{
		Manifest:  manifest,
		Profile:   profile,
		BuildDir:  buildDir,
		Session:   sess,
		StartedAt: time.Now().UTC(),
	}, nil
}

// Execute drives the manifest's DAG sequentially via the Local Runner.
func (l *Local) Execute(ctx context.Context, prepared PreparedRun) (ExecutionResult, error) {
	summary := l.Runner.Run(ctx, prepared.Manifest, prepared.BuildDir, prepared.Session)
	return ExecutionResult{Prepared: prepared, Summary: summary}, nil
}

// Collect finalizes the session and builds the run record.
func (l *Local) Collect(ctx context.Context, result ExecutionResult, layout fscontract.Layout, runID string) (CollectedRun, error) {
	return collect(result, layout, runID)
}
