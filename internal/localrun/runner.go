// Package localrun implements the Local Runner: a single-threaded,
// cooperative, topologically-ordered walk over a compiled manifest that
// resolves connections, invokes drivers, caches intermediate tabular
// outputs by step id, and streams events/metrics to the run's Session.
// Grounded on the teacher's internal/engine.Execute step-lookup-and-loop
// shape, stripped of its level-parallel goroutine fan-out per the
// core's v0.1 sequential-execution contract.
package localrun

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/osiris-data/osiris/internal/component"
	"github.com/osiris-data/osiris/internal/connection"
	"github.com/osiris-data/osiris/internal/dag"
	"github.com/osiris-data/osiris/internal/driver"
	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/session"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Runner executes a compiled manifest in-process.
type Runner struct {
	Registry *component.Registry
	Drivers  *driver.Registry
	Resolver *connection.Resolver
}

// New constructs a Runner over the given process-wide singletons.
func New(reg *component.Registry, drivers *driver.Registry, resolver *connection.Resolver) *Runner {
	return &Runner{Registry: reg, Drivers: drivers, Resolver: resolver}
}

// Run executes every step of manifest in topological order, reading each
// step's materialized config from configDir (a build directory's
// steps/<step_id>.yaml files per the manifest's config_ref). It returns
// the aggregate RunSummary per spec §4.8.
func (r *Runner) Run(ctx context.Context, manifest model.Manifest, configDir string, sess *session.Session) model.RunSummary {
	order, err := stepOrder(manifest)
	if err != nil {
		sess.Fail(err)
		return model.RunSummary{Status: model.RunFailed}
	}

	byID := make(map[string]model.ManifestStep, len(manifest.Steps))
	for _, step := range manifest.Steps {
		byID[step.ID] = step
	}

	start := time.Now()
	cache := make(map[string]model.Outputs, len(order))
	var results []model.StepResult
	var writerRows, extractorRows int64
	failed := false

	for _, id := range order {
		step := byID[id]

		if ctx.Err() != nil {
			sess.Fail(ctx.Err())
			failed = true
			break
		}

		spec, specErr := r.Registry.Get(step.Component)

		sess.LogEvent(model.EventStepStart, spec, map[string]any{"step_id": step.ID, "driver": step.Component})

		result, rows, err := r.runStep(ctx, step, spec, specErr, configDir, cache, sess)
		if err != nil {
			sess.LogEvent(model.EventStepFailed, spec, map[string]any{
				"step_id": step.ID, "error": err.Error(), "error_type": fmt.Sprintf("%T", err),
			})
			results = append(results, model.StepResult{StepID: step.ID, Status: model.StepFailed, Error: err})
			sess.Fail(err)
			failed = true
			break
		}

		cache[step.ID] = result.Outputs
		results = append(results, model.StepResult{
			StepID:        step.ID,
			Status:        model.StepSucceeded,
			RowsProcessed: rows,
			Duration:      result.Duration,
			Outputs:       result.Outputs,
		})

		switch step.Mode {
		case model.ModeWrite:
			writerRows += rows
		case model.ModeRead:
			extractorRows += rows
		}
	}

	total := writerRows
	if writerRows == 0 {
		total = extractorRows
	}

	duration := time.Since(start)
	status := model.RunCompleted
	if failed {
		status = model.RunFailed
	}

	sess.LogEvent(model.EventCleanupComplete, model.ComponentSpec{}, map[string]any{
		"total_rows": total, "duration_ms": duration.Milliseconds(),
	})

	return model.RunSummary{Status: status, TotalRows: total, Duration: duration, StepResults: results}
}

type stepOutcome struct {
	Outputs  model.Outputs
	Duration time.Duration
}

func (r *Runner) runStep(ctx context.Context, step model.ManifestStep, spec model.ComponentSpec, specErr error, configDir string, cache map[string]model.Outputs, sess *session.Session) (stepOutcome, int64, error) {
	if specErr != nil {
		return stepOutcome{}, 0, specErr
	}

	cfg, err := loadStepConfig(configDir, step.ID)
	if err != nil {
		return stepOutcome{}, 0, err
	}

	var resolved model.ResolvedConnection
	if step.Connection != "" {
		sess.LogEvent(model.EventConnectionResolveStart, spec, map[string]any{"step_id": step.ID, "connection": step.Connection})
		stepFields, _ := cfg.ToNative().(map[string]any)
		stringFields := make(map[string]string, len(stepFields))
		for k, v := range stepFields {
			if s, ok := v.(string); ok {
				stringFields[k] = s
			}
		}
		resolved, err = r.Resolver.Resolve(step.Connection, stringFields, spec)
		if err != nil {
			return stepOutcome{}, 0, err
		}
		sess.LogEvent(model.EventConnectionResolveDone, spec, map[string]any{"step_id": step.ID, "connection": step.Connection})
	}

	inputs := make(model.Inputs, len(step.Needs))
	for _, need := range step.Needs {
		for name, table := range cache[need] {
			inputs[name] = table
		}
	}

	d, err := r.Drivers.Get(spec.Runtime.Driver)
	if err != nil {
		return stepOutcome{}, 0, streamyerrors.NewExecutionError(step.ID, err)
	}

	start := time.Now()
	resp, err := d.Run(ctx, driver.Request{
		StepID:     step.ID,
		Mode:       step.Mode,
		Config:     cfg,
		Connection: resolved,
		Inputs:     inputs,
	})
	duration := time.Since(start)
	if err != nil {
		return stepOutcome{}, 0, streamyerrors.NewExecutionError(step.ID, err)
	}

	metricName := model.MetricRowsProcessed
	switch step.Mode {
	case model.ModeRead:
		metricName = model.MetricRowsRead
	case model.ModeWrite:
		metricName = model.MetricRowsWritten
	}
	sess.LogMetric(metricName, float64(resp.RowsMoved), model.UnitRows, map[string]string{"step": step.ID})
	sess.LogEvent(model.EventStepComplete, spec, map[string]any{
		"step_id": step.ID, "rows_processed": resp.RowsMoved, "duration_ms": duration.Milliseconds(),
	})

	return stepOutcome{Outputs: resp.Outputs, Duration: duration}, resp.RowsMoved, nil
}

func stepOrder(manifest model.Manifest) ([]string, error) {
	g := dag.New()
	authored := make([]string, 0, len(manifest.Steps))
	for _, step := range manifest.Steps {
		if _, err := g.AddNode(step.ID); err != nil {
			return nil, err
		}
		authored = append(authored, step.ID)
	}
	for _, step := range manifest.Steps {
		for _, need := range step.Needs {
			if err := g.AddEdge(need, step.ID); err != nil {
				return nil, err
			}
		}
	}
	return g.StableOrder(authored)
}

func loadStepConfig(configDir, stepID string) (model.Value, error) {
	data, err := os.ReadFile(configDir + "/steps/" + stepID + ".yaml")
	if err != nil {
		return model.Null(), streamyerrors.NewExecutionError(stepID, err)
	}
	var native map[string]any
	if err := yaml.Unmarshal(data, &native); err != nil {
		return model.Null(), streamyerrors.NewExecutionError(stepID, err)
	}
	return model.FromNative(native), nil
}
