package execadapter

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/osiris-data/osiris/internal/component"
	"github.com/osiris-data/osiris/internal/connection"
	"github.com/osiris-data/osiris/internal/dag"
	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/remoteproxy"
	"github.com/osiris-data/osiris/internal/session"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Sandbox launches a Worker process and returns the transport the host
// speaks RPC over, plus a teardown function torn down unconditionally
// regardless of run outcome. A fake in-process sandbox (net.Pipe plus a
// goroutine running remoteproxy.Worker.Serve) satisfies this for local
// fixture/parity testing; a production sandbox wraps a real subprocess
// or remote container and its stdin/stdout.
type Sandbox interface {
	Launch(ctx context.Context) (transport io.ReadWriter, teardown func() error, err error)
}

// Remote executes a compiled manifest inside a sandbox via the Remote
// Transparent Proxy, merging the worker's telemetry into the local
// session so observation is indistinguishable from Local.
type Remote struct {
	Sandbox  Sandbox
	Registry *component.Registry
	Resolver *connection.Resolver
	Redact   session.Redactor
}

// remotePrepared carries the sandbox handle alongside the shared
// PreparedRun fields, threaded through PreparedRun.Extra between this
// variant's own Prepare, Execute, and Collect.
type remotePrepared struct {
	proxy    *remoteproxy.Proxy
	teardown func() error
}

// NewRemote constructs a Remote adapter.
func NewRemote(sandbox Sandbox, reg *component.Registry, resolver *connection.Resolver, redact session.Redactor) *Remote {
	return &Remote{Sandbox: sandbox, Registry: reg, Resolver: resolver, Redact: redact}
}

// Prepare launches the sandbox, starts the proxy's async frame reader,
// and issues the prepare RPC command. The session it opens is rooted at
// layout.SessionDir(runID), the same address Collect and a later AIOP
// export use to find this run's telemetry.
func (r *Remote) Prepare(ctx context.Context, manifest model.Manifest, profile, buildDir string, layout fscontract.Layout, runID string) (PreparedRun, error) {
	sess, err := session.New(layout.SessionDir(runID), r.Redact)
	if err != nil {
		return PreparedRun{}, err
	}

	transport, teardown, err := r.Sandbox.Launch(ctx)
	if err != nil {
		return PreparedRun{}, streamyerrors.NewRemoteError("SandboxCreateFailed", "", err)
	}

	proxy := remoteproxy.NewProxy(transport, sess)
	proxy.Start(ctx)

	manifestBytes, _ := yaml.Marshal(manifest)
	if err := proxy.Prepare(ctx, manifestBytes, nil); err != nil {
		teardown()
		return PreparedRun{}, err
	}

	sess.LogEvent(model.EventSandboxBootstrap, model.ComponentSpec{}, map[string]any{"profile": profile})

	return PreparedRun{
		Manifest:  manifest,
		Profile:   profile,
		BuildDir:  buildDir,
		Session:   sess,
		StartedAt: time.Now().UTC(),
		Extra:     &remotePrepared{proxy: proxy, teardown: teardown},
	}, nil
}

// Execute walks the manifest's topological order issuing exec_step RPCs,
// resolving connections locally (the host, not the worker, holds
// credentials) before handing the worker a fully resolved snapshot.
func (r *Remote) Execute(ctx context.Context, prepared PreparedRun) (ExecutionResult, error) {
	state, ok := prepared.Extra.(*remotePrepared)
	if !ok || state == nil {
		return ExecutionResult{}, streamyerrors.NewRemoteError("WorkerProtocolError", "", errNoSandboxState)
	}

	order, err := stepOrder(prepared.Manifest)
	if err != nil {
		prepared.Session.Fail(err)
		return ExecutionResult{Prepared: prepared, Summary: model.RunSummary{Status: model.RunFailed}}, nil
	}

	byID := make(map[string]model.ManifestStep, len(prepared.Manifest.Steps))
	for _, s := range prepared.Manifest.Steps {
		byID[s.ID] = s
	}

	start := time.Now()
	var writerRows, extractorRows int64
	var results []model.StepResult
	failed := false

	for _, id := range order {
		step := byID[id]

		spec, err := r.Registry.Get(step.Component)
		if err != nil {
			prepared.Session.Fail(err)
			failed = true
			break
		}

		cfgBytes, err := os.ReadFile(prepared.BuildDir + "/steps/" + step.ID + ".yaml")
		if err != nil {
			prepared.Session.Fail(err)
			failed = true
			break
		}
		var native map[string]any
		_ = yaml.Unmarshal(cfgBytes, &native)
		cfgJSON, _ := json.Marshal(native)

		var resolved model.ResolvedConnection
		if step.Connection != "" {
			stringFields := make(map[string]string, len(native))
			for k, v := range native {
				if s, ok := v.(string); ok {
					stringFields[k] = s
				}
			}
			resolved, err = r.Resolver.Resolve(step.Connection, stringFields, spec)
			if err != nil {
				prepared.Session.Fail(err)
				failed = true
				break
			}
		}

		result, err := state.proxy.ExecStep(ctx, remoteproxy.ExecStepCommand{
			StepID:             step.ID,
			DriverName:         spec.Runtime.Driver,
			Mode:               step.Mode,
			MaterializedConfig: cfgJSON,
			Connection:         resolved,
			UpstreamRefs:       step.Needs,
		}, spec)
		if err != nil {
			prepared.Session.Fail(err)
			failed = true
			break
		}

		results = append(results, model.StepResult{StepID: step.ID, Status: model.StepSucceeded, RowsProcessed: result.Rows})
		switch step.Mode {
		case model.ModeWrite:
			writerRows += result.Rows
		case model.ModeRead:
			extractorRows += result.Rows
		}
	}

	total := writerRows
	if writerRows == 0 {
		total = extractorRows
	}

	status := model.RunCompleted
	if failed {
		status = model.RunFailed
	}

	prepared.Session.LogEvent(model.EventCleanupComplete, model.ComponentSpec{}, map[string]any{
		"total_rows": total, "duration_ms": time.Since(start).Milliseconds(),
	})

	return ExecutionResult{
		Prepared: prepared,
		Summary:  model.RunSummary{Status: status, TotalRows: total, Duration: time.Since(start), StepResults: results},
	}, nil
}

// Collect tears down the sandbox unconditionally, then finalizes the
// session and run record identically to Local.
func (r *Remote) Collect(ctx context.Context, result ExecutionResult, layout fscontract.Layout, runID string) (CollectedRun, error) {
	if state, ok := result.Prepared.Extra.(*remotePrepared); ok && state != nil {
		_ = state.proxy.Shutdown(ctx)
		_ = state.teardown()
	}
	return collect(result, layout, runID)
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

var errNoSandboxState = sandboxStateError("remote: no sandbox state for this manifest; Prepare must run before Execute")

type sandboxStateError string

func (e sandboxStateError) Error() string { return string(e) }
