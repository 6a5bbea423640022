package remoteproxy

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/osiris-data/osiris/internal/driver"
	"github.com/osiris-data/osiris/internal/model"
)

// ExecStepCommand is the payload of an exec_step request. DriverName is
// resolved by the host from the component registry before dispatch, so
// the worker never needs its own copy of component specs — only drivers.
type ExecStepCommand struct {
	StepID             string                   `json:"step_id"`
	DriverName         string                   `json:"driver_name"`
	Mode               model.Mode               `json:"mode"`
	MaterializedConfig json.RawMessage          `json:"materialized_config"`
	Connection         model.ResolvedConnection `json:"connection"`
	UpstreamRefs       []string                 `json:"upstream_refs"`
}

// ExecStepResult is the result payload of a successful exec_step.
type ExecStepResult struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Rows    int64  `json:"rows"`
}

// Worker runs inside the sandbox: it accepts RPC commands over conn,
// executes steps against its own driver registry, and streams
// events/metrics/heartbeats back to the Proxy asynchronously.
type Worker struct {
	conn     io.ReadWriter
	drivers  *driver.Registry
	outputs  map[string]model.Outputs
	heartbeat time.Duration

	mu sync.Mutex
}

// NewWorker constructs a Worker bound to conn and drivers.
func NewWorker(conn io.ReadWriter, drivers *driver.Registry) *Worker {
	return &Worker{conn: conn, drivers: drivers, outputs: make(map[string]model.Outputs), heartbeat: 5 * time.Second}
}

// Serve reads requests from conn until it receives shutdown or conn
// closes, executing each synchronously (the worker only ever runs one
// step at a time, mirroring the Local Runner's sequential contract).
func (w *Worker) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	go w.heartbeatLoop(stop)
	defer close(stop)

	for {
		kind, body, err := readFrame(w.conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if kind != KindRequest {
			continue
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			continue
		}

		resp := w.handle(ctx, req)
		if err := writeFrame(w.conn, KindResponse, resp); err != nil {
			return err
		}
		if req.Kind == "shutdown" {
			return nil
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) Response {
	switch req.Kind {
	case "prepare":
		return Response{ID: req.ID, OK: true}
	case "exec_step":
		return w.execStep(ctx, req)
	case "get_artifact":
		return Response{ID: req.ID, OK: true}
	case "shutdown":
		return Response{ID: req.ID, OK: true}
	default:
		return Response{ID: req.ID, OK: false, Error: "unknown command " + req.Kind}
	}
}

func (w *Worker) execStep(ctx context.Context, req Request) Response {
	var cmd ExecStepCommand
	if err := json.Unmarshal(req.Payload, &cmd); err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}

	w.emit(KindEvent, map[string]any{"event": model.EventStepStart, "step_id": cmd.StepID})

	var native any
	_ = json.Unmarshal(cmd.MaterializedConfig, &native)

	inputs := make(model.Inputs, len(cmd.UpstreamRefs))
	for _, ref := range cmd.UpstreamRefs {
		w.mu.Lock()
		for name, table := range w.outputs[ref] {
			inputs[name] = table
		}
		w.mu.Unlock()
	}

	d, err := w.drivers.Get(cmd.DriverName)
	if err != nil {
		w.emit(KindEvent, map[string]any{"event": model.EventStepFailed, "step_id": cmd.StepID, "error": err.Error()})
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}

	resp, err := d.Run(ctx, driver.Request{
		StepID:     cmd.StepID,
		Mode:       cmd.Mode,
		Config:     model.FromNative(native),
		Connection: cmd.Connection,
		Inputs:     inputs,
	})
	if err != nil {
		w.emit(KindEvent, map[string]any{"event": model.EventStepFailed, "step_id": cmd.StepID, "error": err.Error()})
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}

	w.mu.Lock()
	w.outputs[cmd.StepID] = resp.Outputs
	w.mu.Unlock()

	metricName := model.MetricRowsProcessed
	switch cmd.Mode {
	case model.ModeRead:
		metricName = model.MetricRowsRead
	case model.ModeWrite:
		metricName = model.MetricRowsWritten
	}
	w.emit(KindMetric, model.Metric{
		Metric: metricName, Value: float64(resp.RowsMoved), Unit: model.UnitRows,
		Tags: map[string]string{"step": cmd.StepID},
	})

	w.emit(KindEvent, map[string]any{"event": model.EventStepComplete, "step_id": cmd.StepID, "rows_processed": resp.RowsMoved})

	result, _ := json.Marshal(ExecStepResult{Status: "completed", Rows: resp.RowsMoved})
	return Response{ID: req.ID, OK: true, Result: result}
}

func (w *Worker) emit(kind FrameKind, payload any) {
	body, _ := json.Marshal(payload)
	_ = writeFrame(w.conn, kind, AsyncFrame{Kind: kind, Payload: body})
}

func (w *Worker) heartbeatLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.emit(KindHeartbeat, map[string]any{"at": time.Now().UTC()})
		}
	}
}
