package remoteproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/session"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// HeartbeatTimeout is the default elapsed time without a heartbeat
// before the host fails an in-flight command with RemoteTimeout.
const HeartbeatTimeout = 30 * time.Second

// heartbeatCheckInterval is how often call polls lastBeat while a
// command is in flight; it must be small relative to HeartbeatTimeout
// for the timeout to fire promptly once heartbeats actually stop.
const heartbeatCheckInterval = 1 * time.Second

// Proxy owns a sandbox's lifecycle from the host side: it issues RPC
// commands to a Worker over conn, merges the worker's asynchronous
// event/metric/heartbeat frames into sess in real time, and enforces
// the heartbeat timeout.
type Proxy struct {
	conn io.ReadWriter
	sess *session.Session

	mu        sync.Mutex
	pending   map[string]chan Response
	nextID    int
	lastBeat  time.Time
	stepSpecs map[string]model.ComponentSpec
}

// NewProxy constructs a Proxy bound to conn, merging asynchronous
// worker frames into sess.
func NewProxy(conn io.ReadWriter, sess *session.Session) *Proxy {
	return &Proxy{
		conn: conn, sess: sess,
		pending:   make(map[string]chan Response),
		lastBeat:  time.Now(),
		stepSpecs: make(map[string]model.ComponentSpec),
	}
}

// specFor returns the ComponentSpec registered for stepID via ExecStep,
// so asynchronous event/metric frames arriving later for that step can
// be redacted the same way the Local Runner redacts them.
func (p *Proxy) specFor(stepID string) model.ComponentSpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stepSpecs[stepID]
}

// Start launches the background frame-reader task that correlates
// responses to in-flight requests and merges asynchronous frames into
// the session. It runs until ctx is cancelled or conn is closed.
func (p *Proxy) Start(ctx context.Context) {
	go p.readLoop(ctx)
}

func (p *Proxy) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		kind, body, err := readFrame(p.conn)
		if err != nil {
			p.failAllPending(streamyerrors.NewRemoteError("RemoteTransportLost", "", err))
			return
		}

		switch kind {
		case KindResponse:
			var resp Response
			if err := json.Unmarshal(body, &resp); err != nil {
				continue
			}
			p.deliver(resp)
		case KindEvent:
			var async AsyncFrame
			if err := json.Unmarshal(body, &async); err == nil {
				var payload map[string]any
				_ = json.Unmarshal(async.Payload, &payload)
				eventKind, _ := payload["event"].(model.EventKind)
				if eventKind == "" {
					if s, ok := payload["event"].(string); ok {
						eventKind = model.EventKind(s)
					}
				}
				delete(payload, "event")
				stepID, _ := payload["step_id"].(string)
				p.sess.LogEvent(eventKind, p.specFor(stepID), payload)
			}
		case KindMetric:
			var async AsyncFrame
			if err := json.Unmarshal(body, &async); err == nil {
				var m model.Metric
				_ = json.Unmarshal(async.Payload, &m)
				p.sess.LogMetric(m.Metric, m.Value, m.Unit, m.Tags)
			}
		case KindHeartbeat:
			p.mu.Lock()
			p.lastBeat = time.Now()
			p.mu.Unlock()
		}
	}
}

func (p *Proxy) deliver(resp Response) {
	p.mu.Lock()
	ch, ok := p.pending[resp.ID]
	if ok {
		delete(p.pending, resp.ID)
	}
	p.mu.Unlock()
	if ok {
		ch <- resp
	}
}

func (p *Proxy) failAllPending(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.pending {
		ch <- Response{ID: id, OK: false, Error: err.Error()}
		delete(p.pending, id)
	}
}

// call issues a request and blocks for its matching response. Per the
// heartbeat/timeout design, the deadline is not fixed at request start:
// it fails with RemoteTimeout only once lastBeat itself has gone stale
// for longer than HeartbeatTimeout, so a long-running step kept alive
// by on-schedule heartbeats never times out.
func (p *Proxy) call(ctx context.Context, kind string, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, err
	}

	p.mu.Lock()
	p.nextID++
	id := fmt.Sprintf("req-%d", p.nextID)
	ch := make(chan Response, 1)
	p.pending[id] = ch
	p.mu.Unlock()

	if err := writeFrame(p.conn, KindRequest, Request{ID: id, Kind: kind, Payload: body}); err != nil {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return Response{}, streamyerrors.NewRemoteError("RemoteTransportLost", "", err)
	}

	ticker := time.NewTicker(heartbeatCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case resp := <-ch:
			return resp, nil
		case <-ticker.C:
			p.mu.Lock()
			elapsed := time.Since(p.lastBeat)
			p.mu.Unlock()
			if elapsed > HeartbeatTimeout {
				p.mu.Lock()
				delete(p.pending, id)
				p.mu.Unlock()
				return Response{}, streamyerrors.NewRemoteError("RemoteTimeout", "", fmt.Errorf("no heartbeat within %s", HeartbeatTimeout))
			}
		case <-ctx.Done():
			p.mu.Lock()
			delete(p.pending, id)
			p.mu.Unlock()
			return Response{}, streamyerrors.NewRemoteError("RemoteTimeout", "", ctx.Err())
		}
	}
}

// Prepare issues the prepare command.
func (p *Proxy) Prepare(ctx context.Context, pipelinePackage, config json.RawMessage) error {
	resp, err := p.call(ctx, "prepare", map[string]any{"pipeline_package": pipelinePackage, "config": config})
	if err != nil {
		return err
	}
	if !resp.OK {
		return streamyerrors.NewRemoteError("SandboxCreateFailed", "", fmt.Errorf("%s", resp.Error))
	}
	return nil
}

// ExecStep issues the exec_step command for one step and returns the
// driver's reported row count. spec is recorded against cmd.StepID so
// asynchronous event/metric frames this step emits while in flight are
// redacted using the same ComponentSpec the Local Runner would use.
func (p *Proxy) ExecStep(ctx context.Context, cmd ExecStepCommand, spec model.ComponentSpec) (ExecStepResult, error) {
	p.mu.Lock()
	p.stepSpecs[cmd.StepID] = spec
	p.mu.Unlock()

	resp, err := p.call(ctx, "exec_step", cmd)
	if err != nil {
		return ExecStepResult{}, err
	}
	if !resp.OK {
		return ExecStepResult{}, streamyerrors.NewRemoteError("WorkerProtocolError", cmd.StepID, fmt.Errorf("%s", resp.Error))
	}
	var result ExecStepResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return ExecStepResult{}, streamyerrors.NewRemoteError("WorkerProtocolError", cmd.StepID, err)
	}
	return result, nil
}

// Cancel requests the worker abort the in-flight command with id.
func (p *Proxy) Cancel(ctx context.Context, id string) error {
	_, err := p.call(ctx, "cancel", map[string]any{"cancel_id": id})
	return err
}

// Shutdown tears down the worker, regardless of run outcome.
func (p *Proxy) Shutdown(ctx context.Context) error {
	_, err := p.call(ctx, "shutdown", map[string]any{})
	return err
}
