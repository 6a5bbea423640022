package model

import (
	"encoding/json"
	"time"
)

// EventKind enumerates the event types a session's events.jsonl may
// contain. Within a step, step_start always precedes any payload event,
// which always precedes step_complete or step_failed.
type EventKind string

const (
	EventStepStart             EventKind = "step_start"
	EventStepComplete          EventKind = "step_complete"
	EventStepFailed            EventKind = "step_failed"
	EventConnectionResolveStart EventKind = "connection_resolve_start"
	EventConnectionResolveDone  EventKind = "connection_resolve_complete"
	EventCleanupComplete       EventKind = "cleanup_complete"
	EventSandboxBootstrap      EventKind = "sandbox_bootstrap"
	EventRunEnd                EventKind = "run_end"
)

// Event is one line of a session's events.jsonl. Payload carries the
// event-kind-specific fields (step_id, driver, rows_processed, ...).
type Event struct {
	TS      time.Time      `json:"ts"`
	Session string         `json:"session"`
	Event   EventKind      `json:"event"`
	Payload map[string]any `json:"-"`
}

// MarshalJSON flattens an Event into a single JSON object: ts, session,
// and event alongside the kind-specific payload fields, rather than
// nesting the payload under its own key.
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		flat[k] = v
	}
	flat["ts"] = e.TS.UTC().Format(time.RFC3339Nano)
	flat["session"] = e.Session
	flat["event"] = e.Event
	return json.Marshal(flat)
}

// UnmarshalJSON reverses MarshalJSON's flattening: ts/session/event are
// lifted back into their own fields and everything left over becomes
// Payload.
func (e *Event) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	if ts, ok := flat["ts"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return err
		}
		e.TS = t
	}
	if sess, ok := flat["session"].(string); ok {
		e.Session = sess
	}
	if kind, ok := flat["event"].(string); ok {
		e.Event = EventKind(kind)
	}

	delete(flat, "ts")
	delete(flat, "session")
	delete(flat, "event")
	e.Payload = flat
	return nil
}

// MetricUnit enumerates the accepted units of a metric emission.
type MetricUnit string

const (
	UnitRows    MetricUnit = "rows"
	UnitMS      MetricUnit = "ms"
	UnitBytes   MetricUnit = "bytes"
	UnitSeconds MetricUnit = "seconds"
	UnitFiles   MetricUnit = "files"
	UnitCode    MetricUnit = "code"
	UnitCalls   MetricUnit = "calls"
)

// Metric is one line of a session's metrics.jsonl.
type Metric struct {
	TS      time.Time         `json:"ts"`
	Session string            `json:"session"`
	Metric  string            `json:"metric"`
	Value   float64           `json:"value"`
	Unit    MetricUnit        `json:"unit"`
	Tags    map[string]string `json:"tags"`
}

// Row-metric names required per component mode, emitted after a driver
// completes.
const (
	MetricRowsRead      = "rows_read"
	MetricRowsWritten   = "rows_written"
	MetricRowsProcessed = "rows_processed"
)
