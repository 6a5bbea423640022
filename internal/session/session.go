// Package session implements the per-run Session Telemetry scope: an
// append-only events.jsonl and metrics.jsonl, an artifact tree, a
// fatal-error slot, and the single redaction function every output path
// (events, metrics, run record, AIOP) routes through. Grounded on the
// teacher's logger facade idiom (a small wrapper around rs/zerolog
// providing structured, leveled, real-time output) generalized from
// "log to stdout" to "log to stdout AND append to a session-scoped
// JSONL file, identically redacted both times."
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osiris-data/osiris/internal/model"
)

// Redactor masks secret values before they reach any output path. spec
// is the ComponentSpec of the step the value was produced by, letting
// per-component precedence sources (explicit secrets pointers,
// forbidden-override fields) apply alongside the fixed fallback list.
type Redactor func(spec model.ComponentSpec, field, value string) string

// Session owns one run's telemetry writers and artifact tree. It is
// created at execute start and closed at collect end on every exit path,
// including panics, so the run index and AIOP export always observe a
// well-formed session.
type Session struct {
	id           string
	artifactsDir string
	redact       Redactor

	mu           sync.Mutex
	eventsFile   *os.File
	metricsFile  *os.File
	console      zerolog.Logger
	fatalErr     error
	startedAt    time.Time
}

// New creates a session rooted under dir (typically
// fscontract.Layout.SessionDir(id)), writing a real-time mirror of every
// event to console via zerolog.
func New(dir string, redact Redactor) (*Session, error) {
	id := newSessionID()
	artifactsDir := filepath.Join(dir, "artifacts")
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("session: creating artifacts dir: %w", err)
	}

	eventsFile, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("session: opening events.jsonl: %w", err)
	}
	metricsFile, err := os.OpenFile(filepath.Join(dir, "metrics.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		eventsFile.Close()
		return nil, fmt.Errorf("session: opening metrics.jsonl: %w", err)
	}

	return &Session{
		id:           id,
		artifactsDir: artifactsDir,
		redact:       redact,
		eventsFile:   eventsFile,
		metricsFile:  metricsFile,
		console:      zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Str("session", id).Logger(),
		startedAt:    time.Now().UTC(),
	}, nil
}

func newSessionID() string {
	return fmt.Sprintf("%d-%s", time.Now().UTC().UnixNano(), uuid.NewString()[:8])
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns the time the session was created, used by collect to
// compute duration_ms.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// LogEvent appends a redacted event to events.jsonl and mirrors it to the
// console in real time. spec is the ComponentSpec of the step payload
// belongs to, if any (the zero value for step-less events such as
// cleanup_complete), and is consulted by the session's Redactor.
func (s *Session) LogEvent(kind model.EventKind, spec model.ComponentSpec, payload map[string]any) {
	ev := model.Event{
		TS:      time.Now().UTC(),
		Session: s.id,
		Event:   kind,
		Payload: s.redactPayload(spec, payload),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.eventsFile.Write(append(line, '\n'))
	s.console.Info().Fields(ev.Payload).Msg(string(kind))
}

// LogMetric appends a metric to metrics.jsonl. tags must include the step
// id for step-scoped metrics.
func (s *Session) LogMetric(name string, value float64, unit model.MetricUnit, tags map[string]string) {
	m := model.Metric{
		TS:      time.Now().UTC(),
		Session: s.id,
		Metric:  name,
		Value:   value,
		Unit:    unit,
		Tags:    tags,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(m)
	if err != nil {
		return
	}
	s.metricsFile.Write(append(line, '\n'))
}

// ArtifactPath returns the path a driver should write a named artifact
// to, creating parent directories as needed.
func (s *Session) ArtifactPath(logicalName string) (string, error) {
	path := filepath.Join(s.artifactsDir, logicalName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// ArtifactsDir returns the session's artifact tree root.
func (s *Session) ArtifactsDir() string { return s.artifactsDir }

// Fail records the run's fatal error. Only the first call has effect —
// a session fails for one reason.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fatalErr == nil {
		s.fatalErr = err
	}
}

// Err returns the session's fatal error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatalErr
}

// Close flushes and closes the session's writers. Safe to call exactly
// once, on every exit path (success, failure, or panic recovery).
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errEvents := s.eventsFile.Close()
	errMetrics := s.metricsFile.Close()
	if errEvents != nil {
		return errEvents
	}
	return errMetrics
}

func (s *Session) redactPayload(spec model.ComponentSpec, payload map[string]any) map[string]any {
	if s.redact == nil {
		return payload
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if str, ok := v.(string); ok {
			out[k] = s.redact(spec, k, str)
			continue
		}
		out[k] = v
	}
	return out
}
