// Package osirislog is the process-wide structured logger: CLI
// diagnostics, compiler/registry errors, and anything emitted before or
// outside a run's own session (internal/session owns per-run
// events.jsonl/metrics.jsonl telemetry; this package never writes
// there). Built on zerolog, the same logging library the per-run
// session console sink uses, mirroring the teacher's logging adapter
// shape (Options, level parsing, field merging, a With that derives a
// child logger) without the charmbracelet/log dependency that backed
// the teacher's own TUI-oriented logger.
package osirislog

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Options configures a Logger at construction time.
type Options struct {
	Writer        io.Writer
	Level         string // trace|debug|info|warn|error|fatal|panic
	HumanReadable bool
	Component     string
	Fields        map[string]any
}

// Logger wraps a zerolog.Logger with the component/fields conventions
// used across Osiris's CLI and compiler diagnostics.
type Logger struct {
	zl zerolog.Logger
}

// New constructs a Logger from opts. An empty Level defaults to info.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	if opts.HumanReadable {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	ctx := zerolog.New(writer).Level(level).With().Timestamp()
	if opts.Component != "" {
		ctx = ctx.Str("component", opts.Component)
	}
	for _, k := range sortedKeys(opts.Fields) {
		ctx = ctx.Interface(k, opts.Fields[k])
	}

	return &Logger{zl: ctx.Logger()}, nil
}

// With derives a child Logger carrying the supplied fields in addition
// to any already attached to l.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	ctx := l.zl.With()
	for _, k := range sortedKeys(fields) {
		ctx = ctx.Interface(k, fields[k])
	}
	return &Logger{zl: ctx.Logger()}
}

// Debug emits a debug-level entry.
func (l *Logger) Debug(msg string, fields map[string]any) { l.log(zerolog.DebugLevel, msg, fields) }

// Info emits an info-level entry.
func (l *Logger) Info(msg string, fields map[string]any) { l.log(zerolog.InfoLevel, msg, fields) }

// Warn emits a warning-level entry.
func (l *Logger) Warn(msg string, fields map[string]any) { l.log(zerolog.WarnLevel, msg, fields) }

// Error emits an error-level entry, attaching err under the "error" key
// when non-nil.
func (l *Logger) Error(err error, msg string, fields map[string]any) {
	if l == nil {
		return
	}
	ev := l.zl.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	for _, k := range sortedKeys(fields) {
		ev = ev.Interface(k, fields[k])
	}
	ev.Msg(msg)
}

func (l *Logger) log(level zerolog.Level, msg string, fields map[string]any) {
	if l == nil {
		return
	}
	ev := l.zl.WithLevel(level)
	for _, k := range sortedKeys(fields) {
		ev = ev.Interface(k, fields[k])
	}
	ev.Msg(msg)
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
