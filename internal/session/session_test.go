package session

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osiris-data/osiris/internal/model"
)

func TestLogEventRedactsSecretFieldsButPreservesPlaceholders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	redact := NewRedactor(func(spec model.ComponentSpec, field string) bool { return field == "password" })
	s, err := New(dir, redact)
	require.NoError(t, err)
	defer s.Close()

	s.LogEvent(model.EventStepStart, model.ComponentSpec{}, map[string]any{
		"step_id":  "extract_orders",
		"password": "hunter2",
		"host":     "${DB_HOST}",
	})

	lines := readLines(t, dir+"/events.jsonl")
	require.Len(t, lines, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	require.Equal(t, model.MaskedValue, decoded["password"])
	require.Equal(t, "${DB_HOST}", decoded["host"])
	require.Equal(t, "extract_orders", decoded["step_id"])
}

func TestLogEventConsultsPerStepComponentSpecForRedaction(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	redact := NewRedactor(func(spec model.ComponentSpec, field string) bool {
		for _, pointer := range spec.Secrets {
			if strings.TrimPrefix(pointer, "/") == field {
				return true
			}
		}
		return false
	})
	s, err := New(dir, redact)
	require.NoError(t, err)
	defer s.Close()

	spec := model.ComponentSpec{Secrets: []string{"/webhook_secret"}}
	s.LogEvent(model.EventStepStart, spec, map[string]any{
		"step_id":         "notify",
		"webhook_secret":  "topsecret",
		"unrelated_field": "fine",
	})

	lines := readLines(t, dir+"/events.jsonl")
	require.Len(t, lines, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	require.Equal(t, model.MaskedValue, decoded["webhook_secret"])
	require.Equal(t, "fine", decoded["unrelated_field"])
}

func TestLogMetricAppendsJSONLLine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	s.LogMetric(model.MetricRowsRead, 3, model.UnitRows, map[string]string{"step": "extract_orders"})

	lines := readLines(t, dir+"/metrics.jsonl")
	require.Len(t, lines, 1)

	var m model.Metric
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	require.Equal(t, float64(3), m.Value)
	require.Equal(t, model.UnitRows, m.Unit)
}

func TestArtifactPathCreatesParentDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	path, err := s.ArtifactPath("reports/out.csv")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("id\n1\n"), 0o644))
}

func TestFailOnlyRecordsFirstError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	s.Fail(errBoom("first"))
	s.Fail(errBoom("second"))

	require.EqualError(t, s.Err(), "first")
}

type errBoom string

func (e errBoom) Error() string { return string(e) }

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
