package localrun

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osiris-data/osiris/internal/component"
	"github.com/osiris-data/osiris/internal/connection"
	"github.com/osiris-data/osiris/internal/driver"
	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/session"
)

const extractorSpecYAML = `
name: db.extractor
version: 1.0.0
modes: [read]
configSchema: {type: object}
x-runtime: {driver: fixture.extractor}
`

const writerSpecYAML = `
name: csv.writer
version: 1.0.0
modes: [write]
configSchema: {type: object}
x-runtime: {driver: fixture.writer}
`

type fixtureExtractor struct{}

func (fixtureExtractor) Name() string { return "fixture.extractor" }
func (fixtureExtractor) Run(ctx context.Context, req driver.Request) (driver.Response, error) {
	rows := []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}}
	return driver.Response{
		Outputs:   model.Outputs{"df": model.NewTable(rows)},
		RowsMoved: int64(len(rows)),
	}, nil
}

type fixtureWriter struct{}

func (fixtureWriter) Name() string { return "fixture.writer" }
func (fixtureWriter) Run(ctx context.Context, req driver.Request) (driver.Response, error) {
	table := req.Inputs["df"]
	return driver.Response{RowsMoved: int64(table.RowCount())}, nil
}

func newFixtureRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/extractor.yaml", []byte(extractorSpecYAML), 0o644))
	require.NoError(t, os.WriteFile(dir+"/writer.yaml", []byte(writerSpecYAML), 0o644))
	reg, err := component.Load(dir)
	require.NoError(t, err)

	drivers := driver.NewRegistry()
	drivers.Register(fixtureExtractor{})
	drivers.Register(fixtureWriter{})

	resolver, err := connection.Load(writeEmptyConnections(t))
	require.NoError(t, err)

	return New(reg, drivers, resolver), dir
}

func writeEmptyConnections(t *testing.T) string {
	t.Helper()
	path := t.TempDir() + "/connections.yaml"
	require.NoError(t, os.WriteFile(path, []byte("connections: {}\n"), 0o644))
	return path
}

func TestRunExecutesStepsAndProducesWriterAuthoritativeTotal(t *testing.T) {
	t.Parallel()

	runner, _ := newFixtureRunner(t)

	buildDir := t.TempDir()
	require.NoError(t, os.MkdirAll(buildDir+"/steps", 0o755))
	require.NoError(t, os.WriteFile(buildDir+"/steps/extract_orders.yaml", []byte("table: orders\n"), 0o644))
	require.NoError(t, os.WriteFile(buildDir+"/steps/write_orders.yaml", []byte("path: out.csv\n"), 0o644))

	manifest := model.Manifest{
		Steps: []model.ManifestStep{
			{ID: "write_orders", Component: "csv.writer", Mode: model.ModeWrite, Needs: []string{"extract_orders"}},
			{ID: "extract_orders", Component: "db.extractor", Mode: model.ModeRead},
		},
	}

	sessDir := t.TempDir()
	sess, err := session.New(sessDir, nil)
	require.NoError(t, err)
	defer sess.Close()

	summary := runner.Run(context.Background(), manifest, buildDir, sess)

	require.Equal(t, model.RunCompleted, summary.Status)
	require.Equal(t, int64(3), summary.TotalRows)
	require.Len(t, summary.StepResults, 2)
}

func TestRunFailsFastOnDriverError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/extractor.yaml", []byte(extractorSpecYAML), 0o644))
	reg, err := component.Load(dir)
	require.NoError(t, err)

	drivers := driver.NewRegistry()
	resolver, err := connection.Load(writeEmptyConnections(t))
	require.NoError(t, err)
	runner := New(reg, drivers, resolver)

	buildDir := t.TempDir()
	require.NoError(t, os.MkdirAll(buildDir+"/steps", 0o755))
	require.NoError(t, os.WriteFile(buildDir+"/steps/extract_orders.yaml", []byte("table: orders\n"), 0o644))

	manifest := model.Manifest{
		Steps: []model.ManifestStep{{ID: "extract_orders", Component: "db.extractor", Mode: model.ModeRead}},
	}

	sessDir := t.TempDir()
	sess, err := session.New(sessDir, nil)
	require.NoError(t, err)
	defer sess.Close()

	summary := runner.Run(context.Background(), manifest, buildDir, sess)
	require.Equal(t, model.RunFailed, summary.Status)
	require.Error(t, sess.Err())
}
