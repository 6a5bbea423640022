package component

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

const dbExtractorSpec = `
name: db.extractor
version: 1.0.0
modes: [read]
configSchema:
  type: object
  required: [table]
  properties:
    table: {type: string}
x-connection-fields:
  - name: password
    override: forbidden
x-runtime:
  driver: db.extractor
`

const csvWriterSpec = `
name: csv.writer
version: 1.0.0
modes: [write]
configSchema:
  type: object
  required: [path]
  properties:
    path: {type: string}
x-runtime:
  driver: csv.writer
`

func writeSpec(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadScansAndIndexesSpecs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSpec(t, dir, "db.yaml", dbExtractorSpec)
	writeSpec(t, dir, "csv.yaml", csvWriterSpec)

	reg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"csv.writer", "db.extractor"}, reg.Names())

	spec, err := reg.Get("db.extractor")
	require.NoError(t, err)
	require.True(t, spec.SupportsMode("read"))
	require.False(t, spec.SupportsMode("write"))
}

func TestLoadRejectsDuplicateComponentNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSpec(t, dir, "a.yaml", dbExtractorSpec)
	writeSpec(t, dir, "b.yaml", dbExtractorSpec)

	_, err := Load(dir)
	require.Error(t, err)

	var regErr *streamyerrors.RegistryError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, "DuplicateComponent", regErr.Code)
}

func TestGetUnknownComponentReturnsTypedError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSpec(t, dir, "db.yaml", dbExtractorSpec)

	reg, err := Load(dir)
	require.NoError(t, err)

	_, err = reg.Get("does.not.exist")
	var regErr *streamyerrors.RegistryError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, "UnknownComponent", regErr.Code)
}

func TestValidateStrictRequiresDriverBinding(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSpec(t, dir, "db.yaml", dbExtractorSpec)
	reg, err := Load(dir)
	require.NoError(t, err)

	spec, err := reg.Get("db.extractor")
	require.NoError(t, err)

	require.NoError(t, reg.Validate(spec, LevelBasic, nil))
	require.NoError(t, reg.Validate(spec, LevelStrict, func(name string) bool { return name == "db.extractor" }))

	err = reg.Validate(spec, LevelStrict, func(string) bool { return false })
	var regErr *streamyerrors.RegistryError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, "UnknownDriver", regErr.Code)
}

func TestRefreshPicksUpNewlyAddedSpec(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSpec(t, dir, "db.yaml", dbExtractorSpec)

	reg, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, reg.Names(), 1)

	writeSpec(t, dir, "csv.yaml", csvWriterSpec)
	require.NoError(t, reg.Refresh())
	require.Len(t, reg.Names(), 2)
}
