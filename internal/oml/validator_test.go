package oml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osiris-data/osiris/internal/component"
	"github.com/osiris-data/osiris/internal/model"
)

const extractorSpecYAML = `
name: db.extractor
version: 1.0.0
modes: [read]
capabilities:
  requires_query_or_table: true
configSchema:
  type: object
  properties:
    table: {type: string}
x-runtime:
  driver: db.extractor
`

const writerSpecYAML = `
name: csv.writer
version: 1.0.0
modes: [write]
capabilities:
  requires_path: true
configSchema:
  type: object
  required: [path]
  properties:
    path: {type: string}
x-runtime:
  driver: csv.writer
`

func newRegistry(t *testing.T) *component.Registry {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extractor.yaml"), []byte(extractorSpecYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "writer.yaml"), []byte(writerSpecYAML), 0o644))
	reg, err := component.Load(dir)
	require.NoError(t, err)
	return reg
}

func validDoc() model.Document {
	return model.Document{
		OMLVersion: model.RequiredOMLVersion,
		Name:       "demo",
		Raw: map[string]any{
			"oml_version": model.RequiredOMLVersion,
			"name":        "demo",
			"steps":       []any{},
		},
		Steps: []model.Step{
			{ID: "extract", Component: "db.extractor", Mode: model.ModeRead, Config: map[string]any{"table": "customers"}},
			{ID: "write", Component: "csv.writer", Mode: model.ModeWrite, Needs: []string{"extract"}, Config: map[string]any{"path": "out.csv"}},
		},
	}
}

func TestValidateHappyPath(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	result := Validate(validDoc(), reg, nil)
	require.True(t, result.OK, "%+v", result.Errors)
}

func TestValidateRejectsForbiddenTopLevelKey(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	doc.Raw["version"] = "0.1.0"

	reg := newRegistry(t)
	result := Validate(doc, reg, nil)
	require.False(t, result.OK)
	require.Equal(t, "forbidden_top_level_key", result.Errors[0].Code)
}

func TestValidateRejectsUpsertWithoutPrimaryKey(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	doc.Steps[1].Config["write_mode"] = "upsert"

	reg := newRegistry(t)
	result := Validate(doc, reg, nil)
	require.False(t, result.OK)

	var found bool
	for _, e := range result.Errors {
		if e.Code == "upsert_requires_primary_key" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateRejectsNeitherQueryNorTableSet(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	doc.Steps[0].Config = map[string]any{}

	reg := newRegistry(t)
	result := Validate(doc, reg, nil)
	require.False(t, result.OK)

	var found bool
	for _, e := range result.Errors {
		if e.Code == "query_xor_table" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateDetectsCyclicNeeds(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	doc.Steps[0].Needs = []string{"write"}

	reg := newRegistry(t)
	result := Validate(doc, reg, nil)
	require.False(t, result.OK)
}

func TestValidateRejectsUnknownComponent(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	doc.Steps[0].Component = "does.not.exist"

	reg := newRegistry(t)
	result := Validate(doc, reg, nil)
	require.False(t, result.OK)
	require.Equal(t, "unknown_component", result.Errors[0].Code)
}
