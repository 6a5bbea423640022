package builtins

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osiris-data/osiris/internal/driver"
	"github.com/osiris-data/osiris/internal/model"
)

func TestCSVWriterProducesExactByteContract(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/out.csv"
	table := model.NewTable([]map[string]any{{"id": int64(1)}, {"id": int64(2)}, {"id": int64(3)}})

	w := CSVWriter{}
	resp, err := w.Run(context.Background(), driver.Request{
		StepID: "load",
		Config: model.Map(map[string]model.Value{"path": model.String(path)}),
		Inputs: model.Inputs{"df": table},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), resp.RowsMoved)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "id\n1\n2\n3\n", string(data))
}

func TestCSVExtractorRoundTripsWrittenFile(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/in.csv"
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,alice\n2,bob\n"), 0o644))

	e := CSVExtractor{}
	resp, err := e.Run(context.Background(), driver.Request{
		StepID: "extract",
		Config: model.Map(map[string]model.Value{"path": model.String(path)}),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), resp.RowsMoved)
	require.Equal(t, int64(1), resp.Outputs["df"].Rows[0]["id"])
	require.Equal(t, "alice", resp.Outputs["df"].Rows[0]["name"])
}

func TestCSVWriterRejectsMissingPath(t *testing.T) {
	t.Parallel()

	w := CSVWriter{}
	_, err := w.Run(context.Background(), driver.Request{
		StepID: "load",
		Config: model.Map(nil),
		Inputs: model.Inputs{},
	})
	require.Error(t, err)
}
