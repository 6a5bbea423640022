package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromNativeRoundTripsMap(t *testing.T) {
	t.Parallel()

	native := map[string]any{
		"table":   "customers",
		"limit":   5,
		"enabled": true,
		"tags":    []any{"a", "b"},
	}

	v := FromNative(native)
	require.Equal(t, KindMap, v.Kind())

	back := v.ToNative().(map[string]any)
	require.Equal(t, "customers", back["table"])
	require.Equal(t, int64(5), back["limit"])
	require.Equal(t, true, back["enabled"])
	require.Equal(t, []any{"a", "b"}, back["tags"])
}

func TestValueGetResolvesDottedPath(t *testing.T) {
	t.Parallel()

	v := FromNative(map[string]any{
		"connection": map[string]any{
			"family": "postgres",
		},
	})

	got, ok := v.Get("connection.family")
	require.True(t, ok)
	require.Equal(t, "postgres", got.Str())

	_, ok = v.Get("connection.missing")
	require.False(t, ok)
}

func TestValueSortedKeysAreLexicographic(t *testing.T) {
	t.Parallel()

	v := Map(map[string]Value{
		"zebra": String("z"),
		"alpha": String("a"),
		"mid":   String("m"),
	})

	require.Equal(t, []string{"alpha", "mid", "zebra"}, v.SortedKeys())
}

func TestTableSortedColumnsDoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]map[string]any{
		{"id": 1, "name": "a"},
	})
	tbl.Columns = []string{"name", "id"}

	sorted := tbl.SortedColumns()
	require.Equal(t, []string{"id", "name"}, sorted)
	require.Equal(t, []string{"name", "id"}, tbl.Columns)
}

func TestResolvedConnectionRedactsSecretsButPreservesPlaceholders(t *testing.T) {
	t.Parallel()

	rc := ResolvedConnection{
		Family: "postgres",
		Alias:  "main",
		Fields: map[string]string{
			"password": "hunter2",
			"host":     "${DB_HOST}",
			"user":     "app",
		},
	}

	redacted := rc.Redacted(func(field string) bool { return field == "password" })
	require.Equal(t, MaskedValue, redacted.Fields["password"])
	require.Equal(t, "${DB_HOST}", redacted.Fields["host"])
	require.Equal(t, "app", redacted.Fields["user"])
}
