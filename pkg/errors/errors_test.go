package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("config.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "config.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "config.yaml")
}

func TestValidationErrorAggregatesFields(t *testing.T) {
	t.Parallel()

	err := NewValidationError("steps[1].depends_on", "references unknown step", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "steps[1].depends_on", validationErr.Field)
	require.Contains(t, validationErr.Message, "references unknown step")
}

func TestExecutionErrorIncludesStepContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("command failed")
	err := NewExecutionError("install_git", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "install_git", executionErr.StepID)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestPluginErrorIncludesPluginName(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("not supported")
	err := NewPluginError("command", underlying)

	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	require.Equal(t, "command", pluginErr.Plugin)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestRegistryErrorCarriesCodeAndComponent(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("duplicate entry")
	err := NewRegistryError("DuplicateComponent", "db.extractor", underlying)

	var registryErr *RegistryError
	require.ErrorAs(t, err, &registryErr)
	require.Equal(t, "DuplicateComponent", registryErr.Code)
	require.Equal(t, "db.extractor", registryErr.Component)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "db.extractor")
}

func TestConnectionErrorCarriesCodeAndRef(t *testing.T) {
	t.Parallel()

	err := NewConnectionError("ForbiddenOverride", "@postgres.main", "password", nil)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "ForbiddenOverride", connErr.Code)
	require.Equal(t, "password", connErr.Field)
	require.NotContains(t, err.Error(), "hacked")
}

func TestCompileErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("disk full")
	err := NewCompileError("IOError", underlying)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	require.Equal(t, "IOError", compileErr.Code)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestRemoteErrorCarriesStepID(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("heartbeat timeout")
	err := NewRemoteError("RemoteTimeout", "load_customers", underlying)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "load_customers", remoteErr.StepID)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestIndexErrorCarriesPath(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("colon in hash")
	err := NewIndexError("InvalidHashFormat", "/base/.osiris/index/runs.jsonl", underlying)

	var indexErr *IndexError
	require.ErrorAs(t, err, &indexErr)
	require.Equal(t, "InvalidHashFormat", indexErr.Code)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestAIOPErrorCarriesCode(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("core size exceeded")
	err := NewAIOPError("TruncationApplied", underlying)

	var aiopErr *AIOPError
	require.ErrorAs(t, err, &aiopErr)
	require.Equal(t, "TruncationApplied", aiopErr.Code)
	require.True(t, stdErrors.Is(err, underlying))
}
