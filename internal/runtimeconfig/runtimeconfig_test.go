package runtimeconfig

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osiris-data/osiris/internal/aiop"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OSIRIS_CONFIG_FILE", "OSIRIS_BASE_PATH", "OSIRIS_PROFILE",
		"OSIRIS_AIOP_MAX_CORE_BYTES", "OSIRIS_AIOP_TIMELINE_DENSITY",
		"OSIRIS_AIOP_METRICS_TOPK", "OSIRIS_AIOP_SCHEMA_MODE",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	require.Equal(t, ".osiris", cfg.BasePath)
	require.Equal(t, "dev", cfg.Profile)
	require.Equal(t, aiop.DefaultPolicy(), cfg.AIOPPolicy)
}

func TestEnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OSIRIS_BASE_PATH", "/var/osiris")
	t.Setenv("OSIRIS_AIOP_MAX_CORE_BYTES", "2048")
	t.Setenv("OSIRIS_AIOP_TIMELINE_DENSITY", "verbose")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	require.Equal(t, "/var/osiris", cfg.BasePath)
	require.Equal(t, 2048, cfg.AIOPPolicy.MaxCoreBytes)
	require.Equal(t, aiop.DensityVerbose, cfg.AIOPPolicy.TimelineDensity)
}

func TestFlagOverridesWinOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OSIRIS_BASE_PATH", "/var/osiris")

	cfg, err := Load(Overrides{BasePath: "/tmp/custom", RemoteTimeout: 10 * time.Second})
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom", cfg.BasePath)
	require.Equal(t, 10*time.Second, cfg.RemoteTimeout)
}

func TestConfigFileIsLowestPrecedenceAboveDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/osiris.yaml", []byte("profile: staging\n"), 0o644))
	t.Setenv("OSIRIS_CONFIG_FILE", dir+"/osiris.yaml")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Profile)
}
