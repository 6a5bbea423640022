// Package runtimeconfig resolves Osiris's process-wide settings —
// base_path, profile, AIOP export policy, remote timeouts — from the
// layered sources the CLI draws on: command flags, environment
// variables, an optional config file, then built-in defaults, in that
// precedence order. Grounded on the teacher's cmd/streamy/root.go
// persistent-flag idiom and its internal/plugin/config.go convention of
// reading plain os.Getenv overrides rather than a third-party config
// framework — the pack carries no viper/koanf dependency to draw on.
package runtimeconfig

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/osiris-data/osiris/internal/aiop"
	"gopkg.in/yaml.v3"
)

// Config is the fully resolved process configuration.
type Config struct {
	BasePath       string
	Profile        string
	AIOPPolicy     aiop.Policy
	RemoteTimeout  time.Duration
	HeartbeatEvery time.Duration
}

// Overrides carries values the CLI parsed from flags; a zero value
// means "not set on the command line" and lets a lower-precedence
// source win.
type Overrides struct {
	BasePath        string
	Profile         string
	AIOPMaxCoreByte int
	AIOPDensity     string
	AIOPMetricsTopK int
	AIOPFormat      string
	AIOPMode        string
	RemoteTimeout   time.Duration
}

// fileConfig is the shape of an optional YAML config file at
// <base_path>/osiris.yaml (or a path supplied via OSIRIS_CONFIG_FILE).
type fileConfig struct {
	BasePath string `yaml:"base_path"`
	Profile  string `yaml:"profile"`
	AIOP     struct {
		MaxCoreBytes    int    `yaml:"max_core_bytes"`
		TimelineDensity string `yaml:"timeline_density"`
		MetricsTopK     int    `yaml:"metrics_topk"`
		SchemaMode      string `yaml:"schema_mode"`
	} `yaml:"aiop"`
	RemoteTimeoutSeconds int `yaml:"remote_timeout_seconds"`
}

// Load resolves Config from overrides (flags), environment variables,
// an optional config file, then defaults — in descending precedence.
func Load(overrides Overrides) (Config, error) {
	cfg := defaults()

	if path := configFilePath(overrides); path != "" {
		if fc, ok, err := readFileConfig(path); err != nil {
			return Config{}, err
		} else if ok {
			applyFileConfig(&cfg, fc)
		}
	}

	applyEnv(&cfg)
	applyOverrides(&cfg, overrides)

	return cfg, nil
}

func defaults() Config {
	return Config{
		BasePath:       ".osiris",
		Profile:        "dev",
		AIOPPolicy:     aiop.DefaultPolicy(),
		RemoteTimeout:  30 * time.Second,
		HeartbeatEvery: 5 * time.Second,
	}
}

func configFilePath(overrides Overrides) string {
	if v := strings.TrimSpace(os.Getenv("OSIRIS_CONFIG_FILE")); v != "" {
		return v
	}
	base := overrides.BasePath
	if base == "" {
		base = ".osiris"
	}
	if _, err := os.Stat(base + "/osiris.yaml"); err == nil {
		return base + "/osiris.yaml"
	}
	return ""
}

func readFileConfig(path string) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fileConfig{}, false, nil
	}
	if err != nil {
		return fileConfig{}, false, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, false, err
	}
	return fc, true, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.BasePath != "" {
		cfg.BasePath = fc.BasePath
	}
	if fc.Profile != "" {
		cfg.Profile = fc.Profile
	}
	if fc.AIOP.MaxCoreBytes > 0 {
		cfg.AIOPPolicy.MaxCoreBytes = fc.AIOP.MaxCoreBytes
	}
	if fc.AIOP.TimelineDensity != "" {
		cfg.AIOPPolicy.TimelineDensity = aiop.Density(fc.AIOP.TimelineDensity)
	}
	if fc.AIOP.MetricsTopK > 0 {
		cfg.AIOPPolicy.MetricsTopK = fc.AIOP.MetricsTopK
	}
	if fc.AIOP.SchemaMode != "" {
		cfg.AIOPPolicy.SchemaMode = fc.AIOP.SchemaMode
	}
	if fc.RemoteTimeoutSeconds > 0 {
		cfg.RemoteTimeout = time.Duration(fc.RemoteTimeoutSeconds) * time.Second
	}
}

// applyEnv applies the OSIRIS_AIOP_* policy overrides and OSIRIS_BASE_PATH
// / OSIRIS_PROFILE, per spec's named environment variables.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OSIRIS_BASE_PATH")); v != "" {
		cfg.BasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("OSIRIS_PROFILE")); v != "" {
		cfg.Profile = v
	}
	if v := strings.TrimSpace(os.Getenv("OSIRIS_AIOP_MAX_CORE_BYTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AIOPPolicy.MaxCoreBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OSIRIS_AIOP_TIMELINE_DENSITY")); v != "" {
		cfg.AIOPPolicy.TimelineDensity = aiop.Density(v)
	}
	if v := strings.TrimSpace(os.Getenv("OSIRIS_AIOP_METRICS_TOPK")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AIOPPolicy.MetricsTopK = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OSIRIS_AIOP_SCHEMA_MODE")); v != "" {
		cfg.AIOPPolicy.SchemaMode = v
	}
	if v := strings.TrimSpace(os.Getenv("OSIRIS_AIOP_MODE")); v != "" {
		cfg.AIOPPolicy.Mode = aiop.Mode(v)
	}
}

func applyOverrides(cfg *Config, overrides Overrides) {
	if overrides.BasePath != "" {
		cfg.BasePath = overrides.BasePath
	}
	if overrides.Profile != "" {
		cfg.Profile = overrides.Profile
	}
	if overrides.AIOPMaxCoreByte > 0 {
		cfg.AIOPPolicy.MaxCoreBytes = overrides.AIOPMaxCoreByte
	}
	if overrides.AIOPDensity != "" {
		cfg.AIOPPolicy.TimelineDensity = aiop.Density(overrides.AIOPDensity)
	}
	if overrides.AIOPMetricsTopK > 0 {
		cfg.AIOPPolicy.MetricsTopK = overrides.AIOPMetricsTopK
	}
	if overrides.AIOPFormat != "" {
		cfg.AIOPPolicy.Format = overrides.AIOPFormat
	}
	if overrides.AIOPMode != "" {
		cfg.AIOPPolicy.Mode = aiop.Mode(overrides.AIOPMode)
	}
	if overrides.RemoteTimeout > 0 {
		cfg.RemoteTimeout = overrides.RemoteTimeout
	}
}
