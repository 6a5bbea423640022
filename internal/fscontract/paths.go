// Package fscontract owns the content-addressed filesystem layout and the
// run index: path derivation, manifest-hash normalization, and atomic
// JSONL append/read for the global, per-pipeline, and per-manifest run
// indexes. Grounded on the teacher's internal/registry.StatusCache
// (write-temp-then-atomic-rename persistence); cross-process advisory
// locking is added via golang.org/x/sys/unix.Flock since no pack library
// wraps flock at a higher level.
package fscontract

import (
	"path/filepath"
	"strings"
)

// Layout derives every path the core reads or writes, rooted at an
// absolute base_path. Every method is a pure function of its arguments —
// no timestamps or process state leak into a path.
type Layout struct {
	BasePath string
}

// NewLayout constructs a Layout rooted at basePath.
func NewLayout(basePath string) Layout {
	return Layout{BasePath: basePath}
}

// BuildDir is the directory holding one compiled manifest and its
// materialized per-step configs.
func (l Layout) BuildDir(profile, slug, manifestShort, manifestHash string) string {
	return filepath.Join(l.BasePath, "build", "pipelines", profile, slug, manifestShort+"-"+manifestHash)
}

// ManifestPath is the canonical manifest file for a build.
func (l Layout) ManifestPath(profile, slug, manifestShort, manifestHash string) string {
	return filepath.Join(l.BuildDir(profile, slug, manifestShort, manifestHash), "manifest.yaml")
}

// StepConfigPath is the materialized config file for one step of a build.
func (l Layout) StepConfigPath(profile, slug, manifestShort, manifestHash, stepID string) string {
	return filepath.Join(l.BuildDir(profile, slug, manifestShort, manifestHash), "steps", stepID+".yaml")
}

// IndexDir is the root of the run index tree.
func (l Layout) IndexDir() string {
	return filepath.Join(l.BasePath, ".osiris", "index")
}

// GlobalIndexPath is the global run index.
func (l Layout) GlobalIndexPath() string {
	return filepath.Join(l.IndexDir(), "runs.jsonl")
}

// PipelineIndexPath is the per-pipeline run index.
func (l Layout) PipelineIndexPath(slug string) string {
	return filepath.Join(l.IndexDir(), "by_pipeline", slug+".jsonl")
}

// ManifestIndexPath is the per-manifest run index, keyed by pure-hex hash.
func (l Layout) ManifestIndexPath(manifestHash string) string {
	return filepath.Join(l.IndexDir(), "by_manifest", manifestHash+".jsonl")
}

// LatestPointerPath stores the most recently compiled manifest pointer
// for a pipeline.
func (l Layout) LatestPointerPath(slug string) string {
	return filepath.Join(l.IndexDir(), "latest", slug+".txt")
}

// SessionDir is the root of one run's telemetry and artifacts.
func (l Layout) SessionDir(sessionID string) string {
	return filepath.Join(l.BasePath, "logs", sessionID)
}

// EventsPath is a session's events.jsonl.
func (l Layout) EventsPath(sessionID string) string {
	return filepath.Join(l.SessionDir(sessionID), "events.jsonl")
}

// MetricsPath is a session's metrics.jsonl.
func (l Layout) MetricsPath(sessionID string) string {
	return filepath.Join(l.SessionDir(sessionID), "metrics.jsonl")
}

// ArtifactsDir is a session's artifact tree root.
func (l Layout) ArtifactsDir(sessionID string) string {
	return filepath.Join(l.SessionDir(sessionID), "artifacts")
}

// AIOPDir is the export directory for one run of one build.
func (l Layout) AIOPDir(profile, slug, manifestShort, manifestHash, runID string) string {
	return filepath.Join(l.BasePath, "aiop", profile, slug, manifestShort+"-"+manifestHash, runID)
}

// AIOPSummaryPath is the summary.json of an AIOP export.
func (l Layout) AIOPSummaryPath(profile, slug, manifestShort, manifestHash, runID string) string {
	return filepath.Join(l.AIOPDir(profile, slug, manifestShort, manifestHash, runID), "summary.json")
}

// AIOPRunCardPath is the run-card.md of an AIOP export.
func (l Layout) AIOPRunCardPath(profile, slug, manifestShort, manifestHash, runID string) string {
	return filepath.Join(l.AIOPDir(profile, slug, manifestShort, manifestHash, runID), "run-card.md")
}

// AIOPAnnexDir is the annex shard directory of an AIOP export.
func (l Layout) AIOPAnnexDir(profile, slug, manifestShort, manifestHash, runID string) string {
	return filepath.Join(l.AIOPDir(profile, slug, manifestShort, manifestHash, runID), "annex")
}

// NormalizeManifestHash strips any "algorithm:" prefix (e.g. "sha256:")
// and returns the pure hex remainder. Idempotent: normalizing an
// already-normalized hash is a no-op.
func NormalizeManifestHash(s string) string {
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
