// Package compiler implements the deterministic OML -> Manifest
// transformation: topological step ordering (ties broken by authored
// order), canonical per-step config materialization, canonical manifest
// serialization, and content hashing. Step ordering reuses the shared
// dag package (itself adapted from the teacher's internal/engine.Graph
// Kahn's-algorithm implementation); hashing and canonicalization are new,
// since no pack library implements this narrow algorithm.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/osiris-data/osiris/internal/component"
	"github.com/osiris-data/osiris/internal/dag"
	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// metaOnlyFields are config keys that describe the step to a human but
// carry no runtime meaning, dropped before canonicalization.
var metaOnlyFields = map[string]struct{}{
	"description": {},
	"notes":       {},
}

// Result is the pure output of Compile: the manifest and the canonical
// per-step config bytes keyed by step id, neither of which has been
// written to disk yet.
type Result struct {
	Manifest Manifest
	Configs  map[string][]byte
}

// Manifest is a type alias kept local to avoid importing model twice in
// call sites that only need the compiled shape.
type Manifest = model.Manifest

// Compile transforms a validated OML document into a deterministic
// Manifest. Callers must run oml.Validate first — Compile does not
// re-validate semantics, only structural invariants needed for ordering.
func Compile(doc model.Document, reg *component.Registry) (Result, error) {
	order, err := stepOrder(doc)
	if err != nil {
		return Result{}, streamyerrors.NewCompileError("CanonicalizationError", err)
	}

	byID := make(map[string]model.Step, len(doc.Steps))
	for _, step := range doc.Steps {
		byID[step.ID] = step
	}

	manifest := model.Manifest{
		Pipeline: model.Pipeline{ID: slug(doc.Name), Name: doc.Name},
	}
	configs := make(map[string][]byte, len(doc.Steps))

	for _, id := range order {
		step := byID[id]
		spec, err := reg.Get(step.Component)
		if err != nil {
			return Result{}, streamyerrors.NewCompileError("RegistryLookupFailed", err)
		}

		canonical := canonicalizeConfig(step, spec)
		configBytes, err := CanonicalYAML(model.FromNative(canonical))
		if err != nil {
			return Result{}, streamyerrors.NewCompileError("IOError", err)
		}
		configs[id] = configBytes

		connRef, _ := step.Config["connection"].(string)
		manifest.Steps = append(manifest.Steps, model.ManifestStep{
			ID:         step.ID,
			Component:  step.Component,
			Mode:       step.Mode,
			ConfigRef:  fmt.Sprintf("steps/%s.yaml", step.ID),
			Needs:      append([]string(nil), step.Needs...),
			Connection: connRef,
		})
	}

	hash, err := hashManifest(manifest)
	if err != nil {
		return Result{}, streamyerrors.NewCompileError("CanonicalizationError", err)
	}

	manifest.Meta = model.ManifestMeta{
		ManifestHash:  hash,
		ManifestShort: hash[:7],
		GeneratedAt:   time.Now().UTC(),
	}

	return Result{Manifest: manifest, Configs: configs}, nil
}

// stepOrder computes the topological order of doc.Steps (by needs
// edges), breaking ties by authored order.
func stepOrder(doc model.Document) ([]string, error) {
	g := dag.New()
	authored := make([]string, 0, len(doc.Steps))
	for _, step := range doc.Steps {
		if _, err := g.AddNode(step.ID); err != nil {
			return nil, err
		}
		authored = append(authored, step.ID)
	}
	for _, step := range doc.Steps {
		for _, need := range step.Needs {
			if err := g.AddEdge(need, step.ID); err != nil {
				return nil, err
			}
		}
	}
	return g.StableOrder(authored)
}

// canonicalizeConfig produces the canonical config map for a step: fields
// sorted lexicographically (enforced at serialization time), the
// connection reference collapsed to its symbolic form, meta-only fields
// dropped, and component-spec defaults materialized where the step did
// not already supply a value.
func canonicalizeConfig(step model.Step, spec model.ComponentSpec) map[string]any {
	out := make(map[string]any, len(step.Config))
	for k, v := range step.Config {
		if _, meta := metaOnlyFields[k]; meta {
			continue
		}
		out[k] = v
	}

	props, _ := spec.ConfigSchema["properties"].(map[string]any)
	for field, rawSchema := range props {
		if _, present := out[field]; present {
			continue
		}
		fieldSchema, ok := rawSchema.(map[string]any)
		if !ok {
			continue
		}
		if def, ok := fieldSchema["default"]; ok {
			out[field] = def
		}
	}

	return out
}

// hashManifest computes manifest_hash: the pure hex SHA-256 of the
// canonical manifest bytes with meta.manifest_hash itself elided. This
// is the only way the hash is ever computed.
func hashManifest(m model.Manifest) (string, error) {
	elided := m
	elided.Meta.ManifestHash = ""
	elided.Meta.ManifestShort = ""

	bytesForHash, err := MarshalCanonical(elided)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(bytesForHash)
	return hex.EncodeToString(sum[:]), nil
}

// Write persists a compiled Result under layout's build tree for the given
// profile, and records the build as the pipeline's latest compiled
// manifest. Writing is not atomic across the whole build directory — a
// crash mid-write leaves a partial build directory at the path derived
// from manifestShort and manifestHash. The same OML compiles to the same
// hash, so a retry writes into that same directory and overwrites its
// files.
func Write(layout fscontract.Layout, profile string, result Result) error {
	slugID := result.Manifest.Pipeline.ID
	short := result.Manifest.Meta.ManifestShort
	hash := result.Manifest.Meta.ManifestHash

	buildDir := layout.BuildDir(profile, slugID, short, hash)
	if err := os.MkdirAll(filepath.Join(buildDir, "steps"), 0o755); err != nil {
		return streamyerrors.NewCompileError("IOError", err)
	}

	manifestBytes, err := MarshalCanonical(result.Manifest)
	if err != nil {
		return streamyerrors.NewCompileError("CanonicalizationError", err)
	}
	if err := os.WriteFile(layout.ManifestPath(profile, slugID, short, hash), manifestBytes, 0o644); err != nil {
		return streamyerrors.NewCompileError("IOError", err)
	}

	for stepID, configBytes := range result.Configs {
		path := layout.StepConfigPath(profile, slugID, short, hash, stepID)
		if err := os.WriteFile(path, configBytes, 0o644); err != nil {
			return streamyerrors.NewCompileError("IOError", err)
		}
	}

	if err := fscontract.WriteLatestPointer(layout, slugID, short, hash); err != nil {
		return streamyerrors.NewCompileError("IOError", err)
	}

	return nil
}

func slug(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '_':
			out = append(out, '-')
		case r == '-':
			out = append(out, r)
		}
	}
	return string(out)
}
