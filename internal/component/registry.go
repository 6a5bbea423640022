// Package component implements the Component Registry: it loads component
// specifications from disk, recording each file's mtime, and validates
// them at three levels (basic/enhanced/strict). Recorded mtimes are not
// consulted: every load or refresh re-parses every spec file. It is grounded on the teacher's
// internal/registry.StatusCache (atomic, mutex-guarded in-memory state)
// and internal/plugin.PluginMetadata (struct-shaped validation).
package component

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/schema"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Level enumerates the three spec-validation strictness levels.
type Level string

const (
	LevelBasic    Level = "basic"
	LevelEnhanced Level = "enhanced"
	LevelStrict   Level = "strict"
)

type entry struct {
	spec    model.ComponentSpec
	modTime time.Time
	path    string
}

// Registry is the process-wide, read-only-after-load map of component
// name to ComponentSpec. Refresh re-reads every spec file but never
// drops a component that disappears mid-run.
type Registry struct {
	root string

	mu      sync.RWMutex
	entries map[string]*entry
}

// Load scans root for *.yaml component spec files and parses them into a
// new Registry. Duplicate component names across files are rejected.
func Load(root string) (*Registry, error) {
	r := &Registry{root: root, entries: make(map[string]*entry)}
	if err := r.scan(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) scan() error {
	paths, err := findSpecFiles(r.root)
	if err != nil {
		return streamyerrors.NewRegistryError("SpecParseError", "", fmt.Errorf("scanning %s: %w", r.root, err))
	}

	seen := make(map[string]*entry, len(paths))
	for _, path := range paths {
		spec, modTime, err := parseSpecFile(path)
		if err != nil {
			return err
		}
		if existing, ok := seen[spec.Name]; ok {
			return streamyerrors.NewRegistryError("DuplicateComponent", spec.Name,
				fmt.Errorf("declared in both %s and %s", existing.path, path))
		}
		seen[spec.Name] = &entry{spec: spec, modTime: modTime, path: path}
	}

	r.mu.Lock()
	for name, old := range r.entries {
		if _, ok := seen[name]; !ok {
			seen[name] = old
		}
	}
	r.entries = seen
	r.mu.Unlock()
	return nil
}

func findSpecFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func parseSpecFile(path string) (model.ComponentSpec, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.ComponentSpec{}, time.Time{}, streamyerrors.NewRegistryError("SpecParseError", "", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.ComponentSpec{}, time.Time{}, streamyerrors.NewRegistryError("SpecParseError", "", err)
	}

	var spec model.ComponentSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return model.ComponentSpec{}, time.Time{}, streamyerrors.NewRegistryError("SpecParseError", path, err)
	}
	spec.SourcePath = path

	return spec, info.ModTime(), nil
}

// Refresh rescans root and re-parses every spec file found there,
// whether or not its mtime has changed; recorded mtimes are not
// consulted. Newly added files are picked up; components whose files
// are gone keep their last loaded spec.
func (r *Registry) Refresh() error {
	return r.scan()
}

// Get looks up a component by name.
func (r *Registry) Get(name string) (model.ComponentSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return model.ComponentSpec{}, streamyerrors.NewRegistryError("UnknownComponent", name, fmt.Errorf("no component named %q", name))
	}
	return e.spec, nil
}

// Names returns every registered component name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks a component spec at the requested strictness level.
// basic: required fields + configSchema is present; the schema's own
// contents are not checked.
// enhanced: every example in the spec validates against configSchema.
// strict: x-connection-fields policy is complete and the bound driver
// name is non-empty.
func (r *Registry) Validate(spec model.ComponentSpec, level Level, knownDrivers func(string) bool) error {
	if strings.TrimSpace(spec.Name) == "" {
		return streamyerrors.NewRegistryError("SpecSchemaError", spec.Name, fmt.Errorf("name is required"))
	}
	if strings.TrimSpace(spec.Version) == "" {
		return streamyerrors.NewRegistryError("SpecSchemaError", spec.Name, fmt.Errorf("version is required"))
	}
	if len(spec.Modes) == 0 {
		return streamyerrors.NewRegistryError("SpecSchemaError", spec.Name, fmt.Errorf("at least one mode is required"))
	}
	if spec.ConfigSchema == nil {
		return streamyerrors.NewRegistryError("SpecSchemaError", spec.Name, fmt.Errorf("configSchema is required"))
	}

	if level == LevelBasic {
		return nil
	}

	if level == LevelEnhanced {
		examplesRaw, ok := spec.ConfigSchema["examples"].([]any)
		if ok {
			for i, ex := range examplesRaw {
				exMap, ok := ex.(map[string]any)
				if !ok {
					continue
				}
				if errs := schema.Validate(spec.ConfigSchema, model.FromNative(exMap)); len(errs) > 0 {
					return streamyerrors.NewRegistryError("SpecSchemaError", spec.Name,
						fmt.Errorf("example %d invalid: %s", i, strings.Join(errs, "; ")))
				}
			}
		}
		return nil
	}

	// strict
	for _, field := range spec.ConnectionFields {
		if field.Override == "" {
			return streamyerrors.NewRegistryError("SpecSchemaError", spec.Name,
				fmt.Errorf("connection field %q has no override policy", field.Name))
		}
	}
	if strings.TrimSpace(spec.Runtime.Driver) == "" {
		return streamyerrors.NewRegistryError("SpecSchemaError", spec.Name, fmt.Errorf("x-runtime.driver is required"))
	}
	if knownDrivers != nil && !knownDrivers(spec.Runtime.Driver) {
		return streamyerrors.NewRegistryError("UnknownDriver", spec.Runtime.Driver,
			fmt.Errorf("component %q binds to unregistered driver %q", spec.Name, spec.Runtime.Driver))
	}
	return nil
}
