package oml

import (
	"fmt"
	"sort"

	"github.com/osiris-data/osiris/internal/component"
	"github.com/osiris-data/osiris/internal/connection"
	"github.com/osiris-data/osiris/internal/dag"
	"github.com/osiris-data/osiris/internal/model"
	"github.com/osiris-data/osiris/internal/schema"
)

// Issue is one validation finding with a stable error code.
type Issue struct {
	Code    string
	Message string
}

// Result is the outcome of running the three-layer validator.
type Result struct {
	OK       bool
	Errors   []Issue
	Warnings []Issue
}

func (r *Result) fail(code, message string) {
	r.OK = false
	r.Errors = append(r.Errors, Issue{Code: code, Message: message})
}

func (r *Result) warn(code, message string) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: message})
}

// Validate runs all three layers in order, short-circuiting at the first
// layer that produces any error. It is pure: no network access, and the
// only environment reads happen inside the Connection Resolver it is
// handed, so it can run before any execution is scheduled.
func Validate(doc model.Document, reg *component.Registry, resolver *connection.Resolver) Result {
	result := Result{OK: true}

	validateStructural(doc, &result)
	if !result.OK {
		return result
	}

	validateSemantic(doc, reg, &result)
	if !result.OK {
		return result
	}

	validatePreRuntime(doc, reg, resolver, &result)
	return result
}

// --- L1 structural ---

func validateStructural(doc model.Document, result *Result) {
	for _, forbidden := range model.ForbiddenTopLevelKeys {
		if _, present := doc.Raw[forbidden]; present {
			result.fail("forbidden_top_level_key", fmt.Sprintf("forbidden_top_level_key=%s", forbidden))
		}
	}

	if doc.OMLVersion != model.RequiredOMLVersion {
		result.fail("unsupported_oml_version", fmt.Sprintf("oml_version must be %q, got %q", model.RequiredOMLVersion, doc.OMLVersion))
	}

	if len(doc.Steps) == 0 {
		result.fail("empty_steps", "steps must be non-empty")
	}

	seen := make(map[string]struct{}, len(doc.Steps))
	for i, step := range doc.Steps {
		if step.ID == "" {
			result.fail("missing_step_id", fmt.Sprintf("steps[%d].id is required", i))
			continue
		}
		if step.Component == "" {
			result.fail("missing_step_component", fmt.Sprintf("steps[%d].component is required", i))
		}
		switch step.Mode {
		case model.ModeRead, model.ModeWrite, model.ModeTransform:
		default:
			result.fail("invalid_step_mode", fmt.Sprintf("steps[%d].mode %q is invalid", i, step.Mode))
		}
		if _, dup := seen[step.ID]; dup {
			result.fail("duplicate_step_id", fmt.Sprintf("duplicate step id %q", step.ID))
		}
		seen[step.ID] = struct{}{}
	}
}

// --- L2 semantic ---

func validateSemantic(doc model.Document, reg *component.Registry, result *Result) {
	stepIDs := make(map[string]struct{}, len(doc.Steps))
	for _, step := range doc.Steps {
		stepIDs[step.ID] = struct{}{}
	}

	g := dag.New()
	for _, step := range doc.Steps {
		if _, err := g.AddNode(step.ID); err != nil {
			result.fail("duplicate_step_id", err.Error())
		}
	}

	for _, step := range doc.Steps {
		spec, err := reg.Get(step.Component)
		if err != nil {
			result.fail("unknown_component", fmt.Sprintf("step %q references unknown component %q", step.ID, step.Component))
			continue
		}
		if !spec.SupportsMode(step.Mode) {
			result.fail("unsupported_mode", fmt.Sprintf("component %q does not support mode %q", step.Component, step.Mode))
		}

		if step.Mode == model.ModeWrite {
			writeMode, _ := step.Config["write_mode"].(string)
			if writeMode == "replace" || writeMode == "upsert" {
				pk, _ := step.Config["primary_key"].([]any)
				if len(pk) == 0 {
					result.fail("upsert_requires_primary_key", "upsert_requires_primary_key")
				}
			}
		}

		if spec.Capabilities["requires_query_or_table"] {
			_, hasQuery := step.Config["query"]
			_, hasTable := step.Config["table"]
			if hasQuery == hasTable {
				result.fail("query_xor_table", fmt.Sprintf("step %q must set exactly one of query/table", step.ID))
			}
		}

		if spec.Capabilities["requires_path"] {
			p, _ := step.Config["path"].(string)
			if p == "" {
				result.fail("missing_path", fmt.Sprintf("step %q requires a non-empty path", step.ID))
			}
		}

		if connRef, ok := step.Config["connection"].(string); ok {
			if _, _, err := connection.ParseRef(connRef); err != nil {
				result.fail("malformed_connection_ref", err.Error())
			}
		}

		for _, need := range step.Needs {
			if _, ok := stepIDs[need]; !ok {
				result.fail("unresolved_need", fmt.Sprintf("step %q needs unknown step %q", step.ID, need))
				continue
			}
			if err := g.AddEdge(need, step.ID); err != nil {
				result.fail("unresolved_need", err.Error())
			}
		}
	}

	if result.OK {
		if err := g.TopologicalSort(); err != nil {
			result.fail("cyclic_dag", err.Error())
		}
	}
}

// --- L3 pre-runtime ---

func validatePreRuntime(doc model.Document, reg *component.Registry, resolver *connection.Resolver, result *Result) {
	for _, step := range doc.Steps {
		spec, err := reg.Get(step.Component)
		if err != nil {
			continue // already reported at L2
		}

		merged := mergedConfig(step, spec, resolver, result)
		if errs := schema.Validate(spec.ConfigSchema, model.FromNative(merged)); len(errs) > 0 {
			sort.Strings(errs)
			for _, e := range errs {
				result.fail("schema_violation", fmt.Sprintf("step %q: %s", step.ID, e))
			}
		}
	}
}

// mergedConfig resolves the step's connection (if any) and merges its
// fields under the step's own config, applying override policy via the
// resolver, to produce the value the component's JSON Schema validates.
func mergedConfig(step model.Step, spec model.ComponentSpec, resolver *connection.Resolver, result *Result) map[string]any {
	merged := make(map[string]any, len(step.Config))
	for k, v := range step.Config {
		merged[k] = v
	}

	connRef, ok := step.Config["connection"].(string)
	if !ok || resolver == nil {
		return merged
	}

	stepStrings := map[string]string{}
	for k, v := range step.Config {
		if s, ok := v.(string); ok {
			stepStrings[k] = s
		}
	}

	resolved, err := resolver.Resolve(connRef, stepStrings, spec)
	if err != nil {
		result.fail("connection_resolution_failed", fmt.Sprintf("step %q: %v", step.ID, err))
		return merged
	}
	for field := range resolved.Fields {
		if _, present := merged[field]; !present {
			merged[field] = resolved.Fields[field]
		}
	}
	return merged
}
