// Package schema validates model.Value config trees against the bounded
// subset of JSON Schema 2020-12 the component config contract actually
// uses: type, required, enum, and nested object properties. Vendoring a
// full draft 2020-12 validator was considered and rejected (see DESIGN.md)
// — this is a named, bounded simplification, not a silent one.
package schema

import (
	"fmt"
	"sort"

	"github.com/osiris-data/osiris/internal/model"
)

// Validate checks value against schema, returning every violation found
// (not just the first) so callers can report them all at once.
func Validate(schema map[string]any, value model.Value) []string {
	var errs []string
	validateNode(schema, value, "$", &errs)
	sort.Strings(errs)
	return errs
}

func validateNode(schemaNode map[string]any, value model.Value, path string, errs *[]string) {
	if schemaNode == nil {
		return
	}

	if t, ok := schemaNode["type"].(string); ok {
		if !typeMatches(t, value) {
			*errs = append(*errs, fmt.Sprintf("%s: expected type %q, got %s", path, t, kindName(value.Kind())))
			return
		}
	}

	if enum, ok := schemaNode["enum"].([]any); ok {
		if !enumContains(enum, value) {
			*errs = append(*errs, fmt.Sprintf("%s: value not in enum", path))
		}
	}

	if value.Kind() != model.KindMap {
		return
	}

	required, _ := schemaNode["required"].([]any)
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := value.Get(name); !present {
			*errs = append(*errs, fmt.Sprintf("%s: missing required field %q", path, name))
		}
	}

	props, _ := schemaNode["properties"].(map[string]any)
	for name, propSchemaRaw := range props {
		propSchema, ok := propSchemaRaw.(map[string]any)
		if !ok {
			continue
		}
		propValue, present := value.Get(name)
		if !present {
			continue
		}
		validateNode(propSchema, propValue, fmt.Sprintf("%s.%s", path, name), errs)
	}
}

func typeMatches(t string, v model.Value) bool {
	switch t {
	case "null":
		return v.Kind() == model.KindNull
	case "boolean":
		return v.Kind() == model.KindBool
	case "integer":
		return v.Kind() == model.KindInt
	case "number":
		return v.Kind() == model.KindInt || v.Kind() == model.KindFloat
	case "string":
		return v.Kind() == model.KindString
	case "array":
		return v.Kind() == model.KindList
	case "object":
		return v.Kind() == model.KindMap
	default:
		return true
	}
}

func enumContains(enum []any, v model.Value) bool {
	native := v.ToNative()
	for _, candidate := range enum {
		if fmt.Sprint(candidate) == fmt.Sprint(native) {
			return true
		}
	}
	return false
}

func kindName(k model.Kind) string {
	switch k {
	case model.KindNull:
		return "null"
	case model.KindBool:
		return "boolean"
	case model.KindInt:
		return "integer"
	case model.KindFloat:
		return "number"
	case model.KindString:
		return "string"
	case model.KindList:
		return "array"
	case model.KindMap:
		return "object"
	default:
		return "unknown"
	}
}
