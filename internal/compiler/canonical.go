package compiler

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/osiris-data/osiris/internal/model"
)

// valueToNode converts a model.Value into a yaml.Node tree with map keys
// in lexicographic order, so the resulting document's key order is a
// pure function of the value rather than of map iteration order or the
// marshaler's internal map-sorting heuristics.
func valueToNode(v model.Value) *yaml.Node {
	switch v.Kind() {
	case model.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case model.KindBool:
		node := &yaml.Node{Kind: yaml.ScalarNode}
		_ = node.Encode(v.Bool())
		return node
	case model.KindInt:
		node := &yaml.Node{Kind: yaml.ScalarNode}
		_ = node.Encode(v.Int())
		return node
	case model.KindFloat:
		node := &yaml.Node{Kind: yaml.ScalarNode}
		_ = node.Encode(v.Float())
		return node
	case model.KindString:
		node := &yaml.Node{Kind: yaml.ScalarNode}
		_ = node.Encode(v.Str())
		return node
	case model.KindList:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.List() {
			node.Content = append(node.Content, valueToNode(item))
		}
		return node
	case model.KindMap:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, key := range v.SortedKeys() {
			item, _ := v.Get(key)
			keyNode := &yaml.Node{Kind: yaml.ScalarNode}
			_ = keyNode.Encode(key)
			node.Content = append(node.Content, keyNode, valueToNode(item))
		}
		return node
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// CanonicalYAML serializes a model.Value into deterministic YAML bytes:
// sorted map keys at every level, stable scalar representation (the
// library's own encoding of a given Go value is a pure function of that
// value), and LF line endings.
func CanonicalYAML(v model.Value) ([]byte, error) {
	node := valueToNode(v)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return normalizeNewlines(buf.Bytes()), nil
}

// MarshalCanonical marshals any value (typically a Manifest struct, whose
// field order is already fixed by its Go struct declaration) to
// LF-terminated YAML bytes.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return normalizeNewlines(buf.Bytes()), nil
}

func normalizeNewlines(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
}
