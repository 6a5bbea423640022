// Package model holds the data types shared across the pipeline core: the
// dynamic value used for OML/component config, the manifest shape, run
// records, and the event/metric envelopes emitted during execution.
package model

import "sort"

// Value is a tagged dynamic value carried through OML config, component
// schemas, and compiled manifests. It mirrors the semi-structured nature of
// YAML/JSON documents while giving the compiler a single type to
// canonicalize and hash.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	l    []Value
	m    map[string]Value
}

// Kind enumerates the possible Value shapes.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func Null() Value                { return Value{kind: KindNull} }
func Bool(v bool) Value          { return Value{kind: KindBool, b: v} }
func Int(v int64) Value          { return Value{kind: KindInt, i: v} }
func Float(v float64) Value      { return Value{kind: KindFloat, f: v} }
func String(v string) Value      { return Value{kind: KindString, s: v} }
func List(v ...Value) Value      { return Value{kind: KindList, l: v} }
func Map(v map[string]Value) Value {
	if v == nil {
		v = map[string]Value{}
	}
	return Value{kind: KindMap, m: v}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }
func (v Value) List() []Value  { return v.l }
func (v Value) MapVal() map[string]Value { return v.m }

// SortedKeys returns the map's keys in lexicographic order, the order the
// compiler and canonical serializer always iterate a map in.
func (v Value) SortedKeys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value at a dotted field path inside a map value, or
// (Null(), false) if any segment is absent or the receiver is not a map.
func (v Value) Get(path string) (Value, bool) {
	cur := v
	for _, seg := range splitPath(path) {
		if cur.kind != KindMap {
			return Null(), false
		}
		next, ok := cur.m[seg]
		if !ok {
			return Null(), false
		}
		cur = next
	}
	return cur, true
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}

// ToNative converts a Value into plain Go interface{} data (map[string]any,
// []any, string, int64, float64, bool, nil) suitable for yaml/json
// marshaling.
func (v Value) ToNative() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.l))
		for i, item := range v.l {
			out[i] = item.ToNative()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.ToNative()
		}
		return out
	default:
		return nil
	}
}

// FromNative wraps plain Go data (as decoded by encoding/json or yaml.v3)
// into a Value tree.
func FromNative(data any) Value {
	switch t := data.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromNative(item)
		}
		return List(items...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromNative(item)
		}
		return Map(m)
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			if ks, ok := k.(string); ok {
				m[ks] = FromNative(item)
			}
		}
		return Map(m)
	default:
		return Null()
	}
}
