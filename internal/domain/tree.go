package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Map is an insertion-ordered string-keyed mapping. It is the only mapping
// type that appears in a manifest tree; sequences are []any and scalars are
// string, bool, int64, float64 or nil.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty ordered mapping
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// MapOf builds a Map from alternating key/value pairs. It panics on an odd
// argument count or a non-string key and is meant for tests and literals.
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("domain.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("domain.MapOf: key %v is not a string", kv[i]))
		}
		m.Set(k, normalizeLiteral(kv[i+1]))
	}
	return m
}

// normalizeLiteral converts Go literal types used in MapOf into tree types
func normalizeLiteral(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

// Len returns the number of keys
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value stored under key
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key. New keys are appended to the key order;
// existing keys keep their position.
func (m *Map) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key, preserving the order of the remaining keys
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in order
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for each entry in order until fn returns false
func (m *Map) Range(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// GetMap returns the value under key when it is a mapping
func (m *Map) GetMap(key string) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	mm, ok := v.(*Map)
	return mm, ok
}

// GetString returns the value under key when it is a string
func (m *Map) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Lookup walks a dotted path through nested mappings
func (m *Map) Lookup(path ...string) (any, bool) {
	var cur any = m
	for _, p := range path {
		mm, ok := cur.(*Map)
		if !ok {
			return nil, false
		}
		cur, ok = mm.Get(p)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Clone returns a deep copy of the mapping
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]any, len(m.values)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a tree value
func CloneValue(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two tree values are structurally equal, including
// mapping key order
func Equal(a, b any) bool {
	switch at := a.(type) {
	case *Map:
		bt, ok := b.(*Map)
		if !ok || at.Len() != bt.Len() {
			return false
		}
		for i, k := range at.keys {
			if bt.keys[i] != k || !Equal(at.values[k], bt.values[k]) {
				return false
			}
		}
		return true
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// FormatScalar renders a scalar tree value as text
func FormatScalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	case nil:
		return "", true
	default:
		return "", false
	}
}

// =============================================================================
// YAML conversion
// =============================================================================

// FromYAMLNode converts a decoded yaml.v3 node into a tree value.
// Aliases are expanded and `<<` merge keys are applied.
func FromYAMLNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.ScalarNode:
		return scalarFromYAML(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := FromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return mappingFromYAML(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func mappingFromYAML(n *yaml.Node) (*Map, error) {
	m := NewMap()
	var merges []*Map
	for i := 0; i+1 < len(n.Content); i += 2 {
		kn, vn := n.Content[i], n.Content[i+1]
		if kn.Tag == "!!merge" {
			v, err := FromYAMLNode(vn)
			if err != nil {
				return nil, err
			}
			switch t := v.(type) {
			case *Map:
				merges = append(merges, t)
			case []any:
				for _, item := range t {
					if mm, ok := item.(*Map); ok {
						merges = append(merges, mm)
					}
				}
			}
			continue
		}
		if kn.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", kn.Line)
		}
		v, err := FromYAMLNode(vn)
		if err != nil {
			return nil, err
		}
		m.Set(kn.Value, v)
	}
	// explicit keys win over merged ones
	for _, mm := range merges {
		mm.Range(func(k string, v any) bool {
			if !m.Has(k) {
				m.Set(k, CloneValue(v))
			}
			return true
		})
	}
	return m, nil
}

func scalarFromYAML(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// out of int64 range, keep as float
			var f float64
			if ferr := n.Decode(&f); ferr != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return f, nil
		}
		return i, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return f, nil
	default:
		return n.Value, nil
	}
}

// ToYAMLNode converts a tree value into a yaml.v3 node for encoding
func ToYAMLNode(v any) *yaml.Node {
	switch t := v.(type) {
	case *Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		t.Range(func(k string, val any) bool {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				ToYAMLNode(val))
			return true
		})
		return n
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			n.Content = append(n.Content, ToYAMLNode(item))
		}
		return n
	case string:
		n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t}
		if strings.Contains(t, "\n") {
			n.Style = yaml.LiteralStyle
		}
		return n
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(t, 10)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatYAMLFloat(t)}
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(t)}
	}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// MarshalYAML implements yaml.Marshaler, preserving key order
func (m *Map) MarshalYAML() (any, error) {
	return ToYAMLNode(m), nil
}

// =============================================================================
// JSON conversion
// =============================================================================

// MarshalJSON implements json.Marshaler, preserving key order
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case *Map:
		buf.WriteByte('{')
		var err error
		i := 0
		t.Range(func(k string, val any) bool {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			if err = writeJSONString(buf, k); err != nil {
				return false
			}
			buf.WriteByte(':')
			err = writeJSON(buf, val)
			return err == nil
		})
		if err != nil {
			return err
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case string:
		return writeJSONString(buf, t)
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return fmt.Errorf("unsupported float value %v", t)
		}
		buf.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// writeJSONString encodes s without HTML escaping so placeholders such as
// <?=name?> survive verbatim
func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
