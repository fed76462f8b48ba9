package variables

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantmind-br/whyml-go/internal/domain"
)

// Scope is an ordered chain of variable layers; the first layer that binds a
// full dotted path wins
type Scope struct {
	layers []*domain.Map
}

// NewScope creates a scope from layers in precedence order, highest first.
// Nil layers are skipped.
func NewScope(layers ...*domain.Map) *Scope {
	s := &Scope{}
	for _, l := range layers {
		if l != nil {
			s.layers = append(s.layers, l)
		}
	}
	return s
}

// ForDocument builds the scope chain of a document: external variables, then
// the document's own variables section, then inherited layers in order. The
// document's metadata is the lowest layer, reachable as metadata.<key>.
func ForDocument(doc *domain.Document, external *domain.Map, inherited ...*domain.Map) *Scope {
	layers := make([]*domain.Map, 0, len(inherited)+3)
	layers = append(layers, external, doc.Variables())
	layers = append(layers, inherited...)
	layers = append(layers, metadataLayer(doc))
	return NewScope(layers...)
}

func metadataLayer(doc *domain.Document) *domain.Map {
	meta, ok := doc.Tree.GetMap(string(domain.SectionMetadata))
	if !ok {
		return nil
	}
	return domain.MapOf(string(domain.SectionMetadata), meta)
}

// Lookup resolves a dotted path such as theme.colors.primary
func (s *Scope) Lookup(path string) (any, bool) {
	parts := strings.Split(path, ".")
	for _, l := range s.layers {
		if v, ok := l.Lookup(parts...); ok {
			return v, true
		}
	}
	return nil, false
}

// Depth returns the number of layers
func (s *Scope) Depth() int {
	return len(s.layers)
}

// External converts a plain key/value mapping into a scope layer. Nested Go
// maps become mappings and dotted keys such as "theme.color" are expanded
// into nested mappings. Keys are inserted in lexical order.
func External(vars map[string]any) (*domain.Map, error) {
	out := domain.NewMap()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := normalize(vars[k])
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		if err := setPath(out, strings.Split(k, "."), v); err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
	}
	return out, nil
}

func setPath(m *domain.Map, parts []string, v any) error {
	for i, p := range parts {
		if p == "" {
			return fmt.Errorf("empty path segment")
		}
		if i == len(parts)-1 {
			if existing, ok := m.GetMap(p); ok {
				if vm, ok := v.(*domain.Map); ok {
					vm.Range(func(k string, val any) bool {
						existing.Set(k, val)
						return true
					})
					return nil
				}
			}
			m.Set(p, v)
			return nil
		}
		next, ok := m.GetMap(p)
		if !ok {
			if _, exists := m.Get(p); exists {
				return fmt.Errorf("%q is not a mapping", p)
			}
			next = domain.NewMap()
			m.Set(p, next)
		}
		m = next
	}
	return nil
}

// normalize converts decoded Go values into tree values
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case *domain.Map:
		return t.Clone(), nil
	case map[string]any:
		return External(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = val
		}
		return External(m)
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
