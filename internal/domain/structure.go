package domain

import (
	"fmt"
	"regexp"
	"sort"
)

// Reserved keys inside an element body
const (
	KeyAttributes = "attributes"
	KeyChildren   = "children"
	KeyText       = "text"

	// OverrideMarker on a structure mapping replaces the parent structure
	// wholesale during inheritance instead of deep-merging it.
	OverrideMarker = "_override"

	// KeyTemplateSlots is the top-level key a parent uses to declare the
	// slots its structure exposes to inheriting documents
	KeyTemplateSlots = "template_slots"

	// KeySlot marks a structure element as a placeholder for the inheriting
	// document's structure entry of the same name
	KeySlot = "slot"
)

// SlotNamePattern is the grammar of template slot names
var SlotNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

var tagNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

// Node is one element of a structure tree. Exactly one of Children or Text
// carries content; a Node with an empty Tag is a bare text node.
type Node struct {
	Tag        string
	Attributes map[string]string
	Children   []*Node
	Text       string
}

// IsText reports whether the node is a bare text node
func (n *Node) IsText() bool {
	return n.Tag == ""
}

// AttributeNames returns attribute names in lexical order
func (n *Node) AttributeNames() []string {
	names := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Walk visits n and its descendants depth-first
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ParseStructure converts a structure section value into element nodes.
// Every malformed part is reported as an error issue under path; parsing
// continues past errors so all violations are collected.
func ParseStructure(v any, path string) ([]*Node, []Issue) {
	p := &structureParser{}
	nodes := p.elements(v, path, true)
	return nodes, p.issues
}

type structureParser struct {
	issues []Issue
}

func (p *structureParser) errorf(path, format string, args ...any) {
	p.issues = append(p.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

// elements parses a mapping of tag → body, or a sequence of such mappings
func (p *structureParser) elements(v any, path string, top bool) []*Node {
	switch t := v.(type) {
	case *Map:
		var nodes []*Node
		t.Range(func(tag string, body any) bool {
			if top && tag == OverrideMarker {
				return true
			}
			nodes = append(nodes, p.element(tag, body, JoinPath(path, tag)))
			return true
		})
		if len(nodes) == 0 {
			p.errorf(path, "element mapping must contain at least one tag")
		}
		return nodes
	case []any:
		var nodes []*Node
		for i, item := range t {
			itemPath := IndexPath(path, i)
			if s, ok := item.(string); ok {
				nodes = append(nodes, &Node{Text: s})
				continue
			}
			if _, ok := item.(*Map); !ok {
				p.errorf(itemPath, "expected element mapping or text, got %s", typeName(item))
				continue
			}
			nodes = append(nodes, p.elements(item, itemPath, false)...)
		}
		return nodes
	case nil:
		p.errorf(path, "structure must not be empty")
		return nil
	default:
		p.errorf(path, "expected element mapping, got %s", typeName(v))
		return nil
	}
}

func (p *structureParser) element(tag string, body any, path string) *Node {
	n := &Node{Tag: tag, Attributes: map[string]string{}}
	if !tagNamePattern.MatchString(tag) {
		p.errorf(path, "invalid element name %q", tag)
	}

	switch t := body.(type) {
	case nil:
	case string:
		n.Text = t
	case bool, int64, float64:
		n.Text, _ = FormatScalar(t)
	case []any:
		n.Children = p.elements(t, JoinPath(path, KeyChildren), false)
	case *Map:
		p.body(n, t, path)
	default:
		p.errorf(path, "unsupported element body %s", typeName(body))
	}
	return n
}

func (p *structureParser) body(n *Node, m *Map, path string) {
	_, hasChildren := m.Get(KeyChildren)
	_, hasText := m.Get(KeyText)
	if hasChildren && hasText {
		p.errorf(path, "element cannot have both children and text")
	}

	m.Range(func(key string, v any) bool {
		keyPath := JoinPath(path, key)
		switch key {
		case KeyAttributes:
			attrs, ok := v.(*Map)
			if !ok {
				p.errorf(keyPath, "attributes must be a mapping, got %s", typeName(v))
				return true
			}
			attrs.Range(func(name string, av any) bool {
				s, ok := FormatScalar(av)
				if !ok {
					p.errorf(JoinPath(keyPath, name), "attribute value must be a scalar, got %s", typeName(av))
					return true
				}
				n.Attributes[name] = s
				return true
			})
		case KeyChildren:
			children, ok := v.([]any)
			if !ok {
				p.errorf(keyPath, "children must be a sequence, got %s", typeName(v))
				return true
			}
			n.Children = p.elements(children, keyPath, false)
		case KeyText:
			s, ok := FormatScalar(v)
			if !ok {
				p.errorf(keyPath, "text must be a scalar, got %s", typeName(v))
				return true
			}
			n.Text = s
		default:
			// inline attribute shorthand: class, id, style, href, ...
			s, ok := FormatScalar(v)
			if !ok {
				p.errorf(keyPath, "unexpected %s; nested elements belong under children", typeName(v))
				return true
			}
			n.Attributes[key] = s
		}
		return true
	})
}

// TypeName describes a tree value for diagnostics
func TypeName(v any) string {
	return typeName(v)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case float64:
		return "number"
	case []any:
		return "sequence"
	case *Map:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
