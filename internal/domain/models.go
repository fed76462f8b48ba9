package domain

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section is a named top-level key of a manifest
type Section string

// Known manifest sections
const (
	SectionMetadata        Section = "metadata"
	SectionVariables       Section = "variables"
	SectionStyles          Section = "styles"
	SectionStructure       Section = "structure"
	SectionImports         Section = "imports"
	SectionInteractions    Section = "interactions"
	SectionExternalContent Section = "external_content"
	SectionConfig          Section = "config"
	SectionDependencies    Section = "dependencies"
	SectionExtends         Section = "extends"
	SectionAnalysis        Section = "analysis"
)

// KnownSections lists every section in canonical order
var KnownSections = []Section{
	SectionMetadata,
	SectionVariables,
	SectionStyles,
	SectionStructure,
	SectionImports,
	SectionInteractions,
	SectionExternalContent,
	SectionConfig,
	SectionDependencies,
	SectionExtends,
	SectionAnalysis,
}

// IsKnownSection reports whether name is one of the closed set of sections
func IsKnownSection(name string) bool {
	for _, s := range KnownSections {
		if string(s) == name {
			return true
		}
	}
	return false
}

// ParseSections converts section names into Sections, rejecting unknown names
func ParseSections(names []string) ([]Section, error) {
	out := make([]Section, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !IsKnownSection(n) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSection, n)
		}
		out = append(out, Section(n))
	}
	return out, nil
}

// Status is the resolution state of a document
type Status int

const (
	StatusUnresolved Status = iota
	StatusResolving
	StatusResolved
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusResolving:
		return "resolving"
	case StatusResolved:
		return "resolved"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// EdgeKind distinguishes parent inheritance from sibling includes
type EdgeKind string

const (
	EdgeExtends EdgeKind = "extends"
	EdgeInclude EdgeKind = "include"
)

// Edge is a directed dependency from a document to one it references
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Document is a loaded or resolved manifest.
//
// Documents handed out by the loader are shared through the cache and must be
// treated as read-only; merging and substitution always build new documents.
type Document struct {
	SourceID     string
	Hash         string
	Tree         *Map
	Extends      string
	Dependencies []string
	Status       Status
	// Lineage lists the source ids merged into this document, ancestors first.
	// It exists for diagnostics only.
	Lineage []string
}

// Section returns the value of a top-level section
func (d *Document) Section(s Section) (any, bool) {
	if d == nil {
		return nil, false
	}
	return d.Tree.Get(string(s))
}

// Variables returns the variables section, or an empty mapping
func (d *Document) Variables() *Map {
	if d == nil {
		return NewMap()
	}
	if m, ok := d.Tree.GetMap(string(SectionVariables)); ok {
		return m
	}
	return NewMap()
}

// Extras returns the top-level keys outside the known section set
func (d *Document) Extras() *Map {
	out := NewMap()
	if d == nil {
		return out
	}
	d.Tree.Range(func(k string, v any) bool {
		if !IsKnownSection(k) {
			out.Set(k, v)
		}
		return true
	})
	return out
}

// Clone returns a deep copy safe to mutate
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Tree = d.Tree.Clone()
	out.Dependencies = append([]string(nil), d.Dependencies...)
	out.Lineage = append([]string(nil), d.Lineage...)
	return &out
}

// Structure parses the structure section into element nodes
func (d *Document) Structure() ([]*Node, []Issue) {
	v, ok := d.Section(SectionStructure)
	if !ok {
		return nil, nil
	}
	return ParseStructure(v, string(SectionStructure))
}

// Format is a serialization format for manifests
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Encode serializes the document tree deterministically
func (d *Document) Encode(format Format) ([]byte, error) {
	tree := d.Tree
	if tree == nil {
		tree = NewMap()
	}
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := writeJSON(&buf, tree); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(ToYAMLNode(tree)); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
