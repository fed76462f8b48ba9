package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"gopkg.in/yaml.v3"
)

var yamlLinePattern = regexp.MustCompile(`line (\d+)(?:(?:,|:)? column (\d+))?`)

// DetectFormat picks the serialization of a manifest from its extension,
// then its content type, defaulting to YAML
func DetectFormat(sourceID, contentType string) domain.Format {
	ext := strings.ToLower(path.Ext(stripQuery(sourceID)))
	switch ext {
	case ".json":
		return domain.FormatJSON
	case ".yaml", ".yml":
		return domain.FormatYAML
	}
	if strings.Contains(strings.ToLower(contentType), "json") {
		return domain.FormatJSON
	}
	return domain.FormatYAML
}

func stripQuery(id string) string {
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		return id[:i]
	}
	return id
}

// Hash returns the hex SHA-256 of raw manifest content
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Parse decodes manifest content into an unresolved document. The extends and
// dependencies references are returned as written; the loader canonicalizes
// them.
func Parse(sourceID string, data []byte, format domain.Format) (*domain.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &domain.ParseError{Source: sourceID, Msg: ErrEmptyDocument.Error(), Err: ErrEmptyDocument}
	}

	if format == domain.FormatJSON {
		if err := checkJSON(sourceID, data); err != nil {
			return nil, err
		}
	}

	tree, err := decodeTree(sourceID, data)
	if err != nil {
		return nil, err
	}

	extends, deps, err := References(tree)
	if err != nil {
		return nil, &domain.ParseError{Source: sourceID, Msg: err.Error(), Err: err}
	}

	return &domain.Document{
		SourceID:     sourceID,
		Hash:         Hash(data),
		Tree:         tree,
		Extends:      extends,
		Dependencies: deps,
		Status:       domain.StatusUnresolved,
	}, nil
}

// decodeTree parses YAML (JSON being a subset) into an ordered tree
func decodeTree(sourceID string, data []byte) (*domain.Map, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.ParseError{Source: sourceID, Msg: ErrEmptyDocument.Error(), Err: ErrEmptyDocument}
		}
		return nil, yamlParseError(sourceID, err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return nil, &domain.ParseError{Source: sourceID, Line: extra.Line, Msg: ErrMultipleDocuments.Error(), Err: ErrMultipleDocuments}
	} else if !errors.Is(err, io.EOF) {
		return nil, yamlParseError(sourceID, err)
	}

	body := &root
	if body.Kind == yaml.DocumentNode && len(body.Content) > 0 {
		body = body.Content[0]
	}
	if body.Kind == yaml.ScalarNode && body.ShortTag() == "!!null" {
		return nil, &domain.ParseError{Source: sourceID, Msg: ErrEmptyDocument.Error(), Err: ErrEmptyDocument}
	}

	v, err := domain.FromYAMLNode(body)
	if err != nil {
		return nil, yamlParseError(sourceID, err)
	}
	tree, ok := v.(*domain.Map)
	if !ok {
		return nil, &domain.ParseError{
			Source: sourceID,
			Line:   body.Line,
			Column: body.Column,
			Msg:    fmt.Sprintf("%s, got %s", ErrNotMapping, domain.TypeName(v)),
			Err:    ErrNotMapping,
		}
	}
	return tree, nil
}

func yamlParseError(sourceID string, err error) *domain.ParseError {
	pe := &domain.ParseError{Source: sourceID, Err: err}
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	if m := yamlLinePattern.FindStringSubmatch(msg); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			pe.Column, _ = strconv.Atoi(m[2])
		}
		// drop the position prefix now carried in Line/Column
		if strings.HasPrefix(msg, m[0]) {
			msg = strings.TrimLeft(strings.TrimPrefix(msg, m[0]), ": ")
		}
	}
	pe.Msg = msg
	return pe
}

// checkJSON reports JSON syntax errors with line and column
func checkJSON(sourceID string, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	var v any
	err := dec.Decode(&v)
	if err == nil {
		if _, extraErr := dec.Token(); !errors.Is(extraErr, io.EOF) {
			line, col := position(data, dec.InputOffset())
			return &domain.ParseError{Source: sourceID, Line: line, Column: col, Msg: "unexpected data after top-level value"}
		}
		return nil
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		// Offset counts the offending byte
		line, col := position(data, syntaxErr.Offset-1)
		return &domain.ParseError{Source: sourceID, Line: line, Column: col, Msg: syntaxErr.Error(), Err: err}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		line, col := position(data, int64(len(data)))
		return &domain.ParseError{Source: sourceID, Line: line, Column: col, Msg: "unexpected end of JSON input", Err: err}
	}
	return &domain.ParseError{Source: sourceID, Msg: err.Error(), Err: err}
}

// position converts a byte offset into a 1-based line and column
func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset < 0 {
		offset = 0
	}
	line, col = 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// References extracts the extends target and dependency list from a tree.
// extends is read from the top level, falling back to metadata.extends.
// dependencies may be a single string or a sequence of strings.
func References(tree *domain.Map) (string, []string, error) {
	extends, err := extendsOf(tree)
	if err != nil {
		return "", nil, err
	}

	raw, ok := tree.Get(string(domain.SectionDependencies))
	if !ok || raw == nil {
		return extends, nil, nil
	}

	var deps []string
	switch t := raw.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return "", nil, fmt.Errorf("dependencies: %w", ErrEmptyReference)
		}
		deps = []string{strings.TrimSpace(t)}
	case []any:
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return "", nil, fmt.Errorf("%s: dependency must be a string, got %s",
					domain.IndexPath("dependencies", i), domain.TypeName(item))
			}
			if strings.TrimSpace(s) == "" {
				return "", nil, fmt.Errorf("%s: %w", domain.IndexPath("dependencies", i), ErrEmptyReference)
			}
			deps = append(deps, strings.TrimSpace(s))
		}
	default:
		return "", nil, fmt.Errorf("dependencies must be a list of strings, got %s", domain.TypeName(raw))
	}
	return extends, deps, nil
}

func extendsOf(tree *domain.Map) (string, error) {
	raw, ok := tree.Get(string(domain.SectionExtends))
	where := "extends"
	if !ok || raw == nil {
		raw, ok = tree.Lookup(string(domain.SectionMetadata), "extends")
		where = "metadata.extends"
	}
	if !ok || raw == nil {
		return "", nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", fmt.Errorf("%s must be a string, got %s", where, domain.TypeName(raw))
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s: %w", where, ErrEmptyReference)
	}
	return strings.TrimSpace(s), nil
}
