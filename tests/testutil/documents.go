package testutil

import (
	"testing"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Tree parses a YAML mapping into an ordered tree
func Tree(t *testing.T, src string) *domain.Map {
	t.Helper()

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	v, err := domain.FromYAMLNode(&node)
	require.NoError(t, err)
	m, ok := v.(*domain.Map)
	require.True(t, ok, "YAML root must be a mapping")
	return m
}

// NewDocument builds an unresolved document from YAML
func NewDocument(t *testing.T, sourceID, src string) *domain.Document {
	t.Helper()

	return &domain.Document{
		SourceID: sourceID,
		Tree:     Tree(t, src),
		Status:   domain.StatusUnresolved,
	}
}

// EncodeYAML serializes a document deterministically
func EncodeYAML(t *testing.T, doc *domain.Document) string {
	t.Helper()

	out, err := doc.Encode(domain.FormatYAML)
	require.NoError(t, err)
	return string(out)
}
