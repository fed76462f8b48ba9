package manifest

import (
	"testing"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		sourceID    string
		contentType string
		expected    domain.Format
	}{
		{"yaml extension", "/srv/home.yaml", "", domain.FormatYAML},
		{"yml extension", "/srv/home.YML", "", domain.FormatYAML},
		{"json extension", "/srv/home.json", "", domain.FormatJSON},
		{"json extension with query", "https://example.com/a.json?v=1", "", domain.FormatJSON},
		{"content type json", "https://example.com/manifest", "application/json; charset=utf-8", domain.FormatJSON},
		{"extension beats content type", "https://example.com/a.yaml", "application/json", domain.FormatYAML},
		{"default yaml", "https://example.com/manifest", "text/plain", domain.FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat(tt.sourceID, tt.contentType))
		})
	}
}

func TestParse_YAML(t *testing.T) {
	src := []byte(`
metadata:
  title: Home
  description: Landing page
variables:
  count: 3
  ratio: 0.5
  enabled: true
  nothing: null
structure:
  div:
    class: page
custom_key: kept
`)

	doc, err := Parse("/srv/home.yaml", src, domain.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "/srv/home.yaml", doc.SourceID)
	assert.Equal(t, Hash(src), doc.Hash)
	assert.Len(t, doc.Hash, 64)
	assert.Equal(t, domain.StatusUnresolved, doc.Status)
	assert.Equal(t, []string{"metadata", "variables", "structure", "custom_key"}, doc.Tree.Keys())

	vars := doc.Variables()
	v, _ := vars.Get("count")
	assert.Equal(t, int64(3), v)
	v, _ = vars.Get("ratio")
	assert.Equal(t, 0.5, v)
	v, _ = vars.Get("enabled")
	assert.Equal(t, true, v)
	v, ok := vars.Get("nothing")
	assert.True(t, ok)
	assert.Nil(t, v)

	assert.Equal(t, []string{"custom_key"}, doc.Extras().Keys())
}

func TestParse_YAMLAnchorsAndMergeKeys(t *testing.T) {
	src := []byte(`
variables:
  base: &base
    color: red
    size: 10
  derived:
    <<: *base
    size: 12
`)

	doc, err := Parse("/srv/a.yaml", src, domain.FormatYAML)
	require.NoError(t, err)

	derived, ok := doc.Tree.Lookup("variables", "derived")
	require.True(t, ok)
	m := derived.(*domain.Map)
	color, _ := m.Get("color")
	size, _ := m.Get("size")
	assert.Equal(t, "red", color)
	assert.Equal(t, int64(12), size)
}

func TestParse_JSON(t *testing.T) {
	src := []byte(`{"metadata": {"title": "Home", "description": "<?= x ?>"}, "styles": {"body": "margin: 0"}}`)

	doc, err := Parse("/srv/home.json", src, domain.FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"metadata", "styles"}, doc.Tree.Keys())
	desc, _ := doc.Tree.Lookup("metadata", "description")
	assert.Equal(t, "<?= x ?>", desc)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		format   domain.Format
		line     int
		column   int
		sentinel error
	}{
		{name: "empty", src: "  \n", format: domain.FormatYAML, sentinel: ErrEmptyDocument},
		{name: "comment only", src: "# nothing\n", format: domain.FormatYAML, sentinel: ErrEmptyDocument},
		{name: "explicit null", src: "~\n", format: domain.FormatYAML, sentinel: ErrEmptyDocument},
		{name: "sequence root", src: "- a\n- b\n", format: domain.FormatYAML, line: 1, column: 1, sentinel: ErrNotMapping},
		{name: "scalar root", src: "just text\n", format: domain.FormatYAML, line: 1, column: 1, sentinel: ErrNotMapping},
		{name: "multiple documents", src: "a: 1\n---\nb: 2\n", format: domain.FormatYAML, sentinel: ErrMultipleDocuments},
		{name: "json trailing comma", src: "{\n  \"a\": 1,\n}", format: domain.FormatJSON, line: 3, column: 1},
		{name: "json array root", src: "[1, 2]", format: domain.FormatJSON, line: 1, column: 1, sentinel: ErrNotMapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("/srv/bad", []byte(tt.src), tt.format)
			require.Error(t, err)

			var pe *domain.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, domain.KindParse, domain.KindOf(err))
			assert.Equal(t, "/srv/bad", pe.Source)
			if tt.line > 0 {
				assert.Equal(t, tt.line, pe.Line)
				assert.Equal(t, tt.column, pe.Column)
			}
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestParse_YAMLSyntaxErrorHasLine(t *testing.T) {
	_, err := Parse("/srv/bad.yaml", []byte("metadata:\n  title: a: b\n"), domain.FormatYAML)

	var pe *domain.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Positive(t, pe.Line)
	assert.NotContains(t, pe.Msg, "yaml: ")
	assert.Contains(t, pe.Error(), "/srv/bad.yaml")
}

func TestReferences(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		wantExtends string
		wantDeps    []string
		wantErr     string
	}{
		{
			name:        "top level",
			src:         "extends: base.yaml\ndependencies: [a.yaml, b.yaml]\n",
			wantExtends: "base.yaml",
			wantDeps:    []string{"a.yaml", "b.yaml"},
		},
		{
			name:        "metadata fallback",
			src:         "metadata:\n  extends: ../layout.yaml\n",
			wantExtends: "../layout.yaml",
		},
		{
			name:        "top level wins over metadata",
			src:         "extends: top.yaml\nmetadata:\n  extends: meta.yaml\n",
			wantExtends: "top.yaml",
		},
		{
			name:     "single string dependency",
			src:      "dependencies: shared.yaml\n",
			wantDeps: []string{"shared.yaml"},
		},
		{
			name: "null references",
			src:  "extends: null\ndependencies: null\n",
		},
		{
			name:    "extends not a string",
			src:     "extends: [a, b]\n",
			wantErr: "extends must be a string",
		},
		{
			name:    "empty extends",
			src:     "extends: '  '\n",
			wantErr: "cannot be empty",
		},
		{
			name:    "dependency not a string",
			src:     "dependencies:\n  - a.yaml\n  - {b: c}\n",
			wantErr: "dependencies[1]",
		},
		{
			name:    "dependencies mapping",
			src:     "dependencies:\n  a: b\n",
			wantErr: "list of strings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse("/srv/x.yaml", []byte(tt.src), domain.FormatYAML)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, domain.KindParse, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExtends, doc.Extends)
			assert.Equal(t, tt.wantDeps, doc.Dependencies)
		})
	}
}
