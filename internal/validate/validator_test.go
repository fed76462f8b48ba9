package validate

import (
	"testing"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
metadata:
  title: Home
  description: Landing page
styles:
  body: "margin: 0; padding: 0"
  nav:
    link: "color: red"
structure:
  div:
    class: container
    children:
      - h1: Welcome
imports:
  scripts: [app.js]
config:
  lang: en
`

func paths(issues []domain.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Path
	}
	return out
}

func TestValidate_ValidDocument(t *testing.T) {
	doc := testutil.NewDocument(t, "page", validManifest)

	result := NewValidator(Options{}).Validate(doc)

	assert.True(t, result.Valid(), result.String())
	assert.Empty(t, result.Issues)
}

func TestValidate_CanonicalSchemaRequirements(t *testing.T) {
	doc := testutil.NewDocument(t, "page", "styles:\n  body: \"margin: 0\"\n")

	result := NewValidator(Options{}).Validate(doc)

	assert.False(t, result.Valid())
	assert.Equal(t, []string{"metadata.title", "metadata.description", "structure"}, paths(result.Errors()))
}

func TestValidate_RequestedSectionsOnly(t *testing.T) {
	doc := testutil.NewDocument(t, "page", "styles:\n  body: \"margin: 0\"\n")
	v := NewValidator(Options{})

	result := v.Validate(doc, domain.SectionStyles)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Issues)

	result = v.Validate(doc, domain.SectionStyles, domain.SectionMetadata)
	assert.Equal(t, []string{"metadata.title", "metadata.description"}, paths(result.Errors()))
}

func TestValidate_RequestedSectionIgnoresOtherViolations(t *testing.T) {
	doc := testutil.NewDocument(t, "page", "metadata:\n  title: T\n  description: D\nstyles: 3\nconfig: [x]\n")

	result := NewValidator(Options{}).Validate(doc, domain.SectionMetadata)

	assert.True(t, result.Valid())
}

func TestValidate_Metadata(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{"missing title", "metadata:\n  description: D\n", []string{"metadata.title"}},
		{"non-string title", "metadata:\n  title: 3\n  description: D\n", []string{"metadata.title"}},
		{"blank description", "metadata:\n  title: T\n  description: \"  \"\n", []string{"metadata.description"}},
		{"not a mapping", "metadata: [a]\n", []string{"metadata"}},
		{"empty extends", "metadata:\n  title: T\n  description: D\n  extends: \"\"\n", []string{"metadata.extends"}},
		{"valid extends", "metadata:\n  title: T\n  description: D\n  extends: base.yaml\n", nil},
	}

	v := NewValidator(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.NewDocument(t, "page", tt.yaml)
			result := v.Validate(doc, domain.SectionMetadata)
			assert.Equal(t, tt.want, nilIfEmpty(paths(result.Errors())))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestValidate_Structure(t *testing.T) {
	doc := testutil.NewDocument(t, "page", `
structure:
  main:
    text: a
    children: [b]
  "2col": x
`)

	result := NewValidator(Options{}).Validate(doc, domain.SectionStructure)

	assert.Equal(t, []string{"structure.main", "structure.2col"}, paths(result.Errors()))
}

func TestValidate_Styles(t *testing.T) {
	doc := testutil.NewDocument(t, "page", `
styles:
  body: "margin: 0; bogus; padding: 1px"
  header:
    title: "font-weight bold"
  footer: 12
`)

	result := NewValidator(Options{}).Validate(doc, domain.SectionStyles)

	assert.Equal(t, []string{"styles.footer"}, paths(result.Errors()))
	assert.Equal(t, []string{"styles.body", "styles.header.title"}, paths(result.Warnings()))
	assert.Contains(t, result.Warnings()[0].Message, `"bogus"`)
}

func TestValidate_OtherSections(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		section domain.Section
		want    []string
	}{
		{"variables mapping", "variables:\n  a: {b: c}\n", domain.SectionVariables, nil},
		{"variables list", "variables: [a]\n", domain.SectionVariables, []string{"variables"}},
		{"dependencies list", "dependencies: [a.yaml, \"\", 3]\n", domain.SectionDependencies, []string{"dependencies[1]", "dependencies[2]"}},
		{"dependencies string", "dependencies: a.yaml\n", domain.SectionDependencies, nil},
		{"dependencies mapping", "dependencies: {a: b}\n", domain.SectionDependencies, []string{"dependencies"}},
		{"extends empty", "extends: \"\"\n", domain.SectionExtends, []string{"extends"}},
		{"extends number", "extends: 1\n", domain.SectionExtends, []string{"extends"}},
		{"imports list", "imports: [a.css, b.js]\n", domain.SectionImports, nil},
		{"imports bad kind", "imports:\n  scripts: a.js\n  styles: [1]\n", domain.SectionImports, []string{"imports.scripts", "imports.styles[0]"}},
		{"imports scalar", "imports: x\n", domain.SectionImports, []string{"imports"}},
		{"config scalar", "config: x\n", domain.SectionConfig, []string{"config"}},
		{"interactions list", "interactions: [a]\n", domain.SectionInteractions, []string{"interactions"}},
		{"external content mapping", "external_content:\n  feed: url\n", domain.SectionExternalContent, nil},
		{"analysis scalar", "analysis: 1\n", domain.SectionAnalysis, []string{"analysis"}},
		{"absent optional", "metadata: {}\n", domain.SectionConfig, nil},
	}

	v := NewValidator(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.NewDocument(t, "page", tt.yaml)
			result := v.Validate(doc, tt.section)
			assert.Equal(t, tt.want, nilIfEmpty(paths(result.Errors())))
		})
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	doc := testutil.NewDocument(t, "page", `
metadata:
  title: 1
styles: [x]
structure:
  "!bad": x
config: 2
`)

	result := NewValidator(Options{}).Validate(doc)

	assert.Equal(t, []string{
		"metadata.title",
		"metadata.description",
		"styles",
		"structure.!bad",
		"config",
	}, paths(result.Errors()))
}

func TestValidate_Strict(t *testing.T) {
	doc := testutil.NewDocument(t, "page", validManifest)
	doc.Tree.Set("styles", domain.MapOf("body", "not css"))

	lenient := NewValidator(Options{}).Validate(doc)
	require.True(t, lenient.Valid())
	require.Len(t, lenient.Warnings(), 1)

	strict := NewValidator(Options{Strict: true}).Validate(doc)
	assert.False(t, strict.Valid())
	assert.Len(t, strict.Errors(), 1)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	doc := testutil.NewDocument(t, "page", validManifest)
	before := testutil.EncodeYAML(t, doc)

	NewValidator(Options{}).Validate(doc)

	assert.Equal(t, before, testutil.EncodeYAML(t, doc))
}

func TestValidate_EmptyDocument(t *testing.T) {
	result := NewValidator(Options{}).Validate(nil)
	assert.False(t, result.Valid())

	result = NewValidator(Options{}).Validate(&domain.Document{})
	assert.False(t, result.Valid())
}

func TestValidate_TemplateSlotNames(t *testing.T) {
	tests := []struct {
		name  string
		slots string
		want  []string
	}{
		{"valid mapping", "template_slots:\n  header: Top\n  main_content: Body\n  side-bar: Aside\n", []string{}},
		{"invalid mapping key", "template_slots:\n  header: Top\n  1bad: Nope\n", []string{"template_slots.1bad"}},
		{"valid list", "template_slots: [header, _footer]\n", []string{}},
		{"invalid list items", "template_slots: [header, \"has space\", 3]\n", []string{"template_slots[1]", "template_slots[2]"}},
		{"scalar", "template_slots: header\n", []string{"template_slots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.NewDocument(t, "layout", tt.slots+"structure:\n  div:\n    children:\n      - slot: header\n")

			result := NewValidator(Options{}).Validate(doc, domain.SectionStructure)

			assert.Equal(t, tt.want, paths(result.Errors()))
		})
	}
}

func TestValidate_TemplateSlotsIgnoredWithoutStructure(t *testing.T) {
	doc := testutil.NewDocument(t, "layout", "template_slots:\n  1bad: Nope\nstyles:\n  body: \"margin: 0\"\n")

	result := NewValidator(Options{}).Validate(doc, domain.SectionStyles)

	assert.Empty(t, result.Issues)
}

func TestCheckInheritance(t *testing.T) {
	tests := []struct {
		name    string
		extends string
		src     string
		want    []string
	}{
		{"extends with slots", "base.yaml", "template_slots:\n  header: Top\n", []string{"template_slots"}},
		{"extends with empty slots", "base.yaml", "template_slots: []\n", []string{}},
		{"slots without extends", "", "template_slots:\n  header: Top\n", []string{}},
		{"extends without slots", "base.yaml", "structure:\n  p: hi\n", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.NewDocument(t, "page", tt.src)
			doc.Extends = tt.extends

			result := NewValidator(Options{}).CheckInheritance(doc)

			assert.True(t, result.Valid())
			assert.Equal(t, tt.want, paths(result.Warnings()))
		})
	}
}

func TestCheckInheritance_Strict(t *testing.T) {
	doc := testutil.NewDocument(t, "page", "template_slots:\n  header: Top\n")
	doc.Extends = "base.yaml"

	result := NewValidator(Options{Strict: true}).CheckInheritance(doc)

	assert.False(t, result.Valid())
	require.Len(t, result.Errors(), 1)
	assert.Contains(t, result.Errors()[0].Message, "declares template_slots")
}
