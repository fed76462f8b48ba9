// Package validate checks resolved manifests section by section.
package validate

import (
	"regexp"
	"strings"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

var cssDeclarationPattern = regexp.MustCompile(`^[a-zA-Z-]+\s*:\s*.+$`)

// rule checks one section. present is false when the section is absent.
type rule func(r *domain.ValidationResult, v any, present bool)

// Validator applies section rules to a document
type Validator struct {
	strict bool
	rules  map[domain.Section]rule
	logger *utils.Logger
}

// Options contains options for creating a Validator
type Options struct {
	// Strict promotes warnings to errors
	Strict bool
	Logger *utils.Logger
}

// NewValidator creates a new Validator
func NewValidator(opts Options) *Validator {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Validator{
		strict: opts.Strict,
		logger: opts.Logger.WithComponent("validate"),
		rules: map[domain.Section]rule{
			domain.SectionMetadata:        validateMetadata,
			domain.SectionVariables:       validateVariables,
			domain.SectionStyles:          validateStyles,
			domain.SectionStructure:       validateStructure,
			domain.SectionImports:         validateImports,
			domain.SectionInteractions:    mappingRule(domain.SectionInteractions),
			domain.SectionExternalContent: mappingRule(domain.SectionExternalContent),
			domain.SectionConfig:          mappingRule(domain.SectionConfig),
			domain.SectionAnalysis:        mappingRule(domain.SectionAnalysis),
			domain.SectionDependencies:    validateDependencies,
			domain.SectionExtends:         validateExtends,
		},
	}
}

// Validate checks doc. With no requested sections every rule applies; with
// requested sections only their rules run, so absent unrequested sections
// never produce issues. The document is not modified.
func (v *Validator) Validate(doc *domain.Document, requested ...domain.Section) domain.ValidationResult {
	var result domain.ValidationResult
	if doc == nil || doc.Tree == nil {
		result.Errorf("", "document is empty")
		return v.finish(result)
	}

	sections := requested
	if len(sections) == 0 {
		sections = domain.KnownSections
	}

	seen := make(map[domain.Section]bool, len(sections))
	for _, s := range sections {
		if seen[s] {
			continue
		}
		seen[s] = true
		check, ok := v.rules[s]
		if !ok {
			continue
		}
		val, present := doc.Section(s)
		check(&result, val, present)
	}

	if seen[domain.SectionStructure] {
		if slots, ok := doc.Tree.Get(domain.KeyTemplateSlots); ok {
			validateTemplateSlots(&result, slots)
		}
	}

	v.logger.Debug().
		Str("source", doc.SourceID).
		Int("errors", len(result.Errors())).
		Int("warnings", len(result.Warnings())).
		Msg("validated")

	return v.finish(result)
}

// CheckInheritance reports a document that both extends a parent and
// declares its own template_slots. It inspects the document as loaded, since
// merging drops the extends reference.
func (v *Validator) CheckInheritance(doc *domain.Document) domain.ValidationResult {
	var result domain.ValidationResult
	if doc == nil || doc.Extends == "" {
		return result
	}
	if slots, ok := doc.Tree.Get(domain.KeyTemplateSlots); ok && !emptyValue(slots) {
		result.Warnf(domain.KeyTemplateSlots, "%s extends %s and declares template_slots; slots of the parent are filled first", doc.SourceID, doc.Extends)
	}
	return v.finish(result)
}

func (v *Validator) finish(r domain.ValidationResult) domain.ValidationResult {
	if v.strict {
		return r.Strict()
	}
	return r
}

func validateMetadata(r *domain.ValidationResult, v any, present bool) {
	const path = string(domain.SectionMetadata)
	if !present {
		// report the missing required fields themselves
		v = domain.NewMap()
	}
	meta, ok := v.(*domain.Map)
	if !ok {
		r.Errorf(path, "must be a mapping, got %s", domain.TypeName(v))
		return
	}

	for _, key := range []string{"title", "description"} {
		p := domain.JoinPath(path, key)
		val, ok := meta.Get(key)
		if !ok {
			r.Errorf(p, "is required")
			continue
		}
		s, isString := val.(string)
		switch {
		case !isString:
			r.Errorf(p, "must be a string, got %s", domain.TypeName(val))
		case strings.TrimSpace(s) == "":
			r.Errorf(p, "must not be empty")
		}
	}

	if ext, ok := meta.Get(string(domain.SectionExtends)); ok {
		nonEmptyString(r, domain.JoinPath(path, string(domain.SectionExtends)), ext)
	}
}

func validateStructure(r *domain.ValidationResult, v any, present bool) {
	if !present {
		r.Errorf(string(domain.SectionStructure), "structure is required")
		return
	}
	_, issues := domain.ParseStructure(v, string(domain.SectionStructure))
	r.Append(issues...)
}

func validateStyles(r *domain.ValidationResult, v any, present bool) {
	if !present {
		return
	}
	styles, ok := v.(*domain.Map)
	if !ok {
		r.Errorf(string(domain.SectionStyles), "must be a mapping, got %s", domain.TypeName(v))
		return
	}
	checkStyleMap(r, styles, string(domain.SectionStyles))
}

// checkStyleMap accepts CSS declaration strings and nested selector mappings
func checkStyleMap(r *domain.ValidationResult, m *domain.Map, path string) {
	m.Range(func(name string, v any) bool {
		p := domain.JoinPath(path, name)
		switch t := v.(type) {
		case string:
			checkDeclarations(r, t, p)
		case *domain.Map:
			checkStyleMap(r, t, p)
		default:
			r.Errorf(p, "style must be a string or a selector mapping, got %s", domain.TypeName(v))
		}
		return true
	})
}

func checkDeclarations(r *domain.ValidationResult, css, path string) {
	for _, decl := range strings.Split(css, ";") {
		decl = strings.TrimSpace(decl)
		if decl != "" && !cssDeclarationPattern.MatchString(decl) {
			r.Warnf(path, "may have invalid CSS: %q", decl)
		}
	}
}

func validateVariables(r *domain.ValidationResult, v any, present bool) {
	if !present {
		return
	}
	if _, ok := v.(*domain.Map); !ok {
		r.Errorf(string(domain.SectionVariables), "must be a mapping, got %s", domain.TypeName(v))
	}
}

func validateImports(r *domain.ValidationResult, v any, present bool) {
	if !present {
		return
	}
	path := string(domain.SectionImports)
	switch t := v.(type) {
	case []any:
		stringList(r, path, t)
	case *domain.Map:
		t.Range(func(kind string, val any) bool {
			p := domain.JoinPath(path, kind)
			list, ok := val.([]any)
			if !ok {
				r.Errorf(p, "must be a list of strings, got %s", domain.TypeName(val))
				return true
			}
			stringList(r, p, list)
			return true
		})
	default:
		r.Errorf(path, "must be a list or a mapping of lists, got %s", domain.TypeName(v))
	}
}

func validateDependencies(r *domain.ValidationResult, v any, present bool) {
	if !present {
		return
	}
	path := string(domain.SectionDependencies)
	switch t := v.(type) {
	case string:
		nonEmptyString(r, path, t)
	case []any:
		stringList(r, path, t)
	default:
		r.Errorf(path, "must be a list of strings, got %s", domain.TypeName(v))
	}
}

func validateExtends(r *domain.ValidationResult, v any, present bool) {
	if present {
		nonEmptyString(r, string(domain.SectionExtends), v)
	}
}

// validateTemplateSlots checks slot names, given as mapping keys or a list
func validateTemplateSlots(r *domain.ValidationResult, v any) {
	path := domain.KeyTemplateSlots
	check := func(p, name string) {
		if !domain.SlotNamePattern.MatchString(name) {
			r.Errorf(p, "invalid template slot name %q", name)
		}
	}

	switch t := v.(type) {
	case nil:
	case *domain.Map:
		t.Range(func(name string, _ any) bool {
			check(domain.JoinPath(path, name), name)
			return true
		})
	case []any:
		for i, item := range t {
			name, ok := item.(string)
			if !ok {
				r.Errorf(domain.IndexPath(path, i), "must be a string, got %s", domain.TypeName(item))
				continue
			}
			check(domain.IndexPath(path, i), name)
		}
	default:
		r.Errorf(path, "must be a list or a mapping, got %s", domain.TypeName(v))
	}
}

func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *domain.Map:
		return t.Len() == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

func mappingRule(s domain.Section) rule {
	return func(r *domain.ValidationResult, v any, present bool) {
		if !present {
			return
		}
		if _, ok := v.(*domain.Map); !ok {
			r.Errorf(string(s), "must be a mapping, got %s", domain.TypeName(v))
		}
	}
}

func stringList(r *domain.ValidationResult, path string, list []any) {
	for i, item := range list {
		nonEmptyString(r, domain.IndexPath(path, i), item)
	}
}

func nonEmptyString(r *domain.ValidationResult, path string, v any) {
	s, ok := v.(string)
	if !ok {
		r.Errorf(path, "must be a string, got %s", domain.TypeName(v))
		return
	}
	if strings.TrimSpace(s) == "" {
		r.Errorf(path, "must not be empty")
	}
}
