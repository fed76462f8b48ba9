// Package variables substitutes {{name}} and <?=name?> placeholders in a
// manifest tree from a chain of variable scopes.
package variables

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// DefaultMaxDepth bounds nested variable references
const DefaultMaxDepth = 32

const identPath = `[A-Za-z_][A-Za-z0-9_-]*(?:\.[A-Za-z_][A-Za-z0-9_-]*)*`

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*(` + identPath + `)\s*\}\}|<\?=\s*(` + identPath + `)\s*\?>`)
	wholePattern       = regexp.MustCompile(`^(?:\{\{\s*(` + identPath + `)\s*\}\}|<\?=\s*(` + identPath + `)\s*\?>)$`)
)

// Resolver substitutes placeholders in document trees
type Resolver struct {
	maxDepth int
	strict   bool
	logger   *utils.Logger
}

// Options contains options for creating a Resolver
type Options struct {
	// MaxDepth bounds nested variable references; zero means DefaultMaxDepth
	MaxDepth int
	// Strict fails on unresolved placeholders instead of warning
	Strict bool
	Logger *utils.Logger
}

// NewResolver creates a new Resolver
func NewResolver(opts Options) *Resolver {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Resolver{
		maxDepth: opts.MaxDepth,
		strict:   opts.Strict,
		logger:   opts.Logger.WithComponent("variables"),
	}
}

// Substitute returns a copy of doc with every string leaf substituted. Map
// keys are left untouched. Unresolved placeholders stay verbatim and are
// reported as warnings unless the resolver is strict.
func (r *Resolver) Substitute(doc *domain.Document, scope *Scope) (*domain.Document, []domain.Issue, error) {
	rn := &run{
		r:      r,
		scope:  scope,
		source: doc.SourceID,
		memo:   make(map[string]resolved),
	}

	tree, err := rn.value(doc.Tree, "")
	if err != nil {
		return nil, nil, err
	}

	out := doc.Clone()
	out.Tree, _ = tree.(*domain.Map)
	if out.Tree == nil {
		out.Tree = domain.NewMap()
	}

	r.logger.Debug().
		Str("source", doc.SourceID).
		Int("substitutions", rn.substitutions).
		Int("warnings", len(rn.warnings)).
		Msg("variables substituted")

	return out, rn.warnings, nil
}

// String substitutes placeholders in a single string. path is used for
// diagnostics only.
func (r *Resolver) String(s, path string, scope *Scope) (any, []domain.Issue, error) {
	rn := &run{r: r, scope: scope, memo: make(map[string]resolved)}
	v, err := rn.str(s, path, nil)
	return v, rn.warnings, err
}

// run holds the state of one substitution pass
type run struct {
	r             *Resolver
	scope         *Scope
	source        string
	memo          map[string]resolved
	warnings      []domain.Issue
	substitutions int
}

// resolved is a substituted variable value with the warnings raised while
// substituting it. The warnings are repeated for every leaf that uses it.
type resolved struct {
	value    any
	messages []string
}

func (rn *run) value(v any, path string) (any, error) {
	return rn.walk(v, path, nil)
}

func (rn *run) walk(v any, path string, chain []string) (any, error) {
	switch t := v.(type) {
	case *domain.Map:
		out := domain.NewMap()
		var err error
		t.Range(func(k string, val any) bool {
			var nv any
			if nv, err = rn.walk(val, domain.JoinPath(path, k), chain); err != nil {
				return false
			}
			out.Set(k, nv)
			return true
		})
		return out, err
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			nv, err := rn.walk(item, domain.IndexPath(path, i), chain)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case string:
		return rn.str(t, path, chain)
	default:
		return v, nil
	}
}

// str substitutes one string leaf. A leaf that is exactly one placeholder
// takes the typed value of the variable.
func (rn *run) str(s, path string, chain []string) (any, error) {
	if !strings.Contains(s, "{{") && !strings.Contains(s, "<?=") {
		return s, nil
	}

	if m := wholePattern.FindStringSubmatch(s); m != nil {
		name := matchName(m)
		v, ok, err := rn.variable(name, path, chain)
		if err != nil {
			return nil, err
		}
		if !ok {
			return s, rn.unresolved(name, path, chain)
		}
		rn.substitutions++
		return v, nil
	}

	matches := placeholderPattern.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s, nil
	}

	var b strings.Builder
	last := 0
	for _, idx := range matches {
		b.WriteString(s[last:idx[0]])
		last = idx[1]
		token := s[idx[0]:idx[1]]

		var name string
		if idx[2] >= 0 {
			name = s[idx[2]:idx[3]]
		} else {
			name = s[idx[4]:idx[5]]
		}

		v, ok, err := rn.variable(name, path, chain)
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := rn.unresolved(name, path, chain); err != nil {
				return nil, err
			}
			b.WriteString(token)
			continue
		}
		text, scalar := domain.FormatScalar(v)
		if !scalar {
			rn.warn(path, "variable %q is a %s and cannot be embedded in text", name, domain.TypeName(v))
			b.WriteString(token)
			continue
		}
		rn.substitutions++
		b.WriteString(text)
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// variable looks up name and resolves placeholders inside its value
func (rn *run) variable(name, path string, chain []string) (any, bool, error) {
	for _, c := range chain {
		if c == name {
			return nil, false, &domain.CircularVariableError{
				Source: rn.source,
				Path:   path,
				Chain:  append(append([]string(nil), chain...), name),
			}
		}
	}
	if len(chain) >= rn.r.maxDepth {
		return nil, false, &domain.CircularVariableError{
			Source:        rn.source,
			Path:          path,
			Chain:         append(append([]string(nil), chain...), name),
			DepthExceeded: true,
		}
	}

	if m, ok := rn.memo[name]; ok {
		for _, msg := range m.messages {
			rn.warn(path, "%s", msg)
		}
		return domain.CloneValue(m.value), true, nil
	}

	raw, ok := rn.scope.Lookup(name)
	if !ok {
		return nil, false, nil
	}

	start := len(rn.warnings)
	next := append(append([]string(nil), chain...), name)
	v, err := rn.walk(raw, path, next)
	if err != nil {
		return nil, false, err
	}
	m := resolved{value: v}
	for _, issue := range rn.warnings[start:] {
		m.messages = append(m.messages, issue.Message)
	}
	rn.memo[name] = m
	return domain.CloneValue(v), true, nil
}

func (rn *run) unresolved(name, path string, chain []string) error {
	if rn.r.strict {
		return &domain.UnresolvedVariableError{Source: rn.source, Path: path, Name: name}
	}
	if len(chain) > 0 {
		rn.warn(path, "unresolved variable %q in %q", name, chain[len(chain)-1])
		return nil
	}
	rn.warn(path, "unresolved variable %q", name)
	return nil
}

func (rn *run) warn(path, format string, args ...any) {
	rn.warnings = append(rn.warnings, domain.Issue{
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: domain.SeverityWarning,
	})
}

func matchName(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}
