package domain

import (
	"fmt"
	"strings"
)

// Severity of a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding
type Issue struct {
	Path     string   `json:"path" yaml:"path"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Path, i.Message)
}

// ValidationResult is the ordered list of findings for a document
type ValidationResult struct {
	Issues []Issue `json:"issues" yaml:"issues"`
}

// Errorf records an error-severity issue
func (r *ValidationResult) Errorf(path, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

// Warnf records a warning-severity issue
func (r *ValidationResult) Warnf(path, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Append adds issues in order
func (r *ValidationResult) Append(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Errors returns the error-severity issues
func (r ValidationResult) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues
func (r ValidationResult) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r ValidationResult) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Valid reports whether there are no error-severity issues
func (r ValidationResult) Valid() bool {
	return len(r.Errors()) == 0
}

// Strict returns a copy in which warnings are promoted to errors
func (r ValidationResult) Strict() ValidationResult {
	out := ValidationResult{Issues: make([]Issue, len(r.Issues))}
	for i, issue := range r.Issues {
		issue.Severity = SeverityError
		out.Issues[i] = issue
	}
	return out
}

func (r ValidationResult) String() string {
	lines := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

// JoinPath builds a dotted path, skipping empty segments
func JoinPath(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// IndexPath appends a sequence index to a path
func IndexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
