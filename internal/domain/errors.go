package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	// ErrNotFound indicates a manifest source does not exist
	ErrNotFound = errors.New("not found")

	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("timeout")

	// ErrRateLimited indicates the remote source asked us to slow down
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidSource indicates a source identifier cannot be interpreted
	ErrInvalidSource = errors.New("invalid source identifier")

	// ErrUnsupportedFormat indicates an unknown manifest serialization
	ErrUnsupportedFormat = errors.New("unsupported manifest format")

	// ErrUnknownSection indicates a section name outside the known set
	ErrUnknownSection = errors.New("unknown section")

	// ErrNoSourceHandler indicates no registered source can fetch an identifier
	ErrNoSourceHandler = errors.New("no source handler for identifier")
)

// ErrorKind is a stable tag for structured error reporting
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindNetwork            ErrorKind = "network"
	KindParse              ErrorKind = "parse"
	KindCyclicDependency   ErrorKind = "cyclic_dependency"
	KindCircularVariable   ErrorKind = "circular_variable"
	KindUnresolvedVariable ErrorKind = "unresolved_variable"
	KindValidation         ErrorKind = "validation"
	KindInternal           ErrorKind = "internal"
)

// KindedError is implemented by every fatal pipeline error
type KindedError interface {
	error
	Kind() ErrorKind
	// Location returns the implicated source id or dotted path
	Location() string
}

// NotFoundError reports a missing manifest source
type NotFoundError struct {
	Source string
	Err    error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("manifest not found: %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("manifest not found: %s", e.Source)
}

func (e *NotFoundError) Unwrap() error { return e.Err }
func (e *NotFoundError) Kind() ErrorKind { return KindNotFound }
func (e *NotFoundError) Location() string { return e.Source }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(source string, err error) *NotFoundError {
	return &NotFoundError{Source: source, Err: err}
}

// NetworkError represents a transport-level failure while fetching a source
type NetworkError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("network error for %s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("network error for %s: %v", e.Source, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
func (e *NetworkError) Kind() ErrorKind { return KindNetwork }
func (e *NetworkError) Location() string { return e.Source }

// NewNetworkError creates a new NetworkError
func NewNetworkError(source string, statusCode int, err error) *NetworkError {
	return &NetworkError{
		Source:     source,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ParseError reports malformed manifest content. Line and Column are 1-based
// and zero when unknown.
type ParseError struct {
	Source string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error in ")
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }
func (e *ParseError) Kind() ErrorKind { return KindParse }
func (e *ParseError) Location() string { return e.Source }

// CyclicDependencyError reports an extends/dependencies cycle. Cycle lists
// the source ids in traversal order with the first id repeated at the end.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CyclicDependencyError) Kind() ErrorKind { return KindCyclicDependency }

func (e *CyclicDependencyError) Location() string {
	if len(e.Cycle) == 0 {
		return ""
	}
	return e.Cycle[0]
}

// CircularVariableError reports a variable that references itself, directly
// or transitively, or a reference chain deeper than the configured limit.
type CircularVariableError struct {
	Source        string
	Path          string
	Chain         []string
	DepthExceeded bool
}

func (e *CircularVariableError) Error() string {
	where := e.Path
	if e.Source != "" {
		where = e.Source + ": " + e.Path
	}
	if e.DepthExceeded {
		return fmt.Sprintf("variable resolution exceeded max depth at %s: %s", where, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("circular variable reference at %s: %s", where, strings.Join(e.Chain, " -> "))
}

func (e *CircularVariableError) Kind() ErrorKind { return KindCircularVariable }
func (e *CircularVariableError) Location() string { return e.Path }

// UnresolvedVariableError is returned in strict mode when a placeholder has
// no binding in any scope layer
type UnresolvedVariableError struct {
	Source string
	Path   string
	Name   string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unresolved variable %q at %s", e.Name, e.Path)
}

func (e *UnresolvedVariableError) Kind() ErrorKind { return KindUnresolvedVariable }
func (e *UnresolvedVariableError) Location() string { return e.Path }

// ValidationError carries the full validation result of a document
type ValidationError struct {
	Source string
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	errs := e.Result.Errors()
	if len(errs) == 1 {
		return fmt.Sprintf("validation failed for %s: %s", e.Source, errs[0])
	}
	return fmt.Sprintf("validation failed for %s: %d errors", e.Source, len(errs))
}

func (e *ValidationError) Kind() ErrorKind { return KindValidation }
func (e *ValidationError) Location() string { return e.Source }

// NewValidationError creates a new ValidationError
func NewValidationError(source string, result ValidationResult) *ValidationError {
	return &ValidationError{Source: source, Result: result}
}

// RetryableError indicates an error that can be retried
type RetryableError struct {
	Err        error
	RetryAfter int // Seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		switch netErr.StatusCode {
		case 0:
			// transport failure without a response
			return true
		case 408, 429:
			return true
		case 501, 505:
			return false
		}
		return netErr.StatusCode >= 500 && netErr.StatusCode <= 599
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// KindOf returns the stable kind tag of err, looking through wrapping
func KindOf(err error) ErrorKind {
	var k KindedError
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// ErrorReport is a structured view of an error for text or JSON output
type ErrorReport struct {
	Kind     ErrorKind `json:"kind" yaml:"kind"`
	Message  string    `json:"message" yaml:"message"`
	Location string    `json:"location,omitempty" yaml:"location,omitempty"`
}

// Describe builds an ErrorReport for err
func Describe(err error) ErrorReport {
	if err == nil {
		return ErrorReport{}
	}
	report := ErrorReport{Kind: KindInternal, Message: err.Error()}
	var k KindedError
	if errors.As(err, &k) {
		report.Kind = k.Kind()
		report.Location = k.Location()
	}
	return report
}
