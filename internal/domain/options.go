package domain

import "time"

// LoadOptions controls a single document load
type LoadOptions struct {
	// NoCache bypasses the document cache and refreshes it with the fetched result
	NoCache bool
	// Timeout bounds the caller's wait; zero means the loader default
	Timeout time.Duration
}

// ResolveOptions controls a full load → merge → substitute → validate run
type ResolveOptions struct {
	LoadOptions
	// Variables are externally injected and take precedence over every
	// variables section
	Variables map[string]any
	// Sections narrows validation to the listed sections; empty means all
	Sections []Section
	// StrictVariables fails on unresolved placeholders instead of warning
	StrictVariables bool
	// StrictValidation promotes validation warnings to errors
	StrictValidation bool
	// SkipValidation disables the validation stage
	SkipValidation bool
}
