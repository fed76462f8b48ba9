package manifest

import "errors"

// Sentinel errors for the manifest package
var (
	// ErrEmptyReference indicates an empty source id or extends/dependency entry
	ErrEmptyReference = errors.New("manifest reference cannot be empty")

	// ErrUnsupportedScheme indicates a URL scheme no source can serve
	ErrUnsupportedScheme = errors.New("unsupported reference scheme (use a path, file://, http:// or https://)")

	// ErrLocalFromRemote indicates a remote manifest referencing a local file
	ErrLocalFromRemote = errors.New("remote manifest cannot reference a local file")

	// ErrEmptyDocument indicates the manifest has no content
	ErrEmptyDocument = errors.New("manifest is empty")

	// ErrNotMapping indicates the manifest root is not a mapping
	ErrNotMapping = errors.New("manifest root must be a mapping")

	// ErrMultipleDocuments indicates a YAML stream with more than one document
	ErrMultipleDocuments = errors.New("manifest must contain a single document")
)
