package domain

import (
	"context"
	"time"
)

// Source fetches raw manifest content for a canonical source identifier
type Source interface {
	// Name returns the source name (file, http)
	Name() string
	// CanHandle returns true if this source can fetch the given identifier
	CanHandle(sourceID string) bool
	// Fetch retrieves the raw content
	Fetch(ctx context.Context, sourceID string, opts FetchOptions) (*Content, error)
}

// FetchOptions controls a single source fetch
type FetchOptions struct {
	// NoCache skips any persistent content cache and refreshes it
	NoCache bool
}

// Content is raw manifest bytes as returned by a Source
type Content struct {
	SourceID    string
	Data        []byte
	ContentType string
	FromCache   bool
}

// DocumentLoader loads and parses manifests by source identifier
type DocumentLoader interface {
	// Load returns the parsed document for sourceID
	Load(ctx context.Context, sourceID string, opts LoadOptions) (*Document, error)
	// Canonicalize normalizes a reference relative to the referencing document
	Canonicalize(ref, base string) (string, error)
}

// Cache defines the interface for persistent raw-content caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Has checks if a key exists in cache
	Has(ctx context.Context, key string) bool
	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error
	// Close releases cache resources
	Close() error
}
