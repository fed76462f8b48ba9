package cache

import (
	"time"

	"github.com/quantmind-br/whyml-go/internal/domain"
)

// Ensure BadgerCache implements domain.Cache
var _ domain.Cache = (*BadgerCache)(nil)

// Entry is a cached value with its bookkeeping
type Entry[V any] struct {
	Key        string
	Value      V
	InsertedAt time.Time
	TTL        time.Duration // zero means no expiry
	Weight     int64
}

// ExpiresAt returns the expiry instant, or the zero time when the entry never expires
func (e *Entry[V]) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.InsertedAt.Add(e.TTL)
}

// IsExpired returns true if the entry has expired at now
func (e *Entry[V]) IsExpired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return !now.Before(e.ExpiresAt())
}

// Remaining returns the remaining time-to-live at now
func (e *Entry[V]) Remaining(now time.Time) time.Duration {
	if e.TTL <= 0 {
		return 0
	}
	remaining := e.ExpiresAt().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clock supplies the current time; tests inject a manual clock
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// EvictReason explains why an entry left the cache
type EvictReason string

const (
	EvictExpired  EvictReason = "expired"
	EvictCapacity EvictReason = "capacity"
)

// Observer receives cache events; the metrics package implements it
type Observer interface {
	OnHit()
	OnMiss()
	OnEvict(reason EvictReason)
}

type noopObserver struct{}

func (noopObserver) OnHit() {}
func (noopObserver) OnMiss() {}
func (noopObserver) OnEvict(EvictReason) {}

// Options contains persistent cache configuration options
type Options struct {
	Directory string
	InMemory  bool
	Logger    bool
	// Compress stores values zstd-compressed
	Compress bool
}

// DefaultOptions returns default persistent cache options
func DefaultOptions() Options {
	return Options{
		Directory: "",
		InMemory:  false,
		Logger:    false,
		Compress:  true,
	}
}

// MemoryOptions configures the in-memory document cache
type MemoryOptions struct {
	// TTL applied by Set; zero disables expiry
	TTL time.Duration
	// MaxEntries bounds the entry count; zero means unbounded
	MaxEntries int
	// MaxWeight bounds the summed entry weights; zero means unbounded
	MaxWeight int64
	Clock     Clock
	Observer  Observer
}

// DefaultMemoryOptions returns default in-memory cache options
func DefaultMemoryOptions() MemoryOptions {
	return MemoryOptions{
		TTL:        time.Hour,
		MaxEntries: 1000,
		MaxWeight:  64 << 20,
	}
}

// Stats is a snapshot of cache counters
type Stats struct {
	Entries     int   `json:"entries"`
	Weight      int64 `json:"weight"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}
