package manifest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantmind-br/whyml-go/internal/cache"
	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a shared fetch when no timeout is configured
const DefaultFetchTimeout = 30 * time.Second

// Load outcomes reported to a LoadObserver
const (
	OutcomeHit     = "hit"
	OutcomeFetched = "fetched"
	OutcomeError   = "error"
)

// LoadObserver receives the outcome of every Load call; the metrics package
// implements it
type LoadObserver interface {
	ObserveLoad(outcome string, elapsed time.Duration)
}

// Ensure Loader implements domain.DocumentLoader
var _ domain.DocumentLoader = (*Loader)(nil)

// Loader loads, parses and caches manifests by canonical source id.
//
// Concurrent loads of the same uncached id share a single fetch. The fetch
// runs detached from the callers under the loader's own timeout, so a caller
// that gives up does not abort it for the others and its result is still
// cached.
type Loader struct {
	sources      []domain.Source
	docs         *cache.Memory[*domain.Document]
	group        singleflight.Group
	fetchTimeout time.Duration
	observer     LoadObserver
	logger       *utils.Logger
}

// Options contains options for creating a Loader
type Options struct {
	// Sources are consulted in order; the first that can handle an id wins
	Sources []domain.Source
	Cache   cache.MemoryOptions
	// FetchTimeout bounds each shared fetch
	FetchTimeout time.Duration
	Observer     LoadObserver
	Logger       *utils.Logger
}

// NewLoader creates a new manifest loader
func NewLoader(opts Options) *Loader {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Loader{
		sources:      opts.Sources,
		docs:         cache.NewMemory[*domain.Document](opts.Cache),
		fetchTimeout: opts.FetchTimeout,
		observer:     opts.Observer,
		logger:       opts.Logger.WithComponent("loader"),
	}
}

// Canonicalize normalizes ref relative to the referencing document base
func (l *Loader) Canonicalize(ref, base string) (string, error) {
	return Canonicalize(ref, base)
}

// Load returns the parsed document for sourceID. Documents are shared through
// the cache and must not be mutated.
func (l *Loader) Load(ctx context.Context, sourceID string, opts domain.LoadOptions) (*domain.Document, error) {
	start := time.Now()

	id, err := l.Canonicalize(sourceID, "")
	if err != nil {
		l.observe(OutcomeError, start)
		return nil, err
	}

	if !opts.NoCache {
		if doc, ok := l.docs.Get(id); ok {
			l.observe(OutcomeHit, start)
			return doc, nil
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// refreshes do not join a fetch that may have started before them
	key := id
	if opts.NoCache {
		key = "refresh\x00" + id
	}

	detached := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		return l.fetch(detached, id, opts.NoCache)
	})

	select {
	case <-ctx.Done():
		l.observe(OutcomeError, start)
		l.logger.Debug().Str("source", id).Err(ctx.Err()).Msg("gave up waiting for manifest")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewNetworkError(id, 0, fmt.Errorf("%w: %w", domain.ErrTimeout, ctx.Err()))
		}
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			l.observe(OutcomeError, start)
			return nil, res.Err
		}
		l.observe(OutcomeFetched, start)
		return res.Val.(*domain.Document), nil
	}
}

// fetch reads, parses and caches one manifest
func (l *Loader) fetch(ctx context.Context, id string, noCache bool) (*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()

	logger := l.logger.WithSource(id)

	src, err := l.sourceFor(id)
	if err != nil {
		return nil, err
	}

	content, err := src.Fetch(ctx, id, domain.FetchOptions{NoCache: noCache})
	if err != nil {
		logger.Debug().Err(err).Str("via", src.Name()).Msg("fetch failed")
		return nil, err
	}

	doc, err := Parse(id, content.Data, DetectFormat(id, content.ContentType))
	if err != nil {
		return nil, err
	}

	if doc.Extends != "" {
		if doc.Extends, err = l.Canonicalize(doc.Extends, id); err != nil {
			return nil, &domain.ParseError{Source: id, Msg: fmt.Sprintf("extends: %v", err), Err: err}
		}
	}
	for i, dep := range doc.Dependencies {
		if doc.Dependencies[i], err = l.Canonicalize(dep, id); err != nil {
			return nil, &domain.ParseError{Source: id, Msg: fmt.Sprintf("%s: %v", domain.IndexPath("dependencies", i), err), Err: err}
		}
	}

	l.docs.Set(id, doc, int64(len(content.Data)))
	logger.Debug().
		Str("via", src.Name()).
		Bool("from_cache", content.FromCache).
		Int("bytes", len(content.Data)).
		Msg("manifest loaded")

	return doc, nil
}

func (l *Loader) sourceFor(id string) (domain.Source, error) {
	for _, s := range l.sources {
		if s.CanHandle(id) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNoSourceHandler, id)
}

// Invalidate drops the cached document for sourceID
func (l *Loader) Invalidate(sourceID string) bool {
	id, err := l.Canonicalize(sourceID, "")
	if err != nil {
		return false
	}
	return l.docs.Delete(id)
}

// Purge drops every cached document
func (l *Loader) Purge() {
	l.docs.Purge()
}

// Stats returns document cache counters
func (l *Loader) Stats() cache.Stats {
	return l.docs.Stats()
}

func (l *Loader) observe(outcome string, start time.Time) {
	if l.observer != nil {
		l.observer.ObserveLoad(outcome, time.Since(start))
	}
}
