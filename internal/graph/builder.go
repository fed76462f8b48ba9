package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight loads during a build
const DefaultConcurrency = 8

// Builder loads a root document and everything it references
type Builder struct {
	loader      domain.DocumentLoader
	concurrency int
	logger      *utils.Logger
}

// BuilderOptions contains options for creating a Builder
type BuilderOptions struct {
	Concurrency int
	Logger      *utils.Logger
}

// NewBuilder creates a graph builder on top of loader
func NewBuilder(loader domain.DocumentLoader, opts BuilderOptions) *Builder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Builder{
		loader:      loader,
		concurrency: opts.Concurrency,
		logger:      opts.Logger.WithComponent("graph"),
	}
}

// Build loads rootID and, recursively, every extends and dependencies target.
// Independent branches load concurrently and each id is loaded at most once.
// The first load failure cancels the build and is returned annotated with the
// failing id and the document that referenced it. Cycles are not an error
// here; call DetectCycle on the result.
func (b *Builder) Build(ctx context.Context, rootID string, opts domain.LoadOptions) (*Graph, error) {
	root, err := b.loader.Canonicalize(rootID, "")
	if err != nil {
		return nil, err
	}

	g := &Graph{root: root, nodes: make(map[string]*Node)}
	eg, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, b.concurrency)

	var mu sync.Mutex
	seen := make(map[string]bool)

	var visit func(id, from string)
	visit = func(id, from string) {
		mu.Lock()
		if seen[id] {
			mu.Unlock()
			return
		}
		seen[id] = true
		mu.Unlock()

		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			doc, err := b.loader.Load(ctx, id, opts)
			<-sem
			if err != nil {
				if from == "" {
					return fmt.Errorf("loading %s: %w", id, err)
				}
				return fmt.Errorf("loading %s (referenced by %s): %w", id, from, err)
			}

			mu.Lock()
			n := g.add(id, doc)
			mu.Unlock()

			for _, ref := range n.Refs() {
				visit(ref, id)
			}
			return nil
		})
	}

	visit(root, "")
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	b.logger.Debug().
		Str("root", root).
		Int("documents", g.Len()).
		Msg("dependency graph built")

	return g, nil
}
