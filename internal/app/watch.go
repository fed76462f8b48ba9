package app

import (
	"context"
	"fmt"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/watch"
)

// ResultFunc receives every watch resolve, successful or not
type ResultFunc func(*Result, error)

// Watch resolves source, then re-resolves it whenever one of the local files
// in its dependency graph changes, until ctx is cancelled. Changed files are
// dropped from the document cache before the re-resolve. A failed resolve is
// reported to onResult and watching continues.
func (p *Pipeline) Watch(ctx context.Context, source string, opts domain.ResolveOptions, onResult ResultFunc) error {
	w, err := watch.New(p.loader, watch.Options{
		Debounce: p.config.Watch.Debounce,
		Logger:   p.logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	// the root is tracked even when its first load fails
	root, err := p.loader.Canonicalize(source, "")
	if err != nil {
		return err
	}
	if err := w.Track(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", source, err)
	}

	resolveAndTrack := func(ctx context.Context) {
		res, err := p.Resolve(ctx, source, opts)
		if err == nil {
			if trackErr := w.Track(res.Sources...); trackErr != nil {
				p.logger.Warn().Err(trackErr).Msg("Failed to watch dependency")
			}
		}
		onResult(res, err)
	}

	resolveAndTrack(ctx)

	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		resolveAndTrack(ctx)
		return nil
	})
}
