package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// BatchOptions controls ResolveAll
type BatchOptions struct {
	// ContinueOnError keeps resolving the remaining sources after a failure
	ContinueOnError bool
	// Progress renders a progress bar on stderr
	Progress bool
	// Description labels the progress bar; defaults to utils.DescResolving
	Description string
}

// BatchResult is the outcome of resolving one source of a batch
type BatchResult struct {
	Source   string
	Result   *Result
	Error    error
	Duration time.Duration
}

// ResolveAll resolves several sources concurrently. Results are index-aligned
// with sources. Without ContinueOnError the first failure cancels the
// remaining runs and is returned.
func (p *Pipeline) ResolveAll(ctx context.Context, sources []string, opts domain.ResolveOptions, batch BatchOptions) ([]BatchResult, error) {
	startTime := time.Now()
	total := len(sources)
	results := make([]BatchResult, total)

	p.logger.Info().
		Int("sources", total).
		Bool("continue_on_error", batch.ContinueOnError).
		Msg("Starting batch resolve")

	if total == 0 {
		return results, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type indexed struct {
		source string
		index  int
	}
	items := make([]indexed, total)
	for i, s := range sources {
		items[i] = indexed{source: s, index: i}
	}

	var progress interface{ Add(int) error }
	if batch.Progress {
		desc := batch.Description
		if desc == "" {
			desc = utils.DescResolving
		}
		bar := utils.NewProgressBar(total, desc)
		defer bar.Finish()
		progress = bar
	}

	errs := utils.ParallelForEach(runCtx, items, p.config.Resolve.Workers, func(ctx context.Context, item indexed) error {
		sourceStart := time.Now()
		res, err := p.Resolve(ctx, item.source, opts)
		results[item.index] = BatchResult{
			Source:   item.source,
			Result:   res,
			Error:    err,
			Duration: time.Since(sourceStart),
		}
		if progress != nil {
			_ = progress.Add(1)
		}

		if err != nil {
			p.logger.Error().
				Err(err).
				Int("source_idx", item.index).
				Str("source", item.source).
				Msg("Source resolve failed")
			if !batch.ContinueOnError {
				cancel()
			}
			return err
		}
		return nil
	})

	// sources never started because of an earlier failure
	for i, err := range errs {
		if results[i].Source == "" {
			results[i] = BatchResult{Source: sources[i], Error: err}
		}
	}

	if ctx.Err() != nil {
		p.logger.Warn().Msg("Batch resolve cancelled")
		return results, ctx.Err()
	}

	failed := 0
	var firstError error
	for _, r := range results {
		if r.Error == nil {
			continue
		}
		failed++
		// siblings cancelled by the failure are not the cause
		if firstError == nil && !errors.Is(r.Error, context.Canceled) {
			firstError = fmt.Errorf("source %s failed: %w", r.Source, r.Error)
		}
	}
	if firstError == nil && failed > 0 {
		firstError = context.Canceled
	}

	p.logger.Info().
		Dur("total_duration", time.Since(startTime)).
		Int("total", total).
		Int("success", total-failed).
		Int("failed", failed).
		Msg("Batch resolve completed")

	if firstError != nil {
		return results, fmt.Errorf("batch completed with %d/%d failures: %w", failed, total, firstError)
	}
	return results, nil
}
