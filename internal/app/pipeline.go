package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quantmind-br/whyml-go/internal/cache"
	"github.com/quantmind-br/whyml-go/internal/config"
	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/fetcher"
	"github.com/quantmind-br/whyml-go/internal/graph"
	"github.com/quantmind-br/whyml-go/internal/manifest"
	"github.com/quantmind-br/whyml-go/internal/merge"
	"github.com/quantmind-br/whyml-go/internal/metrics"
	"github.com/quantmind-br/whyml-go/internal/utils"
	"github.com/quantmind-br/whyml-go/internal/validate"
	"github.com/quantmind-br/whyml-go/internal/variables"
)

// Pipeline resolves manifests: load → graph → cycle check → merge in
// topological layers → substitute variables → validate
type Pipeline struct {
	config     *config.Config
	loader     *manifest.Loader
	builder    *graph.Builder
	merger     *merge.Merger
	persistent *cache.BadgerCache
	metrics    *metrics.Metrics
	logger     *utils.Logger
}

// Options contains options for creating a Pipeline
type Options struct {
	Config  *config.Config
	Verbose bool
	// Sources replaces the default file and HTTP sources, mainly for tests
	Sources []domain.Source
	// Registerer receives the pipeline metrics; nil keeps them unregistered
	Registerer prometheus.Registerer
	// Logger overrides the logger built from Config.Logging
	Logger *utils.Logger
}

// Result is the outcome of one resolve run
type Result struct {
	Source string
	// Document is the merged, substituted document with status resolved
	Document *domain.Document
	// Validation is empty when validation was skipped
	Validation domain.ValidationResult
	// Warnings are non-fatal substitution findings
	Warnings []domain.Issue
	// Sources lists every document in the dependency graph, sorted
	Sources  []string
	RunID    string
	Duration time.Duration
}

// Valid reports whether validation found no errors
func (r *Result) Valid() bool {
	return r.Validation.Valid()
}

// NewPipeline creates a pipeline from configuration
func NewPipeline(opts Options) (*Pipeline, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := opts.Logger
	if logger == nil {
		logLevel := cfg.Logging.Level
		if logLevel == "" {
			logLevel = config.DefaultLogLevel
		}
		logFormat := cfg.Logging.Format
		if logFormat == "" {
			logFormat = config.DefaultLogFormat
		}
		logger = utils.NewLogger(utils.LoggerOptions{
			Level:   logLevel,
			Format:  logFormat,
			Verbose: opts.Verbose,
		})
	}

	m := metrics.New(opts.Registerer)

	var persistent *cache.BadgerCache
	if cfg.Cache.Enabled && cfg.Cache.Persistent {
		dir := cfg.Cache.Directory
		if dir == "" {
			dir = config.CacheDir()
		}
		var err error
		persistent, err = cache.NewBadgerCache(cache.Options{
			Directory: utils.ExpandPath(dir),
			Compress:  cfg.Cache.Compress,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent cache: %w", err)
		}
	}

	sources := opts.Sources
	if sources == nil {
		sources = defaultSources(cfg, persistent, m, logger)
	}

	loader := manifest.NewLoader(manifest.Options{
		Sources: sources,
		Cache: cache.MemoryOptions{
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxEntries,
			MaxWeight:  cfg.CacheMaxBytes(),
			Observer:   m,
		},
		FetchTimeout: cfg.Fetch.Timeout,
		Observer:     m,
		Logger:       logger,
	})

	return &Pipeline{
		config:     cfg,
		loader:     loader,
		builder:    graph.NewBuilder(loader, graph.BuilderOptions{Concurrency: cfg.Resolve.Workers * 2, Logger: logger}),
		merger:     merge.NewMerger(merge.Options{Logger: logger}),
		persistent: persistent,
		metrics:    m,
		logger:     logger,
	}, nil
}

func defaultSources(cfg *config.Config, persistent *cache.BadgerCache, m *metrics.Metrics, logger *utils.Logger) []domain.Source {
	retries := cfg.Fetch.MaxRetries
	if retries == 0 {
		retries = -1
	}
	httpOpts := fetcher.ClientOptions{
		Timeout: cfg.Fetch.Timeout,
		Retry: fetcher.RetrierOptions{
			MaxRetries:      retries,
			InitialInterval: cfg.Fetch.InitialInterval,
			MaxInterval:     cfg.Fetch.MaxInterval,
		},
		UserAgent:   cfg.Fetch.UserAgent,
		MaxBodySize: cfg.FetchMaxBodyBytes(),
		CacheTTL:    cfg.Cache.TTL,
		Observer:    m,
		Logger:      logger,
	}
	if persistent != nil {
		httpOpts.Cache = persistent
	}
	return []domain.Source{
		fetcher.NewFileSource(),
		fetcher.NewHTTPSource(httpOpts),
	}
}

// Loader exposes the document loader, e.g. for cache invalidation
func (p *Pipeline) Loader() *manifest.Loader {
	return p.loader
}

// Resolve runs the full pipeline for source. Load, cycle and variable
// failures abort the run; validation findings never do and are reported on
// the result.
func (p *Pipeline) Resolve(ctx context.Context, source string, opts domain.ResolveOptions) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.WithRunID(runID).WithSource(source)

	res, err := p.resolve(ctx, source, p.withDefaults(opts), logger)
	elapsed := time.Since(start)
	if err != nil {
		p.metrics.ObserveResolve(string(domain.KindOf(err)), 0, elapsed)
		logger.Debug().Err(err).Dur("duration", elapsed).Msg("Resolve failed")
		return nil, err
	}

	res.RunID = runID
	res.Duration = elapsed
	p.metrics.ObserveResolve("", len(res.Sources), elapsed)

	logger.Info().
		Int("documents", len(res.Sources)).
		Int("warnings", len(res.Warnings)).
		Bool("valid", res.Valid()).
		Dur("duration", elapsed).
		Msg("Manifest resolved")

	return res, nil
}

func (p *Pipeline) withDefaults(opts domain.ResolveOptions) domain.ResolveOptions {
	if !p.config.Cache.Enabled {
		opts.NoCache = true
	}
	opts.StrictVariables = opts.StrictVariables || p.config.Resolve.StrictVariables
	opts.StrictValidation = opts.StrictValidation || p.config.Resolve.StrictValidation

	vars := make(map[string]any, len(p.config.Variables)+len(opts.Variables))
	for k, v := range p.config.Variables {
		vars[k] = v
	}
	for k, v := range opts.Variables {
		vars[k] = v
	}
	opts.Variables = vars
	return opts
}

func (p *Pipeline) resolve(ctx context.Context, source string, opts domain.ResolveOptions, logger *utils.Logger) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// external variables are checked before any I/O
	external, err := variables.External(opts.Variables)
	if err != nil {
		return nil, fmt.Errorf("invalid external variables: %w", err)
	}

	g, err := p.builder.Build(ctx, source, opts.LoadOptions)
	if err != nil {
		return nil, err
	}
	if err := g.DetectCycle(); err != nil {
		return nil, err
	}

	merged, err := p.mergeGraph(ctx, g)
	if err != nil {
		return nil, err
	}

	resolver := variables.NewResolver(variables.Options{
		MaxDepth: p.config.Resolve.MaxDepth,
		Strict:   opts.StrictVariables,
		Logger:   logger,
	})
	doc, warnings, err := resolver.Substitute(merged, variables.ForDocument(merged, external))
	if err != nil {
		return nil, err
	}
	doc.Status = domain.StatusResolved

	res := &Result{
		Source:   g.Root(),
		Document: doc,
		Warnings: warnings,
		Sources:  g.IDs(),
	}

	if !opts.SkipValidation {
		validator := validate.NewValidator(validate.Options{Strict: opts.StrictValidation, Logger: logger})
		res.Validation = validator.Validate(doc, opts.Sections...)
		if checksStructure(opts.Sections) {
			for _, id := range res.Sources {
				res.Validation.Append(validator.CheckInheritance(g.Document(id)).Issues...)
			}
		}
	}

	return res, nil
}

func checksStructure(sections []domain.Section) bool {
	if len(sections) == 0 {
		return true
	}
	for _, s := range sections {
		if s == domain.SectionStructure {
			return true
		}
	}
	return false
}

// mergeGraph merges every node after the nodes it references. Nodes within a
// topological layer are independent and merge concurrently.
func (p *Pipeline) mergeGraph(ctx context.Context, g *graph.Graph) (*domain.Document, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]*domain.Document, g.Len())
	var mu sync.RWMutex
	get := func(id string) *domain.Document {
		mu.RLock()
		defer mu.RUnlock()
		return resolved[id]
	}

	for _, level := range levels {
		errs := utils.ParallelForEach(ctx, level, p.config.Resolve.Workers, func(ctx context.Context, id string) error {
			node, ok := g.Node(id)
			if !ok {
				return fmt.Errorf("graph node %s missing", id)
			}

			var parent *domain.Document
			var deps []*domain.Document
			for _, ref := range node.Refs() {
				if ref == node.Parent {
					parent = get(ref)
					continue
				}
				deps = append(deps, get(ref))
			}

			doc := p.merger.Resolve(parent, deps, node.Doc)
			mu.Lock()
			resolved[id] = doc
			mu.Unlock()
			return nil
		})
		if err := utils.FirstError(errs); err != nil {
			return nil, err
		}
	}

	root := resolved[g.Root()]
	if root == nil {
		return nil, fmt.Errorf("root %s was not merged", g.Root())
	}
	return root, nil
}

// ClearCache drops every cached document, in memory and on disk
func (p *Pipeline) ClearCache() error {
	p.loader.Purge()
	if p.persistent != nil {
		if err := p.persistent.Clear(); err != nil {
			return fmt.Errorf("failed to clear persistent cache: %w", err)
		}
	}
	return nil
}

// Close releases all resources held by the pipeline
func (p *Pipeline) Close() error {
	if p.persistent != nil {
		return p.persistent.Close()
	}
	return nil
}
