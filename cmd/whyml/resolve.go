package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/quantmind-br/whyml-go/internal/app"
	"github.com/quantmind-br/whyml-go/internal/config"
	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/output"
	"github.com/quantmind-br/whyml-go/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// resolveFlags are the pipeline flags shared by resolve, validate and watch
type resolveFlags struct {
	vars            []string
	sections        []string
	strict          bool
	strictVariables bool
	skipValidation  bool
	format          string
	output          string
	continueOnError bool
	outDir          string
	force           bool
	index           bool
}

func (f *resolveFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVar(&f.vars, "var", nil, "External variable as key=value (repeatable)")
	fs.StringSliceVar(&f.sections, "sections", nil, "Validate only these sections (comma separated)")
	fs.BoolVar(&f.strict, "strict", false, "Treat validation warnings as errors")
	fs.BoolVar(&f.strictVariables, "strict-variables", false, "Fail on unresolved variables")
}

func (f *resolveFlags) registerOutput(fs *pflag.FlagSet) {
	fs.StringVarP(&f.format, "format", "f", "yaml", "Output format (yaml, json)")
	fs.StringVarP(&f.output, "output", "o", "", "Write output to file instead of stdout")
	fs.BoolVar(&f.skipValidation, "skip-validation", false, "Skip validation")
}

// options builds ResolveOptions from flags
func (f *resolveFlags) options(cmd *cobra.Command) (domain.ResolveOptions, error) {
	vars, err := parseVars(f.vars)
	if err != nil {
		return domain.ResolveOptions{}, err
	}
	sections, err := domain.ParseSections(f.sections)
	if err != nil {
		return domain.ResolveOptions{}, err
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")

	return domain.ResolveOptions{
		LoadOptions:      domain.LoadOptions{NoCache: noCache},
		Variables:        vars,
		Sections:         sections,
		StrictVariables:  f.strictVariables,
		StrictValidation: f.strict,
		SkipValidation:   f.skipValidation,
	}, nil
}

// parseVars parses key=value pairs. Values that read as YAML scalars keep
// their type, so size=10 binds an integer.
func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		vars[key] = scalar(raw)
	}
	return vars, nil
}

func scalar(raw string) any {
	if raw == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch t := v.(type) {
	case bool, int, float64:
		return t
	default:
		return raw
	}
}

func newResolveCmd(c *cli) *cobra.Command {
	f := &resolveFlags{}

	cmd := &cobra.Command{
		Use:   "resolve <source>...",
		Short: "Resolve manifests and print the result",
		Long: `Resolve loads each source (path or URL), merges its extends and
dependencies chain, substitutes variables and validates the result.
The resolved manifest is printed as YAML or JSON. Several sources are
resolved concurrently and printed in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd, args, f)
		},
	}

	f.register(cmd.Flags())
	f.registerOutput(cmd.Flags())
	cmd.Flags().BoolVar(&f.continueOnError, "continue-on-error", false, "Keep resolving remaining sources after a failure")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "Write one file per source into this directory")
	cmd.Flags().BoolVar(&f.force, "force", false, "Overwrite existing files in --out-dir")
	cmd.Flags().BoolVar(&f.index, "index", false, "Write index.json describing every file in --out-dir")
	cmd.MarkFlagsMutuallyExclusive("output", "out-dir")
	return cmd
}

func (c *cli) runResolve(cmd *cobra.Command, args []string, f *resolveFlags) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := f.options(cmd)
	if err != nil {
		return err
	}
	format, err := domain.ParseFormat(f.format)
	if err != nil {
		return err
	}

	p, err := c.newPipeline(cfg, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := c.signalContext(cmd.Context())
	defer cancel()

	var results []*app.Result
	var batchErr error
	if len(args) == 1 {
		res, err := p.Resolve(ctx, args[0], opts)
		if err != nil {
			return err
		}
		results = append(results, res)
	} else {
		batch, err := p.ResolveAll(ctx, args, opts, app.BatchOptions{
			ContinueOnError: f.continueOnError,
			Progress:        true,
		})
		if err != nil && !f.continueOnError {
			return err
		}
		batchErr = err
		for _, b := range batch {
			if b.Result != nil {
				results = append(results, b.Result)
			}
		}
	}

	if f.outDir != "" {
		if err := c.writeDir(ctx, f, format, results); err != nil {
			return err
		}
	} else {
		out, err := encodeResults(results, format)
		if err != nil {
			return err
		}
		if err := c.writeOutput(cmd, f.output, out); err != nil {
			return err
		}
	}

	if err := reportIssues(cmd.ErrOrStderr(), results); err != nil {
		return err
	}
	return batchErr
}

func (c *cli) newPipeline(cfg *config.Config, opts *app.Options) (*app.Pipeline, error) {
	o := app.Options{}
	if opts != nil {
		o = *opts
	}
	o.Config = cfg
	o.Verbose = c.verbose
	o.Logger = c.log
	p, err := app.NewPipeline(o)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, nil
}

// encodeResults serializes documents in order. YAML documents are separated
// by ---; JSON documents are one per line.
func encodeResults(results []*app.Result, format domain.Format) ([]byte, error) {
	var buf bytes.Buffer
	for i, res := range results {
		data, err := res.Document.Encode(format)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", res.Source, err)
		}
		if i > 0 && format == domain.FormatYAML {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func (c *cli) writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := utils.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	c.log.Info().Str("path", path).Int("bytes", len(data)).Msg("Output written")
	return nil
}

// writeDir writes each result to its own file under f.outDir
func (c *cli) writeDir(ctx context.Context, f *resolveFlags, format domain.Format, results []*app.Result) error {
	w := output.NewWriter(output.WriterOptions{
		BaseDir: f.outDir,
		Format:  format,
		Force:   f.force,
	})
	if err := w.EnsureBaseDir(); err != nil {
		return err
	}
	collector := output.NewCollector(output.CollectorOptions{BaseDir: f.outDir, Enabled: f.index})

	for _, res := range results {
		path, written, err := w.Write(ctx, res.Source, res.Document)
		if err != nil {
			return err
		}
		if !written {
			c.log.Warn().Str("path", path).Msg("File exists, skipping (use --force to overwrite)")
		}
		collector.Add(res.Source, path, res.Document, res.Validation)
	}

	if err := collector.Flush(); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	count, size, err := w.Stats()
	if err == nil {
		c.log.Info().Int("files", count).Int64("bytes", size).Str("dir", w.BaseDir()).Msg("Output written")
	}
	return nil
}

// reportIssues prints substitution warnings and validation findings to w and
// returns a ValidationError for the first invalid result
func reportIssues(w io.Writer, results []*app.Result) error {
	var firstInvalid *domain.ValidationError
	for _, res := range results {
		for _, issue := range res.Warnings {
			fmt.Fprintf(w, "%s: %s\n", res.Source, issue)
		}
		for _, issue := range res.Validation.Issues {
			fmt.Fprintf(w, "%s: %s\n", res.Source, issue)
		}
		if !res.Valid() && firstInvalid == nil {
			firstInvalid = domain.NewValidationError(res.Source, res.Validation)
		}
	}
	if firstInvalid != nil {
		return firstInvalid
	}
	return nil
}
