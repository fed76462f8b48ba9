package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/quantmind-br/whyml-go/internal/app"
	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
	"github.com/spf13/cobra"
)

// validateReport is the JSON shape of one validated source
type validateReport struct {
	Source string              `json:"source"`
	Valid  bool                `json:"valid"`
	Issues []domain.Issue      `json:"issues"`
	Error  *domain.ErrorReport `json:"error,omitempty"`
}

func newValidateCmd(c *cli) *cobra.Command {
	f := &resolveFlags{}
	var format string

	cmd := &cobra.Command{
		Use:   "validate <source>...",
		Short: "Resolve manifests and report validation findings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd, args, f, format)
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Report format (text, json)")
	return cmd
}

func (c *cli) runValidate(cmd *cobra.Command, args []string, f *resolveFlags, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := f.options(cmd)
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

	batch, _ := p.ResolveAll(ctx, args, opts, app.BatchOptions{
		ContinueOnError: true,
		Progress:        len(args) > 1,
		Description:     utils.DescValidating,
	})

	reports := make([]validateReport, 0, len(batch))
	failed := 0
	for _, b := range batch {
		r := validateReport{Source: b.Source, Issues: []domain.Issue{}}
		switch {
		case b.Error != nil:
			desc := domain.Describe(b.Error)
			r.Error = &desc
		case b.Result != nil:
			r.Valid = b.Result.Valid()
			r.Issues = append(r.Issues, b.Result.Warnings...)
			r.Issues = append(r.Issues, b.Result.Validation.Issues...)
		}
		if !r.Valid {
			failed++
		}
		reports = append(reports, r)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		writeTextReport(out, reports)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manifests failed validation", failed, len(reports))
	}
	return nil
}

func writeTextReport(w io.Writer, reports []validateReport) {
	for _, r := range reports {
		switch {
		case r.Error != nil:
			fmt.Fprintf(w, "%s: error (%s)\n  %s\n", r.Source, r.Error.Kind, r.Error.Message)
			continue
		case r.Valid:
			fmt.Fprintf(w, "%s: valid\n", r.Source)
		default:
			fmt.Fprintf(w, "%s: invalid\n", r.Source)
		}
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "  %s\n", issue)
		}
	}
}
