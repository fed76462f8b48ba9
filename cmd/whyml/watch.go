package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/quantmind-br/whyml-go/internal/app"
	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/metrics"
	"github.com/spf13/cobra"
)

func newWatchCmd(c *cli) *cobra.Command {
	f := &resolveFlags{}
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch <source>",
		Short: "Re-resolve a manifest whenever its local files change",
		Long: `Watch resolves the source once, then watches every local file in its
extends and dependencies graph. Each change re-resolves the manifest and
rewrites the output. Failures are logged and watching continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args[0], f, metricsAddr)
		},
	}

	f.register(cmd.Flags())
	f.registerOutput(cmd.Flags())
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func (c *cli) runWatch(cmd *cobra.Command, source string, f *resolveFlags, metricsAddr string) error {
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

	ctx, cancel := c.signalContext(cmd.Context())
	defer cancel()

	pipelineOpts := &app.Options{}
	if metricsAddr != "" {
		reg := metrics.NewRegistry()
		pipelineOpts.Registerer = reg
		stop, err := c.serveMetrics(metricsAddr, metrics.Handler(reg))
		if err != nil {
			return err
		}
		defer stop()
	}

	p, err := c.newPipeline(cfg, pipelineOpts)
	if err != nil {
		return err
	}
	defer p.Close()

	return p.Watch(ctx, source, opts, func(res *app.Result, err error) {
		if err != nil {
			c.log.Error().Err(err).Str("source", source).Msg("Resolve failed")
			return
		}
		out, err := encodeResults([]*app.Result{res}, format)
		if err != nil {
			c.log.Error().Err(err).Msg("Encode failed")
			return
		}
		if err := c.writeOutput(cmd, f.output, out); err != nil {
			c.log.Error().Err(err).Msg("Write failed")
		}
		if err := reportIssues(cmd.ErrOrStderr(), []*app.Result{res}); err != nil {
			c.log.Warn().Err(err).Msg("Manifest is invalid")
		}
	})
}

// serveMetrics starts a /metrics endpoint and returns its shutdown func
func (c *cli) serveMetrics(addr string, handler http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	c.log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
