package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantmind-br/whyml-go/internal/config"
	"github.com/quantmind-br/whyml-go/internal/utils"
	"github.com/quantmind-br/whyml-go/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand of one root command
type cli struct {
	cfgFile string
	verbose bool
	viper   *viper.Viper
	log     *utils.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{viper: viper.New()}

	root := &cobra.Command{
		Use:   "whyml",
		Short: "Resolve declarative page manifests",
		Long: `whyml loads YAML or JSON page manifests, follows their extends and
dependencies references, merges the inheritance chain, substitutes
variables and validates the result.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is ~/.whyml/config.yaml)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Verbose output")
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultLogFormat, "Log format (pretty, json)")
	flags.Bool("no-cache", false, "Bypass and refresh the document cache")
	flags.Duration("timeout", config.DefaultFetchTimeout, "Fetch timeout per manifest")
	flags.IntP("workers", "j", config.DefaultWorkers, "Number of concurrent workers")
	flags.Int("max-depth", config.DefaultMaxDepth, "Max nested variable reference depth")

	_ = c.viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = c.viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = c.viper.BindPFlag("fetch.timeout", flags.Lookup("timeout"))
	_ = c.viper.BindPFlag("resolve.workers", flags.Lookup("workers"))
	_ = c.viper.BindPFlag("resolve.max_depth", flags.Lookup("max-depth"))

	root.AddCommand(
		newResolveCmd(c),
		newValidateCmd(c),
		newWatchCmd(c),
		newCacheCmd(c),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads configuration and sets up the logger
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWith(c.viper, c.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	c.log = utils.NewLogger(utils.LoggerOptions{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: c.verbose,
	})
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func (c *cli) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			c.log.Info().Msg("Shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}
