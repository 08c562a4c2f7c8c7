package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"atelier/internal/catalog"
	"atelier/internal/config"
	"atelier/internal/logging"
	"atelier/internal/pattern"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliOptions struct {
	configPath  string
	patternsDir string
	metricsAddr string
	verbose     bool

	cfg    *config.Config
	logger *logging.AppLogger
}

func newRootCommand() *cobra.Command {
	var opts cliOptions

	root := &cobra.Command{
		Use:           "atelier",
		Short:         "Serve Fabric patterns as MCP tools over stdio",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, &opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (.yaml or .toml)")
	root.PersistentFlags().StringVar(&opts.patternsDir, "patterns-dir", "", "patterns directory checked before the defaults")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newServeCmd(&opts),
		newListCmd(&opts),
		newShowCmd(&opts),
		newRunCmd(&opts),
		newAskCmd(&opts),
		newSyncCmd(&opts),
		newBrowseCmd(&opts),
		newKeyCmd(&opts),
		newConfigCmd(&opts),
	)

	return root
}

// init loads the config and applies flag overrides. Flags only win when
// they were set explicitly.
func (o *cliOptions) init(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "patterns-dir":
			cfg.Fabric.PatternsDir = o.patternsDir
		case "metrics-addr":
			cfg.Metrics.Addr = o.metricsAddr
		}
	})

	o.cfg = cfg
	if o.logger == nil {
		o.logger = newLogger(o.verbose)
	}
	return nil
}

// newLogger never writes to stdout, which carries the protocol stream.
func newLogger(verbose bool) *logging.AppLogger {
	if verbose {
		return logging.NewWriterLogger(os.Stderr, false)
	}
	return logging.NewAppLogger()
}

func (o *cliOptions) newLoader() *pattern.Loader {
	return pattern.NewLoader(o.cfg.Fabric.PatternsDir, o.cfg.Fabric.MaxFileSize, o.logger)
}

func (o *cliOptions) loadCatalog(ctx context.Context, opts ...catalog.Option) (*catalog.Catalog, error) {
	opts = append([]catalog.Option{catalog.WithLogger(o.logger)}, opts...)
	cat, err := catalog.Load(ctx, o.newLoader(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}
	return cat, nil
}

func (o *cliOptions) findPattern(ctx context.Context, name string) (pattern.Pattern, error) {
	cat, err := o.loadCatalog(ctx)
	if err != nil {
		return pattern.Pattern{}, err
	}
	if p, ok := cat.Find(name); ok {
		return p, nil
	}
	if trimmed, ok := pattern.NameFromToolName(name); ok {
		if p, ok := cat.Find(trimmed); ok {
			return p, nil
		}
	}
	return pattern.Pattern{}, newExitError(2, "pattern not found: %s", name)
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
