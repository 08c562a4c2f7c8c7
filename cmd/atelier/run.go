package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"atelier/internal/executor"
	"atelier/internal/logging"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <pattern> [content...]",
		Short: "Run a pattern through the fabric CLI",
		Long: "Run a pattern through the fabric CLI. Content is taken from the remaining\n" +
			"arguments, or read from stdin when none are given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.findPattern(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			content, err := readContent(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			runner, err := executor.New(opts.cfg.Fabric.CLIPath, opts.cfg.Fabric.Timeout(), opts.logger,
				executor.WithObserver(runLogger{logger: opts.logger}))
			if err != nil {
				return err
			}

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			out, err := runner.Execute(ctx, p.Name, content)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}

// readContent joins args, or reads all of r when args is empty.
func readContent(r io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read content from stdin: %w", err)
	}
	return string(data), nil
}

// runLogger reports one-shot executions through the logger.
type runLogger struct {
	logger *logging.AppLogger
}

func (r runLogger) ObserveExecution(backend string, duration time.Duration, err error) {
	if err != nil {
		r.logger.Warn("Pattern run failed", "backend", backend, "duration", duration, "error", err)
		return
	}
	r.logger.Info("Pattern run finished", "backend", backend, "duration", duration)
}
