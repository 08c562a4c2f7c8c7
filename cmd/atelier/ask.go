package main

import (
	"fmt"
	"strings"
	"time"

	"atelier/internal/llm"

	"github.com/spf13/cobra"
)

func newAskCmd(opts *cliOptions) *cobra.Command {
	var provider, model string

	cmd := &cobra.Command{
		Use:   "ask <pattern> [content...]",
		Short: "Run a pattern against the configured LLM provider",
		Long: "Send a pattern's system prompt and the given content to an LLM provider.\n" +
			"Content is taken from the remaining arguments, or read from stdin when none are given.",
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

			llmCfg := opts.cfg.LLM
			if provider != "" {
				llmCfg.Provider = provider
			}
			if model != "" {
				llmCfg.Model = model
			}

			client, err := llm.New(llmCfg, llm.NewCredentialStore(), llm.Options{Logger: opts.logger})
			if err != nil {
				return err
			}

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			start := time.Now()
			out, err := client.Process(ctx, p.SystemPrompt, userMessage(p.UserPrompt, content))
			runLogger{logger: opts.logger}.ObserveExecution(llmCfg.Provider, time.Since(start), err)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "override the configured provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&model, "model", "", "override the configured model")
	return cmd
}

// userMessage places content after the pattern's user template when it has one.
func userMessage(template *string, content string) string {
	if template == nil || strings.TrimSpace(*template) == "" {
		return content
	}
	return strings.TrimRight(*template, "\n") + "\n\n" + content
}
