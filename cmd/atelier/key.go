package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"atelier/internal/llm"
	"atelier/internal/repository"

	"github.com/spf13/cobra"
)

// githubProvider routes key commands to the token used by sync.
const githubProvider = "github"

// keyStore abstracts the two credential stores behind `atelier key`.
type keyStore interface {
	Store(key string) error
	Delete() error
	Has() bool
}

type llmKeyStore struct {
	store    *llm.CredentialStore
	provider string
}

func (s llmKeyStore) Store(key string) error { return s.store.StoreAPIKey(s.provider, key) }
func (s llmKeyStore) Delete() error          { return s.store.DeleteAPIKey(s.provider) }
func (s llmKeyStore) Has() bool              { return s.store.HasAPIKey(s.provider) }

type githubKeyStore struct {
	creds *repository.CredentialManager
}

func (s githubKeyStore) Store(key string) error { return s.creds.StoreGitHubToken(key) }
func (s githubKeyStore) Delete() error          { return s.creds.DeleteGitHubToken() }
func (s githubKeyStore) Has() bool              { return s.creds.HasGitHubToken() }

func keyStoreFor(provider string) (keyStore, error) {
	if provider == githubProvider {
		return githubKeyStore{creds: repository.NewCredentialManager()}, nil
	}
	if err := llm.ValidateProvider(provider); err != nil {
		return nil, err
	}
	return llmKeyStore{store: llm.NewCredentialStore(), provider: provider}, nil
}

func newKeyCmd(_ *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys and the GitHub token in the OS credential store",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <provider>",
			Short: "Store a key read from stdin (openai, anthropic, ollama, github)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := keyStoreFor(args[0])
				if err != nil {
					return err
				}
				key, err := readKey(cmd.InOrStdin())
				if err != nil {
					return err
				}
				if err := store.Store(key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored key for %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <provider>",
			Short: "Remove a stored key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := keyStoreFor(args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted key for %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "status <provider>",
			Short: "Report whether a key is stored",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := keyStoreFor(args[0])
				if err != nil {
					return err
				}
				state := "not stored"
				if store.Has() {
					state = "stored"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
				return nil
			},
		},
	)

	return cmd
}

// readKey returns the first line of r, trimmed.
func readKey(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", fmt.Errorf("no key provided on stdin")
	}
	return key, nil
}
