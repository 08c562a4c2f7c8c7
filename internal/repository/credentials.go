package repository

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service name for OS credential store
	credentialService = "atelier"
	// Key for GitHub Personal Access Token
	githubTokenKey = "github_pat"
	// Environment fallback when the keyring holds no token
	githubTokenEnv = "GITHUB_TOKEN"
)

// ErrNoGitHubToken is returned when neither the keyring nor the environment
// holds a token.
var ErrNoGitHubToken = errors.New("no GitHub token configured - run 'atelier key set github' or set GITHUB_TOKEN")

// CredentialManager handles secure storage and retrieval of the GitHub token
type CredentialManager struct {
	service string
}

// NewCredentialManager creates a new credential manager instance
func NewCredentialManager() *CredentialManager {
	return &CredentialManager{
		service: credentialService,
	}
}

// StoreGitHubToken validates token and stores it in the OS credential store.
func (cm *CredentialManager) StoreGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := validateTokenFormat(token); err != nil {
		return fmt.Errorf("invalid token format: %w", err)
	}

	if err := keyring.Set(cm.service, githubTokenKey, token); err != nil {
		return fmt.Errorf("failed to store token in credential store: %w", err)
	}

	return nil
}

// GitHubToken returns the stored token, falling back to GITHUB_TOKEN.
func (cm *CredentialManager) GitHubToken() (string, error) {
	token, err := keyring.Get(cm.service, githubTokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("failed to retrieve token from credential store: %w", err)
	}

	if strings.TrimSpace(token) != "" {
		return token, nil
	}

	if env := strings.TrimSpace(os.Getenv(githubTokenEnv)); env != "" {
		return env, nil
	}

	return "", ErrNoGitHubToken
}

// DeleteGitHubToken removes the stored token. A missing token is not an error.
func (cm *CredentialManager) DeleteGitHubToken() error {
	err := keyring.Delete(cm.service, githubTokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from credential store: %w", err)
	}
	return nil
}

// HasGitHubToken reports whether a token is available from either source.
func (cm *CredentialManager) HasGitHubToken() bool {
	_, err := cm.GitHubToken()
	return err == nil
}

// validateTokenFormat checks the token against the known GitHub prefixes:
// ghp_ (classic), github_pat_ (fine-grained), gho_, ghu_ and ghs_.
func validateTokenFormat(token string) error {
	token = strings.TrimSpace(token)

	if len(token) < 20 {
		return fmt.Errorf("token too short (minimum 20 characters)")
	}

	validPrefixes := []string{
		"ghp_",
		"github_pat_",
		"gho_",
		"ghu_",
		"ghs_",
	}

	for _, prefix := range validPrefixes {
		if strings.HasPrefix(token, prefix) {
			return nil
		}
	}

	return fmt.Errorf("token does not match expected GitHub PAT format (should start with ghp_ or github_pat_)")
}
