package llm

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// credentialService is the OS credential store service name.
const credentialService = "atelier"

// envKeys maps providers to the environment variable consulted when no key
// is stored in the OS credential store.
var envKeys = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// ErrNoAPIKey is returned when a provider needs a key and none is configured.
var ErrNoAPIKey = errors.New("no API key configured")

// CredentialStore keeps provider API keys in the OS credential store.
type CredentialStore struct {
	service string
}

// NewCredentialStore creates a store using the default service name.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{service: credentialService}
}

// NewCredentialStoreWithService creates a store under a custom service name.
func NewCredentialStoreWithService(service string) *CredentialStore {
	return &CredentialStore{service: service}
}

func keyName(provider string) string {
	return provider + "_api_key"
}

// StoreAPIKey saves the key for provider.
func (cs *CredentialStore) StoreAPIKey(provider, key string) error {
	if err := ValidateProvider(provider); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if err := keyring.Set(cs.service, keyName(provider), strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("failed to store API key in credential store: %w", err)
	}
	return nil
}

// APIKey returns the stored key for provider, falling back to the
// provider's environment variable.
func (cs *CredentialStore) APIKey(provider string) (string, error) {
	key, err := keyring.Get(cs.service, keyName(provider))
	if err == nil && strings.TrimSpace(key) != "" {
		return key, nil
	}

	name, hasEnv := envKeys[provider]
	if hasEnv {
		if env := strings.TrimSpace(os.Getenv(name)); env != "" {
			return env, nil
		}
	}

	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("failed to retrieve API key from credential store: %w", err)
	}
	if hasEnv {
		return "", fmt.Errorf("%w for %s: run `atelier key set %s` or set %s", ErrNoAPIKey, provider, provider, name)
	}
	return "", fmt.Errorf("%w for %s", ErrNoAPIKey, provider)
}

// DeleteAPIKey removes the stored key. Deleting a missing key is not an error.
func (cs *CredentialStore) DeleteAPIKey(provider string) error {
	err := keyring.Delete(cs.service, keyName(provider))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete API key from credential store: %w", err)
	}
	return nil
}

// HasAPIKey reports whether a key is stored for provider, without consulting the environment.
func (cs *CredentialStore) HasAPIKey(provider string) bool {
	_, err := keyring.Get(cs.service, keyName(provider))
	return err == nil
}
