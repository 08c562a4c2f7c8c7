package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func newTestCredentialStore(t *testing.T) *CredentialStore {
	t.Helper()
	keyring.MockInit()
	return NewCredentialStoreWithService("atelier-test-" + t.Name())
}

func TestCredentialStore_StoreAndRetrieve(t *testing.T) {
	cs := newTestCredentialStore(t)
	t.Setenv("ANTHROPIC_API_KEY", "")

	assert.False(t, cs.HasAPIKey(ProviderAnthropic))

	require.NoError(t, cs.StoreAPIKey(ProviderAnthropic, "  sk-ant-123  "))
	assert.True(t, cs.HasAPIKey(ProviderAnthropic))

	key, err := cs.APIKey(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-123", key)

	require.NoError(t, cs.DeleteAPIKey(ProviderAnthropic))
	assert.False(t, cs.HasAPIKey(ProviderAnthropic))

	_, err = cs.APIKey(ProviderAnthropic)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestCredentialStore_StoreValidation(t *testing.T) {
	cs := newTestCredentialStore(t)

	assert.Error(t, cs.StoreAPIKey(ProviderOpenAI, "   "))
	assert.ErrorIs(t, cs.StoreAPIKey("unknown", "k"), ErrUnsupportedProvider)
}

func TestCredentialStore_EnvFallback(t *testing.T) {
	cs := newTestCredentialStore(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	key, err := cs.APIKey(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", key)

	require.NoError(t, cs.StoreAPIKey(ProviderOpenAI, "sk-stored"))
	key, err = cs.APIKey(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-stored", key, "stored key takes precedence over the environment")
}

func TestCredentialStore_DeleteMissingIsNoop(t *testing.T) {
	cs := newTestCredentialStore(t)
	assert.NoError(t, cs.DeleteAPIKey(ProviderOllama))
}

func TestCredentialStore_NoEnvForOllama(t *testing.T) {
	cs := newTestCredentialStore(t)
	_, err := cs.APIKey(ProviderOllama)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
