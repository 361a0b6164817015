package keyvault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/jongio/vmc/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
	calls  []Reference
}

func (f *fakeSecrets) GetSecret(_ context.Context, ref Reference) (string, error) {
	f.calls = append(f.calls, ref)
	v, ok := f.values[ref.Name]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func TestResolver_ResolvePairs(t *testing.T) {
	secrets := &fakeSecrets{values: map[string]string{"db-password": "hunter2"}}
	r := NewResolverWithSecrets(secrets)

	pairs := []env.EnvPair{
		{Key: "PLAIN", Value: "value"},
		{Key: "DB_PASSWORD", Value: "@Microsoft.KeyVault(VaultName=myvault;SecretName=db-password)"},
	}

	resolved, warnings, err := r.ResolvePairs(context.Background(), pairs)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []env.EnvPair{
		{Key: "PLAIN", Value: "value"},
		{Key: "DB_PASSWORD", Value: "hunter2"},
	}, resolved)
	assert.Equal(t, []Reference{{VaultURL: "https://myvault.vault.azure.net", Name: "db-password"}}, secrets.calls)
}

func TestResolver_ResolvePairs_WarnsAndKeepsValue(t *testing.T) {
	r := NewResolverWithSecrets(&fakeSecrets{})
	ref := "akvs://sub/myvault/missing"

	resolved, warnings, err := r.ResolvePairs(context.Background(), []env.EnvPair{{Key: "TOKEN", Value: ref}})
	require.NoError(t, err)
	assert.Equal(t, []env.EnvPair{{Key: "TOKEN", Value: ref}}, resolved)
	require.Len(t, warnings, 1)
	assert.Equal(t, "TOKEN", warnings[0].Key)
	assert.ErrorIs(t, warnings[0].Err, ErrSecretNotFound)
}

func TestResolver_ResolvePairs_StopOnError(t *testing.T) {
	r := NewResolverWithSecrets(&fakeSecrets{})
	r.StopOnError = true

	_, warnings, err := r.ResolvePairs(context.Background(), []env.EnvPair{
		{Key: "BAD", Value: "@Microsoft.KeyVault(VaultName=x;SecretName=y)"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.Contains(t, err.Error(), "BAD")
	assert.Len(t, warnings, 1)
}

func TestResolver_ResolvePairs_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewResolverWithSecrets(&fakeSecrets{}).ResolvePairs(ctx, []env.EnvPair{{Key: "A", Value: "1"}})
	assert.True(t, errors.Is(err, context.Canceled))
}

type staticCredential struct{}

func (staticCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestAzureSecrets_ClientCache(t *testing.T) {
	a := NewAzureSecrets(staticCredential{})
	c1, err := a.client("https://myvault.vault.azure.net")
	require.NoError(t, err)
	c2, err := a.client("https://myvault.vault.azure.net")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestAzureSecrets_SeparateVaults(t *testing.T) {
	a := NewAzureSecrets(staticCredential{})
	c1, err := a.client("https://one.vault.azure.net")
	require.NoError(t, err)
	c2, err := a.client("https://two.vault.azure.net")
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.Len(t, a.clients, 2)
}
