package keyvault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/jongio/vmc/env"
	"github.com/jongio/vmc/logutil"
)

// ErrSecretNotFound is returned when the vault has no such secret.
var ErrSecretNotFound = errors.New("secret not found")

// SecretGetter fetches a secret value.
type SecretGetter interface {
	GetSecret(ctx context.Context, ref Reference) (string, error)
}

// Warning records a reference that could not be resolved.
type Warning struct {
	Key string
	Err error
}

// Resolver replaces references in environment pairs with secret values.
type Resolver struct {
	secrets SecretGetter

	// StopOnError aborts on the first failed reference instead of keeping
	// the original value and recording a warning.
	StopOnError bool
}

// NewResolver creates a resolver authenticated with DefaultAzureCredential.
func NewResolver() (*Resolver, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DefaultAzureCredential: %w", err)
	}
	return NewResolverWithSecrets(NewAzureSecrets(cred)), nil
}

// NewResolverWithSecrets creates a resolver backed by getter.
func NewResolverWithSecrets(getter SecretGetter) *Resolver {
	return &Resolver{secrets: getter}
}

// Resolve resolves a single reference value.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	ref, err := ParseReference(value)
	if err != nil {
		return "", err
	}
	return r.secrets.GetSecret(ctx, ref)
}

// ResolvePairs returns pairs with every reference value replaced. Pairs
// without a reference are returned unchanged.
func (r *Resolver) ResolvePairs(ctx context.Context, pairs []env.EnvPair) ([]env.EnvPair, []Warning, error) {
	log := logutil.NewLogger("keyvault")
	resolved := make([]env.EnvPair, 0, len(pairs))
	var warnings []Warning

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}
		if !IsReference(p.Value) {
			resolved = append(resolved, p)
			continue
		}

		value, err := r.Resolve(ctx, p.Value)
		if err != nil {
			warnings = append(warnings, Warning{Key: p.Key, Err: err})
			if r.StopOnError {
				return nil, warnings, fmt.Errorf("failed to resolve Key Vault reference for %s: %w", p.Key, err)
			}
			resolved = append(resolved, p)
			continue
		}
		log.Debug("resolved secret reference", "key", p.Key)
		resolved = append(resolved, env.EnvPair{Key: p.Key, Value: value})
	}
	return resolved, warnings, nil
}

// AzureSecrets reads secrets with the Azure SDK, caching one client per vault.
type AzureSecrets struct {
	credential azcore.TokenCredential
	mu         sync.RWMutex
	clients    map[string]*azsecrets.Client
}

// NewAzureSecrets creates a SecretGetter using cred.
func NewAzureSecrets(cred azcore.TokenCredential) *AzureSecrets {
	return &AzureSecrets{credential: cred, clients: make(map[string]*azsecrets.Client)}
}

func (a *AzureSecrets) client(vaultURL string) (*azsecrets.Client, error) {
	a.mu.RLock()
	c, ok := a.clients[vaultURL]
	a.mu.RUnlock()
	if ok {
		return c, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[vaultURL]; ok {
		return c, nil
	}
	c, err := azsecrets.NewClient(vaultURL, a.credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	a.clients[vaultURL] = c
	return c, nil
}

// GetSecret implements SecretGetter.
func (a *AzureSecrets) GetSecret(ctx context.Context, ref Reference) (string, error) {
	c, err := a.client(ref.VaultURL)
	if err != nil {
		return "", err
	}

	resp, err := c.GetSecret(ctx, ref.Name, ref.Version, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, ref.Name)
		}
		// The vault URL is left out to keep it out of logs.
		return "", fmt.Errorf("failed to get secret from Key Vault: %w", err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %s has no value", ref.Name)
	}
	return *resp.Value, nil
}
