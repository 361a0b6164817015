// Package keyvault resolves Azure Key Vault references in environment values
// before they are sent to the control plane.
//
// Supported forms:
//
//	@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/secrets/db-password/)
//	@Microsoft.KeyVault(VaultName=myvault;SecretName=db-password;SecretVersion=abc123)
//	akvs://<subscription-id>/myvault/db-password[/version]
package keyvault

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	minVaultNameLength = 3
	maxVaultNameLength = 24
	vaultDomain        = ".vault.azure.net"
)

// ErrInvalidReference is returned for values that look like a reference but cannot be parsed.
var ErrInvalidReference = errors.New("invalid Key Vault reference")

var (
	secretURIPattern = regexp.MustCompile(`^@Microsoft\.KeyVault\(SecretUri=(.+)\)$`)
	vaultNamePattern = regexp.MustCompile(`^@Microsoft\.KeyVault\(VaultName=([^;]+);SecretName=([^;)]+)(?:;SecretVersion=([^;)]+))?\)$`)
	akvsPattern      = regexp.MustCompile(`^akvs://([^/]+)/([^/]+)/([^/]+)(?:/([^/]+))?$`)
)

// Reference identifies one secret. An empty Version means the latest.
type Reference struct {
	VaultURL string
	Name     string
	Version  string
}

// IsReference reports whether value uses one of the supported reference forms.
func IsReference(value string) bool {
	v := unquote(value)
	return strings.HasPrefix(v, "@Microsoft.KeyVault(") || strings.HasPrefix(v, "akvs://")
}

// ParseReference parses value into a Reference.
func ParseReference(value string) (Reference, error) {
	v := unquote(value)

	if m := secretURIPattern.FindStringSubmatch(v); m != nil {
		return parseSecretURI(strings.TrimSpace(m[1]))
	}
	if m := vaultNamePattern.FindStringSubmatch(v); m != nil {
		if err := validateVaultName(m[1]); err != nil {
			return Reference{}, err
		}
		return Reference{VaultURL: "https://" + m[1] + vaultDomain, Name: m[2], Version: m[3]}, nil
	}
	if m := akvsPattern.FindStringSubmatch(v); m != nil {
		if err := validateVaultName(m[2]); err != nil {
			return Reference{}, err
		}
		return Reference{VaultURL: "https://" + m[2] + vaultDomain, Name: m[3], Version: m[4]}, nil
	}
	return Reference{}, ErrInvalidReference
}

func parseSecretURI(raw string) (Reference, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if u.Scheme != "https" {
		return Reference{}, fmt.Errorf("%w: vault URI must use https scheme", ErrInvalidReference)
	}
	host := strings.ToLower(u.Host)
	if !strings.HasSuffix(host, vaultDomain) {
		return Reference{}, fmt.Errorf("%w: vault URI must be in *%s domain", ErrInvalidReference, vaultDomain)
	}
	if err := validateVaultName(strings.TrimSuffix(host, vaultDomain)); err != nil {
		return Reference{}, err
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "secrets" || parts[1] == "" {
		return Reference{}, fmt.Errorf("%w: expected /secrets/<name>[/<version>]", ErrInvalidReference)
	}
	ref := Reference{VaultURL: "https://" + host, Name: parts[1]}
	if len(parts) == 3 {
		ref.Version = parts[2]
	}
	return ref, nil
}

func validateVaultName(name string) error {
	if len(name) < minVaultNameLength || len(name) > maxVaultNameLength {
		return fmt.Errorf("%w: vault name must be %d-%d characters, got %d", ErrInvalidReference, minVaultNameLength, maxVaultNameLength, len(name))
	}
	for i, ch := range name {
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') && ch != '-' {
			return fmt.Errorf("%w: vault name contains invalid character: %c", ErrInvalidReference, ch)
		}
		if i == 0 && ch >= '0' && ch <= '9' {
			return fmt.Errorf("%w: vault name cannot start with a number", ErrInvalidReference)
		}
	}
	return nil
}

func unquote(value string) string {
	v := strings.TrimSpace(value)
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			v = strings.TrimSpace(v[1 : len(v)-1])
		}
	}
	return v
}
