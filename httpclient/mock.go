package httpclient

import "context"

// MockTokenProvider is a TokenProvider for tests.
type MockTokenProvider struct {
	Token string
	Error error

	// Scopes records every scope a token was requested for.
	Scopes []string
}

// GetToken returns the configured token or error.
func (m *MockTokenProvider) GetToken(ctx context.Context, scope string) (string, error) {
	m.Scopes = append(m.Scopes, scope)
	if m.Error != nil {
		return "", m.Error
	}
	return m.Token, nil
}
