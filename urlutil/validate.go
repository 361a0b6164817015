package urlutil

import (
	"fmt"
	neturl "net/url"
	"strings"
)

const (
	// MaxURLLength is the RFC 2616 practical limit for URL length
	MaxURLLength = 2048

	// DefaultScheme is prepended to targets and app URIs given without one.
	DefaultScheme = "http"
)

// Validate performs HTTP/HTTPS URL validation using net/url.Parse.
// It validates that the URL:
//   - Is not empty or only whitespace
//   - Uses http:// or https:// protocol
//   - Has a valid host/domain
//   - Does not exceed MaxURLLength (2048 characters)
func Validate(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)

	if rawURL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("url exceeds maximum length of %d characters", MaxURLLength)
	}

	parsed, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		if parsed.Scheme == "" {
			return fmt.Errorf("url must use http:// or https://")
		}
		return fmt.Errorf("url must use http:// or https://, got: %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("url missing host/domain")
	}

	return nil
}

// NormalizeScheme ensures URL has http:// or https:// prefix.
// If the URL already has a valid scheme it is returned unchanged (trimmed).
func NormalizeScheme(rawURL, defaultScheme string) string {
	rawURL = strings.TrimSpace(rawURL)

	lower := strings.ToLower(rawURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return rawURL
	}

	return defaultScheme + "://" + rawURL
}

// NormalizeTarget turns user input such as "API.vcap.me/" into the canonical
// target URL "http://api.vcap.me": default scheme added, scheme and host
// lowercased, trailing slashes removed. The result is validated.
func NormalizeTarget(rawTarget string) (string, error) {
	withScheme := NormalizeScheme(rawTarget, DefaultScheme)
	parsed, err := neturl.Parse(withScheme)
	if err != nil {
		return "", fmt.Errorf("invalid target %q: %w", rawTarget, err)
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""

	normalized := parsed.String()
	if err := Validate(normalized); err != nil {
		return "", fmt.Errorf("invalid target %q: %w", rawTarget, err)
	}
	return normalized, nil
}

// AppURL returns a browsable URL for an application URI such as "foo.vcap.me".
func AppURL(uri string) (string, error) {
	u := NormalizeScheme(uri, DefaultScheme)
	if err := Validate(u); err != nil {
		return "", err
	}
	return u, nil
}
