package env

import (
	"strings"
)

// HasReservedPrefix reports whether key starts with one of ReservedPrefixes.
// The match is case-sensitive.
func HasReservedPrefix(key string) bool {
	for _, prefix := range ReservedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// FilterByPrefixSlice returns KEY=VALUE pairs matching a prefix.
// The prefix matching is case-insensitive for keys.
// Returns a new slice containing only the matching entries.
// Malformed entries (without "=") are skipped.
//
// Example:
//
//	envSlice := []string{
//		"DB_HOST=db",
//		"DB_PORT=5432",
//		"NODE_ENV=production",
//	}
//	dbVars := env.FilterByPrefixSlice(envSlice, "db_")
//	// Returns: ["DB_HOST=db", "DB_PORT=5432"]
func FilterByPrefixSlice(envSlice []string, prefix string) []string {
	if envSlice == nil {
		return []string{}
	}

	result := make([]string, 0)
	prefixUpper := strings.ToUpper(prefix)

	for _, envVar := range envSlice {
		key, _, ok := strings.Cut(envVar, "=")
		if !ok {
			continue
		}

		if strings.HasPrefix(strings.ToUpper(key), prefixUpper) {
			result = append(result, envVar)
		}
	}

	return result
}
