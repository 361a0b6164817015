package env

import (
	"fmt"
	"strings"
)

// EnvPair is a single environment variable.
type EnvPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ParseEnvPair splits token on the first '='. Everything after it, including
// further '=' characters, is the value. A token without '=' has an empty value.
func ParseEnvPair(token string) EnvPair {
	key, value, _ := strings.Cut(token, "=")
	return EnvPair{Key: key, Value: value}
}

// String returns the KEY=VALUE form sent to the cloud controller.
func (p EnvPair) String() string {
	return fmt.Sprintf("%s=%s", p.Key, p.Value)
}

// ToSlice converts pairs into KEY=VALUE entries, preserving order.
func ToSlice(pairs []EnvPair) []string {
	result := make([]string, 0, len(pairs))
	for _, p := range pairs {
		result = append(result, p.String())
	}
	return result
}

// FromSlice converts KEY=VALUE entries into pairs, skipping malformed rows.
func FromSlice(envSlice []string) []EnvPair {
	result := make([]EnvPair, 0, len(envSlice))
	for _, envVar := range envSlice {
		key, value, ok := strings.Cut(envVar, "=")
		if !ok {
			continue
		}
		result = append(result, EnvPair{Key: key, Value: value})
	}
	return result
}

// Lookup returns the value stored for key in a KEY=VALUE list.
func Lookup(envSlice []string, key string) (string, bool) {
	prefix := key + "="
	for _, envVar := range envSlice {
		if strings.HasPrefix(envVar, prefix) {
			return envVar[len(prefix):], true
		}
	}
	return "", false
}

// Upsert returns a new list with pair added. An existing entry with the same
// key is replaced in place; otherwise the pair is appended.
func Upsert(envSlice []string, pair EnvPair) []string {
	result := make([]string, 0, len(envSlice)+1)
	prefix := pair.Key + "="
	replaced := false
	for _, envVar := range envSlice {
		if strings.HasPrefix(envVar, prefix) {
			if !replaced {
				result = append(result, pair.String())
				replaced = true
			}
			continue
		}
		result = append(result, envVar)
	}
	if !replaced {
		result = append(result, pair.String())
	}
	return result
}

// Remove returns a new list without key and reports whether it was present.
func Remove(envSlice []string, key string) ([]string, bool) {
	result := make([]string, 0, len(envSlice))
	prefix := key + "="
	found := false
	for _, envVar := range envSlice {
		if strings.HasPrefix(envVar, prefix) {
			found = true
			continue
		}
		result = append(result, envVar)
	}
	return result, found
}
