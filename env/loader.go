package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile reads a dotenv style file into ordered pairs. path is chosen by
// the user and may point anywhere, including parent directories.
// The pairs are not validated; callers validate each one before use.
func LoadFile(path string) ([]EnvPair, error) {
	if path == "" {
		return nil, errors.New("env file path is empty")
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("env file %s is not a regular file", path)
	}

	// #nosec G304 -- the user names the file on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	return ParseKeyValueFormat(data), nil
}

// ParseKeyValueFormat parses output in "KEY=value" format (one per line).
// Handles quoted values and an optional "export " prefix, and skips empty
// lines, comments and lines without '='. Keys are kept as written so that
// validation can reject them with the user's spelling.
func ParseKeyValueFormat(data []byte) []EnvPair {
	var pairs []EnvPair
	lines := strings.Split(string(data), "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		// Remove surrounding quotes if present (handles both " and ')
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		pairs = append(pairs, EnvPair{Key: key, Value: value})
	}

	return pairs
}
