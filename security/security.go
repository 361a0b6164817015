// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// ErrInvalidPath indicates a path contains invalid characters or patterns.
	ErrInvalidPath = errors.New("invalid path")
	// ErrPathTraversal indicates a path escapes the directory it must stay in.
	ErrPathTraversal = errors.New("path traversal detected")
	// ErrInsecureFilePermissions indicates a file has insecure (world-writable) permissions.
	ErrInsecureFilePermissions = errors.New("insecure file permissions")
)

// ValidatePath checks if a path is safe to use.
// It rejects empty paths and parent directory references, and resolves
// symbolic links when the path already exists.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%w: path contains parent directory reference", ErrPathTraversal)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve path: %w", ErrInvalidPath, err)
	}
	cleanPath := filepath.Clean(absPath)

	resolvedPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		// A path that doesn't exist yet is validated structurally only.
		if !os.IsNotExist(err) {
			return fmt.Errorf("%w: cannot resolve symbolic links: %w", ErrInvalidPath, err)
		}
		resolvedPath = cleanPath
	}

	if strings.Contains(resolvedPath, "..") {
		return fmt.Errorf("%w: resolved path contains parent directory reference", ErrPathTraversal)
	}

	return nil
}

// IsWithinRoot reports whether path is root itself or lies below it.
// Both arguments must be absolute and clean.
func IsWithinRoot(path, root string) bool {
	if path == root {
		return true
	}
	if root == string(filepath.Separator) {
		return filepath.IsAbs(path)
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}

// ValidateFilePermissions checks if a file has secure permissions.
// On Unix systems, it ensures the file is not group- or world-writable.
// On Windows, this check is skipped as Windows uses ACLs differently.
func ValidateFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode().Perm()&0o022 != 0 {
		return ErrInsecureFilePermissions
	}

	return nil
}
