// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package fileutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File permissions
const (
	// DirPermission is the default permission for creating directories (rwxr-x---)
	DirPermission = 0750
	// FilePermission is the default permission for creating files (rw-r--r--)
	FilePermission = 0644
	// PrivateFilePermission is used for files holding credentials (rw-------)
	PrivateFilePermission = 0600
)

const renameAttempts = 5

// AtomicWriteJSON writes data as indented JSON to path atomically.
func AtomicWriteJSON(path string, data any, perm os.FileMode) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return AtomicWriteFile(path, jsonData, perm)
}

// AtomicWriteFile writes raw bytes to a file atomically.
// It writes to a temporary file first, then renames it to the target path.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = tmpFile.Close() }()

	fail := func(format string, err error) error {
		_ = os.Remove(tmpPath)
		return fmt.Errorf(format, err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		return fail("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fail("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fail("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fail("failed to set file permissions: %w", err)
	}

	var renameErr error
	for attempt := 0; attempt < renameAttempts; attempt++ {
		renameErr = os.Rename(tmpPath, path)
		if renameErr == nil {
			break
		}
		if attempt < renameAttempts-1 {
			time.Sleep(time.Duration(20*(attempt+1)) * time.Millisecond) // 20ms, 40ms, 60ms, 80ms
		}
	}
	if renameErr != nil {
		return fail("failed to rename temp file: %w", renameErr)
	}

	return nil
}

// ReadJSON reads JSON from a file into the target interface.
// Returns nil error if file doesn't exist (target unchanged).
func ReadJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, DirPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
