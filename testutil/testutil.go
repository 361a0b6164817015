// Package testutil provides helpers shared by vmc package tests: stdout
// capture and bundle fixtures with real symbolic links.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// CaptureOutput captures stdout during fn. The original stdout is always
// restored. An error from fn is logged, not failed.
func CaptureOutput(t *testing.T, fn func() error) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Buffered so the reader never blocks after the test gives up on it.
	outCh := make(chan string, 1)
	go func() {
		var output strings.Builder
		buf := make([]byte, 1024)
		for {
			n, readErr := r.Read(buf)
			if n > 0 {
				output.Write(buf[:n])
			}
			if readErr != nil {
				break
			}
		}
		outCh <- output.String()
	}()

	fnErr := fn()

	if err := w.Close(); err != nil {
		t.Logf("Failed to close pipe writer: %v", err)
	}
	os.Stdout = origStdout
	output := <-outCh

	if fnErr != nil {
		t.Logf("Command error: %v", fnErr)
	}
	return output
}

// WriteFile writes content to root/rel, creating parent directories.
// rel uses forward slashes.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return p
}

// WriteFiles writes every rel -> content entry under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		WriteFile(t, root, rel, content)
	}
}

// SkipWithoutSymlinks skips the test on platforms where creating symlinks
// needs elevated privileges.
func SkipWithoutSymlinks(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}
}

// Symlink creates root/rel pointing at target, creating parent directories.
// target is written verbatim, so relative targets stay relative.
func Symlink(t *testing.T, target, root, rel string) string {
	t.Helper()
	SkipWithoutSymlinks(t)
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.Symlink(target, p); err != nil {
		t.Fatalf("Failed to create symlink %s -> %s: %v", rel, target, err)
	}
	return p
}
