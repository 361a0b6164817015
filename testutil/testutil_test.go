package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestCaptureOutput(t *testing.T) {
	output := CaptureOutput(t, func() error {
		fmt.Println("Uploading Application:")
		fmt.Print("OK")
		return nil
	})
	if output != "Uploading Application:\nOK" {
		t.Errorf("unexpected output %q", output)
	}

	output = CaptureOutput(t, func() error {
		fmt.Println("partial")
		return errors.New("boom")
	})
	if output != "partial\n" {
		t.Errorf("output should be captured even when fn fails, got %q", output)
	}
	if os.Stdout == nil {
		t.Fatal("stdout not restored")
	}
}

func TestWriteFiles(t *testing.T) {
	root := t.TempDir()
	WriteFiles(t, root, map[string]string{
		"app.js":          "x",
		"lib/nested/a.js": "y",
	})

	data, err := os.ReadFile(filepath.Join(root, "lib", "nested", "a.js"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "y" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestSymlink(t *testing.T) {
	root := t.TempDir()
	WriteFile(t, root, "lib/real.js", "real")
	link := Symlink(t, "../lib/real.js", root, "bin/alias.js")

	target, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err)
	}
	if target != "../lib/real.js" {
		t.Errorf("target should be kept verbatim, got %q", target)
	}
	data, err := os.ReadFile(link)
	if err != nil || string(data) != "real" {
		t.Errorf("link should resolve to the file: %q %v", data, err)
	}
}
