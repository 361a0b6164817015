// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package browser opens application URLs in the user's browser.
//
// Launching is delegated to github.com/pkg/browser (cmd /c start on Windows,
// open on macOS, xdg-open on Linux). URLs are validated first: only http and
// https are accepted, so file:// and javascript: URLs never reach a shell.
package browser

import (
	"fmt"
	"io"
	"strings"
	"time"

	pkgbrowser "github.com/pkg/browser"

	"github.com/jongio/vmc/urlutil"
)

// Target selects where a URL is opened.
type Target string

const (
	// TargetDefault uses the system default browser.
	TargetDefault Target = "default"
	// TargetNone disables launching; callers print the URL instead.
	TargetNone Target = "none"
)

// DefaultTimeout bounds how long Launch waits for the launcher to return.
const DefaultTimeout = 5 * time.Second

// openURL is replaced in tests.
var openURL = pkgbrowser.OpenURL

func init() {
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
}

// ValidTargets returns all valid browser target values.
func ValidTargets() []Target {
	return []Target{TargetDefault, TargetNone}
}

// IsValid checks if a target string is valid.
func IsValid(target string) bool {
	for _, valid := range ValidTargets() {
		if Target(target) == valid {
			return true
		}
	}
	return false
}

// FormatValidTargets returns a comma-separated list of valid targets.
func FormatValidTargets() string {
	targets := ValidTargets()
	strs := make([]string, len(targets))
	for i, t := range targets {
		strs[i] = string(t)
	}
	return strings.Join(strs, ", ")
}

// LaunchOptions contains options for launching a browser.
type LaunchOptions struct {
	URL     string
	Target  Target
	Timeout time.Duration
}

// Launch opens opts.URL unless the target is TargetNone. It returns once the
// launcher exits or the timeout passes, whichever is first.
func Launch(opts LaunchOptions) error {
	if err := urlutil.Validate(opts.URL); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if opts.Target == TargetNone {
		return nil
	}
	if opts.Target != "" && !IsValid(string(opts.Target)) {
		return fmt.Errorf("unsupported browser target %q (valid: %s)", opts.Target, FormatValidTargets())
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	done := make(chan error, 1)
	go func() {
		done <- openURL(opts.URL)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("could not open browser: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return nil
	}
}
