package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Format represents the output format.
type Format string

const (
	// FormatDefault is the default human-readable format.
	FormatDefault Format = "default"
	// FormatJSON is JSON format.
	FormatJSON Format = "json"
)

// Unicode symbols used as message prefixes.
const (
	SymbolCheck   = "✓"
	SymbolCross   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
)

var (
	green  = color.New(color.FgHiGreen)
	red    = color.New(color.FgHiRed)
	yellow = color.New(color.FgHiYellow)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

var (
	mu           sync.RWMutex
	globalFormat = FormatDefault
	output       io.Writer
)

// SetOutput redirects all output to w. Passing nil restores os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	if output != nil {
		return output
	}
	return os.Stdout
}

// NoColor disables color output.
func NoColor() {
	color.NoColor = true
}

// SetFormat sets the global output format.
func SetFormat(format string) error {
	mu.Lock()
	defer mu.Unlock()
	switch format {
	case "default", "":
		globalFormat = FormatDefault
	case "json":
		globalFormat = FormatJSON
	default:
		return fmt.Errorf("invalid output format: %s (valid options: default, json)", format)
	}
	return nil
}

// GetFormat returns the current output format.
func GetFormat() Format {
	mu.RLock()
	defer mu.RUnlock()
	return globalFormat
}

// IsJSON returns true if the output format is JSON.
func IsJSON() bool {
	return GetFormat() == FormatJSON
}

// PrintJSON prints data as indented JSON.
func PrintJSON(data any) error {
	encoder := json.NewEncoder(writer())
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Print outputs data in the configured format.
// For default format, uses the formatter function.
// For JSON format, marshals the data object.
func Print(data any, formatter func()) error {
	if IsJSON() {
		return PrintJSON(data)
	}
	formatter()
	return nil
}

// Header prints a bold header with a divider
func Header(text string) {
	w := writer()
	_, _ = bold.Fprintf(w, "\n%s\n", text)
	_, _ = fmt.Fprintln(w, strings.Repeat("=", len(text)))
}

// Success prints a success message with green checkmark
func Success(format string, args ...any) {
	prefixed(green, SymbolCheck, format, args...)
}

// Error prints an error message with red X
func Error(format string, args ...any) {
	prefixed(red, SymbolCross, format, args...)
}

// Warning prints a warning message with yellow triangle
func Warning(format string, args ...any) {
	prefixed(yellow, SymbolWarning, format, args...)
}

// Info prints an info message with a cyan info icon
func Info(format string, args ...any) {
	prefixed(cyan, SymbolInfo, format, args...)
}

func prefixed(c *color.Color, symbol, format string, args ...any) {
	if IsJSON() {
		return
	}
	w := writer()
	_, _ = c.Fprint(w, symbol)
	_, _ = fmt.Fprintf(w, " %s\n", fmt.Sprintf(format, args...))
}

// Plain prints plain text without any formatting.
func Plain(format string, args ...any) {
	_, _ = fmt.Fprintf(writer(), format+"\n", args...)
}

// Label prints a label and value pair
func Label(label, value string) {
	w := writer()
	_, _ = dim.Fprintf(w, "   %-12s", label+":")
	_, _ = fmt.Fprintf(w, " %s\n", value)
}

// Status colors well-known application states.
func Status(status string) string {
	switch strings.ToUpper(status) {
	case "STARTED", "RUNNING", "OK":
		return green.Sprint(status)
	case "STOPPED", "PENDING", "STARTING":
		return yellow.Sprint(status)
	case "CRASHED", "FLAPPING", "FAILED", "DOWN":
		return red.Sprint(status)
	default:
		return status
	}
}

// TableRow represents a row in a table as a map of column header to value.
type TableRow map[string]string

// Table prints a simple table with the given headers and rows.
func Table(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}
	w := writer()

	widths := make(map[string]int)
	for _, header := range headers {
		widths[header] = len(header)
	}
	for _, row := range rows {
		for _, header := range headers {
			if len(row[header]) > widths[header] {
				widths[header] = len(row[header])
			}
		}
	}

	_, _ = fmt.Fprint(w, "   ")
	for _, header := range headers {
		_, _ = bold.Fprintf(w, "%-*s", widths[header], header)
		_, _ = fmt.Fprint(w, "  ")
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprint(w, "   ")
	for _, header := range headers {
		_, _ = fmt.Fprint(w, strings.Repeat("─", widths[header])+"  ")
	}
	_, _ = fmt.Fprintln(w)

	for _, row := range rows {
		_, _ = fmt.Fprint(w, "   ")
		for _, header := range headers {
			_, _ = fmt.Fprintf(w, "%-*s  ", widths[header], row[header])
		}
		_, _ = fmt.Fprintln(w)
	}
}
