// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package logutil provides the diagnostic logger used across vmc.
//
// Diagnostics go to stderr through log/slog and never carry auth tokens or
// passwords. User-facing output is the job of package cliout.
//
// # Basic Usage
//
//	logutil.SetupLogger(debug, structured)
//
//	log := logutil.NewLogger("apps").WithApp("foo").WithOperation("update")
//	log.Debug("uploading bits", "files", n, "bytes", size)
//
// # Debug Mode
//
// Debug logging is enabled by passing debug=true to SetupLogger or by
// setting VMC_DEBUG=true.
//
// # Structured Logging
//
// With structured=true the logger emits JSON lines:
//
//	{"time":"2024-01-15T10:30:00Z","level":"INFO","msg":"app updated","component":"apps","app":"foo"}
package logutil
