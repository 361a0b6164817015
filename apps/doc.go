// Package apps implements the application commands behind vmc push, update
// and the env family.
//
// Update enforces the deploy ordering: links in the bundle are checked for
// containment before the resources or upload endpoints are contacted, and
// environment keys are validated before any PUT is built. Validation
// failures of environment keys are reported through Display rather than
// returned, so a bad key never aborts the surrounding CLI session.
package apps
