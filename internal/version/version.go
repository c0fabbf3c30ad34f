// Package version holds the conform build version.
package version

// Version is the current conform version. Overridden at build time via
// -ldflags "-X conform/internal/version.Version=...".
var Version = "0.3.0"
