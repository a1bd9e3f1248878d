// Package version carries the build identifier stamped at link time:
//
//	go build -ldflags "-X .../internal/version.Version=1.4.2"
package version

// Version is resolved once at process start and treated as read-only.
var Version = "0.0.0-dev"
