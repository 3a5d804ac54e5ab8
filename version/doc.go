// Package version reports build information for the livecue binary.
//
// Version, commit, branch and build time are set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/livecue/version.Version=1.0.0" ./cmd/livecue
//
// Values left empty are filled from the module build info when available.
package version
