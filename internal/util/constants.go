// Package util provides small shared helpers and constants. It is kept free
// of imports from other internal/* packages so it can sit below everything
// else in the dependency graph.
package util

import "time"

const (
	// DefaultSocksPort is the local SOCKS listener port used unless the user
	// overrides it. Browsers are pointed at localhost:8080.
	DefaultSocksPort = 8080

	// StopGrace is how long Stop waits for the supervisor's read loop to
	// drain and exit after the child process has been signalled. Stop
	// proceeds regardless once this elapses; the loop may still be finishing.
	StopGrace = 2 * time.Second

	// DefaultRefreshSeconds is the fallback TUI refresh interval when the
	// settings file carries an invalid or missing value.
	DefaultRefreshSeconds = 3
)
