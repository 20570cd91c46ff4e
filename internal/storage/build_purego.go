//go:build !cgo_sqlite

package storage

// This file is compiled by default and uses the pure Go SQLite
// implementation, which ships with FTS5 enabled.
//
// Build command:
//   go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
