package store

import "errors"

// Sentinel errors for snapshot store operations.
var (
	// ErrNotFound means no snapshot file exists for the requested
	// (server, date) pair. Expected during bulk aggregation; callers
	// skip the date rather than propagating.
	ErrNotFound = errors.New("snapshot not found")

	// ErrMalformedData means a snapshot file exists but does not parse
	// as the expected document structure.
	ErrMalformedData = errors.New("malformed snapshot data")

	// ErrPathOutsideRoot means a constructed file path escapes the
	// store's allowed root. Always fail-fast, never redirected: dates,
	// server names and package ids can be attacker-influenced.
	ErrPathOutsideRoot = errors.New("path outside allowed root")
)
