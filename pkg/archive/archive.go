// Package archive copies ingested report files to remote object storage.
package archive

import "context"

// Archiver stores a report file alongside the run it was loaded into.
type Archiver interface {
	// Preflight verifies that the remote storage is reachable and writable.
	Preflight(ctx context.Context) error

	// Archive uploads the file at path under the run's key prefix and
	// returns the object key.
	Archive(ctx context.Context, path string, runID uint) (string, error)
}
