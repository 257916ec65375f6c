package storage

import (
	"context"

	"relex/internal/relgraph"
)

// Store persists per-file graph snapshots for later inspection. The
// engine's graphs stay run-scoped; persistence is strictly a caller-side
// concern layered on top.
type Store interface {
	// SaveGraph replaces the stored snapshot for the graph's file.
	SaveGraph(ctx context.Context, g *relgraph.Graph) error

	// LoadRecords retrieves the stored records for one file, in the
	// order they were saved.
	LoadRecords(ctx context.Context, file string) ([]relgraph.Record, error)

	// StatusCounts tallies stored records per status across all files.
	StatusCounts(ctx context.Context) (map[relgraph.Status]int, error)

	Close() error
}
