// Package storage holds the destination side of the pipeline: the
// backend-agnostic Repository contract, a factory keyed by storage kind,
// observation-table inference from a sealed structure, and a batched loader
// that feeds any Repository's bulk path.
//
// Concrete backends (postgres, sqlite, mysql, mssql) live in subpackages and
// register themselves with the factory at init time; importing
// internal/storage/all enables every built-in backend.
package storage

import "context"

// Repository is what a backend must provide: bulk-load rows aligned to a
// column order, execute raw SQL (typically DDL), and release resources.
type Repository interface {
	// CopyFrom bulk-inserts rows into the configured table. Every row must
	// align with columns; the return value is the backend-reported number
	// of rows written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs one raw SQL statement.
	Exec(ctx context.Context, sql string) error
	// Close releases the underlying pool or connection.
	Close()
}
