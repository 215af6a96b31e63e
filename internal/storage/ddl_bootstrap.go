package storage

import (
	"context"
	"fmt"
	"sync"
)

// DDLFn applies backend-specific DDL for one table definition, typically a
// dialect-rendered CREATE TABLE issued through repo.Exec. Backends register
// theirs at init time next to their factory.
type DDLFn func(ctx context.Context, repo Repository, td TableDef) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLFn{}
)

// RegisterDDL registers (or replaces) the DDL function for a storage kind.
func RegisterDDL(kind string, fn DDLFn) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable invokes the DDL function registered for kind so the
// observation table exists before loading starts. Callers stay
// backend-agnostic; a kind without registered DDL is an error.
func EnsureTable(ctx context.Context, kind string, repo Repository, td TableDef) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, td)
}
