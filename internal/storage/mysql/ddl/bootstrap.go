package ddl

import (
	"context"

	"wideform/internal/storage"
)

// EnsureTable creates the observation table if it does not exist, going
// through the repository's Exec method. Idempotent.
func EnsureTable(ctx context.Context, repo storage.Repository, td storage.TableDef) error {
	sql, err := BuildCreateTableSQL(td)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
