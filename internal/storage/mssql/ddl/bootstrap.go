package ddl

import (
	"context"

	"wideform/internal/storage"
)

// EnsureTable creates the observation table if it does not exist, going
// through the repository's Exec method. The OBJECT_ID guard makes repeated
// calls for the same table safe.
func EnsureTable(ctx context.Context, repo storage.Repository, td storage.TableDef) error {
	sql, err := BuildCreateTableSQL(td)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
