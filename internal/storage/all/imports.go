// Package all wires all built-in storage backends into the storage factory.
//
// The package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories and DDL bootstrappers with the storage package. Importing
// it makes the following storage kinds available at runtime:
//
//   - "postgres" (wideform/internal/storage/postgres)
//   - "sqlite"   (wideform/internal/storage/sqlite)
//   - "mysql"    (wideform/internal/storage/mysql)
//   - "mssql"    (wideform/internal/storage/mssql)
//
// Typical usage in a wiring layer:
//
//	import (
//	    _ "wideform/internal/storage/all" // enable all built-in backends
//
//	    "wideform/internal/storage"
//	)
//
//	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, ...})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
//
// From that point on the caller stays backend-agnostic: table bootstrap and
// bulk loads all go through the storage.Repository interface regardless of
// which backend the config named. A binary that only needs one backend can
// import that backend package directly instead of this one.
package all

import (
	_ "wideform/internal/storage/mssql"
	_ "wideform/internal/storage/mysql"
	_ "wideform/internal/storage/postgres"
	_ "wideform/internal/storage/sqlite"
)
