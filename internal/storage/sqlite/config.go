package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:wideform.db?cache=shared&_fk=1"
	//   "wideform.db" (interpreted by the driver)
	DSN string

	// Table is the target table name for inserts, e.g. "observations".
	// SQLite does not use schemas the way Postgres/MSSQL do; FQN values such
	// as "main.observations" are still accepted and passed through.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string

	// KeyColumns is included for parity with other backends. It is not used
	// by the SQLite repository itself but is carried for future upsert logic.
	KeyColumns []string
}
