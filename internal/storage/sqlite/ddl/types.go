// Package ddl renders SQLite DDL for observation tables. The type mapping is
// intentionally simple and biased toward canonical affinities.
package ddl

import "strings"

// MapType maps a logical type string (e.g., "text", "float", "int") into a
// SQLite column type.
//
// SQLite types are affinities, so the mapping prefers canonical ones:
//   - integer-ish types -> INTEGER
//   - boolean           -> INTEGER (0/1)
//   - float-ish types   -> REAL
//   - date/time         -> TEXT (ISO-8601 strings)
//   - others            -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "INTEGER"
	case "bool", "boolean":
		return "INTEGER" // 0/1
	case "float", "double", "real":
		return "REAL"
	case "numeric", "decimal":
		return "NUMERIC"
	case "date", "timestamp", "datetime", "timestamptz":
		return "TEXT" // store ISO-8601 strings
	case "blob", "bytes":
		return "BLOB"
	default:
		return "TEXT"
	}
}
