// Package ddl renders MySQL DDL for observation tables.
package ddl

import "strings"

// MapType normalizes a loosely-specified logical type into a MySQL column type.
//
//	"int"/"integer"/"bigint"   -> BIGINT
//	"float"/"double"/"real"    -> DOUBLE
//	"bool"/"boolean"           -> TINYINT(1)
//	"date"                     -> DATE
//	"timestamp"/"datetime"     -> DATETIME
//	everything else            -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "float", "double", "real":
		return "DOUBLE"
	case "bool", "boolean":
		return "TINYINT(1)"
	case "date":
		return "DATE"
	case "timestamp", "timestamptz", "datetime":
		return "DATETIME"
	default:
		return "TEXT"
	}
}
