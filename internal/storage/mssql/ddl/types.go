// Package ddl renders SQL Server DDL for observation tables.
package ddl

import "strings"

// MapType normalizes a loosely-specified logical type into a SQL Server
// column type.
//
//	"int"/"integer"/"bigint"  -> BIGINT
//	"float"/"double"/"real"   -> FLOAT
//	"numeric"/"decimal"       -> DECIMAL(38, 10)
//	"bool"/"boolean"          -> BIT
//	"date"                    -> DATE
//	"timestamp"/"datetime"    -> DATETIME2
//	"uuid"                    -> UNIQUEIDENTIFIER
//	everything else           -> NVARCHAR(MAX)
//
// T-SQL FLOAT without a mantissa argument is FLOAT(53), a double-precision
// IEEE value, which is what observation values need.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "float", "double", "real":
		return "FLOAT"
	case "numeric", "decimal":
		return "DECIMAL(38, 10)"
	case "bool", "boolean":
		return "BIT"
	case "date":
		return "DATE"
	case "timestamp", "timestamptz", "datetime":
		return "DATETIME2"
	case "uuid":
		return "UNIQUEIDENTIFIER"
	default:
		return "NVARCHAR(MAX)"
	}
}
