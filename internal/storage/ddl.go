package storage

import (
	"fmt"
	"strings"

	"wideform/internal/sdmx"
)

// ColumnDef describes one observation-table column with a logical type;
// backend ddl packages map Type onto their dialect.
//
//   - Name: lowercased component id (unquoted; backends quote at render time)
//   - Type: logical type, "text" or "float"
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
}

// TableDef is the observation table: a possibly schema-qualified name plus
// ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ValueColumn names the data column of the observation table.
const ValueColumn = "value"

// FromStructure infers the observation table from a sealed structure: one
// text NOT NULL column per key dimension, the varying-dimension label
// column, nullable text columns for attributes, and the value column last.
// The primary key spans the key dimensions plus the varying label, one row
// per observation. numericValue switches the value column's logical type to
// "float" for pipelines that enforce numeric values.
func FromStructure(sd *sdmx.StructureDefinition, table string, numericValue bool) (TableDef, error) {
	if strings.TrimSpace(table) == "" {
		return TableDef{}, fmt.Errorf("storage ddl: table name is empty")
	}
	if !sd.Sealed() {
		return TableDef{}, fmt.Errorf("storage ddl: structure %s is not sealed", sd.ID)
	}

	cols := make([]ColumnDef, 0, len(sd.Dimensions())+len(sd.Attributes())+1)
	for _, d := range sd.KeyDimensions() {
		cols = append(cols, ColumnDef{Name: columnName(d.ID), Type: "text", PrimaryKey: true})
	}
	cols = append(cols, ColumnDef{Name: columnName(sd.VaryingDimension()), Type: "text", PrimaryKey: true})
	for _, a := range sd.Attributes() {
		cols = append(cols, ColumnDef{Name: columnName(a.ID), Type: "text", Nullable: true})
	}
	valueType := "text"
	if numericValue {
		valueType = "float"
	}
	cols = append(cols, ColumnDef{Name: ValueColumn, Type: valueType, Nullable: true})

	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.Name] {
			return TableDef{}, fmt.Errorf("storage ddl: duplicate column %q (component ids collide after lowercasing)", c.Name)
		}
		seen[c.Name] = true
	}
	return TableDef{FQN: table, Columns: cols}, nil
}

// ObservationColumns returns the observation-table column order for a
// sealed structure: key dimensions, varying label, attributes, value.
func ObservationColumns(sd *sdmx.StructureDefinition) []string {
	cols := make([]string, 0, len(sd.Dimensions())+len(sd.Attributes())+1)
	for _, d := range sd.KeyDimensions() {
		cols = append(cols, columnName(d.ID))
	}
	cols = append(cols, columnName(sd.VaryingDimension()))
	for _, a := range sd.Attributes() {
		cols = append(cols, columnName(a.ID))
	}
	return append(cols, ValueColumn)
}

// KeyColumns returns the primary-key subset of the observation columns:
// key dimensions plus the varying label.
func KeyColumns(sd *sdmx.StructureDefinition) []string {
	cols := make([]string, 0, len(sd.Dimensions()))
	for _, d := range sd.KeyDimensions() {
		cols = append(cols, columnName(d.ID))
	}
	return append(cols, columnName(sd.VaryingDimension()))
}

// columnName lowercases a component id for use as a database column.
func columnName(id string) string { return strings.ToLower(id) }
