package ddl

import (
	"fmt"
	"strings"

	"wideform/internal/storage"
)

// BuildCreateTableSQL renders a MySQL CREATE TABLE IF NOT EXISTS statement
// for an observation table. Identifiers are backtick-quoted and primary-key
// columns are forced NOT NULL with a table-level PRIMARY KEY clause in
// declaration order.
//
// MySQL cannot index TEXT columns without a prefix length, so key columns
// whose logical type maps to TEXT are rendered as VARCHAR(255) instead.
func BuildCreateTableSQL(td storage.TableDef) (string, error) {
	fqn := quoteFQN(strings.TrimSpace(td.FQN))
	if fqn == "" {
		return "", fmt.Errorf("mysql ddl: table name must not be empty")
	}
	if len(td.Columns) == 0 {
		return "", fmt.Errorf("mysql ddl: at least one column is required")
	}

	cols := make([]string, 0, len(td.Columns)+1)
	pks := make([]string, 0, len(td.Columns))
	for _, c := range td.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("mysql ddl: column with empty name in table %s", td.FQN)
		}

		typ := MapType(c.Type)
		if c.PrimaryKey && typ == "TEXT" {
			typ = "VARCHAR(255)"
		}

		var sb strings.Builder
		sb.WriteString(quoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quoteIdent(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, strings.Join(cols, ",\n  ")), nil
}

// quoteIdent quotes a single identifier segment with backticks, doubling
// embedded backticks.
func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// quoteFQN quotes a possibly database-qualified name: "warehouse.obs"
// becomes `warehouse`.`obs`. Empty segments are dropped.
func quoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, quoteIdent(p))
		}
	}
	return strings.Join(out, ".")
}
