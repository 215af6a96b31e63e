package ddl

import (
	"fmt"
	"strings"

	"wideform/internal/storage"
)

// BuildCreateTableSQL renders a Postgres CREATE TABLE IF NOT EXISTS statement
// for an observation table. Identifiers are double-quoted, logical column
// types go through MapType, and primary-key columns are forced NOT NULL with
// a table-level PRIMARY KEY clause in declaration order.
func BuildCreateTableSQL(td storage.TableDef) (string, error) {
	fqn := quoteFQN(strings.TrimSpace(td.FQN))
	if fqn == "" {
		return "", fmt.Errorf("postgres ddl: table name must not be empty")
	}
	if len(td.Columns) == 0 {
		return "", fmt.Errorf("postgres ddl: at least one column is required")
	}

	cols := make([]string, 0, len(td.Columns)+1)
	pks := make([]string, 0, len(td.Columns))
	for _, c := range td.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("postgres ddl: column with empty name in table %s", td.FQN)
		}

		var sb strings.Builder
		sb.WriteString(quoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(MapType(c.Type))
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

// quoteIdent quotes a single identifier segment, doubling embedded quotes.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// quoteFQN quotes a possibly schema-qualified name: "public.obs" becomes
// "public"."obs". Empty segments are dropped.
func quoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			quoted = append(quoted, quoteIdent(p))
		}
	}
	return strings.Join(quoted, ".")
}
