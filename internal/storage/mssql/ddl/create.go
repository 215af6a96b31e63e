package ddl

import (
	"fmt"
	"strings"

	"wideform/internal/storage"
)

// BuildCreateTableSQL renders a T-SQL script that creates an observation
// table if it does not already exist. T-SQL has no CREATE TABLE IF NOT
// EXISTS, so the statement is wrapped in an OBJECT_ID guard:
//
//	IF OBJECT_ID(N'[dbo].[observations]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[observations] (
//	    [model] NVARCHAR(255) NOT NULL,
//	    ...
//	    PRIMARY KEY ([model], [year])
//	  );
//	END;
//
// Primary-key columns are forced NOT NULL and listed in declaration order.
// SQL Server cannot use MAX types as index key columns, so key columns whose
// logical type maps to NVARCHAR(MAX) are rendered as NVARCHAR(255) instead.
func BuildCreateTableSQL(td storage.TableDef) (string, error) {
	fqn := quoteFQN(strings.TrimSpace(td.FQN))
	if fqn == "" {
		return "", fmt.Errorf("mssql ddl: table name must not be empty")
	}
	if len(td.Columns) == 0 {
		return "", fmt.Errorf("mssql ddl: at least one column is required")
	}

	cols := make([]string, 0, len(td.Columns)+1)
	pks := make([]string, 0, len(td.Columns))
	for _, c := range td.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("mssql ddl: column with empty name in table %s", td.FQN)
		}

		typ := MapType(c.Type)
		if c.PrimaryKey && typ == "NVARCHAR(MAX)" {
			typ = "NVARCHAR(255)"
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

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		fqn,
		fqn,
		strings.Join(cols, ",\n    "),
	), nil
}

// quoteIdent quotes a single identifier segment with [brackets], escaping
// any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

// quoteFQN quotes a possibly schema-qualified name: "dbo.observations"
// becomes [dbo].[observations]. Segments are trimmed and empty segments
// dropped.
func quoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}
