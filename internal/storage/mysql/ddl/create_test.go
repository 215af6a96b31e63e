package ddl

import (
	"strings"
	"testing"

	"wideform/internal/storage"
)

// TestQuoteIdent verifies MySQL backtick quoting and escaping.
func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "model", want: "`model`"},
		{name: "empty", in: "", want: "``"},
		{name: "with space", in: "user name", want: "`user name`"},
		{name: "with backtick", in: "weird`name", want: "`weird``name`"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := quoteIdent(tt.in)
			if got != tt.want {
				t.Fatalf("quoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestQuoteFQN verifies quoting of database-qualified table names.
func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple table", in: "observations", want: "`observations`"},
		{name: "database and table", in: "warehouse.observations", want: "`warehouse`.`observations`"},
		{name: "with empty segments", in: ".warehouse..observations.", want: "`warehouse`.`observations`"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := quoteFQN(tt.in)
			if got != tt.want {
				t.Fatalf("quoteFQN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestBuildCreateTableSQLErrors validates input validation.
func TestBuildCreateTableSQLErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  storage.TableDef
	}{
		{
			name: "empty FQN",
			def: storage.TableDef{
				FQN:     "   ",
				Columns: []storage.ColumnDef{{Name: "model", Type: "text"}},
			},
		},
		{
			name: "no columns",
			def:  storage.TableDef{FQN: "observations"},
		},
		{
			name: "column empty name",
			def: storage.TableDef{
				FQN: "observations",
				Columns: []storage.ColumnDef{
					{Name: "model", Type: "text"},
					{Name: "   ", Type: "text"},
				},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.def)
			if err == nil {
				t.Fatalf("BuildCreateTableSQL(%+v) error = nil, want non-nil", tt.def)
			}
			if got != "" {
				t.Fatalf("BuildCreateTableSQL(%+v) SQL = %q, want empty string on error", tt.def, got)
			}
		})
	}
}

// TestBuildCreateTableSQLBasic verifies the rendered statement, including the
// VARCHAR substitution for text primary-key columns.
func TestBuildCreateTableSQLBasic(t *testing.T) {
	t.Parallel()

	def := storage.TableDef{
		FQN: "observations",
		Columns: []storage.ColumnDef{
			{Name: "model", Type: "text", PrimaryKey: true},
			{Name: "year", Type: "text", PrimaryKey: true},
			{Name: "unit", Type: "text", Nullable: true},
			{Name: "value", Type: "float", Nullable: true},
		},
	}

	got, err := BuildCreateTableSQL(def)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL() error = %v", err)
	}

	want := "" +
		"CREATE TABLE IF NOT EXISTS `observations` (\n" +
		"  `model` VARCHAR(255) NOT NULL,\n" +
		"  `year` VARCHAR(255) NOT NULL,\n" +
		"  `unit` TEXT,\n" +
		"  `value` DOUBLE,\n" +
		"  PRIMARY KEY (`model`, `year`)\n" +
		");"

	if got != want {
		t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", got, want)
	}
}

// TestBuildCreateTableSQLKeyTypes verifies only TEXT-mapped key columns get
// the VARCHAR substitution; other key types keep their mapping.
func TestBuildCreateTableSQLKeyTypes(t *testing.T) {
	t.Parallel()

	def := storage.TableDef{
		FQN: "observations",
		Columns: []storage.ColumnDef{
			{Name: "run_id", Type: "int", PrimaryKey: true},
			{Name: "model", Type: "text", PrimaryKey: true},
			{Name: "value", Type: "float", Nullable: true},
		},
	}

	got, err := BuildCreateTableSQL(def)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL() error = %v", err)
	}

	if !strings.Contains(got, "`run_id` BIGINT NOT NULL") {
		t.Fatalf("int key column not BIGINT:\n%s", got)
	}
	if !strings.Contains(got, "`model` VARCHAR(255) NOT NULL") {
		t.Fatalf("text key column not VARCHAR(255):\n%s", got)
	}
	if strings.Contains(got, "`value` VARCHAR") {
		t.Fatalf("non-key column must keep its mapped type:\n%s", got)
	}
}
