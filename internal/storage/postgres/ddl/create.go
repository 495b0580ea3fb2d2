// Package ddl renders the schema catalog into Postgres CREATE TABLE
// statements. Identifiers are double-quoted, statements use IF NOT EXISTS,
// and Column.Default passes through as raw SQL. Auto-increment ids render as
// SERIAL PRIMARY KEY. Other primary keys become a table-level constraint
// with the key columns sorted for deterministic output; their columns are
// always rendered NOT NULL.
package ddl

import (
	"fmt"
	"sort"
	"strings"

	"logiflow/internal/schema"
)

// BuildCreateTableSQL renders one CREATE TABLE IF NOT EXISTS statement for
// the table, one column per line.
func BuildCreateTableSQL(t schema.Table) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("postgres ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("postgres ddl: at least one column is required")
	}

	var lines, keys []string
	for _, c := range t.Columns {
		line, err := columnLine(name, c)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
		if c.PrimaryKey && c.Kind != schema.KindAutoID {
			keys = append(keys, quoteIdent(strings.TrimSpace(c.Name)))
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		lines = append(lines, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(quoteIdent(name))
	sb.WriteString(" (\n  ")
	sb.WriteString(strings.Join(lines, ",\n  "))
	sb.WriteString("\n);")
	return sb.String(), nil
}

// columnLine renders one column declaration: name, type, NOT NULL, DEFAULT.
// Key columns get NOT NULL whether or not the catalog says so.
func columnLine(table string, c schema.Column) (string, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "", fmt.Errorf("postgres ddl: column with empty name in table %s", table)
	}
	if c.Kind == schema.KindAutoID {
		return quoteIdent(name) + " SERIAL PRIMARY KEY", nil
	}

	typ, err := sqlType(c)
	if err != nil {
		return "", err
	}
	line := quoteIdent(name) + " " + typ
	if c.NotNull || c.PrimaryKey {
		line += " NOT NULL"
	}
	if def := strings.TrimSpace(c.Default); def != "" {
		line += " DEFAULT " + def
	}
	return line, nil
}

// sqlType maps a catalog column kind onto a Postgres type name.
func sqlType(c schema.Column) (string, error) {
	switch c.Kind {
	case schema.KindText:
		if c.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Length), nil
		}
		return "TEXT", nil
	case schema.KindInteger:
		return "INTEGER", nil
	case schema.KindDecimal:
		if c.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", c.Precision, c.Scale), nil
		}
		return "DECIMAL", nil
	case schema.KindBool:
		return "BOOLEAN", nil
	case schema.KindTimestamp:
		return "TIMESTAMP", nil
	default:
		return "", fmt.Errorf("postgres ddl: column %s has unsupported kind %d", c.Name, c.Kind)
	}
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
