package schema

import (
	"fmt"
	"reflect"
	"strings"
)

var integerTypes = map[string]bool{
	"integer": true, "int": true, "long": true, "short": true, "byte": true,
	"nonNegativeInteger": true, "positiveInteger": true,
	"nonPositiveInteger": true, "negativeInteger": true,
	"unsignedLong": true, "unsignedInt": true, "unsignedShort": true,
	"unsignedByte": true,
}

var numberTypes = map[string]bool{
	"decimal": true, "float": true, "double": true, "number": true,
}

// generateDDL creates a CREATE TABLE statement from struct tags.
func generateDDL(model any, tableName string) string {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	var columns []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		ddlTag := field.Tag.Get("ddl")

		if dbTag != "" && ddlTag != "" {
			columns = append(columns, fmt.Sprintf("    %s %s", dbTag, ddlTag))
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);",
		tableName,
		strings.Join(columns, ",\n"))

	return ddl
}

// Dataset DDL methods
func (ds Dataset) TableDDL() string {
	return generateDDL(ds, "cldf_datasets")
}

func (ds Dataset) IndexDDL() []string {
	return []string{}
}

func (ds Dataset) TableName() string {
	return "cldf_datasets"
}

// Quote returns an SQL identifier in double quotes.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLType maps a CSVW base datatype to a column type.
func SQLType(base string, d Dialect) string {
	switch {
	case integerTypes[base]:
		if d == Postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case numberTypes[base]:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case base == "boolean":
		if d == Postgres {
			return "BOOLEAN"
		}
		return "INTEGER"
	}
	return "TEXT"
}

// TableDDL returns the CREATE TABLE statement of the table.
func (t *Table) TableDDL(d Dialect) string {
	var lines []string
	for _, c := range t.Columns {
		typ := SQLType(c.Base, d)
		if c.List {
			typ = "TEXT"
		}
		line := fmt.Sprintf("    %s %s", Quote(c.Name), typ)
		if c.NotNull {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines,
			fmt.Sprintf("    PRIMARY KEY (%s)", quoteAll(t.PrimaryKey)))
	}
	for _, fk := range t.ForeignKeys {
		line := fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteAll(fk.Columns), Quote(fk.Table), quoteAll(fk.RefColumns))
		if d == Postgres {
			line += " DEFERRABLE INITIALLY DEFERRED"
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		Quote(t.Name), strings.Join(lines, ",\n"))
}

// IndexDDL returns CREATE INDEX statements of the table. Association
// tables get an index on both key columns.
func (t *Table) IndexDDL() []string {
	if t.Kind != AssociationTable {
		return []string{}
	}
	res := make([]string, 0, 2)
	for _, c := range t.Columns[:2] {
		idx := "idx_" + strings.ToLower(t.Name+"_"+c.Name)
		res = append(res, fmt.Sprintf("CREATE INDEX %s ON %s (%s);",
			Quote(idx), Quote(t.Name), Quote(c.Name)))
	}
	return res
}

// InsertSQL returns an INSERT statement for n rows of the table.
func (t *Table) InsertSQL(d Dialect, n int) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", Quote(t.Name), quoteAll(cols))
	arg := 1
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			if d == Postgres {
				fmt.Fprintf(&b, "$%d", arg)
			} else {
				b.WriteString("?")
			}
			arg++
		}
		b.WriteString(")")
	}
	return b.String()
}

// DDL returns all statements that create the schema, referenced tables
// first.
func (s *Schema) DDL(d Dialect) []string {
	var res []string
	for _, t := range s.Tables {
		res = append(res, t.TableDDL(d))
		res = append(res, t.IndexDDL()...)
	}
	return res
}

func quoteAll(names []string) string {
	res := make([]string, len(names))
	for i, n := range names {
		res[i] = Quote(n)
	}
	return strings.Join(res, ", ")
}
