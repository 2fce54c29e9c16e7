package migration

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// SchemaDiff is the difference between the models and the database schema.
type SchemaDiff struct {
	TablesToCreate []string
	TablesToModify []TableDiff
}

// TableDiff lists the columns a table is missing or has in excess.
type TableDiff struct {
	Table         string
	ColumnsToAdd  []string
	ColumnsToDrop []string
}

// IsEmpty reports whether the database matches the models.
func (d *SchemaDiff) IsEmpty() bool {
	return len(d.TablesToCreate) == 0 && len(d.TablesToModify) == 0
}

func (d *SchemaDiff) String() string {
	if d.IsEmpty() {
		return "schema is up to date"
	}
	var b strings.Builder
	for _, t := range d.TablesToCreate {
		fmt.Fprintf(&b, "missing table %s\n", t)
	}
	for _, t := range d.TablesToModify {
		for _, c := range t.ColumnsToAdd {
			fmt.Fprintf(&b, "%s: missing column %s\n", t.Table, c)
		}
		for _, c := range t.ColumnsToDrop {
			fmt.Fprintf(&b, "%s: unexpected column %s\n", t.Table, c)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Compare checks every model's table and columns against the database.
func Compare(ctx context.Context, db *gorm.DB, models ...interface{}) (*SchemaDiff, error) {
	db = db.WithContext(ctx)
	migrator := db.Migrator()
	diff := &SchemaDiff{}

	for _, model := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !migrator.HasTable(model) {
			diff.TablesToCreate = append(diff.TablesToCreate, table)
			continue
		}

		columnTypes, err := migrator.ColumnTypes(model)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
		}
		existing := make(map[string]bool, len(columnTypes))
		for _, ct := range columnTypes {
			existing[ct.Name()] = true
		}

		td := TableDiff{Table: table}
		wanted := make(map[string]bool, len(stmt.Schema.DBNames))
		for _, name := range stmt.Schema.DBNames {
			wanted[name] = true
			if !existing[name] {
				td.ColumnsToAdd = append(td.ColumnsToAdd, name)
			}
		}
		for name := range existing {
			if !wanted[name] {
				td.ColumnsToDrop = append(td.ColumnsToDrop, name)
			}
		}
		sort.Strings(td.ColumnsToDrop)

		if len(td.ColumnsToAdd) > 0 || len(td.ColumnsToDrop) > 0 {
			diff.TablesToModify = append(diff.TablesToModify, td)
		}
	}
	return diff, nil
}
