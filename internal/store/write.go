package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/querysql"
)

var quote = querysql.SQLite{}.QuoteIdentifier

// CreateTable creates t. Non-nullable columns get NOT NULL. The schema is
// ignored: SQLite has one namespace per database.
func (s *Store) CreateTable(ctx context.Context, t ir.TableSpec) error {
	if errs := t.Validate(); len(errs) > 0 {
		return fmt.Errorf("create table: %w", errs[0])
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(quote(t.Name))
	sb.WriteString(" (")
	for i, col := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		typ, err := sqliteType(col.Type)
		if err != nil {
			return fmt.Errorf("create table %s: column %s: %w", t.Name, col.Name, err)
		}
		sb.WriteString(quote(col.Name))
		sb.WriteString(" ")
		sb.WriteString(typ)
		if !col.Nullable {
			sb.WriteString(" NOT NULL")
		}
	}
	sb.WriteString(")")

	if _, err := s.db.ExecContext(ctx, sb.String()); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return nil
}

// Insert adds rows to table in a single transaction. Each row holds one
// value per column, in columns order.
func (s *Store) Insert(ctx context.Context, table string, columns []string, rows [][]ir.IRValue) (err error) {
	if len(rows) == 0 {
		return nil
	}

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
		marks[i] = "?"
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: begin: %w", table, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("insert into %s: row %d has %d values for %d columns", table, i, len(row), len(columns))
		}
		args := make([]any, len(row))
		for j, v := range row {
			if args[j], err = toDriver(v); err != nil {
				return fmt.Errorf("insert into %s: row %d column %s: %w", table, i, columns[j], err)
			}
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: row %d: %w", table, i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: commit: %w", table, err)
	}
	return nil
}

// SeedCombinations creates t and fills it with every combination of the
// domain values of its columns. domain maps a logical type name to its
// non-null values; nullable columns also take NULL. It returns the number
// of rows inserted.
//
// A table of nullable int columns a and b with domain {"int": {0, 1}} gets
// the nine rows of {NULL, 0, 1} x {NULL, 0, 1}, enough to observe every
// three-valued outcome of a comparison between them.
func (s *Store) SeedCombinations(ctx context.Context, t ir.TableSpec, domain map[string][]ir.IRValue) (int, error) {
	if err := s.CreateTable(ctx, t); err != nil {
		return 0, err
	}

	choices := make([][]ir.IRValue, len(t.Columns))
	columns := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		columns[i] = col.Name
		values := domain[col.Type]
		if len(values) == 0 {
			return 0, fmt.Errorf("seed %s: no domain values for type %q", t.Name, col.Type)
		}
		if col.Nullable {
			values = append([]ir.IRValue{ir.IRNull{}}, values...)
		}
		choices[i] = values
	}

	rows := cartesian(choices)
	if err := s.Insert(ctx, t.Name, columns, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// cartesian returns every row picking one value per choice list, varying the
// last column fastest.
func cartesian(choices [][]ir.IRValue) [][]ir.IRValue {
	rows := [][]ir.IRValue{{}}
	for _, values := range choices {
		next := make([][]ir.IRValue, 0, len(rows)*len(values))
		for _, prefix := range rows {
			for _, v := range values {
				row := make([]ir.IRValue, len(prefix), len(prefix)+1)
				copy(row, prefix)
				next = append(next, append(row, v))
			}
		}
		rows = next
	}
	return rows
}
