package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/nullsem"
	"github.com/roach88/relq/internal/querysql"
)

// Row is one result row.
type Row []ir.IRValue

// Query runs rendered SQLite text, binding each binding's placeholder to
// the parameter it names. Unbound parameters bind NULL.
func (s *Store) Query(ctx context.Context, query string, bindings []querysql.Binding, params nullsem.Parameters) ([]Row, error) {
	args := make([]any, 0, len(bindings))
	for _, b := range bindings {
		name, ok := strings.CutPrefix(b.Placeholder, "@")
		if !ok {
			return nil, fmt.Errorf("query: placeholder %q is not a SQLite named parameter", b.Placeholder)
		}
		v, err := toDriver(params[b.Name])
		if err != nil {
			return nil, fmt.Errorf("query: parameter %s: %w", b.Name, err)
		}
		args = append(args, sql.Named(name, v))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query: columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query: scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, v := range raw {
			if row[i], err = fromDriver(v); err != nil {
				return nil, fmt.Errorf("query: column %s: %w", cols[i], err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return out, nil
}

// QueryCommand runs a rendered command with its parameter environment.
func (s *Store) QueryCommand(ctx context.Context, cmd *querysql.Command, params nullsem.Parameters) ([]Row, error) {
	return s.Query(ctx, cmd.SQL, cmd.Bindings, params)
}
