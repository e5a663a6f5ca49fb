package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/relq/internal/ir"
)

// CompileCatalog reads every table under the top-level "table" field of v.
//
//	table: orders: {
//		schema: "sales"
//		column: {
//			id:       int
//			customer: int | null
//			total:    "decimal"
//			note:     {type: "string", nullable: true, store_type: "nvarchar(200)"}
//		}
//	}
//
// Tables and columns keep their declaration order. A value without a "table"
// field compiles to an empty catalog.
func CompileCatalog(v cue.Value) (*ir.Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	catalog := &ir.Catalog{}
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return catalog, nil
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		table, err := CompileTable(iter.Value())
		if err != nil {
			return nil, err
		}
		catalog.Tables = append(catalog.Tables, *table)
	}
	return catalog, nil
}

// CompileTable parses one table definition. The table name is the last
// label of v's path.
func CompileTable(v cue.Value) (*ir.TableSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	table := &ir.TableSpec{}
	if sel := v.Path().Selectors(); len(sel) > 0 {
		table.Name = sel[len(sel)-1].String()
	}

	if schemaVal := v.LookupPath(cue.ParsePath("schema")); schemaVal.Exists() {
		schema, err := schemaVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		table.Schema = schema
	}

	columnsVal := v.LookupPath(cue.ParsePath("column"))
	if !columnsVal.Exists() {
		return nil, &CompileError{
			Field:   "table." + table.Name + ".column",
			Message: "at least one column is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := columnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		col, err := compileColumn(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, col)
	}

	if errs := table.Validate(); len(errs) > 0 {
		return nil, &CompileError{
			Field:   "table." + errs[0].Field,
			Message: errs[0].Message,
			Pos:     v.Pos(),
		}
	}
	return table, nil
}

// compileColumn accepts a CUE kind (int, string, bool, float, bytes), a
// logical type name string, either of those disjoined with null, or a
// struct {type, nullable?, store_type?}.
func compileColumn(name string, v cue.Value) (ir.ColumnSpec, error) {
	col := ir.ColumnSpec{Name: name}

	if v.IncompleteKind() == cue.StructKind {
		typeVal := v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return col, &CompileError{Field: "column." + name + ".type", Message: "type is required", Pos: v.Pos()}
		}
		typ, err := typeVal.String()
		if err != nil {
			return col, formatCUEError(err)
		}
		col.Type = typ

		if nullVal := v.LookupPath(cue.ParsePath("nullable")); nullVal.Exists() {
			if col.Nullable, err = nullVal.Bool(); err != nil {
				return col, formatCUEError(err)
			}
		}
		if storeVal := v.LookupPath(cue.ParsePath("store_type")); storeVal.Exists() {
			if col.StoreType, err = storeVal.String(); err != nil {
				return col, formatCUEError(err)
			}
		}
		return col, nil
	}

	typ, nullable, err := columnType(name, v)
	if err != nil {
		return col, err
	}
	col.Type, col.Nullable = typ, nullable
	return col, nil
}

func columnType(name string, v cue.Value) (string, bool, error) {
	if op, args := v.Expr(); op == cue.OrOp {
		var (
			typ      string
			nullable bool
		)
		for _, d := range args {
			if d.IncompleteKind() == cue.NullKind {
				nullable = true
				continue
			}
			if typ != "" {
				return "", false, &CompileError{
					Field:   "column." + name,
					Message: "a column has one type, optionally disjoined with null",
					Pos:     v.Pos(),
				}
			}
			t, n, err := columnType(name, d)
			if err != nil {
				return "", false, err
			}
			typ, nullable = t, nullable || n
		}
		if typ == "" {
			return "", false, &CompileError{Field: "column." + name, Message: "column type is null", Pos: v.Pos()}
		}
		return typ, nullable, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		if v.IsConcrete() {
			s, err := v.String()
			if err != nil {
				return "", false, formatCUEError(err)
			}
			return s, false, nil
		}
		return "string", false, nil
	case cue.IntKind:
		return "int", false, nil
	case cue.BoolKind:
		return "bool", false, nil
	case cue.FloatKind, cue.NumberKind:
		return "float", false, nil
	case cue.BytesKind:
		return "bytes", false, nil
	default:
		return "", false, &CompileError{
			Field:   "column." + name,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError converts the first CUE error to a CompileError carrying its
// position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
