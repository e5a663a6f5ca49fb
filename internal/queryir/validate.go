package queryir

import (
	"fmt"
)

// ValidationResult lists the structural problems found in a statement.
type ValidationResult struct {
	// Valid is true when Issues is empty.
	Valid bool

	// Issues describes each violation, prefixed with the path of the
	// offending node (for example "where.left" or "tables[1].on").
	Issues []string
}

// Validate checks the structural invariants every statement must satisfy
// before normalization:
//  1. Projection names are unique within a select
//  2. An In has exactly one source: values, a list parameter or a subquery
//  3. Row values compared with each other have equal arity
//  4. A join predicate references only table sources at or before its position
//  5. Every scalar node carries a type mapping
//
// All violations are collected; Validate never stops at the first one.
// Validate is a pure function with no side effects.
func Validate(stmt Statement) ValidationResult {
	v := &validator{
		issues: []string{},
	}
	v.validateStatement(stmt)

	return ValidationResult{
		Valid:  len(v.issues) == 0,
		Issues: v.issues,
	}
}

// validator accumulates issues during traversal.
type validator struct {
	issues []string
}

// addIssue appends an issue message for the node at path.
func (v *validator) addIssue(path, format string, args ...any) {
	v.issues = append(v.issues, path+": "+fmt.Sprintf(format, args...))
}

func (v *validator) validateStatement(stmt Statement) {
	if stmt == nil {
		v.addIssue("statement", "nil statement")
		return
	}

	switch s := stmt.(type) {
	case *Select:
		v.validateSelect("select", s)
	case *Update:
		if s.Table == nil {
			v.addIssue("update", "target table is required")
		}
		if len(s.Setters) == 0 {
			v.addIssue("update", "at least one setter is required")
		}
		for i, st := range s.Setters {
			path := fmt.Sprintf("update.set[%d]", i)
			if st.Column == nil {
				v.addIssue(path, "setter column is required")
			}
			v.validateExpr(path, st.Value)
		}
		if s.Select == nil {
			v.addIssue("update", "underlying select is required")
			return
		}
		v.validateSelect("update.select", s.Select)
	case *Delete:
		if s.Table == nil {
			v.addIssue("delete", "target table is required")
		}
		if s.Select == nil {
			v.addIssue("delete", "underlying select is required")
			return
		}
		v.validateSelect("delete.select", s.Select)
	default:
		v.addIssue("statement", "unknown statement type %T", stmt)
	}
}

func (v *validator) validateSelect(path string, s *Select) {
	if s == nil {
		v.addIssue(path, "nil select")
		return
	}

	seen := make(map[string]bool, len(s.Projection))
	for i, p := range s.Projection {
		pp := fmt.Sprintf("%s.projection[%d]", path, i)
		v.validateExpr(pp, p.Expr)
		name := ProjectionName(p)
		if name == "" {
			continue
		}
		if seen[name] {
			v.addIssue(pp, "duplicate projection name %q", name)
		}
		seen[name] = true
	}

	positions := make(map[string]int, len(s.Tables))
	for i, t := range s.Tables {
		if t == nil {
			continue
		}
		if a := t.SourceAlias(); a != "" {
			if _, dup := positions[a]; !dup {
				positions[a] = i
			}
		}
	}
	for i, t := range s.Tables {
		v.validateTable(fmt.Sprintf("%s.tables[%d]", path, i), t, i, positions)
	}

	v.validateOptional(path+".where", s.Predicate)
	for i, g := range s.GroupBy {
		v.validateExpr(fmt.Sprintf("%s.group_by[%d]", path, i), g)
	}
	v.validateOptional(path+".having", s.Having)
	for i, o := range s.Orderings {
		v.validateExpr(fmt.Sprintf("%s.order_by[%d]", path, i), o.Expr)
	}
	v.validateOptional(path+".limit", s.Limit)
	v.validateOptional(path+".offset", s.Offset)
}

func (v *validator) validateTable(path string, t TableSource, pos int, positions map[string]int) {
	switch x := t.(type) {
	case nil:
		v.addIssue(path, "nil table source")
	case *Table:
		if x.Name == "" {
			v.addIssue(path, "table name is required")
		}
	case *FromSQL:
		if x.SQL == "" {
			v.addIssue(path, "raw SQL text is required")
		}
		for i, a := range x.Args {
			v.validateExpr(fmt.Sprintf("%s.args[%d]", path, i), a)
		}
	case *TableValuedFunction:
		for i, a := range x.Args {
			v.validateExpr(fmt.Sprintf("%s.args[%d]", path, i), a)
		}
	case *Values:
		for i, r := range x.Rows {
			rp := fmt.Sprintf("%s.rows[%d]", path, i)
			if r == nil {
				v.addIssue(rp, "nil row")
				continue
			}
			if len(r.Values) != len(x.ColumnNames) {
				v.addIssue(rp, "row has %d values, want %d", len(r.Values), len(x.ColumnNames))
			}
			v.validateExpr(rp, r)
		}
	case *Join:
		v.validateTable(path, x.Table, pos, positions)
		if x.Kind.HasPredicate() && x.Predicate == nil {
			v.addIssue(path, "%s requires a predicate", x.Kind)
		}
		if !x.Kind.HasPredicate() && x.Predicate != nil {
			v.addIssue(path, "%s cannot have a predicate", x.Kind)
		}
		if x.Predicate != nil {
			v.validateExpr(path+".on", x.Predicate)
			Walk(x.Predicate, func(e Expression) bool {
				if col, ok := e.(*Column); ok {
					if at, known := positions[col.Table]; known && at > pos {
						v.addIssue(path+".on", "column %s.%s references a later table source", col.Table, col.Name)
					}
				}
				return true
			})
		}
	case *Select:
		v.validateSelect(path, x)
	case *SetOperation:
		v.validateSelect(path+".left", x.Left)
		v.validateSelect(path+".right", x.Right)
		if x.Left != nil && x.Right != nil && len(x.Left.Projection) != len(x.Right.Projection) {
			v.addIssue(path, "set operation operands project %d and %d columns",
				len(x.Left.Projection), len(x.Right.Projection))
		}
	default:
		v.addIssue(path, "unknown table source type %T", t)
	}
}

func (v *validator) validateOptional(path string, e Expression) {
	if e != nil {
		v.validateExpr(path, e)
	}
}

// validateExpr checks e and its descendants, including nested selects.
func (v *validator) validateExpr(path string, e Expression) {
	if e == nil {
		v.addIssue(path, "nil expression")
		return
	}

	switch e.(type) {
	case *RowValue, *Fragment, *Distinct, *Collate:
		// Untyped by construction, or typed through their operand.
	default:
		if e.Type() == nil {
			v.addIssue(path, "%s has no type mapping", Describe(e))
		}
	}

	switch x := e.(type) {
	case *Binary:
		if l, ok := x.Left.(*RowValue); ok {
			if r, ok := x.Right.(*RowValue); ok && len(l.Values) != len(r.Values) {
				v.addIssue(path, "row value arity mismatch: %d vs %d", len(l.Values), len(r.Values))
			}
		}
		v.validateExpr(path+".left", x.Left)
		v.validateExpr(path+".right", x.Right)
		return
	case *In:
		v.validateIn(path, x)
		return
	case *Exists:
		v.validateSelect(path+".subquery", x.Subquery)
		return
	case *ScalarSubquery:
		if x.Subquery != nil && len(x.Subquery.Projection) != 1 {
			v.addIssue(path, "scalar subquery must project exactly one column, got %d", len(x.Subquery.Projection))
		}
		v.validateSelect(path+".subquery", x.Subquery)
		return
	}

	for i, c := range Children(e) {
		v.validateExpr(fmt.Sprintf("%s[%d]", path, i), c)
	}
}

func (v *validator) validateIn(path string, in *In) {
	sources := 0
	if in.Values != nil {
		sources++
	}
	if in.ValuesParameter != nil {
		sources++
	}
	if in.Subquery != nil {
		sources++
	}
	if sources != 1 {
		v.addIssue(path, "IN requires exactly one of values, list parameter or subquery, got %d", sources)
	}

	v.validateExpr(path+".item", in.Item)
	if row, ok := in.Item.(*RowValue); ok {
		for i, val := range in.Values {
			if r, ok := val.(*RowValue); ok && len(r.Values) != len(row.Values) {
				v.addIssue(fmt.Sprintf("%s.values[%d]", path, i), "row value arity mismatch: %d vs %d",
					len(row.Values), len(r.Values))
			}
		}
	}
	for i, val := range in.Values {
		v.validateExpr(fmt.Sprintf("%s.values[%d]", path, i), val)
	}
	if in.ValuesParameter != nil {
		v.validateExpr(path+".list", in.ValuesParameter)
	}
	if in.Subquery != nil {
		if len(in.Subquery.Projection) != 1 {
			v.addIssue(path, "IN subquery must project exactly one column, got %d", len(in.Subquery.Projection))
		}
		v.validateSelect(path+".subquery", in.Subquery)
	}
}
