package queryir

// Statement represents a complete statement in the Query IR.
//
// This is a sealed interface - only types in this package implement it.
//
// Statement types:
//   - Select: a query, also usable as an aliased subquery table source
//   - Update: UPDATE of a target table, FROM/WHERE supplied by a Select
//   - Delete: DELETE from a target table, WHERE supplied by a Select
type Statement interface {
	statementNode() // Marker method - seals interface to this package
}

// Select represents a SELECT statement or an aliased subquery.
//
// Semantics:
//
//	SELECT [DISTINCT] <projection> FROM <tables> [WHERE <predicate>]
//	  [GROUP BY <group_by>] [HAVING <having>] [ORDER BY <orderings>]
//	  [LIMIT <limit>] [OFFSET <offset>]
//
// An empty projection renders as SELECT 1. Alias is set when the select is
// nested as a table source; a nested select is rendered in parentheses
// followed by its alias.
type Select struct {
	Distinct   bool
	Projection []Projection
	Tables     []TableSource
	Predicate  Expression
	GroupBy    []Expression
	Having     Expression
	Orderings  []Ordering
	Limit      Expression
	Offset     Expression
	Alias      string
}

func (*Select) statementNode()        {}
func (*Select) tableNode()            {}
func (s *Select) SourceAlias() string { return s.Alias }

// Clone returns a shallow copy of s. Slices are shared; callers that modify
// a slice must replace it, never write through it.
func (s *Select) Clone() *Select {
	cp := *s
	return &cp
}

// HasShapingClauses reports whether s groups, filters groups, orders, pages
// or de-duplicates its rows.
func (s *Select) HasShapingClauses() bool {
	return len(s.GroupBy) > 0 || s.Having != nil || len(s.Orderings) > 0 ||
		s.Limit != nil || s.Offset != nil || s.Distinct
}

// NonComposedSetOperation returns the set operation s merely wraps: a single
// set operation table, no other clauses, and a projection that selects the
// set operation's columns by name in order. Such a select renders as the
// bare set operation.
func (s *Select) NonComposedSetOperation() (*SetOperation, bool) {
	if len(s.Tables) != 1 || s.Predicate != nil || s.HasShapingClauses() {
		return nil, false
	}
	setOp, ok := s.Tables[0].(*SetOperation)
	if !ok || setOp.Left == nil {
		return nil, false
	}
	if len(s.Projection) != len(setOp.Left.Projection) {
		return nil, false
	}
	for i, p := range s.Projection {
		col, ok := p.Expr.(*Column)
		if !ok || col.Table != setOp.Alias {
			return nil, false
		}
		inner := ProjectionName(setOp.Left.Projection[i])
		if col.Name != inner || (p.Alias != "" && p.Alias != inner) {
			return nil, false
		}
	}
	return setOp, true
}

// PassThroughValues returns the Values table s merely wraps: a single
// unaliased select over a Values source with no other clauses, projecting
// every Values column in order.
func (s *Select) PassThroughValues() (*Values, bool) {
	if s.Alias != "" || len(s.Tables) != 1 || s.Predicate != nil || s.HasShapingClauses() {
		return nil, false
	}
	values, ok := s.Tables[0].(*Values)
	if !ok || len(s.Projection) != len(values.ColumnNames) {
		return nil, false
	}
	for i, p := range s.Projection {
		col, ok := p.Expr.(*Column)
		if !ok || col.Table != values.Alias || col.Name != values.ColumnNames[i] {
			return nil, false
		}
		if p.Alias != "" && p.Alias != col.Name {
			return nil, false
		}
	}
	return values, true
}

// ProjectionName is the output column name of a projection entry: its alias,
// or the column name for an unaliased column.
func ProjectionName(p Projection) string {
	if p.Alias != "" {
		return p.Alias
	}
	if col, ok := p.Expr.(*Column); ok {
		return col.Name
	}
	return ""
}

// ColumnSetter is one SET column = value assignment of an Update.
type ColumnSetter struct {
	Column *Column
	Value  Expression
}

// Update represents an UPDATE of Table. Select supplies the FROM list (which
// contains Table) and the WHERE predicate; it may not group, order, page or
// project.
type Update struct {
	Table   *Table
	Setters []ColumnSetter
	Select  *Select
}

func (*Update) statementNode() {}

// Delete represents a DELETE from Table. Select must be a single-table select
// over Table with at most a predicate.
type Delete struct {
	Table  *Table
	Select *Select
}

func (*Delete) statementNode() {}
