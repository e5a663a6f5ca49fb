package queryir

// TableSource represents an entry of a select's table list.
//
// This is a sealed interface - only types in this package implement it.
// The table list order is join order: a Join's predicate may reference only
// the sources at or before its own position.
type TableSource interface {
	tableNode() // Marker method - seals interface to this package
	SourceAlias() string
}

// Table is a base table reference.
type Table struct {
	Schema string
	Name   string
	Alias  string
}

func (*Table) tableNode()            {}
func (t *Table) SourceAlias() string { return t.Alias }

// FromSQL is a table source defined by raw SQL text. The text may contain
// positional placeholders {0}, {1}, ... that are replaced by the rendered Args.
type FromSQL struct {
	SQL   string
	Args  []Expression
	Alias string
}

func (*FromSQL) tableNode()            {}
func (f *FromSQL) SourceAlias() string { return f.Alias }

// Update returns f with new arguments, or f itself when unchanged.
func (f *FromSQL) Update(args []Expression) *FromSQL {
	if sameExprs(args, f.Args) {
		return f
	}
	return &FromSQL{SQL: f.SQL, Args: args, Alias: f.Alias}
}

// TableValuedFunction is a function call used as a table source.
type TableValuedFunction struct {
	Schema string
	Name   string
	Args   []Expression
	Alias  string
}

func (*TableValuedFunction) tableNode()            {}
func (t *TableValuedFunction) SourceAlias() string { return t.Alias }

// Update returns t with new arguments, or t itself when unchanged.
func (t *TableValuedFunction) Update(args []Expression) *TableValuedFunction {
	if sameExprs(args, t.Args) {
		return t
	}
	return &TableValuedFunction{Schema: t.Schema, Name: t.Name, Args: args, Alias: t.Alias}
}

// Values is an inline VALUES literal with named columns.
// Every row has len(ColumnNames) values.
type Values struct {
	ColumnNames []string
	Rows        []*RowValue
	Alias       string
}

func (*Values) tableNode()            {}
func (v *Values) SourceAlias() string { return v.Alias }

// Update returns v with new rows, or v itself when unchanged.
func (v *Values) Update(rows []*RowValue) *Values {
	same := len(rows) == len(v.Rows)
	for i := 0; same && i < len(rows); i++ {
		same = rows[i] == v.Rows[i]
	}
	if same {
		return v
	}
	return &Values{ColumnNames: v.ColumnNames, Rows: rows, Alias: v.Alias}
}

// Join pairs a table source with a join kind and, for inner and left joins,
// an ON predicate.
type Join struct {
	Kind      JoinKind
	Table     TableSource
	Predicate Expression
}

func (*Join) tableNode()            {}
func (j *Join) SourceAlias() string { return j.Table.SourceAlias() }

// Update returns j with new parts, or j itself when nothing changed.
func (j *Join) Update(table TableSource, predicate Expression) *Join {
	if table == j.Table && predicate == j.Predicate {
		return j
	}
	return &Join{Kind: j.Kind, Table: table, Predicate: predicate}
}

// SetOperation combines two selects with UNION, INTERSECT or EXCEPT.
// Distinct false renders the ALL variant.
type SetOperation struct {
	Kind     SetOpKind
	Left     *Select
	Right    *Select
	Distinct bool
	Alias    string
}

func (*SetOperation) tableNode()            {}
func (s *SetOperation) SourceAlias() string { return s.Alias }

// Update returns s with new operands, or s itself when unchanged.
func (s *SetOperation) Update(left, right *Select) *SetOperation {
	if left == s.Left && right == s.Right {
		return s
	}
	cp := *s
	cp.Left = left
	cp.Right = right
	return &cp
}

// Ordering is one ORDER BY entry.
type Ordering struct {
	Expr      Expression
	Ascending bool
}

// Projection is one SELECT-list entry. Alias may be empty when the
// expression's natural name suffices (a column projected under its own name).
type Projection struct {
	Expr  Expression
	Alias string
}
