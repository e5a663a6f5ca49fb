package queryir

import (
	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/typemap"
)

// Expression represents a scalar node in the Query IR.
//
// This is a sealed interface - only types in this package implement it.
// Type returns the node's resolved target type mapping (nil for RowValue and
// Fragment, which never stand alone as values).
type Expression interface {
	exprNode() // Marker method - seals interface to this package
	Type() *typemap.TypeMapping
}

// Column references a column of a table source by alias and name.
//
// Nullable is the schema nullability. The normalizer may prove a nullable
// column non-null along a boolean path; that knowledge never changes the
// node itself.
type Column struct {
	Table    string // alias of the table source
	Name     string
	Nullable bool
	Mapping  *typemap.TypeMapping
}

func (*Column) exprNode()                    {}
func (c *Column) Type() *typemap.TypeMapping { return c.Mapping }

// Constant is a literal value. ir.IRNull{} is the typed NULL literal.
type Constant struct {
	Value   ir.IRValue
	Mapping *typemap.TypeMapping
}

func (*Constant) exprNode()                    {}
func (c *Constant) Type() *typemap.TypeMapping { return c.Mapping }

// IsNull reports whether the constant is NULL.
func (c *Constant) IsNull() bool { return ir.IsNull(c.Value) }

// BoolValue returns the constant's boolean value, if it is one.
func (c *Constant) BoolValue() (value, ok bool) {
	b, ok := c.Value.(ir.IRBool)
	return bool(b), ok
}

// Parameter references a value supplied at execution time.
type Parameter struct {
	Name    string
	Mapping *typemap.TypeMapping
}

func (*Parameter) exprNode()                    {}
func (p *Parameter) Type() *typemap.TypeMapping { return p.Mapping }

// Unary applies NOT, negation, conversion or a null probe to an operand.
// For OpConvert, Mapping is the conversion target.
type Unary struct {
	Op      UnaryOp
	Operand Expression
	Mapping *typemap.TypeMapping
}

func (*Unary) exprNode()                    {}
func (u *Unary) Type() *typemap.TypeMapping { return u.Mapping }

// Update returns u with a new operand, or u itself when operand is unchanged.
func (u *Unary) Update(operand Expression) *Unary {
	if operand == u.Operand {
		return u
	}
	cp := *u
	cp.Operand = operand
	return &cp
}

// Binary applies a logical, comparison, arithmetic or bitwise operator.
type Binary struct {
	Op      BinaryOp
	Left    Expression
	Right   Expression
	Mapping *typemap.TypeMapping
}

func (*Binary) exprNode()                    {}
func (b *Binary) Type() *typemap.TypeMapping { return b.Mapping }

// Update returns b with new operands, or b itself when both are unchanged.
func (b *Binary) Update(left, right Expression) *Binary {
	if left == b.Left && right == b.Right {
		return b
	}
	cp := *b
	cp.Left = left
	cp.Right = right
	return &cp
}

// CaseWhen is one WHEN ... THEN ... branch of a Case.
type CaseWhen struct {
	Test   Expression
	Result Expression
}

// Case is a searched CASE (Operand nil) or a simple CASE over Operand.
// Else is nil when the CASE has no ELSE branch.
type Case struct {
	Operand Expression
	Whens   []CaseWhen
	Else    Expression
	Mapping *typemap.TypeMapping
}

func (*Case) exprNode()                    {}
func (c *Case) Type() *typemap.TypeMapping { return c.Mapping }

// Update returns c with new parts, or c itself when nothing changed.
func (c *Case) Update(operand Expression, whens []CaseWhen, elseResult Expression) *Case {
	if operand == c.Operand && elseResult == c.Else && sameWhens(whens, c.Whens) {
		return c
	}
	return &Case{Operand: operand, Whens: whens, Else: elseResult, Mapping: c.Mapping}
}

// Like is match LIKE pattern [ESCAPE escape].
type Like struct {
	Match   Expression
	Pattern Expression
	Escape  Expression // nil when absent
	Mapping *typemap.TypeMapping
}

func (*Like) exprNode()                    {}
func (l *Like) Type() *typemap.TypeMapping { return l.Mapping }

// Update returns l with new operands, or l itself when nothing changed.
func (l *Like) Update(match, pattern, escape Expression) *Like {
	if match == l.Match && pattern == l.Pattern && escape == l.Escape {
		return l
	}
	cp := *l
	cp.Match = match
	cp.Pattern = pattern
	cp.Escape = escape
	return &cp
}

// In tests Item against exactly one of: an inline value list, a
// parameterized list, or a subquery projecting a single column.
type In struct {
	Item            Expression
	Values          []Expression
	ValuesParameter *Parameter
	Subquery        *Select
	Negated         bool
	Mapping         *typemap.TypeMapping
}

func (*In) exprNode()                    {}
func (i *In) Type() *typemap.TypeMapping { return i.Mapping }

// Update returns i with new parts, or i itself when nothing changed.
func (i *In) Update(item Expression, values []Expression, valuesParameter *Parameter, subquery *Select) *In {
	if item == i.Item && valuesParameter == i.ValuesParameter && subquery == i.Subquery && sameExprs(values, i.Values) {
		return i
	}
	cp := *i
	cp.Item = item
	cp.Values = values
	cp.ValuesParameter = valuesParameter
	cp.Subquery = subquery
	return &cp
}

// Negate returns the IN with its negation flipped.
func (i *In) Negate() *In {
	cp := *i
	cp.Negated = !i.Negated
	return &cp
}

// Exists is [NOT] EXISTS (subquery).
type Exists struct {
	Subquery *Select
	Negated  bool
	Mapping  *typemap.TypeMapping
}

func (*Exists) exprNode()                    {}
func (e *Exists) Type() *typemap.TypeMapping { return e.Mapping }

// Update returns e with a new subquery, or e itself when unchanged.
func (e *Exists) Update(subquery *Select) *Exists {
	if subquery == e.Subquery {
		return e
	}
	cp := *e
	cp.Subquery = subquery
	return &cp
}

// Negate returns the EXISTS with its negation flipped.
func (e *Exists) Negate() *Exists {
	cp := *e
	cp.Negated = !e.Negated
	return &cp
}

// Distinct is DISTINCT operand, used inside aggregate arguments.
type Distinct struct {
	Operand Expression
}

func (*Distinct) exprNode()                    {}
func (d *Distinct) Type() *typemap.TypeMapping { return d.Operand.Type() }

// Update returns d with a new operand, or d itself when unchanged.
func (d *Distinct) Update(operand Expression) *Distinct {
	if operand == d.Operand {
		return d
	}
	return &Distinct{Operand: operand}
}

// Collate is operand COLLATE collation.
type Collate struct {
	Operand   Expression
	Collation string
}

func (*Collate) exprNode()                    {}
func (c *Collate) Type() *typemap.TypeMapping { return c.Operand.Type() }

// Update returns c with a new operand, or c itself when unchanged.
func (c *Collate) Update(operand Expression) *Collate {
	if operand == c.Operand {
		return c
	}
	return &Collate{Operand: operand, Collation: c.Collation}
}

// RowNumber is ROW_NUMBER() OVER (PARTITION BY ... ORDER BY ...).
type RowNumber struct {
	Partitions []Expression
	Orderings  []Ordering
	Mapping    *typemap.TypeMapping
}

func (*RowNumber) exprNode()                    {}
func (r *RowNumber) Type() *typemap.TypeMapping { return r.Mapping }

// Update returns r with new parts, or r itself when nothing changed.
func (r *RowNumber) Update(partitions []Expression, orderings []Ordering) *RowNumber {
	if sameExprs(partitions, r.Partitions) && sameOrderings(orderings, r.Orderings) {
		return r
	}
	return &RowNumber{Partitions: partitions, Orderings: orderings, Mapping: r.Mapping}
}

// RowValue is an ordered tuple (a, b, ...) used in multi-column comparisons
// and as a row of a Values table source.
type RowValue struct {
	Values []Expression
}

func (*RowValue) exprNode()                  {}
func (*RowValue) Type() *typemap.TypeMapping { return nil }

// Update returns r with new values, or r itself when unchanged.
func (r *RowValue) Update(values []Expression) *RowValue {
	if sameExprs(values, r.Values) {
		return r
	}
	return &RowValue{Values: values}
}

// ScalarSubquery is a single-row, single-column nested select.
type ScalarSubquery struct {
	Subquery *Select
	Mapping  *typemap.TypeMapping
}

func (*ScalarSubquery) exprNode()                    {}
func (s *ScalarSubquery) Type() *typemap.TypeMapping { return s.Mapping }

// Update returns s with a new subquery, or s itself when unchanged.
func (s *ScalarSubquery) Update(subquery *Select) *ScalarSubquery {
	if subquery == s.Subquery {
		return s
	}
	return &ScalarSubquery{Subquery: subquery, Mapping: s.Mapping}
}

// Function is a scalar or aggregate function call, optionally on an instance
// receiver (rendered instance.Name(args)).
//
// Nullable is false for functions that never return null. For nullable
// functions, ArgsPropagateNull[i] (and InstancePropagatesNull) marks inputs
// whose nullness makes the result null; the normalizer uses these flags for
// both nullability inference and IS NULL pushdown.
type Function struct {
	Schema                 string
	Name                   string
	Instance               Expression
	Args                   []Expression
	ArgsPropagateNull      []bool
	InstancePropagatesNull bool
	Nullable               bool
	Niladic                bool
	BuiltIn                bool
	Mapping                *typemap.TypeMapping
}

func (*Function) exprNode()                    {}
func (f *Function) Type() *typemap.TypeMapping { return f.Mapping }

// Update returns f with new inputs, or f itself when nothing changed.
func (f *Function) Update(instance Expression, args []Expression) *Function {
	if instance == f.Instance && sameExprs(args, f.Args) {
		return f
	}
	cp := *f
	cp.Instance = instance
	cp.Args = args
	return &cp
}

// Propagates reports whether argument i propagates null.
func (f *Function) Propagates(i int) bool {
	return i < len(f.ArgsPropagateNull) && f.ArgsPropagateNull[i]
}

// Fragment is opaque SQL text such as "*".
type Fragment struct {
	SQL string
}

func (*Fragment) exprNode()                  {}
func (*Fragment) Type() *typemap.TypeMapping { return nil }

func sameExprs(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameWhens(a, b []CaseWhen) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameOrderings(a, b []Ordering) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
