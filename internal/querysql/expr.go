package querysql

import (
	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/sqlerr"
)

// Every expression is rendered in one of two positions: a search condition
// (WHERE, HAVING, ON, CASE WHEN tests and operands of AND, OR and NOT) or a
// value (everything else). Dialects with boolean predicates treat both the
// same; for the others, values in search positions are compared with TRUE
// and predicates in value positions are wrapped in CASE.

// predicate renders e as a search condition.
func (b *commandBuilder) predicate(e queryir.Expression) {
	b.render(b.positioned(e, true), true)
}

// value renders e as a value.
func (b *commandBuilder) value(e queryir.Expression) {
	b.render(b.positioned(e, false), false)
}

// operand renders inner as an operand of outer, parenthesized when the
// grouping would otherwise be lost.
func (b *commandBuilder) operand(outer, inner queryir.Expression, search bool) {
	b.operandAt(outer, inner, search, false)
}

// operandAt is operand with the side of a binary outer known: left is true
// for its left operand.
func (b *commandBuilder) operandAt(outer, inner queryir.Expression, search, left bool) {
	node := b.positioned(inner, search)
	if b.requiresParentheses(outer, node, left) {
		b.WriteString("(")
		b.render(node, search)
		b.WriteString(")")
		return
	}
	b.render(node, search)
}

// positioned returns the node to render for e in the given position.
func (b *commandBuilder) positioned(e queryir.Expression, search bool) queryir.Expression {
	if b.d.BooleanPredicates() || e == nil {
		return e
	}
	switch {
	case search && !isPredicate(e) && !isBoolConstant(e):
		m := e.Type()
		return &queryir.Binary{
			Op:      queryir.OpEqual,
			Left:    e,
			Right:   &queryir.Constant{Value: ir.IRBool(true), Mapping: m},
			Mapping: m,
		}
	case !search && isPredicate(e):
		m := e.Type()
		return &queryir.Case{
			Whens:   []queryir.CaseWhen{{Test: e, Result: &queryir.Constant{Value: ir.IRBool(true), Mapping: m}}},
			Else:    &queryir.Constant{Value: ir.IRBool(false), Mapping: m},
			Mapping: m,
		}
	}
	return e
}

// isPredicate reports whether e is a boolean-valued operator rather than a
// boolean value.
func isPredicate(e queryir.Expression) bool {
	switch x := e.(type) {
	case *queryir.Binary:
		return x.Op.IsLogical() || x.Op.IsComparison()
	case *queryir.Unary:
		return x.Op == queryir.OpNot || x.Op == queryir.OpIsNull || x.Op == queryir.OpIsNotNull
	case *queryir.Like, *queryir.In, *queryir.Exists:
		return true
	}
	return false
}

func isBoolConstant(e queryir.Expression) bool {
	c, ok := e.(*queryir.Constant)
	if !ok || c.Mapping == nil || c.Mapping.Converter != nil {
		return false
	}
	_, ok = c.BoolValue()
	return ok
}

func (b *commandBuilder) render(e queryir.Expression, search bool) {
	if search && isBoolConstant(e) {
		v, _ := e.(*queryir.Constant).BoolValue()
		b.WriteString(b.d.PredicateLiteral(v))
		return
	}
	b.expr(e)
}

// requiresParentheses reports whether inner must be parenthesized as an
// operand of outer. left marks the left operand of a binary outer.
func (b *commandBuilder) requiresParentheses(outer, inner queryir.Expression, left bool) bool {
	if u, ok := outer.(*queryir.Unary); ok && u.Op == queryir.OpConvert {
		return false
	}

	switch x := inner.(type) {
	case *queryir.Binary:
		// AND binds tighter than OR, but mixed connectives are always grouped.
		if o, ok := outer.(*queryir.Binary); ok && o.Op.IsLogical() && x.Op.IsLogical() {
			return o.Op != x.Op
		}
	case *queryir.Unary:
		if x.Op == queryir.OpConvert {
			return false
		}
		if o, ok := outer.(*queryir.Unary); ok && o.Op == x.Op {
			// - -x would start a line comment.
			return x.Op == queryir.OpNegate
		}
	case *queryir.Like, *queryir.In, *queryir.Collate:
	default:
		return false
	}

	outerPrec, ok := b.d.Precedence(outer)
	if !ok {
		return true
	}
	innerPrec, ok := b.d.Precedence(inner)
	if !ok {
		return true
	}
	switch {
	case outerPrec.Level > innerPrec.Level:
		return true
	case outerPrec.Level < innerPrec.Level:
		return false
	}

	// Equal precedence: a left arithmetic operand or a chain of one
	// associative operator may drop the parentheses, and floating point
	// arithmetic is not associative.
	ob, ok := outer.(*queryir.Binary)
	if !ok {
		return true
	}
	ib, ok := inner.(*queryir.Binary)
	if !ok {
		return true
	}
	// Arithmetic is left associative.
	if left && ob.Op.IsArithmetic() && ib.Op.IsArithmetic() {
		return false
	}
	if ob.Op != ib.Op || !outerPrec.Associative {
		return true
	}
	return ob.Mapping.IsFloatingPoint() || ib.Mapping.IsFloatingPoint()
}

func (b *commandBuilder) requireMapping(e queryir.Expression) bool {
	if e.Type() == nil {
		b.fail(sqlerr.NewMissingTypeMapping(queryir.Describe(e)))
		return false
	}
	return true
}

func (b *commandBuilder) expr(e queryir.Expression) {
	if b.err != nil {
		return
	}
	if e == nil {
		b.fail(sqlerr.NewUnhandledNode("generator", "nil expression"))
		return
	}
	handled, err := b.d.RenderCustom(b, e)
	if err != nil {
		b.fail(err)
		return
	}
	if handled {
		return
	}

	switch x := e.(type) {
	case *queryir.Column:
		if !b.requireMapping(x) {
			return
		}
		if x.Table != "" {
			b.ident(x.Table)
			b.WriteString(".")
		}
		b.ident(x.Name)

	case *queryir.Constant:
		if !b.requireMapping(x) {
			return
		}
		lit, err := b.d.Literal(x.Value, x.Mapping)
		if err != nil {
			b.fail(err)
			return
		}
		b.WriteString(lit)

	case *queryir.Parameter:
		if b.requireMapping(x) {
			b.parameter(x)
		}

	case *queryir.Unary:
		if b.requireMapping(x) {
			b.unary(x)
		}

	case *queryir.Binary:
		if !b.requireMapping(x) {
			return
		}
		search := x.Op.IsLogical()
		b.operandAt(x, x.Left, search, true)
		b.WriteString(" " + b.d.BinaryOperator(x) + " ")
		b.operandAt(x, x.Right, search, false)

	case *queryir.Case:
		if b.requireMapping(x) {
			b.caseExpr(x)
		}

	case *queryir.Like:
		if !b.requireMapping(x) {
			return
		}
		b.operand(x, x.Match, false)
		b.WriteString(" LIKE ")
		b.operand(x, x.Pattern, false)
		if x.Escape != nil {
			b.WriteString(" ESCAPE ")
			b.value(x.Escape)
		}

	case *queryir.In:
		if b.requireMapping(x) {
			b.in(x)
		}

	case *queryir.Exists:
		if !b.requireMapping(x) {
			return
		}
		if x.Negated {
			b.WriteString("NOT ")
		}
		b.WriteString("EXISTS ")
		b.subquery(x.Subquery)

	case *queryir.ScalarSubquery:
		if b.requireMapping(x) {
			b.subquery(x.Subquery)
		}

	case *queryir.Distinct:
		b.WriteString("DISTINCT ")
		b.value(x.Operand)

	case *queryir.Collate:
		b.operand(x, x.Operand, false)
		b.WriteString(" COLLATE " + x.Collation)

	case *queryir.RowNumber:
		if !b.requireMapping(x) {
			return
		}
		b.WriteString("ROW_NUMBER() OVER(")
		if len(x.Partitions) > 0 {
			b.WriteString("PARTITION BY ")
			list(b, x.Partitions, b.value)
			b.WriteString(" ")
		}
		b.WriteString("ORDER BY ")
		if len(x.Orderings) == 0 {
			b.WriteString("(SELECT 1)")
		} else {
			list(b, x.Orderings, b.ordering)
		}
		b.WriteString(")")

	case *queryir.RowValue:
		b.rowValue(x)

	case *queryir.Function:
		if b.requireMapping(x) {
			b.function(x)
		}

	case *queryir.Fragment:
		b.WriteString(x.SQL)

	default:
		b.fail(sqlerr.NewUnhandledNode("generator", queryir.Describe(e)))
	}
}

func (b *commandBuilder) unary(u *queryir.Unary) {
	switch u.Op {
	case queryir.OpNot:
		b.WriteString("NOT ")
		b.operand(u, u.Operand, true)

	case queryir.OpNegate:
		b.WriteString("-")
		if isNegativeConstant(u.Operand) {
			b.WriteString("(")
			b.value(u.Operand)
			b.WriteString(")")
			return
		}
		b.operand(u, u.Operand, false)

	case queryir.OpConvert:
		b.WriteString("CAST(")
		b.value(u.Operand)
		b.WriteString(" AS " + u.Mapping.StoreType + ")")

	case queryir.OpIsNull, queryir.OpIsNotNull:
		b.operand(u, u.Operand, false)
		b.WriteString(" " + u.Op.String())

	default:
		b.fail(sqlerr.NewUnhandledNode("generator", queryir.Describe(u)))
	}
}

func isNegativeConstant(e queryir.Expression) bool {
	c, ok := e.(*queryir.Constant)
	if !ok {
		return false
	}
	switch v := c.Value.(type) {
	case ir.IRInt:
		return v < 0
	case ir.IRDecimal:
		return v.Decimal().Negative
	}
	return false
}

func (b *commandBuilder) caseExpr(c *queryir.Case) {
	b.WriteString("CASE")
	if c.Operand != nil {
		b.WriteString(" ")
		b.value(c.Operand)
	}
	for _, w := range c.Whens {
		b.WriteString(" WHEN ")
		if c.Operand != nil {
			b.value(w.Test)
		} else {
			b.predicate(w.Test)
		}
		b.WriteString(" THEN ")
		b.value(w.Result)
	}
	if c.Else != nil {
		b.WriteString(" ELSE ")
		b.value(c.Else)
	}
	b.WriteString(" END")
}

func (b *commandBuilder) in(x *queryir.In) {
	if x.Subquery == nil && x.ValuesParameter == nil && len(x.Values) == 0 {
		// x IN () is false, x NOT IN () is true.
		b.WriteString(b.d.PredicateLiteral(x.Negated))
		return
	}

	b.operand(x, x.Item, false)
	if x.Negated {
		b.WriteString(" NOT IN ")
	} else {
		b.WriteString(" IN ")
	}

	switch {
	case x.Subquery != nil:
		b.subquery(x.Subquery)
	case x.ValuesParameter != nil:
		b.WriteString("(")
		b.value(x.ValuesParameter)
		b.WriteString(")")
	default:
		b.WriteString("(")
		list(b, x.Values, b.value)
		b.WriteString(")")
	}
}

func (b *commandBuilder) rowValue(r *queryir.RowValue) {
	b.WriteString("(")
	list(b, r.Values, b.value)
	b.WriteString(")")
}

// function renders [schema.]name(args) or instance.name(args). Niladic
// functions render without an argument list.
func (b *commandBuilder) function(f *queryir.Function) {
	switch {
	case f.Instance != nil:
		b.value(f.Instance)
		b.WriteString("." + f.Name)
	case f.Schema != "":
		b.qualifiedName(f.Schema, f.Name)
	default:
		b.WriteString(f.Name)
	}
	if f.Niladic {
		return
	}
	b.WriteString("(")
	list(b, f.Args, b.value)
	b.WriteString(")")
}
