package nullsem

import (
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/typemap"
)

// optimizeComparison applies the structural shortcuts for = and <> before
// any null compensation is considered. It returns b itself when no shortcut
// applies.
//
// nullsEqual is false for join keys and in relational-null mode, where a
// nullable x = x must stay unknown for null x.
func (p *processor) optimizeComparison(b *queryir.Binary, leftNullable, rightNullable bool, scope colSet, nullsEqual bool) (queryir.Expression, bool) {
	if b.Op != queryir.OpEqual && b.Op != queryir.OpNotEqual {
		return b, leftNullable || rightNullable
	}
	left, right := b.Left, b.Right

	// x = NULL -> x IS NULL, x <> NULL -> x IS NOT NULL
	leftNull := leftNullable && isValueLeaf(left)
	rightNull := rightNullable && isValueLeaf(right)
	if leftNull || rightNull {
		operand, operandNullable := left, leftNullable
		if leftNull {
			operand, operandNullable = right, rightNullable
		}
		probe := p.f.IsNull(operand)
		if b.Op == queryir.OpNotEqual {
			probe = p.f.IsNotNull(operand)
		}
		return p.processNullNotNull(probe, operandNullable, scope), false
	}

	if !leftNullable && !rightNullable {
		// x = TRUE -> x, x = FALSE -> NOT x, and the <> duals
		if v, ok := boolConstant(left); ok && isPlainBool(left) && isPlainBool(right) {
			return p.compareWithBool(b.Op, v, right), false
		}
		if v, ok := boolConstant(right); ok && isPlainBool(left) && isPlainBool(right) {
			return p.compareWithBool(b.Op, v, left), false
		}
	}

	// x = x -> TRUE, x <> x -> FALSE
	if isDeterministicLeaf(left) && queryir.Equal(left, right) && (!leftNullable || nullsEqual) {
		return p.boolConst(b.Op == queryir.OpEqual, b.Mapping), false
	}

	// NOT a = NOT b -> a = b, NOT a = b -> a <> b
	if !leftNullable && !rightNullable {
		leftNegated, rightNegated := isLogicalNot(left), isLogicalNot(right)
		if leftNegated || rightNegated {
			if leftNegated {
				left = left.(*queryir.Unary).Operand
			}
			if rightNegated {
				right = right.(*queryir.Unary).Operand
			}
			op := b.Op
			if leftNegated != rightNegated {
				op, _ = op.Negated()
			}
			return p.optimizeComparison(&queryir.Binary{Op: op, Left: left, Right: right, Mapping: b.Mapping}, false, false, scope, nullsEqual)
		}
	}

	return b, leftNullable || rightNullable
}

func (p *processor) compareWithBool(op queryir.BinaryOp, v bool, operand queryir.Expression) queryir.Expression {
	if (op == queryir.OpEqual) != v {
		return p.optimizeNonNullableNot(p.f.Not(operand))
	}
	return operand
}

// rewriteNullSemantics compensates a nullable = or <> so that it evaluates
// like a two-valued comparison in which null equals null.
func (p *processor) rewriteNullSemantics(b *queryir.Binary, leftNullable, rightNullable, optimize bool, scope colSet) (queryir.Expression, bool) {
	left, right := b.Left, b.Right
	leftNegated, rightNegated := isLogicalNot(left), isLogicalNot(right)
	if leftNegated {
		left = left.(*queryir.Unary).Operand
	}
	if rightNegated {
		right = right.(*queryir.Unary).Operand
	}
	negated := leftNegated != rightNegated

	// NOT a = NOT a -> TRUE, NOT a = a -> a IS NULL, NOT a <> a -> a IS NOT NULL
	if isDeterministicLeaf(left) && queryir.Equal(left, right) {
		if !negated {
			return p.boolConst(b.Op == queryir.OpEqual, b.Mapping), false
		}
		probe := p.f.IsNull(left)
		if b.Op == queryir.OpNotEqual {
			probe = p.f.IsNotNull(left)
		}
		return p.processNullNotNull(probe, leftNullable, scope), false
	}
	return p.expandComparison(b.Op, left, right, leftNullable, rightNullable, negated, optimize, scope, b.Mapping)
}

// expandComparison builds the compensated form of left op right. negated
// means exactly one operand was a stripped NOT; the comparison then uses the
// opposite operator while the null probes stay unchanged.
//
//	a = b,  both nullable:  ((a = b) AND (a IS NOT NULL AND b IS NOT NULL)) OR (a IS NULL AND b IS NULL)
//	a = b,  a nullable:     (a = b) AND a IS NOT NULL
//	a <> b, both nullable:  ((a <> b) OR (a IS NULL OR b IS NULL)) AND (a IS NOT NULL OR b IS NOT NULL)
//	a <> b, a nullable:     (a <> b) OR a IS NULL
//
// Where unknown already reads as false, a non-negated equality keeps only
// the clauses that make null match null.
func (p *processor) expandComparison(op queryir.BinaryOp, left, right queryir.Expression, leftNullable, rightNullable, negated, optimize bool, scope colSet, m *typemap.TypeMapping) (queryir.Expression, bool) {
	compare := func(o queryir.BinaryOp) queryir.Expression {
		if negated {
			o, _ = o.Negated()
		}
		return &queryir.Binary{Op: o, Left: left, Right: right, Mapping: m}
	}

	leftIsNull := p.processNullNotNull(p.f.IsNull(left), leftNullable, scope)
	leftIsNotNull := p.optimizeNonNullableNot(p.f.Not(leftIsNull))
	rightIsNull := p.processNullNotNull(p.f.IsNull(right), rightNullable, scope)
	rightIsNotNull := p.optimizeNonNullableNot(p.f.Not(rightIsNull))

	if optimize && op == queryir.OpEqual && !negated {
		if leftNullable && rightNullable {
			return p.or(compare(queryir.OpEqual), p.and(leftIsNull, rightIsNull)), true
		}
		return compare(queryir.OpEqual), true
	}

	switch {
	case op == queryir.OpEqual && leftNullable && rightNullable:
		return p.or(
			p.and(compare(queryir.OpEqual), p.and(leftIsNotNull, rightIsNotNull)),
			p.and(leftIsNull, rightIsNull)), false

	case op == queryir.OpEqual:
		notNull := leftIsNotNull
		if !leftNullable {
			notNull = rightIsNotNull
		}
		return p.and(compare(queryir.OpEqual), notNull), false

	case op == queryir.OpNotEqual && leftNullable && rightNullable:
		return p.and(
			p.or(compare(queryir.OpNotEqual), p.or(leftIsNull, rightIsNull)),
			p.or(leftIsNotNull, rightIsNotNull)), false

	case op == queryir.OpNotEqual:
		isNull := leftIsNull
		if !leftNullable {
			isNull = rightIsNull
		}
		return p.or(compare(queryir.OpNotEqual), isNull), false
	}

	p.assertf("expandComparison: unexpected operator %s", op)
	return compare(op), leftNullable || rightNullable
}

func (p *processor) and(left, right queryir.Expression) queryir.Expression {
	return p.simplifyLogical(p.f.And(left, right))
}

func (p *processor) or(left, right queryir.Expression) queryir.Expression {
	return p.simplifyLogical(p.f.Or(left, right))
}

// expansion is a compensated comparison over leaf operands, recognized in
// already-normalized input. Re-deriving it from its comparison keeps a second
// normalization from compensating the inner comparison again.
type expansion struct {
	op            queryir.BinaryOp
	left, right   queryir.Expression
	leftNullable  bool
	rightNullable bool
	negated       bool
	optimized     bool
	mapping       *typemap.TypeMapping
}

// revisitExpansion re-derives a recognized expansion in the same form. It
// declines when the operands' nullability no longer matches the form.
func (p *processor) revisitExpansion(b *queryir.Binary, optimize bool, scope colSet) (queryir.Expression, bool, bool) {
	m, ok := matchExpansion(b)
	if !ok || (m.optimized && !optimize) {
		return nil, false, false
	}
	left, leftNullable := p.visit(m.left, false, scope)
	right, rightNullable := p.visit(m.right, false, scope)
	if leftNullable != m.leftNullable || rightNullable != m.rightNullable {
		return nil, false, false
	}
	out, nullable := p.expandComparison(m.op, left, right, leftNullable, rightNullable, m.negated, m.optimized, scope, m.mapping)
	return out, nullable, true
}

func matchExpansion(b *queryir.Binary) (expansion, bool) {
	switch b.Op {
	case queryir.OpOr:
		// ((l ? r) AND (l IS NOT NULL AND r IS NOT NULL)) OR (l IS NULL AND r IS NULL)
		if inner, ok := b.Left.(*queryir.Binary); ok && inner.Op == queryir.OpAnd {
			if cmp, ok := leafComparison(inner.Left); ok &&
				isProbePair(inner.Right, queryir.OpAnd, queryir.OpIsNotNull, cmp) &&
				isProbePair(b.Right, queryir.OpAnd, queryir.OpIsNull, cmp) {
				return expansion{
					op: queryir.OpEqual, left: cmp.Left, right: cmp.Right,
					leftNullable: true, rightNullable: true,
					negated: cmp.Op == queryir.OpNotEqual, mapping: cmp.Mapping,
				}, true
			}
		}
		cmp, ok := leafComparison(b.Left)
		if !ok {
			return expansion{}, false
		}
		// (l = r) OR (l IS NULL AND r IS NULL)
		if cmp.Op == queryir.OpEqual && isProbePair(b.Right, queryir.OpAnd, queryir.OpIsNull, cmp) {
			return expansion{
				op: queryir.OpEqual, left: cmp.Left, right: cmp.Right,
				leftNullable: true, rightNullable: true,
				optimized: true, mapping: cmp.Mapping,
			}, true
		}
		// (l ? r) OR x IS NULL
		if ln, rn, ok := oneSideProbe(b.Right, queryir.OpIsNull, cmp); ok {
			return expansion{
				op: queryir.OpNotEqual, left: cmp.Left, right: cmp.Right,
				leftNullable: ln, rightNullable: rn,
				negated: cmp.Op == queryir.OpEqual, mapping: cmp.Mapping,
			}, true
		}

	case queryir.OpAnd:
		// ((l ? r) OR (l IS NULL OR r IS NULL)) AND (l IS NOT NULL OR r IS NOT NULL)
		if inner, ok := b.Left.(*queryir.Binary); ok && inner.Op == queryir.OpOr {
			if cmp, ok := leafComparison(inner.Left); ok &&
				isProbePair(inner.Right, queryir.OpOr, queryir.OpIsNull, cmp) &&
				isProbePair(b.Right, queryir.OpOr, queryir.OpIsNotNull, cmp) {
				return expansion{
					op: queryir.OpNotEqual, left: cmp.Left, right: cmp.Right,
					leftNullable: true, rightNullable: true,
					negated: cmp.Op == queryir.OpEqual, mapping: cmp.Mapping,
				}, true
			}
		}
		// (l ? r) AND x IS NOT NULL
		if cmp, ok := leafComparison(b.Left); ok {
			if ln, rn, ok := oneSideProbe(b.Right, queryir.OpIsNotNull, cmp); ok {
				return expansion{
					op: queryir.OpEqual, left: cmp.Left, right: cmp.Right,
					leftNullable: ln, rightNullable: rn,
					negated: cmp.Op == queryir.OpNotEqual, mapping: cmp.Mapping,
				}, true
			}
		}
	}
	return expansion{}, false
}

// leafComparison matches l = r or l <> r over two distinct leaf operands.
func leafComparison(e queryir.Expression) (*queryir.Binary, bool) {
	b, ok := e.(*queryir.Binary)
	if !ok || (b.Op != queryir.OpEqual && b.Op != queryir.OpNotEqual) {
		return nil, false
	}
	if !isDeterministicLeaf(b.Left) || !isDeterministicLeaf(b.Right) || queryir.Equal(b.Left, b.Right) {
		return nil, false
	}
	return b, true
}

func probedColumn(e queryir.Expression, op queryir.UnaryOp) (*queryir.Column, bool) {
	u, ok := e.(*queryir.Unary)
	if !ok || u.Op != op {
		return nil, false
	}
	c, ok := u.Operand.(*queryir.Column)
	return c, ok
}

// isProbePair matches (l <probe>) <connective> (r <probe>) for the operands
// of cmp.
func isProbePair(e queryir.Expression, connective queryir.BinaryOp, probe queryir.UnaryOp, cmp *queryir.Binary) bool {
	b, ok := e.(*queryir.Binary)
	if !ok || b.Op != connective {
		return false
	}
	pl, lok := probedColumn(b.Left, probe)
	pr, rok := probedColumn(b.Right, probe)
	return lok && rok && queryir.Equal(pl, cmp.Left) && queryir.Equal(pr, cmp.Right)
}

// oneSideProbe matches a probe of one operand of cmp and reports which side
// it names.
func oneSideProbe(e queryir.Expression, probe queryir.UnaryOp, cmp *queryir.Binary) (leftNullable, rightNullable, ok bool) {
	c, ok := probedColumn(e, probe)
	if !ok {
		return false, false, false
	}
	switch {
	case queryir.Equal(c, cmp.Left):
		return true, false, true
	case queryir.Equal(c, cmp.Right):
		return false, true, true
	}
	return false, false, false
}

// isValueLeaf reports whether e is a literal or parameter.
func isValueLeaf(e queryir.Expression) bool {
	switch e.(type) {
	case *queryir.Constant, *queryir.Parameter:
		return true
	}
	return false
}

// isDeterministicLeaf reports whether two structurally equal occurrences of e
// always evaluate to the same value.
func isDeterministicLeaf(e queryir.Expression) bool {
	switch e.(type) {
	case *queryir.Column, *queryir.Constant, *queryir.Parameter:
		return true
	}
	return false
}

// isPlainBool reports whether e is boolean-typed without a value converter.
func isPlainBool(e queryir.Expression) bool {
	m := e.Type()
	return m != nil && m.Kind == typemap.KindBool && m.Converter == nil
}

func isLogicalNot(e queryir.Expression) bool {
	u, ok := e.(*queryir.Unary)
	if !ok || u.Op != queryir.OpNot {
		return false
	}
	m := u.Operand.Type()
	return m != nil && m.Kind == typemap.KindBool
}
