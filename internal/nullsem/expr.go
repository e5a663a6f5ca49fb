package nullsem

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/sqlerr"
	"github.com/roach88/relq/internal/typemap"
)

// visit normalizes e and reports whether the result may evaluate to null.
//
// optimize is set when e sits where unknown already reads as false (WHERE,
// HAVING, ON and the AND/OR operands below them). scope holds the columns
// proven non-null on the current boolean path.
func (p *processor) visit(e queryir.Expression, optimize bool, scope colSet) (queryir.Expression, bool) {
	if e == nil {
		return nil, false
	}
	if p.err != nil {
		return e, true
	}

	if p.n.extension != nil {
		if out, nullable, handled := p.n.extension.VisitExpression(p, e, optimize); handled {
			return out, nullable
		}
	}

	switch x := e.(type) {
	case *queryir.RowValue:
		values, nullable := p.visitAll(x.Values, scope)
		return x.Update(values), nullable
	case *queryir.Fragment:
		return x, false
	case *queryir.Distinct:
		operand, nullable := p.visit(x.Operand, false, scope)
		return x.Update(operand), nullable
	case *queryir.Collate:
		operand, nullable := p.visit(x.Operand, false, scope)
		return x.Update(operand), nullable
	}

	if e.Type() == nil {
		p.Fail(sqlerr.NewMissingTypeMapping(queryir.Describe(e)))
		return e, true
	}

	switch x := e.(type) {
	case *queryir.Column:
		return x, x.Nullable && !scope.has(x)
	case *queryir.Constant:
		return x, x.IsNull()
	case *queryir.Parameter:
		return p.visitParameter(x)
	case *queryir.Unary:
		return p.visitUnary(x, scope)
	case *queryir.Binary:
		return p.visitBinary(x, optimize, scope)
	case *queryir.Case:
		return p.visitCase(x, scope)
	case *queryir.Like:
		return p.visitLike(x, optimize, scope)
	case *queryir.In:
		return p.visitIn(x, optimize, scope)
	case *queryir.Exists:
		sub := p.selectStmt(x.Subquery)
		if v, ok := boolConstant(sub.Predicate); ok && !v {
			return p.boolConst(x.Negated, x.Mapping), false
		}
		return x.Update(sub), false
	case *queryir.ScalarSubquery:
		return x.Update(p.selectStmt(x.Subquery)), true
	case *queryir.RowNumber:
		partitions, _ := p.visitAll(x.Partitions, scope)
		orderings, _ := mapSlice(x.Orderings, func(o queryir.Ordering) queryir.Ordering {
			oe, _ := p.visit(o.Expr, false, scope)
			return queryir.Ordering{Expr: oe, Ascending: o.Ascending}
		}, func(a, b queryir.Ordering) bool { return a == b })
		return x.Update(partitions, orderings), false
	case *queryir.Function:
		return p.visitFunction(x, scope, false)
	}

	p.Fail(sqlerr.NewUnhandledNode("normalizer", queryir.Describe(e)))
	return e, true
}

// visitAll normalizes values in a value context; nullable reports whether
// any of them may be null.
func (p *processor) visitAll(values []queryir.Expression, scope colSet) ([]queryir.Expression, bool) {
	anyNullable := false
	out, _ := mapSlice(values, func(v queryir.Expression) queryir.Expression {
		r, nullable := p.visit(v, false, scope)
		anyNullable = anyNullable || nullable
		return r
	}, func(a, b queryir.Expression) bool { return a == b })
	return out, anyNullable
}

// visitParameter replaces a parameter bound to null by a typed NULL literal,
// so later rules see the null structurally.
func (p *processor) visitParameter(x *queryir.Parameter) (queryir.Expression, bool) {
	v, ok := p.params.Lookup(x.Name)
	if !ok {
		p.Fail(errors.Newf("parameter %q has no value", x.Name))
		return x, true
	}
	if ir.IsNull(v) {
		return p.f.Null(x.Mapping), true
	}
	return x, false
}

func (p *processor) visitUnary(x *queryir.Unary, scope colSet) (queryir.Expression, bool) {
	operand, operandNullable := p.visit(x.Operand, false, scope)
	updated := x.Update(operand)

	switch x.Op {
	case queryir.OpIsNull, queryir.OpIsNotNull:
		return p.processNullNotNull(updated, operandNullable, scope), false
	case queryir.OpNot:
		if !operandNullable {
			return p.optimizeNonNullableNot(updated), false
		}
	}
	return updated, operandNullable
}

func (p *processor) visitBinary(x *queryir.Binary, optimize bool, scope colSet) (queryir.Expression, bool) {
	if x.Op.IsLogical() && !p.n.relationalNulls {
		if out, nullable, ok := p.revisitExpansion(x, optimize, scope); ok {
			return out, nullable
		}
		if out, nullable, ok := p.revisitInCompensation(x, scope); ok {
			return out, nullable
		}
	}

	childOptimize := optimize && x.Op.IsLogical()

	left, leftNullable := p.visit(x.Left, childOptimize, scope)

	rightScope := scope
	switch x.Op {
	case queryir.OpAnd:
		// The right operand only decides the result when the left one is
		// true, or unknown in a context where unknown reads as false.
		if optimize || !leftNullable {
			rightScope = scope.with(nonNullWhenTrue(left)...)
		}
	case queryir.OpOr:
		// The right operand only decides the result when the left one is
		// not true.
		rightScope = scope.with(trueWhenNull(left)...)
	}

	right, rightNullable := p.visit(x.Right, childOptimize, rightScope)

	_, leftRow := left.(*queryir.RowValue)
	_, rightRow := right.(*queryir.RowValue)
	if leftRow || rightRow {
		return x.Update(left, right), leftNullable || rightNullable
	}

	if x.Op == queryir.OpAdd && x.Mapping.Kind == typemap.KindString {
		if leftNullable {
			left = p.concatProtection(left, x.Mapping)
		}
		if rightNullable {
			right = p.concatProtection(right, x.Mapping)
		}
		return x.Update(left, right), false
	}

	if x.Op == queryir.OpEqual || x.Op == queryir.OpNotEqual {
		return p.compareOperands(x.Update(left, right), leftNullable, rightNullable, optimize, scope)
	}

	nullable := leftNullable || rightNullable
	result := x.Update(left, right)
	if x.Op.IsLogical() {
		simplified := p.simplifyLogical(result)
		if _, ok := simplified.(*queryir.Constant); ok {
			nullable = false
		}
		return simplified, nullable
	}
	return result, nullable
}

// compareOperands normalizes an = or <> whose operands are already visited.
func (p *processor) compareOperands(b *queryir.Binary, leftNullable, rightNullable, optimize bool, scope colSet) (queryir.Expression, bool) {
	optimized, nullable := p.optimizeComparison(b, leftNullable, rightNullable, scope, !p.n.relationalNulls)
	if optimized != b || !nullable || p.n.relationalNulls {
		return optimized, nullable
	}
	return p.rewriteNullSemantics(b, leftNullable, rightNullable, optimize, scope)
}

// concatProtection replaces a nullable concatenation operand by
// COALESCE(operand, ''); a NULL literal becomes '' outright.
func (p *processor) concatProtection(e queryir.Expression, m *typemap.TypeMapping) queryir.Expression {
	empty := p.f.Constant(ir.IRString(""), m)
	switch e.(type) {
	case *queryir.Constant, *queryir.Parameter:
		return empty
	}
	return p.f.Coalesce(e, empty)
}

// visitCase drops WHEN branches whose test folds to false and cuts the CASE
// at the first test folding to true. Columns proven non-null by a test are
// non-null in its result.
func (p *processor) visitCase(x *queryir.Case, scope colSet) (queryir.Expression, bool) {
	nullable := x.Else == nil
	testIsCondition := x.Operand == nil

	operand, _ := p.visit(x.Operand, false, scope)

	var whens []queryir.CaseWhen
	testIsTrue := false
	for _, w := range x.Whens {
		test, _ := p.visit(w.Test, testIsCondition, scope)
		if v, ok := boolConstant(test); ok {
			if !v {
				continue
			}
			testIsTrue = true
		}

		resultScope := scope
		if testIsCondition {
			resultScope = scope.with(nonNullWhenTrue(test)...)
		}
		result, resultNullable := p.visit(w.Result, false, resultScope)
		nullable = nullable || resultNullable
		whens = append(whens, queryir.CaseWhen{Test: test, Result: result})

		if testIsTrue {
			break
		}
	}

	var elseResult queryir.Expression
	if !testIsTrue && x.Else != nil {
		var elseNullable bool
		elseResult, elseNullable = p.visit(x.Else, false, scope)
		nullable = nullable || elseNullable
	}

	if len(whens) == 0 {
		if elseResult == nil {
			return p.f.Null(x.Mapping), true
		}
		return elseResult, nullable
	}

	if elseResult == nil && len(whens) == 1 {
		if v, ok := boolConstant(whens[0].Test); ok && v {
			return whens[0].Result, nullable
		}
	}

	return x.Update(operand, whens, elseResult), nullable
}

// visitLike makes a null match, pattern or escape produce FALSE instead of
// unknown in value contexts.
func (p *processor) visitLike(x *queryir.Like, optimize bool, scope colSet) (queryir.Expression, bool) {
	match, matchNullable := p.visit(x.Match, false, scope)
	pattern, patternNullable := p.visit(x.Pattern, false, scope)
	escape, escapeNullable := p.visit(x.Escape, false, scope)

	updated := x.Update(match, pattern, escape)
	nullable := matchNullable || patternNullable || escapeNullable
	if !nullable || optimize || p.n.relationalNulls {
		return updated, nullable
	}

	var out queryir.Expression = updated
	probe := func(operand queryir.Expression, operandNullable bool) {
		if operandNullable {
			notNull := p.processNullNotNull(p.f.IsNotNull(operand), true, scope)
			out = p.simplifyLogical(p.f.And(out, notNull))
		}
	}
	probe(match, matchNullable)
	probe(pattern, patternNullable)
	if escape != nil {
		probe(escape, escapeNullable)
	}
	return out, false
}

// visitFunction infers function nullability from the null-propagation flags.
// COALESCE is nullable only when every argument is; SUM is wrapped as
// COALESCE(SUM(x), 0) unless it already is the first COALESCE argument.
func (p *processor) visitFunction(x *queryir.Function, scope colSet, underCoalesce bool) (queryir.Expression, bool) {
	if x.BuiltIn && strings.EqualFold(x.Name, "COALESCE") {
		nullable := true
		args, _ := mapSlice(x.Args, func(a queryir.Expression) queryir.Expression {
			var (
				r         queryir.Expression
				aNullable bool
			)
			if fn, ok := a.(*queryir.Function); ok && a == x.Args[0] && isSum(fn) {
				r, aNullable = p.visitFunction(fn, scope, true)
			} else {
				r, aNullable = p.visit(a, false, scope)
			}
			nullable = nullable && aNullable
			return r
		}, func(a, b queryir.Expression) bool { return a == b })
		return x.Update(x.Instance, args), nullable
	}

	instance, instanceNullable := p.visit(x.Instance, false, scope)

	args := x.Args
	anyPropagatingNullable := x.InstancePropagatesNull && instanceNullable
	allPropagate := len(x.Args) > 0 && (x.Instance == nil || x.InstancePropagatesNull)
	if !x.Niladic {
		i := 0
		args, _ = mapSlice(x.Args, func(a queryir.Expression) queryir.Expression {
			r, aNullable := p.visit(a, false, scope)
			if x.Propagates(i) {
				anyPropagatingNullable = anyPropagatingNullable || aNullable
			} else {
				allPropagate = false
			}
			i++
			return r
		}, func(a, b queryir.Expression) bool { return a == b })
	}

	nullable := x.Nullable
	if nullable && allPropagate {
		nullable = anyPropagatingNullable
	}

	updated := x.Update(instance, args)
	if isSum(x) && !underCoalesce {
		zero := p.f.Constant(ir.IRInt(0), x.Mapping)
		return p.f.Coalesce(updated, zero), false
	}
	return updated, nullable
}

func isSum(fn *queryir.Function) bool {
	return fn.BuiltIn && strings.EqualFold(fn.Name, "SUM")
}

func boolConstant(e queryir.Expression) (value, ok bool) {
	c, isConst := e.(*queryir.Constant)
	if !isConst {
		return false, false
	}
	return c.BoolValue()
}

// boolConst returns a boolean literal carrying m, or the factory's boolean
// mapping when m is not boolean.
func (p *processor) boolConst(v bool, m *typemap.TypeMapping) *queryir.Constant {
	if m == nil || m.Kind != typemap.KindBool {
		m = p.f.BoolMapping()
	}
	return &queryir.Constant{Value: ir.IRBool(v), Mapping: m}
}
