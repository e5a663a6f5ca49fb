package nullsem

import (
	"strings"

	"github.com/roach88/relq/internal/queryir"
)

// simplifyLogical folds constant operands of AND/OR and merges null probes
// of the same operand.
func (p *processor) simplifyLogical(b *queryir.Binary) queryir.Expression {
	if !b.Op.IsLogical() {
		return b
	}

	// a IS NULL AND a IS NULL -> a IS NULL
	// a IS NULL OR a IS NOT NULL -> TRUE
	// a IS NULL AND a IS NOT NULL -> FALSE
	lu, lok := b.Left.(*queryir.Unary)
	ru, rok := b.Right.(*queryir.Unary)
	if lok && rok && isNullProbe(lu) && isNullProbe(ru) && queryir.Equal(lu.Operand, ru.Operand) {
		if lu.Op == ru.Op {
			return lu
		}
		return p.boolConst(b.Op == queryir.OpOr, b.Mapping)
	}

	if v, ok := boolConstant(b.Left); ok {
		return foldConstantOperand(b.Op, v, b.Left, b.Right)
	}
	if v, ok := boolConstant(b.Right); ok {
		return foldConstantOperand(b.Op, v, b.Right, b.Left)
	}
	return b
}

func foldConstantOperand(op queryir.BinaryOp, v bool, constant, other queryir.Expression) queryir.Expression {
	switch {
	case op == queryir.OpAnd && v, op == queryir.OpOr && !v:
		return other
	default:
		return constant
	}
}

func isNullProbe(u *queryir.Unary) bool {
	return u.Op == queryir.OpIsNull || u.Op == queryir.OpIsNotNull
}

// optimizeNonNullableNot pushes a NOT whose operand cannot be null into the
// operand. These rewrites hold only under two-valued logic.
func (p *processor) optimizeNonNullableNot(u *queryir.Unary) queryir.Expression {
	if u.Op != queryir.OpNot {
		return u
	}

	switch x := u.Operand.(type) {
	case *queryir.Constant:
		if v, ok := x.BoolValue(); ok {
			return p.boolConst(!v, x.Mapping)
		}

	case *queryir.In:
		return x.Negate()

	case *queryir.Exists:
		return x.Negate()

	case *queryir.Unary:
		switch x.Op {
		case queryir.OpNot:
			return x.Operand
		case queryir.OpIsNull:
			return p.f.IsNotNull(x.Operand)
		case queryir.OpIsNotNull:
			return p.f.IsNull(x.Operand)
		}

	case *queryir.Binary:
		if x.Op.IsLogical() {
			// De Morgan
			op := queryir.OpOr
			if x.Op == queryir.OpOr {
				op = queryir.OpAnd
			}
			left := p.optimizeNonNullableNot(p.f.Not(x.Left))
			right := p.optimizeNonNullableNot(p.f.Not(x.Right))
			return p.simplifyLogical(&queryir.Binary{Op: op, Left: left, Right: right, Mapping: x.Mapping})
		}
		if neg, ok := x.Op.Negated(); ok {
			return &queryir.Binary{Op: neg, Left: x.Left, Right: x.Right, Mapping: x.Mapping}
		}
	}
	return u
}

// processNullNotNull simplifies an IS NULL or IS NOT NULL probe. A probe of
// a non-nullable operand folds to a constant; probes of expressions that are
// null exactly when one of their inputs is null are pushed to those inputs.
func (p *processor) processNullNotNull(u *queryir.Unary, operandNullable bool, scope colSet) queryir.Expression {
	isNotNull := u.Op == queryir.OpIsNotNull
	if !operandNullable {
		return p.boolConst(isNotNull, u.Mapping)
	}

	switch x := u.Operand.(type) {
	case *queryir.Constant:
		return p.boolConst(x.IsNull() != isNotNull, u.Mapping)

	case *queryir.Parameter:
		return p.boolConst(p.paramIsNull(x.Name) != isNotNull, u.Mapping)

	case *queryir.Column:
		if !x.Nullable || scope.has(x) {
			return p.boolConst(isNotNull, u.Mapping)
		}

	case *queryir.Unary:
		switch x.Op {
		case queryir.OpConvert, queryir.OpNot, queryir.OpNegate:
			// (CAST(a)) IS NULL -> a IS NULL
			return p.processNullNotNull(u.Update(x.Operand), operandNullable, scope)
		case queryir.OpIsNull, queryir.OpIsNotNull:
			// (a IS NULL) IS NULL -> FALSE
			return p.boolConst(isNotNull, u.Mapping)
		}

	case *queryir.Binary:
		if x.Op.IsLogical() {
			// unknown AND false is false, so the probes do not distribute
			return u
		}
		// (a + b) IS NULL -> a IS NULL OR b IS NULL
		// (a + b) IS NOT NULL -> a IS NOT NULL AND b IS NOT NULL
		left := p.processNullNotNull(u.Update(x.Left), p.mayBeNull(x.Left, scope), scope)
		right := p.processNullNotNull(u.Update(x.Right), p.mayBeNull(x.Right, scope), scope)
		if isNotNull {
			return p.and(left, right)
		}
		return p.or(left, right)

	case *queryir.Function:
		if x.BuiltIn && strings.EqualFold(x.Name, "COALESCE") {
			// COALESCE(a, b) IS NULL -> a IS NULL AND b IS NULL
			var out queryir.Expression
			for _, arg := range x.Args {
				probe := p.processNullNotNull(u.Update(arg), p.mayBeNull(arg, scope), scope)
				switch {
				case out == nil:
					out = probe
				case isNotNull:
					out = p.or(out, probe)
				default:
					out = p.and(out, probe)
				}
			}
			if out != nil {
				return out
			}
			return u
		}
		if !x.Nullable {
			return p.boolConst(isNotNull, u.Mapping)
		}
		inputs, ok := propagatingInputs(x)
		if !ok {
			return u
		}
		var out queryir.Expression
		for _, in := range inputs {
			probe := p.processNullNotNull(u.Update(in), p.mayBeNull(in, scope), scope)
			switch {
			case out == nil:
				out = probe
			case isNotNull:
				out = p.and(out, probe)
			default:
				out = p.or(out, probe)
			}
		}
		return out
	}
	return u
}

// propagatingInputs returns the instance and arguments of fn when every one
// of them propagates null, so fn is null exactly when one of them is.
func propagatingInputs(fn *queryir.Function) ([]queryir.Expression, bool) {
	if len(fn.Args) == 0 && fn.Instance == nil {
		return nil, false
	}
	var inputs []queryir.Expression
	if fn.Instance != nil {
		if !fn.InstancePropagatesNull {
			return nil, false
		}
		inputs = append(inputs, fn.Instance)
	}
	for i, arg := range fn.Args {
		if !fn.Propagates(i) {
			return nil, false
		}
		inputs = append(inputs, arg)
	}
	return inputs, true
}

// mayBeNull is a structural nullability check for operands that a probe is
// pushed into. It only proves leaves non-null; anything else may be null.
func (p *processor) mayBeNull(e queryir.Expression, scope colSet) bool {
	switch x := e.(type) {
	case *queryir.Column:
		return x.Nullable && !scope.has(x)
	case *queryir.Constant:
		return x.IsNull()
	case *queryir.Parameter:
		return p.paramIsNull(x.Name)
	case *queryir.Function:
		return x.Nullable
	}
	return true
}
