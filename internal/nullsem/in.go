package nullsem

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/typemap"
)

// inList is an IN value list split by how each value takes part in null
// compensation.
type inList struct {
	values   []queryir.Expression // non-null values kept in the list
	nullable []queryir.Expression // nullable non-literal values, compared one by one
	hasNull  bool                 // a NULL literal or null parameter was removed
}

func (p *processor) visitIn(x *queryir.In, optimize bool, scope colSet) (queryir.Expression, bool) {
	item, itemNullable := p.visit(x.Item, false, scope)

	if x.Subquery != nil {
		return p.visitInSubquery(x, item, itemNullable, optimize, scope)
	}

	list, ok := p.inValues(x, scope)
	if !ok {
		return x, true
	}

	if p.n.relationalNulls {
		values := append(append([]queryir.Expression(nil), list.values...), list.nullable...)
		if list.hasNull {
			values = append(values, p.f.Null(item.Type()))
		}
		if len(values) == 0 {
			return p.boolConst(x.Negated, x.Mapping), false
		}
		return p.simplifyIn(x, item, values), itemNullable || list.hasNull || len(list.nullable) > 0
	}

	out, nullable := p.inValuesCore(x, item, itemNullable, list.values, list.hasNull, optimize, scope)

	// item IN (a, nullable_b) -> item IN (a) OR item = nullable_b
	// item NOT IN (a, nullable_b) -> item NOT IN (a) AND item <> nullable_b
	for _, v := range list.nullable {
		op := queryir.OpEqual
		if x.Negated {
			op = queryir.OpNotEqual
		}
		cmp, cmpNullable := p.compareOperands(
			&queryir.Binary{Op: op, Left: item, Right: v, Mapping: x.Mapping},
			itemNullable, true, optimize, scope)
		if x.Negated {
			out = p.and(out, cmp)
		} else {
			out = p.or(out, cmp)
		}
		nullable = nullable || cmpNullable
	}
	return out, nullable
}

// inValues normalizes the value list of x. A parameterized list is expanded
// into one synthesized parameter per non-null element, which ties the
// statement text to the list's contents.
func (p *processor) inValues(x *queryir.In, scope colSet) (inList, bool) {
	var list inList

	if x.ValuesParameter != nil {
		name := x.ValuesParameter.Name
		v, ok := p.params.Lookup(name)
		if !ok {
			p.Fail(errors.Newf("parameter %q has no value", name))
			return list, false
		}
		var elements ir.IRArray
		switch val := v.(type) {
		case ir.IRArray:
			elements = val
		case ir.IRNull, nil:
		default:
			p.Fail(errors.Newf("list parameter %q is bound to %T, want an array", name, v))
			return list, false
		}

		p.doNotCache()
		for i, el := range elements {
			if ir.IsNull(el) {
				list.hasNull = true
				continue
			}
			synthesized := freshName(name, i, p.params, p.synthesized)
			p.synthesized[synthesized] = el
			list.values = append(list.values, p.f.Parameter(synthesized, x.ValuesParameter.Mapping))
		}
		return list, true
	}

	for _, v := range x.Values {
		out, nullable := p.visit(v, false, scope)
		switch {
		case isNullLiteral(out):
			list.hasNull = true
		case nullable:
			list.nullable = append(list.nullable, out)
		default:
			list.values = append(list.values, out)
		}
	}
	return list, true
}

// inValuesCore compensates item [NOT] IN (values) for a nullable item and
// for nulls removed from the list.
func (p *processor) inValuesCore(x *queryir.In, item queryir.Expression, itemNullable bool, values []queryir.Expression, hasNull, optimize bool, scope colSet) (queryir.Expression, bool) {
	if len(values) == 0 {
		// a IN () -> FALSE
		// nullable IN (NULL) -> nullable IS NULL
		// nullable NOT IN (NULL) -> nullable IS NOT NULL
		if !hasNull || !itemNullable {
			return p.boolConst(x.Negated, x.Mapping), false
		}
		probe := p.f.IsNull(item)
		if x.Negated {
			probe = p.f.IsNotNull(item)
		}
		return p.processNullNotNull(probe, itemNullable, scope), false
	}

	simplified := p.simplifyIn(x, item, values)
	if !itemNullable {
		return simplified, false
	}
	if optimize && !x.Negated && !hasNull {
		return simplified, true
	}

	// nullable IN (1, 2) -> nullable IN (1, 2) AND nullable IS NOT NULL
	// nullable IN (1, 2, NULL) -> nullable IN (1, 2) OR nullable IS NULL
	// nullable NOT IN (1, 2) -> nullable NOT IN (1, 2) OR nullable IS NULL
	// nullable NOT IN (1, 2, NULL) -> nullable NOT IN (1, 2) AND nullable IS NOT NULL
	if x.Negated == hasNull {
		return p.and(simplified, p.processNullNotNull(p.f.IsNotNull(item), itemNullable, scope)), false
	}
	return p.or(simplified, p.processNullNotNull(p.f.IsNull(item), itemNullable, scope)), false
}

// simplifyIn renders a single-value list as a comparison.
func (p *processor) simplifyIn(x *queryir.In, item queryir.Expression, values []queryir.Expression) queryir.Expression {
	if len(values) == 1 {
		op := queryir.OpEqual
		if x.Negated {
			op = queryir.OpNotEqual
		}
		return &queryir.Binary{Op: op, Left: item, Right: values[0], Mapping: x.Mapping}
	}
	return x.Update(item, values, nil, nil)
}

// revisitInCompensation re-derives an already compensated value list over a
// nullable column, the IN counterpart of revisitExpansion.
func (p *processor) revisitInCompensation(b *queryir.Binary, scope colSet) (queryir.Expression, bool, bool) {
	in, ok := b.Left.(*queryir.In)
	if !ok || in.Subquery != nil || in.ValuesParameter != nil || len(in.Values) < 2 {
		return nil, false, false
	}
	col, ok := in.Item.(*queryir.Column)
	if !ok {
		return nil, false, false
	}

	var hasNull bool
	switch b.Op {
	case queryir.OpOr:
		probed, ok := probedColumn(b.Right, queryir.OpIsNull)
		if !ok || keyOf(probed) != keyOf(col) {
			return nil, false, false
		}
		hasNull = !in.Negated
	case queryir.OpAnd:
		probed, ok := probedColumn(b.Right, queryir.OpIsNotNull)
		if !ok || keyOf(probed) != keyOf(col) {
			return nil, false, false
		}
		hasNull = in.Negated
	default:
		return nil, false, false
	}

	item, itemNullable := p.visit(col, false, scope)
	if !itemNullable {
		return nil, false, false
	}
	values := make([]queryir.Expression, 0, len(in.Values))
	for _, v := range in.Values {
		out, nullable := p.visit(v, false, scope)
		if nullable {
			return nil, false, false
		}
		values = append(values, out)
	}
	out, nullable := p.inValuesCore(in, item, itemNullable, values, hasNull, false, scope)
	return out, nullable, true
}

// visitInSubquery compensates item [NOT] IN (subquery). When both sides may
// be null the IN is rewritten as a correlated EXISTS, which can express a
// match of null against null.
func (p *processor) visitInSubquery(x *queryir.In, item queryir.Expression, itemNullable, optimize bool, scope colSet) (queryir.Expression, bool) {
	sub := p.selectStmt(x.Subquery)
	if v, ok := boolConstant(sub.Predicate); ok && !v {
		return p.boolConst(x.Negated, x.Mapping), false
	}
	if len(sub.Projection) != 1 {
		p.Fail(errors.Newf("IN subquery projects %d columns, want 1", len(sub.Projection)))
		return x, true
	}

	projection := sub.Projection[0].Expr
	_, projectionNullable := p.visit(projection, false, colSet{})
	updated := x.Update(item, nil, nil, sub)

	if p.n.relationalNulls {
		return updated, itemNullable || projectionNullable
	}

	switch {
	case !itemNullable && !projectionNullable:
		return updated, false

	case !projectionNullable:
		// a IN (SELECT non_nullable ...) -> (a IN (...)) AND a IS NOT NULL
		// a NOT IN (SELECT non_nullable ...) -> (a NOT IN (...)) OR a IS NULL
		if optimize && !x.Negated {
			return updated, true
		}
		if x.Negated {
			return p.or(updated, p.processNullNotNull(p.f.IsNull(item), true, scope)), false
		}
		return p.and(updated, p.processNullNotNull(p.f.IsNotNull(item), true, scope)), false
	}

	if len(sub.GroupBy) > 0 || sub.Having != nil || sub.Limit != nil || sub.Offset != nil {
		return p.f.Exists(p.correlateDerived(sub, item, itemNullable, x.Mapping), x.Negated), false
	}

	// a IN (SELECT b FROM t WHERE p) -> EXISTS (SELECT 1 FROM t WHERE p AND (b = a OR (b IS NULL AND a IS NULL)))
	match, _ := p.expandComparison(queryir.OpEqual, projection, item, true, itemNullable, false, true, colSet{}, x.Mapping)
	correlated := sub.Clone()
	correlated.Projection = nil
	correlated.Distinct = false
	correlated.Orderings = nil
	correlated.Alias = ""
	if sub.Predicate != nil {
		correlated.Predicate = p.and(sub.Predicate, match)
	} else {
		correlated.Predicate = match
	}
	return p.f.Exists(correlated, x.Negated), false
}

// correlateDerived matches item against a grouped or paged subquery, whose
// predicate cannot take the match without changing its rows:
//
//	a IN (SELECT b ... GROUP BY ...) -> EXISTS (SELECT 1 FROM (SELECT b AS value ...) AS s WHERE s.value = a OR ...)
//
// The derived alias avoids every table alias item refers to.
func (p *processor) correlateDerived(sub *queryir.Select, item queryir.Expression, itemNullable bool, m *typemap.TypeMapping) *queryir.Select {
	projection := sub.Projection[0]
	name := projection.Alias
	if name == "" {
		name = "value"
	}

	derived := sub.Clone()
	derived.Projection = []queryir.Projection{{Expr: projection.Expr, Alias: name}}
	if derived.Limit == nil && derived.Offset == nil {
		derived.Orderings = nil
	}
	derived.Alias = derivedAlias(item)

	value := p.f.Column(derived.Alias, name, true, projection.Expr.Type())
	match, _ := p.expandComparison(queryir.OpEqual, value, item, true, itemNullable, false, true, colSet{}, m)
	return &queryir.Select{
		Tables:    []queryir.TableSource{derived},
		Predicate: match,
	}
}

func derivedAlias(item queryir.Expression) string {
	used := map[string]bool{}
	queryir.Walk(item, func(e queryir.Expression) bool {
		if c, ok := e.(*queryir.Column); ok {
			used[c.Table] = true
		}
		return true
	})
	alias := "s"
	for i := 0; used[alias]; i++ {
		alias = fmt.Sprintf("s%d", i)
	}
	return alias
}

func isNullLiteral(e queryir.Expression) bool {
	c, ok := e.(*queryir.Constant)
	return ok && c.IsNull()
}
