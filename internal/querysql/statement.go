package querysql

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/sqlerr"
)

func (b *commandBuilder) statement(stmt queryir.Statement) {
	switch s := stmt.(type) {
	case *queryir.Select:
		b.topLevelSelect(s)
	case *queryir.Update:
		b.update(s)
	case *queryir.Delete:
		b.delete(s)
	default:
		b.fail(sqlerr.NewUnhandledNode("generator", queryir.Describe(stmt)))
	}
}

// topLevelSelect renders a statement-level select. Selects that merely wrap
// a set operation, a VALUES literal or a raw SQL query render as the wrapped
// source itself.
func (b *commandBuilder) topLevelSelect(s *queryir.Select) {
	if setOp, ok := s.NonComposedSetOperation(); ok {
		b.setOperation(setOp)
		return
	}
	if values, ok := s.PassThroughValues(); ok && !b.d.ValuesColumnAliases() {
		b.valuesBody(values)
		return
	}
	if raw, ok := passThroughSQL(s); ok {
		sql, err := substituteArgs(b, raw)
		if err != nil {
			b.fail(err)
			return
		}
		b.WriteString(sql)
		return
	}
	b.selectBody(s)
}

// passThroughSQL reports whether s is SELECT * over a single raw SQL source.
func passThroughSQL(s *queryir.Select) (*queryir.FromSQL, bool) {
	if s.Alias != "" || len(s.Tables) != 1 || s.Predicate != nil || s.HasShapingClauses() {
		return nil, false
	}
	raw, ok := s.Tables[0].(*queryir.FromSQL)
	if !ok {
		return nil, false
	}
	if len(s.Projection) == 0 {
		return raw, true
	}
	if len(s.Projection) == 1 {
		if frag, ok := s.Projection[0].Expr.(*queryir.Fragment); ok && frag.SQL == "*" {
			return raw, true
		}
	}
	return nil, false
}

// selectBody renders SELECT ... FROM ... WHERE ... without the wrapping
// parentheses of a subquery.
func (b *commandBuilder) selectBody(s *queryir.Select) {
	hasLimit, hasOffset := s.Limit != nil, s.Offset != nil
	paging := b.d.Paging(hasLimit, hasOffset)

	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	if hasLimit && paging == PagingTop {
		b.WriteString("TOP(")
		b.value(s.Limit)
		b.WriteString(") ")
	}

	if len(s.Projection) == 0 {
		b.WriteString("1")
	} else {
		list(b, s.Projection, b.projection)
	}

	if len(s.Tables) > 0 {
		b.newline()
		b.WriteString("FROM ")
		b.tables(s.Tables)
	} else {
		b.WriteString(b.d.PseudoFromClause())
	}

	if s.Predicate != nil {
		b.newline()
		b.WriteString("WHERE ")
		b.predicate(s.Predicate)
	}

	if len(s.GroupBy) > 0 {
		b.newline()
		b.WriteString("GROUP BY ")
		list(b, s.GroupBy, b.value)
	}

	if s.Having != nil {
		b.newline()
		b.WriteString("HAVING ")
		b.predicate(s.Having)
	}

	b.orderings(s.Orderings, hasLimit || hasOffset, paging == PagingFetch)
	b.paging(s, paging)
}

func (b *commandBuilder) projection(p queryir.Projection) {
	b.value(p.Expr)
	if p.Alias == "" {
		return
	}
	if col, ok := p.Expr.(*queryir.Column); ok && col.Name == p.Alias {
		return
	}
	b.alias(p.Alias)
}

// orderings renders ORDER BY. Without paging, constant and parameter
// orderings are dropped since they cannot change the order; with paging they
// are kept as (SELECT 1) so the row window stays defined.
func (b *commandBuilder) orderings(orderings []queryir.Ordering, paged, requireOrderBy bool) {
	kept := orderings
	if !paged {
		kept = nil
		for _, o := range orderings {
			if !isConstantOrdering(o) {
				kept = append(kept, o)
			}
		}
	}

	if len(kept) == 0 {
		if paged && requireOrderBy {
			b.newline()
			b.WriteString("ORDER BY (SELECT 1)")
		}
		return
	}

	b.newline()
	b.WriteString("ORDER BY ")
	list(b, kept, b.ordering)
}

func isConstantOrdering(o queryir.Ordering) bool {
	switch o.Expr.(type) {
	case *queryir.Constant, *queryir.Parameter:
		return true
	}
	return false
}

func (b *commandBuilder) ordering(o queryir.Ordering) {
	if isConstantOrdering(o) {
		b.WriteString("(SELECT 1)")
	} else {
		b.value(o.Expr)
	}
	if !o.Ascending {
		b.WriteString(" DESC")
	}
}

func (b *commandBuilder) paging(s *queryir.Select, style PagingStyle) {
	switch style {
	case PagingLimitOffset, PagingLimitAllOffset:
		if s.Limit != nil {
			b.newline()
			b.WriteString("LIMIT ")
			b.value(s.Limit)
		}
		if s.Offset != nil {
			if s.Limit == nil && style == PagingLimitAllOffset {
				b.newline()
				b.WriteString("LIMIT -1")
			}
			b.newline()
			b.WriteString("OFFSET ")
			b.value(s.Offset)
		}
	case PagingFetch:
		if s.Limit == nil && s.Offset == nil {
			return
		}
		b.newline()
		b.WriteString("OFFSET ")
		if s.Offset != nil {
			b.value(s.Offset)
		} else {
			b.WriteString("0")
		}
		b.WriteString(" ROWS")
		if s.Limit != nil {
			b.WriteString(" FETCH NEXT ")
			b.value(s.Limit)
			b.WriteString(" ROWS ONLY")
		}
	case PagingTop:
		// TOP was rendered after SELECT.
	}
}

func (b *commandBuilder) tables(sources []queryir.TableSource) {
	for i, t := range sources {
		if i > 0 {
			if _, ok := t.(*queryir.Join); ok {
				b.newline()
			} else {
				b.WriteString(", ")
			}
		}
		b.tableSource(t)
	}
}

func (b *commandBuilder) tableSource(t queryir.TableSource) {
	switch x := t.(type) {
	case *queryir.Table:
		b.qualifiedName(x.Schema, x.Name)
		if x.Alias != x.Name {
			b.alias(x.Alias)
		}

	case *queryir.Join:
		keyword, suffix, ok := b.d.JoinClause(x.Kind)
		if !ok {
			b.fail(sqlerr.NewUnsupportedShape("Query",
				x.Kind.String()+" is not supported by the "+b.d.Name()+" dialect"))
			return
		}
		b.WriteString(keyword + " ")
		b.tableSource(x.Table)
		if x.Kind.HasPredicate() {
			b.WriteString(" ON ")
			if x.Predicate == nil {
				b.WriteString(b.d.PredicateLiteral(true))
			} else {
				b.predicate(x.Predicate)
			}
		}
		b.WriteString(suffix)

	case *queryir.Select:
		b.subquery(x)
		b.alias(x.Alias)

	case *queryir.SetOperation:
		b.WriteString("(")
		b.indent++
		b.newline()
		b.setOperation(x)
		b.indent--
		b.newline()
		b.WriteString(")")
		b.alias(x.Alias)

	case *queryir.Values:
		b.valuesSource(x)

	case *queryir.FromSQL:
		sql, err := substituteArgs(b, x)
		if err != nil {
			b.fail(err)
			return
		}
		if err := CheckComposable(sql); err != nil {
			b.fail(err)
			return
		}
		b.WriteString("(")
		b.indent++
		b.newline()
		b.WriteString(sql)
		b.indent--
		b.newline()
		b.WriteString(")")
		b.alias(x.Alias)

	case *queryir.TableValuedFunction:
		b.qualifiedName(x.Schema, x.Name)
		b.WriteString("(")
		list(b, x.Args, b.value)
		b.WriteString(")")
		b.alias(x.Alias)

	default:
		b.fail(sqlerr.NewUnhandledNode("generator", queryir.Describe(t)))
	}
}

// subquery renders a select in parentheses, indented one level.
func (b *commandBuilder) subquery(s *queryir.Select) {
	b.WriteString("(")
	b.indent++
	b.newline()
	if setOp, ok := s.NonComposedSetOperation(); ok {
		b.setOperation(setOp)
	} else {
		b.selectBody(s)
	}
	b.indent--
	b.newline()
	b.WriteString(")")
}

// setOperation renders left <OP> [ALL] right.
func (b *commandBuilder) setOperation(s *queryir.SetOperation) {
	b.setOperand(s, s.Left, false)
	b.newline()
	b.WriteString(s.Kind.String())
	if !s.Distinct {
		b.WriteString(" ALL")
	}
	b.newline()
	b.setOperand(s, s.Right, true)
}

// setOperand renders one operand of outer. A nested set operation is
// parenthesized when its operator or distinctness differs from outer's, or
// when it is the right operand of EXCEPT. Operands that order or page are
// parenthesized too.
func (b *commandBuilder) setOperand(outer *queryir.SetOperation, operand *queryir.Select, right bool) {
	if operand == nil {
		b.fail(errors.AssertionFailedf("set operation %s has a nil operand", outer.Kind))
		return
	}

	if nested, ok := operand.NonComposedSetOperation(); ok {
		if nested.Kind == outer.Kind && nested.Distinct == outer.Distinct &&
			!(right && outer.Kind == queryir.SetExcept) {
			b.setOperation(nested)
			return
		}
		b.wrapSetOperand(func() { b.setOperation(nested) })
		return
	}

	if len(operand.Orderings) > 0 || operand.Limit != nil || operand.Offset != nil {
		b.wrapSetOperand(func() { b.selectBody(operand) })
		return
	}
	b.selectBody(operand)
}

// wrapSetOperand groups a set operation operand, as a parenthesized operand
// or, where the dialect has no such syntax, as a derived table.
func (b *commandBuilder) wrapSetOperand(render func()) {
	if !b.d.ParenthesizedSetOperands() {
		b.WriteString("SELECT * FROM ")
	}
	b.WriteString("(")
	b.indent++
	b.newline()
	render()
	b.indent--
	b.newline()
	b.WriteString(")")
}

// valuesSource renders a VALUES table source. Dialects that can name VALUES
// columns get (VALUES ...) AS alias (c1, c2); the others get a SELECT naming
// the columns on the first row.
func (b *commandBuilder) valuesSource(v *queryir.Values) {
	b.WriteString("(")
	b.indent++
	b.newline()
	b.valuesBody(v)
	b.indent--
	b.newline()
	b.WriteString(")")
	b.alias(v.Alias)
	if b.d.ValuesColumnAliases() {
		b.WriteString(" (")
		list(b, v.ColumnNames, b.ident)
		b.WriteString(")")
	}
}

func (b *commandBuilder) valuesBody(v *queryir.Values) {
	if len(v.Rows) == 0 {
		b.fail(errors.AssertionFailedf("VALUES %q has no rows", v.Alias))
		return
	}

	if b.d.ValuesColumnAliases() {
		b.WriteString("VALUES ")
		list(b, v.Rows, b.rowValue)
		return
	}

	first := v.Rows[0]
	if len(first.Values) != len(v.ColumnNames) {
		b.fail(errors.AssertionFailedf("VALUES row has %d values for %d columns",
			len(first.Values), len(v.ColumnNames)))
		return
	}
	b.WriteString("SELECT ")
	for i, val := range first.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.value(val)
		b.alias(v.ColumnNames[i])
	}
	if len(v.Rows) > 1 {
		b.newline()
		b.WriteString("UNION ALL")
		b.newline()
		b.WriteString("VALUES ")
		list(b, v.Rows[1:], b.rowValue)
	}
}

// checkMutationSelect verifies that sel only supplies tables and a predicate.
func checkMutationSelect(operation string, sel *queryir.Select) error {
	switch {
	case sel == nil:
		return sqlerr.NewUnsupportedShape(operation, "missing select")
	case len(sel.Projection) > 0:
		return sqlerr.NewUnsupportedShape(operation, "the select projects columns")
	case len(sel.GroupBy) > 0, sel.Having != nil:
		return sqlerr.NewUnsupportedShape(operation, "the select groups rows")
	case len(sel.Orderings) > 0:
		return sqlerr.NewUnsupportedShape(operation, "the select orders rows")
	case sel.Limit != nil, sel.Offset != nil:
		return sqlerr.NewUnsupportedShape(operation, "the select pages rows")
	case sel.Distinct:
		return sqlerr.NewUnsupportedShape(operation, "the select is distinct")
	}
	return nil
}

func (b *commandBuilder) delete(d *queryir.Delete) {
	const op = "ExecuteDelete"
	if err := checkMutationSelect(op, d.Select); err != nil {
		b.fail(err)
		return
	}
	if len(d.Select.Tables) != 1 {
		b.fail(sqlerr.NewUnsupportedShape(op, "the select reads more than one table"))
		return
	}
	table, ok := d.Select.Tables[0].(*queryir.Table)
	if !ok || table.Alias != d.Table.Alias || table.Name != d.Table.Name {
		b.fail(sqlerr.NewUnsupportedShape(op, "the select does not read the target table"))
		return
	}

	b.WriteString("DELETE FROM ")
	if b.d.Update() == UpdateByAlias {
		b.ident(table.Alias)
		b.newline()
		b.WriteString("FROM ")
	}
	b.tableSource(table)
	if d.Select.Predicate != nil {
		b.newline()
		b.WriteString("WHERE ")
		b.predicate(d.Select.Predicate)
	}
}

func (b *commandBuilder) update(u *queryir.Update) {
	const op = "ExecuteUpdate"
	if err := checkMutationSelect(op, u.Select); err != nil {
		b.fail(err)
		return
	}
	if len(u.Setters) == 0 {
		b.fail(sqlerr.NewUnsupportedShape(op, "no columns are set"))
		return
	}

	target := -1
	for i, t := range u.Select.Tables {
		if t.SourceAlias() == u.Table.Alias {
			target = i
			break
		}
	}
	if target < 0 {
		b.fail(sqlerr.NewUnsupportedShape(op, "the select does not read the target table"))
		return
	}

	if b.d.Update() == UpdateByAlias {
		b.WriteString("UPDATE ")
		b.ident(u.Table.Alias)
		b.setters(u)
		b.newline()
		b.WriteString("FROM ")
		b.tables(u.Select.Tables)
		if u.Select.Predicate != nil {
			b.newline()
			b.WriteString("WHERE ")
			b.predicate(u.Select.Predicate)
		}
		return
	}

	others, hoisted, err := hoistTargetJoins(u.Select.Tables, target, u.Table.Alias)
	if err != nil {
		b.fail(err)
		return
	}

	b.WriteString("UPDATE ")
	b.tableSource(u.Table)
	b.setters(u)
	if len(others) > 0 {
		b.newline()
		b.WriteString("FROM ")
		b.tables(others)
	}

	predicates := hoisted
	if u.Select.Predicate != nil {
		predicates = append(predicates, u.Select.Predicate)
	}
	if len(predicates) > 0 {
		b.newline()
		b.WriteString("WHERE ")
		b.predicate(conjunction(predicates))
	}
}

func (b *commandBuilder) setters(u *queryir.Update) {
	b.WriteString(" SET ")
	list(b, u.Setters, func(s queryir.ColumnSetter) {
		if b.d.QualifySetterColumns() {
			b.ident(u.Table.Alias)
			b.WriteString(".")
		}
		b.ident(s.Column.Name)
		b.WriteString(" = ")
		b.value(s.Value)
	})
}

// hoistTargetJoins drops the update target from the table list. Join
// predicates that can no longer be attached to a join, those of the target
// and of any inner join referencing it or left leading the list, move to the
// returned WHERE conjuncts.
func hoistTargetJoins(tables []queryir.TableSource, target int, alias string) ([]queryir.TableSource, []queryir.Expression, error) {
	var (
		others  []queryir.TableSource
		hoisted []queryir.Expression
	)
	if j, ok := tables[target].(*queryir.Join); ok {
		if j.Kind != queryir.JoinInner && j.Kind != queryir.JoinCross {
			return nil, nil, sqlerr.NewUnsupportedShape("ExecuteUpdate", "the target table is the right side of a "+j.Kind.String())
		}
		if j.Predicate != nil {
			hoisted = append(hoisted, j.Predicate)
		}
	}

	for i, t := range tables {
		if i == target {
			continue
		}
		j, ok := t.(*queryir.Join)
		if !ok {
			others = append(others, t)
			continue
		}
		leading := len(others) == 0
		if !leading && !referencesAlias(j.Predicate, alias) {
			others = append(others, j)
			continue
		}
		if j.Kind != queryir.JoinInner && j.Kind != queryir.JoinCross {
			return nil, nil, sqlerr.NewUnsupportedShape("ExecuteUpdate",
				j.Kind.String()+" cannot be rendered without the target table")
		}
		if j.Predicate != nil {
			hoisted = append(hoisted, j.Predicate)
		}
		if leading {
			others = append(others, j.Table)
		} else {
			others = append(others, &queryir.Join{Kind: queryir.JoinCross, Table: j.Table})
		}
	}
	return others, hoisted, nil
}

func referencesAlias(e queryir.Expression, alias string) bool {
	found := false
	queryir.Walk(e, func(n queryir.Expression) bool {
		if col, ok := n.(*queryir.Column); ok && col.Table == alias {
			found = true
		}
		return !found
	})
	return found
}

// conjunction ANDs predicates left to right.
func conjunction(predicates []queryir.Expression) queryir.Expression {
	out := predicates[0]
	for _, p := range predicates[1:] {
		out = &queryir.Binary{Op: queryir.OpAnd, Left: out, Right: p, Mapping: out.Type()}
	}
	return out
}
