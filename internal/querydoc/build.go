package querydoc

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/nullsem"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/typemap"
)

// Query is a built document: the statement and its parameter values.
type Query struct {
	Statement  queryir.Statement
	Parameters nullsem.Parameters
}

// Load parses and builds a document in one step.
func Load(data []byte, f *queryir.Factory, catalog *ir.Catalog) (*Query, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return doc.Build(f, catalog)
}

// Build converts the document to IR through f. Tables declared by the
// document are added to catalog, which may be nil.
func (d *Document) Build(f *queryir.Factory, catalog *ir.Catalog) (*Query, error) {
	b := &builder{
		f:        f,
		doc:      d,
		tables:   make(map[string]*ir.TableSpec),
		params:   make(map[string]*typemap.TypeMapping),
		aliases:  make(map[string]*scope),
		building: make(map[string]bool),
	}
	if catalog != nil {
		for i := range catalog.Tables {
			b.tables[catalog.Tables[i].Name] = &catalog.Tables[i]
		}
	}
	for i := range d.Tables {
		b.tables[d.Tables[i].Name] = &d.Tables[i]
	}

	values := make(nullsem.Parameters, len(d.Parameters))
	names := make([]string, 0, len(d.Parameters))
	for name := range d.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := d.Parameters[name]
		m, err := b.mapping(p.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %q", name)
		}
		v, err := ir.FromGo(p.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %q", name)
		}
		b.params[name] = m
		values[name] = v
	}

	var (
		stmt queryir.Statement
		err  error
	)
	switch {
	case d.Select != nil:
		stmt, err = b.selectSpec(d.Select, "")
	case d.Update != nil:
		stmt, err = b.update(d.Update)
	case d.Delete != nil:
		stmt, err = b.delete(d.Delete)
	default:
		err = errors.New("query document has no statement")
	}
	if err != nil {
		return nil, err
	}
	return &Query{Statement: stmt, Parameters: values}, nil
}

// scope is the column list of one table source alias.
type scope struct {
	columns map[string]column
}

type column struct {
	nullable bool
	mapping  *typemap.TypeMapping
}

type builder struct {
	f      *queryir.Factory
	doc    *Document
	tables map[string]*ir.TableSpec
	params map[string]*typemap.TypeMapping
	// aliases grows as FROM lists are built; a select's expressions see every
	// alias registered before them, including those of enclosing selects.
	aliases  map[string]*scope
	building map[string]bool
}

func (b *builder) mapping(typeName string) (*typemap.TypeMapping, error) {
	kind, ok := typemap.KindFromName(typeName)
	if !ok {
		return nil, errors.Newf("unknown type %q", typeName)
	}
	m, ok := b.f.Source().FindMapping(kind)
	if !ok {
		return nil, errors.Newf("no mapping for type %q", typeName)
	}
	return m, nil
}

func (b *builder) selectSpec(s *SelectSpec, alias string) (*queryir.Select, error) {
	if kind, operands, err := s.setOperation(); err != nil {
		return nil, err
	} else if operands != nil {
		return b.setOperation(s, kind, operands, alias)
	}

	sel := &queryir.Select{Distinct: s.Distinct, Alias: alias}
	for i, src := range s.From {
		t, err := b.source(src)
		if err != nil {
			return nil, errors.Wrapf(err, "from[%d]", i)
		}
		sel.Tables = append(sel.Tables, t)
	}
	for i, p := range s.Project {
		e, err := b.expr(p.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "project[%d]", i)
		}
		sel.Projection = append(sel.Projection, queryir.Projection{Expr: e, Alias: p.As})
	}

	var err error
	if sel.Predicate, err = b.optional(s.Where); err != nil {
		return nil, errors.Wrap(err, "where")
	}
	for i, g := range s.GroupBy {
		e, err := b.expr(g)
		if err != nil {
			return nil, errors.Wrapf(err, "group_by[%d]", i)
		}
		sel.GroupBy = append(sel.GroupBy, e)
	}
	if sel.Having, err = b.optional(s.Having); err != nil {
		return nil, errors.Wrap(err, "having")
	}
	if sel.Orderings, err = b.orderings(s.OrderBy); err != nil {
		return nil, err
	}
	if sel.Limit, err = b.optional(s.Limit); err != nil {
		return nil, errors.Wrap(err, "limit")
	}
	if sel.Offset, err = b.optional(s.Offset); err != nil {
		return nil, errors.Wrap(err, "offset")
	}
	return sel, nil
}

func (s *SelectSpec) setOperation() (queryir.SetOpKind, []*SelectSpec, error) {
	var (
		kind     queryir.SetOpKind
		operands []*SelectSpec
		n        int
	)
	for _, c := range []struct {
		kind     queryir.SetOpKind
		operands []*SelectSpec
	}{
		{queryir.SetUnion, s.Union},
		{queryir.SetIntersect, s.Intersect},
		{queryir.SetExcept, s.Except},
	} {
		if c.operands != nil {
			kind, operands = c.kind, c.operands
			n++
		}
	}
	if n > 1 {
		return 0, nil, errors.New("a select may hold only one of union, intersect and except")
	}
	if operands != nil && len(operands) < 2 {
		return 0, nil, errors.Newf("%s needs at least two operands", kind)
	}
	return kind, operands, nil
}

// setOperation folds the operands left to right and returns a select that
// projects the result columns of the last set operation.
func (b *builder) setOperation(s *SelectSpec, kind queryir.SetOpKind, operands []*SelectSpec, alias string) (*queryir.Select, error) {
	name := s.As
	if name == "" {
		name = "s"
	}

	left, err := b.selectSpec(operands[0], "")
	if err != nil {
		return nil, errors.Wrapf(err, "%s[0]", kind)
	}
	for i, spec := range operands[1:] {
		right, err := b.selectSpec(spec, "")
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", kind, i+1)
		}
		setOp := &queryir.SetOperation{Kind: kind, Left: left, Right: right, Distinct: !s.All, Alias: name}
		if left, err = b.wrapSetOperation(setOp); err != nil {
			return nil, err
		}
	}
	left.Alias = alias
	return left, nil
}

func (b *builder) wrapSetOperation(setOp *queryir.SetOperation) (*queryir.Select, error) {
	if len(setOp.Left.Projection) != len(setOp.Right.Projection) {
		return nil, errors.Newf("%s operands project %d and %d columns",
			setOp.Kind, len(setOp.Left.Projection), len(setOp.Right.Projection))
	}
	sc := &scope{columns: make(map[string]column)}
	wrapper := &queryir.Select{Tables: []queryir.TableSource{setOp}}
	for i, p := range setOp.Left.Projection {
		name := queryir.ProjectionName(p)
		if name == "" {
			return nil, errors.Newf("%s column %d needs a name", setOp.Kind, i)
		}
		col := column{
			nullable: mayBeNull(p.Expr) || mayBeNull(setOp.Right.Projection[i].Expr),
			mapping:  p.Expr.Type(),
		}
		sc.columns[name] = col
		wrapper.Projection = append(wrapper.Projection, queryir.Projection{
			Expr: b.f.Column(setOp.Alias, name, col.nullable, col.mapping),
		})
	}
	b.aliases[setOp.Alias] = sc
	return wrapper, nil
}

var joinKinds = map[string]queryir.JoinKind{
	"inner":       queryir.JoinInner,
	"left":        queryir.JoinLeft,
	"cross":       queryir.JoinCross,
	"cross-apply": queryir.JoinCrossApply,
	"outer-apply": queryir.JoinOuterApply,
}

func (b *builder) source(spec SourceSpec) (queryir.TableSource, error) {
	t, alias, err := b.tableSource(spec)
	if err != nil {
		return nil, err
	}
	if spec.Join == "" {
		if spec.On != "" {
			return nil, errors.Newf("%q: on requires a join", alias)
		}
		return t, nil
	}

	kind, ok := joinKinds[strings.ToLower(spec.Join)]
	if !ok {
		return nil, errors.Newf("%q: unknown join %q", alias, spec.Join)
	}
	if kind == queryir.JoinLeft || kind == queryir.JoinOuterApply {
		for name, c := range b.aliases[alias].columns {
			c.nullable = true
			b.aliases[alias].columns[name] = c
		}
	}
	pred, err := b.optional(spec.On)
	if err != nil {
		return nil, errors.Wrapf(err, "%q: on", alias)
	}
	return &queryir.Join{Kind: kind, Table: t, Predicate: pred}, nil
}

// tableSource builds the source of a FROM entry and registers its alias.
func (b *builder) tableSource(spec SourceSpec) (queryir.TableSource, string, error) {
	alias := spec.As
	switch {
	case spec.Select != nil:
		if alias == "" {
			return nil, "", errors.New("a nested select needs an alias")
		}
		sel, err := b.selectSpec(spec.Select, alias)
		if err != nil {
			return nil, "", errors.Wrapf(err, "%q", alias)
		}
		b.registerProjection(alias, sel.Projection)
		return sel, alias, nil

	case spec.Rows != nil:
		if alias == "" {
			return nil, "", errors.New("values need an alias")
		}
		values, err := b.values(spec, alias)
		return values, alias, err

	case spec.SQL != "":
		if alias == "" {
			return nil, "", errors.New("raw SQL needs an alias")
		}
		args, err := b.exprs(spec.Args)
		if err != nil {
			return nil, "", errors.Wrapf(err, "%q: args", alias)
		}
		if err := b.registerDeclared(alias, spec.Columns); err != nil {
			return nil, "", err
		}
		return &queryir.FromSQL{SQL: spec.SQL, Args: args, Alias: alias}, alias, nil

	case spec.Function != "":
		if alias == "" {
			return nil, "", errors.New("a table-valued function needs an alias")
		}
		args, err := b.exprs(spec.Args)
		if err != nil {
			return nil, "", errors.Wrapf(err, "%q: args", alias)
		}
		if err := b.registerDeclared(alias, spec.Columns); err != nil {
			return nil, "", err
		}
		return &queryir.TableValuedFunction{Schema: spec.Schema, Name: spec.Function, Args: args, Alias: alias}, alias, nil

	case spec.Table != "":
		table, err := b.table(spec.Schema, spec.Table, alias)
		if err != nil {
			return nil, "", err
		}
		return table, table.Alias, nil
	}
	return nil, "", errors.New("from entry names no table, select, rows, sql or function")
}

// table builds a catalog table reference; the alias defaults to the name.
func (b *builder) table(schema, name, alias string) (*queryir.Table, error) {
	spec, ok := b.tables[name]
	if !ok {
		return nil, errors.Newf("unknown table %q", name)
	}
	if alias == "" {
		alias = name
	}
	if schema == "" {
		schema = spec.Schema
	}
	sc := &scope{columns: make(map[string]column, len(spec.Columns))}
	for _, c := range spec.Columns {
		m, err := b.f.Source().ForColumn(c)
		if err != nil {
			return nil, errors.Wrapf(err, "table %q", name)
		}
		sc.columns[c.Name] = column{nullable: c.Nullable, mapping: m}
	}
	b.aliases[alias] = sc
	return &queryir.Table{Schema: schema, Name: name, Alias: alias}, nil
}

func (b *builder) values(spec SourceSpec, alias string) (*queryir.Values, error) {
	if len(spec.Rows) == 0 {
		return nil, errors.Newf("%q: values need at least one row", alias)
	}
	values := &queryir.Values{ColumnNames: spec.Columns, Alias: alias}
	sc := &scope{columns: make(map[string]column, len(spec.Columns))}
	for i, text := range spec.Rows {
		row, err := parseSexpr("(" + text + ")")
		if err != nil {
			return nil, errors.Wrapf(err, "%q: rows[%d]", alias, i)
		}
		exprs, err := b.list(row.list)
		if err != nil {
			return nil, errors.Wrapf(err, "%q: rows[%d]", alias, i)
		}
		if len(exprs) != len(spec.Columns) {
			return nil, errors.Newf("%q: rows[%d] has %d values for %d columns", alias, i, len(exprs), len(spec.Columns))
		}
		for j, e := range exprs {
			c := sc.columns[spec.Columns[j]]
			if c.mapping == nil {
				c.mapping = e.Type()
			}
			c.nullable = c.nullable || mayBeNull(e)
			sc.columns[spec.Columns[j]] = c
		}
		values.Rows = append(values.Rows, &queryir.RowValue{Values: exprs})
	}
	b.aliases[alias] = sc
	return values, nil
}

func (b *builder) registerProjection(alias string, projection []queryir.Projection) {
	sc := &scope{columns: make(map[string]column, len(projection))}
	for _, p := range projection {
		if name := queryir.ProjectionName(p); name != "" {
			sc.columns[name] = column{nullable: mayBeNull(p.Expr), mapping: p.Expr.Type()}
		}
	}
	b.aliases[alias] = sc
}

// registerDeclared registers columns written as name:type or name:type?.
func (b *builder) registerDeclared(alias string, decls []string) error {
	sc := &scope{columns: make(map[string]column, len(decls))}
	for _, d := range decls {
		name, typeName, ok := strings.Cut(d, ":")
		if !ok {
			return errors.Newf("%q: column %q needs a type (name:type)", alias, d)
		}
		nullable := strings.HasSuffix(typeName, "?")
		m, err := b.mapping(strings.TrimSuffix(typeName, "?"))
		if err != nil {
			return errors.Wrapf(err, "%q: column %q", alias, name)
		}
		sc.columns[name] = column{nullable: nullable, mapping: m}
	}
	b.aliases[alias] = sc
	return nil
}

func (b *builder) orderings(specs []OrderSpec) ([]queryir.Ordering, error) {
	var out []queryir.Ordering
	for i, o := range specs {
		e, err := b.expr(o.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "order_by[%d]", i)
		}
		out = append(out, queryir.Ordering{Expr: e, Ascending: !o.Desc})
	}
	return out, nil
}

func (b *builder) update(u *UpdateSpec) (*queryir.Update, error) {
	from := u.From
	if len(from) == 0 {
		from = []SourceSpec{{Table: u.Table, As: u.As}}
	}
	sel, err := b.selectSpec(&SelectSpec{From: from, Where: u.Where}, "")
	if err != nil {
		return nil, errors.Wrap(err, "update")
	}
	target, err := b.target(u.Table, u.As, sel)
	if err != nil {
		return nil, errors.Wrap(err, "update")
	}

	stmt := &queryir.Update{Table: target, Select: sel}
	for i, s := range u.Set {
		col, ok := b.aliases[target.Alias].columns[s.Column]
		if !ok {
			return nil, errors.Newf("update: set[%d]: unknown column %s.%s", i, target.Alias, s.Column)
		}
		v, err := b.expr(s.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "update: set[%d]", i)
		}
		stmt.Setters = append(stmt.Setters, queryir.ColumnSetter{
			Column: b.f.Column(target.Alias, s.Column, col.nullable, col.mapping),
			Value:  v,
		})
	}
	return stmt, nil
}

func (b *builder) delete(d *DeleteSpec) (*queryir.Delete, error) {
	from := d.From
	if len(from) == 0 {
		from = []SourceSpec{{Table: d.Table, As: d.As}}
	}
	sel, err := b.selectSpec(&SelectSpec{From: from, Where: d.Where, OrderBy: d.OrderBy, Limit: d.Limit}, "")
	if err != nil {
		return nil, errors.Wrap(err, "delete")
	}
	target, err := b.target(d.Table, d.As, sel)
	if err != nil {
		return nil, errors.Wrap(err, "delete")
	}
	return &queryir.Delete{Table: target, Select: sel}, nil
}

// target finds the mutated table among the select's sources.
func (b *builder) target(name, alias string, sel *queryir.Select) (*queryir.Table, error) {
	if alias == "" {
		alias = name
	}
	for _, t := range sel.Tables {
		if j, ok := t.(*queryir.Join); ok {
			t = j.Table
		}
		if table, ok := t.(*queryir.Table); ok && table.Alias == alias {
			return table, nil
		}
	}
	return nil, errors.Newf("target %q is not in the from list", alias)
}

func (b *builder) subquery(ref sexpr) (*queryir.Select, error) {
	if ref.isList || !strings.HasPrefix(ref.atom, "$") {
		return nil, errors.Newf("expected a $subquery reference, got %s", ref)
	}
	name := ref.atom[1:]
	spec, ok := b.doc.Subqueries[name]
	if !ok {
		return nil, errors.Newf("unknown subquery %q", name)
	}
	if b.building[name] {
		return nil, errors.Newf("subquery %q references itself", name)
	}
	b.building[name] = true
	defer delete(b.building, name)

	sel, err := b.selectSpec(spec, "")
	return sel, errors.Wrapf(err, "subquery %q", name)
}

// mayBeNull is a conservative nullability estimate for derived columns.
func mayBeNull(e queryir.Expression) bool {
	switch x := e.(type) {
	case *queryir.Column:
		return x.Nullable
	case *queryir.Constant:
		return ir.IsNull(x.Value)
	case *queryir.Function:
		return x.Nullable
	case *queryir.Unary:
		switch x.Op {
		case queryir.OpIsNull, queryir.OpIsNotNull:
			return false
		}
	}
	return true
}

func (b *builder) optional(text string) (queryir.Expression, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return b.expr(text)
}

func (b *builder) exprs(texts []string) ([]queryir.Expression, error) {
	out := make([]queryir.Expression, 0, len(texts))
	for i, t := range texts {
		e, err := b.expr(t)
		if err != nil {
			return nil, errors.Wrapf(err, "[%d]", i)
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *builder) expr(text string) (queryir.Expression, error) {
	s, err := parseSexpr(text)
	if err != nil {
		return nil, err
	}
	return b.scalar(s)
}

func (b *builder) list(items []sexpr) ([]queryir.Expression, error) {
	out := make([]queryir.Expression, 0, len(items))
	for _, it := range items {
		e, err := b.scalar(it)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *builder) atom(a string) (queryir.Expression, error) {
	if s, ok := unquote(a); ok {
		return b.f.Constant(ir.IRString(s), nil), nil
	}

	switch strings.ToLower(a) {
	case "true":
		return b.f.True(), nil
	case "false":
		return b.f.False(), nil
	case "null":
		return nil, errors.New("null needs a type, e.g. null:int")
	case "*":
		return &queryir.Fragment{SQL: "*"}, nil
	}

	switch {
	case strings.HasPrefix(a, "@"):
		name := a[1:]
		m, ok := b.params[name]
		if !ok {
			return nil, errors.Newf("undeclared parameter %q", name)
		}
		return b.f.Parameter(name, m), nil

	case strings.HasPrefix(a, "$"):
		return nil, errors.Newf("subquery %s can only be used by exists, in-select and scalar", a)

	case strings.HasPrefix(strings.ToLower(a), "null:"):
		m, err := b.mapping(a[len("null:"):])
		if err != nil {
			return nil, err
		}
		return b.f.Null(m), nil
	}

	if n, err := strconv.ParseInt(a, 10, 64); err == nil {
		return b.f.Constant(ir.IRInt(n), nil), nil
	}
	if a[0] == '-' || a[0] == '.' || (a[0] >= '0' && a[0] <= '9') {
		d, err := ir.NewIRDecimal(a)
		if err != nil {
			return nil, err
		}
		return b.f.Constant(d, nil), nil
	}

	table, name, ok := strings.Cut(a, ".")
	if !ok {
		return nil, errors.Newf("unknown atom %q (columns are written alias.name)", a)
	}
	sc, ok := b.aliases[table]
	if !ok {
		return nil, errors.Newf("unknown table alias %q in %q", table, a)
	}
	col, ok := sc.columns[name]
	if !ok {
		return nil, errors.Newf("unknown column %q", a)
	}
	return b.f.Column(table, name, col.nullable, col.mapping), nil
}

var binaryOps = map[string]queryir.BinaryOp{
	"=":  queryir.OpEqual,
	"<>": queryir.OpNotEqual,
	"!=": queryir.OpNotEqual,
	"<":  queryir.OpLessThan,
	"<=": queryir.OpLessThanOrEqual,
	">":  queryir.OpGreaterThan,
	">=": queryir.OpGreaterThanOrEqual,
	"+":  queryir.OpAdd,
	"-":  queryir.OpSubtract,
	"*":  queryir.OpMultiply,
	"/":  queryir.OpDivide,
	"%":  queryir.OpModulo,
	"&":  queryir.OpBitwiseAnd,
	"|":  queryir.OpBitwiseOr,
}

func (b *builder) scalar(s sexpr) (queryir.Expression, error) {
	if !s.isList {
		return b.atom(s.atom)
	}
	head, args := s.head(), s.args()
	if head == "" {
		return nil, errors.Newf("%s: expected an operator", s)
	}
	arity := func(n int) error {
		if len(args) != n {
			return errors.Newf("%s: %s takes %d operands, got %d", s, head, n, len(args))
		}
		return nil
	}

	if op, ok := binaryOps[head]; ok {
		if op == queryir.OpSubtract && len(args) == 1 {
			operand, err := b.scalar(args[0])
			if err != nil {
				return nil, err
			}
			return b.f.Negate(operand), nil
		}
		if len(args) < 2 || (len(args) > 2 && !op.IsArithmetic()) {
			return nil, errors.Newf("%s: %s takes two operands", s, head)
		}
		operands, err := b.list(args)
		if err != nil {
			return nil, err
		}
		out := queryir.Expression(b.f.Binary(op, operands[0], operands[1]))
		for _, o := range operands[2:] {
			out = b.f.Binary(op, out, o)
		}
		return out, nil
	}

	switch head {
	case "and", "or":
		if len(args) < 2 {
			return nil, errors.Newf("%s: %s takes at least two operands", s, head)
		}
		operands, err := b.list(args)
		if err != nil {
			return nil, err
		}
		if head == "and" {
			return b.f.AndAll(operands...), nil
		}
		return b.f.OrAll(operands...), nil

	case "not", "is-null", "is-not-null", "distinct":
		if err := arity(1); err != nil {
			return nil, err
		}
		operand, err := b.scalar(args[0])
		if err != nil {
			return nil, err
		}
		switch head {
		case "not":
			return b.f.Not(operand), nil
		case "is-null":
			return b.f.IsNull(operand), nil
		case "is-not-null":
			return b.f.IsNotNull(operand), nil
		}
		return &queryir.Distinct{Operand: operand}, nil

	case "cast":
		if err := arity(2); err != nil {
			return nil, err
		}
		operand, err := b.scalar(args[0])
		if err != nil {
			return nil, err
		}
		m, err := b.mapping(args[1].atom)
		if err != nil {
			return nil, err
		}
		return b.f.Convert(operand, m), nil

	case "collate":
		if err := arity(2); err != nil {
			return nil, err
		}
		operand, err := b.scalar(args[0])
		if err != nil {
			return nil, err
		}
		return &queryir.Collate{Operand: operand, Collation: args[1].atom}, nil

	case "like":
		if len(args) != 2 && len(args) != 3 {
			return nil, errors.Newf("%s: like takes a match, a pattern and an optional escape", s)
		}
		operands, err := b.list(args)
		if err != nil {
			return nil, err
		}
		var escape queryir.Expression
		if len(operands) == 3 {
			escape = operands[2]
		}
		return b.f.Like(operands[0], operands[1], escape), nil

	case "in", "not-in":
		if len(args) < 1 {
			return nil, errors.Newf("%s: %s needs an item", s, head)
		}
		operands, err := b.list(args)
		if err != nil {
			return nil, err
		}
		return b.f.InValues(operands[0], operands[1:], head == "not-in"), nil

	case "in-list", "not-in-list":
		if err := arity(2); err != nil {
			return nil, err
		}
		operands, err := b.list(args)
		if err != nil {
			return nil, err
		}
		p, ok := operands[1].(*queryir.Parameter)
		if !ok {
			return nil, errors.Newf("%s: %s needs a @parameter list", s, head)
		}
		return b.f.InParameter(operands[0], p, head == "not-in-list"), nil

	case "in-select", "not-in-select":
		if err := arity(2); err != nil {
			return nil, err
		}
		item, err := b.scalar(args[0])
		if err != nil {
			return nil, err
		}
		sub, err := b.subquery(args[1])
		if err != nil {
			return nil, err
		}
		return b.f.InSubquery(item, sub, head == "not-in-select"), nil

	case "exists", "not-exists":
		if err := arity(1); err != nil {
			return nil, err
		}
		sub, err := b.subquery(args[0])
		if err != nil {
			return nil, err
		}
		return b.f.Exists(sub, head == "not-exists"), nil

	case "scalar":
		if err := arity(1); err != nil {
			return nil, err
		}
		sub, err := b.subquery(args[0])
		if err != nil {
			return nil, err
		}
		if len(sub.Projection) != 1 {
			return nil, errors.Newf("%s: a scalar subquery projects one column", s)
		}
		return &queryir.ScalarSubquery{Subquery: sub, Mapping: sub.Projection[0].Expr.Type()}, nil

	case "case", "case-of":
		return b.caseExpr(s, head == "case-of")

	case "coalesce":
		if len(args) < 2 {
			return nil, errors.Newf("%s: coalesce takes at least two operands", s)
		}
		operands, err := b.list(args)
		if err != nil {
			return nil, err
		}
		if len(operands) == 2 {
			return b.f.Coalesce(operands[0], operands[1]), nil
		}
		return b.f.Function("COALESCE", operands, nil), nil

	case "fn":
		if len(args) < 1 || args[0].isList {
			return nil, errors.Newf("%s: fn needs a function name", s)
		}
		operands, err := b.list(args[1:])
		if err != nil {
			return nil, err
		}
		return b.f.Function(args[0].atom, operands, nil), nil

	case "row":
		operands, err := b.list(args)
		if err != nil {
			return nil, err
		}
		return &queryir.RowValue{Values: operands}, nil

	case "row-number":
		return b.rowNumber(s)
	}
	return nil, errors.Newf("%s: unknown operator %q", s, head)
}

// caseExpr builds (case (when test result)... [(else e)]) or
// (case-of operand (when value result)... [(else e)]).
func (b *builder) caseExpr(s sexpr, simple bool) (queryir.Expression, error) {
	args := s.args()
	var operand queryir.Expression
	if simple {
		if len(args) == 0 {
			return nil, errors.Newf("%s: case-of needs an operand", s)
		}
		var err error
		if operand, err = b.scalar(args[0]); err != nil {
			return nil, err
		}
		args = args[1:]
	}

	var (
		whens []queryir.CaseWhen
		other queryir.Expression
	)
	for _, a := range args {
		switch a.head() {
		case "when":
			parts, err := b.list(a.args())
			if err != nil {
				return nil, err
			}
			if len(parts) != 2 {
				return nil, errors.Newf("%s: when takes a test and a result", a)
			}
			whens = append(whens, queryir.CaseWhen{Test: parts[0], Result: parts[1]})
		case "else":
			if len(a.args()) != 1 {
				return nil, errors.Newf("%s: else takes one result", a)
			}
			e, err := b.scalar(a.args()[0])
			if err != nil {
				return nil, err
			}
			other = e
		default:
			return nil, errors.Newf("%s: expected (when ...) or (else ...)", a)
		}
	}
	if len(whens) == 0 {
		return nil, errors.Newf("%s: case needs at least one when", s)
	}
	return b.f.Case(operand, whens, other), nil
}

// rowNumber builds (row-number [(partition e...)] [(order e... (desc e)...)]).
func (b *builder) rowNumber(s sexpr) (queryir.Expression, error) {
	m, ok := b.f.Source().FindMapping(typemap.KindBigInt)
	if !ok {
		return nil, errors.New("row-number: no bigint mapping")
	}
	rn := &queryir.RowNumber{Mapping: m}
	for _, a := range s.args() {
		switch a.head() {
		case "partition":
			parts, err := b.list(a.args())
			if err != nil {
				return nil, err
			}
			rn.Partitions = parts
		case "order":
			for _, o := range a.args() {
				asc := true
				if o.head() == "desc" && len(o.args()) == 1 {
					o, asc = o.args()[0], false
				}
				e, err := b.scalar(o)
				if err != nil {
					return nil, err
				}
				rn.Orderings = append(rn.Orderings, queryir.Ordering{Expr: e, Ascending: asc})
			}
		default:
			return nil, errors.Newf("%s: expected (partition ...) or (order ...)", a)
		}
	}
	return rn, nil
}
