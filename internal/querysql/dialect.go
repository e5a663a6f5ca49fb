package querysql

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/typemap"
)

// PagingStyle selects how LIMIT/OFFSET is expressed.
type PagingStyle int

const (
	// PagingLimitOffset renders LIMIT n OFFSET m after ORDER BY.
	PagingLimitOffset PagingStyle = iota + 1
	// PagingTop renders TOP(n) after SELECT [DISTINCT].
	PagingTop
	// PagingFetch renders OFFSET m ROWS FETCH NEXT n ROWS ONLY after ORDER BY.
	PagingFetch
	// PagingLimitAllOffset is PagingLimitOffset for dialects that accept
	// OFFSET only after LIMIT; a missing limit renders as LIMIT -1.
	PagingLimitAllOffset
)

// Precedence is the binding strength of an operator. Higher levels bind
// tighter. Associative operators may be chained without parentheses.
type Precedence struct {
	Level       int
	Associative bool
}

// UpdateStyle selects the shape of a multi-table UPDATE.
type UpdateStyle int

const (
	// UpdateFromOthers renders UPDATE table AS alias SET ... FROM <other tables>.
	UpdateFromOthers UpdateStyle = iota + 1
	// UpdateByAlias renders UPDATE alias SET ... FROM <all tables>.
	UpdateByAlias
)

// Dialect supplies the target-specific parts of statement text. The
// generator owns traversal; a Dialect only answers questions about syntax.
// Embed BaseDialect to inherit standard answers.
type Dialect interface {
	Name() string

	// Precedence reports the operator precedence of an operator node.
	// ok=false makes the generator parenthesize the node wherever it nests.
	Precedence(e queryir.Expression) (p Precedence, ok bool)

	QuoteIdentifier(name string) string

	// BinaryOperator renders the token of a binary operator.
	BinaryOperator(b *queryir.Binary) string

	// ParameterPlaceholder renders the placeholder of a binding. index is the
	// zero-based position of the binding in the command.
	ParameterPlaceholder(name string, index int) string

	// Literal renders a constant of the given mapping.
	Literal(v ir.IRValue, m *typemap.TypeMapping) (string, error)

	// Paging picks the paging syntax for a select with the given clauses.
	Paging(hasLimit, hasOffset bool) PagingStyle

	// PseudoFromClause is appended to selects without tables (" FROM DUAL").
	PseudoFromClause() string

	// BooleanPredicates reports whether boolean values can be used directly
	// as search conditions and predicates as values. When false the generator
	// converts between the two with "= TRUE" and CASE.
	BooleanPredicates() bool

	// PredicateLiteral renders a constant search condition.
	PredicateLiteral(b bool) string

	// JoinClause renders the keyword of a join kind. suffix follows the joined
	// source (e.g. " ON TRUE" for lateral joins); ok=false rejects the kind.
	JoinClause(kind queryir.JoinKind) (keyword, suffix string, ok bool)

	// ValuesColumnAliases reports whether VALUES can name its columns
	// (VALUES ... AS t (a, b)). Otherwise the first row is rendered as a
	// SELECT with aliases and the rest appended with UNION ALL.
	ValuesColumnAliases() bool

	// ParenthesizedSetOperands reports whether set operation operands may be
	// wrapped in parentheses. Otherwise they are nested as derived tables.
	ParenthesizedSetOperands() bool

	Update() UpdateStyle

	// QualifySetterColumns reports whether SET targets carry the table alias.
	QualifySetterColumns() bool

	// RenderCustom is consulted before the built-in rendering of every
	// expression. handled=false declines.
	RenderCustom(w Writer, e queryir.Expression) (handled bool, err error)
}

// Writer is the view of an in-progress command given to RenderCustom.
type Writer interface {
	WriteString(s string)
	// Expression renders e as a value.
	Expression(e queryir.Expression)
}

// BaseDialect answers every Dialect question the way standard SQL does.
type BaseDialect struct{}

func (BaseDialect) Name() string { return "standard" }

// standardPrecedence follows the SQL grammar; comparisons, LIKE, IN and the
// null probes share one level.
var standardPrecedence = map[queryir.BinaryOp]Precedence{
	queryir.OpMultiply:           {900, true},
	queryir.OpDivide:             {900, false},
	queryir.OpModulo:             {900, false},
	queryir.OpAdd:                {800, true},
	queryir.OpSubtract:           {800, false},
	queryir.OpBitwiseAnd:         {700, true},
	queryir.OpBitwiseOr:          {700, true},
	queryir.OpEqual:              {500, false},
	queryir.OpNotEqual:           {500, false},
	queryir.OpLessThan:           {500, false},
	queryir.OpLessThanOrEqual:    {500, false},
	queryir.OpGreaterThan:        {500, false},
	queryir.OpGreaterThanOrEqual: {500, false},
	queryir.OpAnd:                {200, true},
	queryir.OpOr:                 {100, true},
}

func (BaseDialect) Precedence(e queryir.Expression) (Precedence, bool) {
	switch x := e.(type) {
	case *queryir.Binary:
		p, ok := standardPrecedence[x.Op]
		return p, ok
	case *queryir.Unary:
		switch x.Op {
		case queryir.OpNegate:
			return Precedence{Level: 1100}, true
		case queryir.OpIsNull, queryir.OpIsNotNull:
			return Precedence{Level: 500}, true
		case queryir.OpNot:
			return Precedence{Level: 300}, true
		}
	case *queryir.Like, *queryir.In:
		return Precedence{Level: 500}, true
	case *queryir.Collate:
		return Precedence{Level: 1200}, true
	}
	return Precedence{}, false
}

func (BaseDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// BinaryOperator renders string + as the standard || concatenation.
func (BaseDialect) BinaryOperator(b *queryir.Binary) string {
	if b.Op == queryir.OpAdd && b.Mapping != nil && b.Mapping.Kind == typemap.KindString {
		return "||"
	}
	return b.Op.String()
}

func (BaseDialect) ParameterPlaceholder(name string, _ int) string { return "@" + name }

func (BaseDialect) Literal(v ir.IRValue, m *typemap.TypeMapping) (string, error) {
	return m.GenerateLiteral(v)
}

func (BaseDialect) Paging(_, _ bool) PagingStyle { return PagingFetch }

func (BaseDialect) PseudoFromClause() string { return "" }

func (BaseDialect) BooleanPredicates() bool { return true }

func (BaseDialect) PredicateLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (BaseDialect) JoinClause(kind queryir.JoinKind) (string, string, bool) {
	switch kind {
	case queryir.JoinInner, queryir.JoinLeft, queryir.JoinCross, queryir.JoinCrossApply, queryir.JoinOuterApply:
		return kind.String(), "", true
	}
	return "", "", false
}

func (BaseDialect) ValuesColumnAliases() bool { return false }

func (BaseDialect) ParenthesizedSetOperands() bool { return true }

func (BaseDialect) Update() UpdateStyle { return UpdateFromOthers }

func (BaseDialect) QualifySetterColumns() bool { return false }

func (BaseDialect) RenderCustom(Writer, queryir.Expression) (bool, error) { return false, nil }

// Standard is ANSI SQL with FETCH paging.
type Standard struct{ BaseDialect }

// SQLite renders for SQLite 3.35+.
type SQLite struct{ BaseDialect }

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Paging(_, _ bool) PagingStyle { return PagingLimitAllOffset }

func (SQLite) Literal(v ir.IRValue, m *typemap.TypeMapping) (string, error) {
	if m.ProviderKind() == typemap.KindBool {
		if b, ok := v.(ir.IRBool); ok {
			return boolDigit(bool(b)), nil
		}
	}
	return m.GenerateLiteral(v)
}

func (SQLite) PredicateLiteral(b bool) string { return boolDigit(b) }

func (SQLite) JoinClause(kind queryir.JoinKind) (string, string, bool) {
	switch kind {
	case queryir.JoinCrossApply, queryir.JoinOuterApply:
		return "", "", false
	}
	return BaseDialect{}.JoinClause(kind)
}

func (SQLite) ParenthesizedSetOperands() bool { return false }

// SQLServer renders T-SQL.
type SQLServer struct{ BaseDialect }

func (SQLServer) Name() string { return "sqlserver" }

func (SQLServer) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Precedence puts + - & and | on one left-to-right level, as T-SQL
// evaluates them.
func (d SQLServer) Precedence(e queryir.Expression) (Precedence, bool) {
	if x, ok := e.(*queryir.Binary); ok {
		switch x.Op {
		case queryir.OpAdd, queryir.OpBitwiseAnd, queryir.OpBitwiseOr:
			return Precedence{Level: 800, Associative: true}, true
		case queryir.OpSubtract:
			return Precedence{Level: 800}, true
		}
	}
	return d.BaseDialect.Precedence(e)
}

func (SQLServer) Paging(_, hasOffset bool) PagingStyle {
	if hasOffset {
		return PagingFetch
	}
	return PagingTop
}

func (SQLServer) Literal(v ir.IRValue, m *typemap.TypeMapping) (string, error) {
	conv, err := m.Converter.Convert(v)
	if err != nil {
		return "", err
	}
	if ir.IsNull(conv) {
		return "NULL", nil
	}
	switch m.ProviderKind() {
	case typemap.KindBool:
		if b, ok := conv.(ir.IRBool); ok {
			return "CAST(" + boolDigit(bool(b)) + " AS bit)", nil
		}
	case typemap.KindString:
		if s, ok := conv.(ir.IRString); ok && strings.HasPrefix(strings.ToLower(m.StoreType), "n") {
			return "N" + typemap.QuoteString(string(s)), nil
		}
	case typemap.KindBytes:
		if s, ok := conv.(ir.IRString); ok {
			return "0x" + strings.ToUpper(hex.EncodeToString([]byte(s))), nil
		}
	}
	return typemap.FormatLiteral(m.ProviderKind(), conv)
}

func (SQLServer) BinaryOperator(b *queryir.Binary) string { return b.Op.String() }

// RenderCustom renders the LENGTH built-in as LEN.
func (SQLServer) RenderCustom(w Writer, e queryir.Expression) (bool, error) {
	f, ok := e.(*queryir.Function)
	if !ok || !f.BuiltIn || f.Instance != nil || !strings.EqualFold(f.Name, "LENGTH") {
		return false, nil
	}
	if len(f.Args) != 1 {
		return false, errors.Newf("LENGTH takes one argument, got %d", len(f.Args))
	}
	w.WriteString("LEN(")
	w.Expression(f.Args[0])
	w.WriteString(")")
	return true, nil
}

func (SQLServer) BooleanPredicates() bool { return false }

func (SQLServer) PredicateLiteral(b bool) string {
	if b {
		return "1 = 1"
	}
	return "0 = 1"
}

func (SQLServer) ValuesColumnAliases() bool { return true }

func (SQLServer) Update() UpdateStyle { return UpdateByAlias }

func (SQLServer) QualifySetterColumns() bool { return true }

// Postgres renders PostgreSQL with positional placeholders.
type Postgres struct{ BaseDialect }

func (Postgres) Name() string { return "postgres" }

func (Postgres) ParameterPlaceholder(_ string, index int) string {
	return "$" + strconv.Itoa(index+1)
}

func (Postgres) Paging(_, _ bool) PagingStyle { return PagingLimitOffset }

func (Postgres) JoinClause(kind queryir.JoinKind) (string, string, bool) {
	switch kind {
	case queryir.JoinCrossApply:
		return "JOIN LATERAL", " ON TRUE", true
	case queryir.JoinOuterApply:
		return "LEFT JOIN LATERAL", " ON TRUE", true
	}
	return BaseDialect{}.JoinClause(kind)
}

func (Postgres) ValuesColumnAliases() bool { return true }

// DialectNames lists the dialects known to DialectByName.
var DialectNames = []string{"standard", "sqlite", "sqlserver", "postgres"}

// DialectByName returns a built-in dialect.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "standard":
		return Standard{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "sqlserver", "mssql":
		return SQLServer{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	}
	return nil, errors.Newf("unknown dialect %q (valid: %s)", name, strings.Join(DialectNames, ", "))
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
