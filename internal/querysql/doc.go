// Package querysql renders Query IR statements as SQL text for a dialect.
//
// A Generator walks a statement once, writing text into a builder that also
// records one Binding per distinct parameter. Dialects answer syntax
// questions (quoting, placeholders, paging, join keywords, literal forms)
// and may take over rendering of individual nodes through RenderCustom.
//
// PARENTHESES:
//
// Operands are parenthesized only where the dialect's precedence table says
// the grouping would otherwise change. AND and OR nested inside each other
// are always grouped. A dialect that reports no precedence for a node gets
// it fully parenthesized.
//
// STATEMENT SHAPES:
//
//	SELECT    projection, FROM list, WHERE, GROUP BY, HAVING, ORDER BY, paging
//	UPDATE    UPDATE t SET ... [FROM others] WHERE ...  (target hoisted out)
//	          UPDATE alias SET ... FROM all WHERE ...   (SQL Server)
//	DELETE    DELETE FROM t WHERE ...
//
// UPDATE and DELETE reject selects that project, group, order, page or are
// distinct with an UNSUPPORTED_SHAPE translation error.
//
// Raw SQL sources are only nested when they begin with SELECT or WITH after
// comments and whitespace; see CheckComposable.
package querysql
