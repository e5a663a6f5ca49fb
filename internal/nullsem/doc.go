// Package nullsem rewrites Query IR statements so that predicates evaluated
// under SQL's three-valued logic give the same answers as two-valued
// comparisons in which null equals null and a null operand never matches.
//
// ARCHITECTURE:
//
// Normalize walks a statement once, returning a rewritten copy that shares
// every untouched subtree with its input. Each expression visit yields the
// rewritten node and whether it may evaluate to null:
//
//	visit(expr, optimize, scope) -> (expr', nullable)
//
// optimize is set in contexts where unknown already reads as false (WHERE,
// HAVING, ON, CASE tests and the AND/OR operands below them). There the
// clauses that only separate unknown from false are omitted.
//
// scope is the set of columns proven non-null on the current boolean path.
// It is an immutable list passed down the recursion, so leaving an AND or OR
// operand drops its facts without any rollback.
//
// COMPARISONS:
//
// A nullable = or <> is first tried against structural shortcuts (x = NULL,
// x = TRUE, x = x, NOT a = NOT b). Otherwise it is expanded into one of the
// compensated forms documented on expandComparison. Already expanded forms
// over leaf operands are recognized and re-derived, so normalizing a
// normalized statement changes nothing.
//
// CACHEABILITY:
//
// The rewrite depends on parameter nullness. Expanding a list parameter
// into one parameter per element also depends on its contents; Result
// reports such statements as not cacheable and carries the synthesized
// parameter values.
package nullsem
