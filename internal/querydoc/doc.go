// Package querydoc reads query documents: YAML files describing one Query IR
// statement, the tables it reads and the values of its parameters.
//
// Clauses are YAML; scalar expressions are S-expressions:
//
//	t.a                    column a of the source aliased t
//	@p                     parameter p (declared under parameters:)
//	1  1.5  'text'  true   literals
//	null:int               a typed NULL
//	(= t.a @p)             comparison; also <> < <= > >=
//	(+ t.a 1)              arithmetic; also - * / % & |, (- x) negates
//	(and x y ...)          connectives; also or, not
//	(is-null x)            also is-not-null
//	(in x 1 2)             also not-in, in-list x @list, in-select x $sub
//	(exists $sub)          also not-exists, scalar $sub
//	(like x 'a%' ['!'])
//	(case (when c r) ... (else e))   (case-of x (when v r) ...)
//	(coalesce a b ...)  (fn UPPER x)  (cast x string)  (collate x NOCASE)
//	(row-number (partition x) (order y (desc z)))
//
// Since YAML reserves a leading @, parameter atoms used as a whole YAML value
// must be quoted: limit: "@n".
package querydoc
