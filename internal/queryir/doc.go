// Package queryir provides the relational query intermediate representation
// (IR) consumed by the null-semantics normalizer and the SQL text generator.
//
// ARCHITECTURE:
//
// The IR is built once per statement compilation by a frontend (the YAML
// query documents in querydoc, or any Go caller), rewritten by nullsem, and
// rendered by querysql:
//
//	[frontend] → [Query IR] → [nullsem.Normalize] → [Query IR'] → [querysql.Generate]
//
// NODE SETS:
//
// Three closed node sets make up the IR:
//   - Expression: scalar nodes (Column, Constant, Parameter, Unary, Binary,
//     Case, Like, In, Exists, Distinct, Collate, RowNumber, RowValue,
//     ScalarSubquery, Function, Fragment)
//   - TableSource: FROM-list entries (Table, FromSQL, TableValuedFunction,
//     Values, Join, Select used as a subquery, SetOperation)
//   - Statement: Select, Update, Delete
//
// SEALED INTERFACES:
//
// Expression, TableSource and Statement are sealed interfaces using the
// marker method pattern. Only types in this package implement them, so every
// visitor is an exhaustive type switch whose default branch reports an
// unhandled node:
//
//	switch e := expr.(type) {
//	case *Column:
//	    // ...
//	case *Binary:
//	    // ...
//	default:
//	    return sqlerr.NewUnhandledNode("generator", Describe(e))
//	}
//
// All markers use pointer receivers; nodes are always handled by pointer.
//
// IMMUTABILITY:
//
// Nodes are never modified after construction. Rewrites go through the
// Update methods, which return the receiver when nothing changed and a
// shallow copy otherwise. A rewritten tree therefore shares every untouched
// subtree with its input, and independent compilations can read the same
// nodes concurrently.
//
// TYPE MAPPINGS:
//
// Every scalar node carries a *typemap.TypeMapping except RowValue and
// Fragment, which are never rendered as standalone values. A nil mapping on
// any other node is an upstream defect; Validate reports it and the
// generator fails with MISSING_TYPE_MAPPING.
//
// CONSTANTS AND PARAMETERS:
//
// Literal values use ir.IRValue. Parameters carry only a name; their values
// live in an environment passed alongside the statement and are consulted by
// the normalizer for nullness alone (plus the cache-breaking list expansion).
package queryir
