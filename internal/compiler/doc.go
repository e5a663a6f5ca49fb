// Package compiler turns CUE catalog definitions into ir.Catalog values.
//
// A catalog declares base tables with their columns, column types and
// nullability. Column nullability is what the null-semantics normalizer
// relies on, so it is spelled out explicitly: a column is non-nullable
// unless its type is disjoined with null or its struct form says
// nullable: true.
//
// CUE unification lets a catalog be split across files and packages;
// conflicting declarations of the same column fail with the CUE error and
// its source position.
package compiler
