package nullsem

import "github.com/roach88/relq/internal/queryir"

// colKey identifies a column reference by table alias and name.
type colKey struct {
	table string
	name  string
}

func keyOf(c *queryir.Column) colKey {
	return colKey{table: c.Table, name: c.Name}
}

// colSet is an immutable set of columns proven non-null on the current
// boolean path. Adding returns a new set sharing the old one, so a scope
// ends simply by dropping the extended value.
type colSet struct {
	head *colNode
}

type colNode struct {
	key  colKey
	next *colNode
}

func (s colSet) contains(k colKey) bool {
	for n := s.head; n != nil; n = n.next {
		if n.key == k {
			return true
		}
	}
	return false
}

func (s colSet) has(c *queryir.Column) bool {
	return s.contains(keyOf(c))
}

// with returns s extended by keys not already present.
func (s colSet) with(keys ...colKey) colSet {
	out := s
	for _, k := range keys {
		if !out.contains(k) {
			out = colSet{head: &colNode{key: k, next: out.head}}
		}
	}
	return out
}

func (s colSet) len() int {
	n := 0
	for c := s.head; c != nil; c = c.next {
		n++
	}
	return n
}

// nonNullWhenTrue returns the columns that must be non-null whenever e
// evaluates to TRUE under three-valued logic: operands of a comparison that
// holds, probed IS NOT NULL columns, the union over AND and the intersection
// over OR.
func nonNullWhenTrue(e queryir.Expression) []colKey {
	switch x := e.(type) {
	case *queryir.Unary:
		if x.Op == queryir.OpIsNotNull {
			if c, ok := x.Operand.(*queryir.Column); ok {
				return []colKey{keyOf(c)}
			}
		}
	case *queryir.Binary:
		switch {
		case x.Op == queryir.OpAnd:
			return union(nonNullWhenTrue(x.Left), nonNullWhenTrue(x.Right))
		case x.Op == queryir.OpOr:
			return intersect(nonNullWhenTrue(x.Left), nonNullWhenTrue(x.Right))
		case x.Op.IsComparison():
			var out []colKey
			if c, ok := x.Left.(*queryir.Column); ok {
				out = append(out, keyOf(c))
			}
			if c, ok := x.Right.(*queryir.Column); ok {
				out = append(out, keyOf(c))
			}
			return out
		}
	case *queryir.In:
		if c, ok := x.Item.(*queryir.Column); ok {
			return []colKey{keyOf(c)}
		}
	case *queryir.Like:
		if c, ok := x.Match.(*queryir.Column); ok {
			return []colKey{keyOf(c)}
		}
	}
	return nil
}

// trueWhenNull returns the columns whose nullness alone makes e TRUE. Once e
// is known not to be TRUE, those columns are non-null.
func trueWhenNull(e queryir.Expression) []colKey {
	switch x := e.(type) {
	case *queryir.Unary:
		if x.Op == queryir.OpIsNull {
			if c, ok := x.Operand.(*queryir.Column); ok {
				return []colKey{keyOf(c)}
			}
		}
	case *queryir.Binary:
		switch x.Op {
		case queryir.OpOr:
			return union(trueWhenNull(x.Left), trueWhenNull(x.Right))
		case queryir.OpAnd:
			return intersect(trueWhenNull(x.Left), trueWhenNull(x.Right))
		}
	}
	return nil
}

func union(a, b []colKey) []colKey {
	out := append([]colKey(nil), a...)
	for _, k := range b {
		if !containsKey(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func intersect(a, b []colKey) []colKey {
	var out []colKey
	for _, k := range a {
		if containsKey(b, k) && !containsKey(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func containsKey(keys []colKey, k colKey) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}
