package queryir

import (
	"fmt"
	"strings"
)

// Children returns the direct scalar children of e in evaluation order.
// Subqueries are not expanded: an In, Exists or ScalarSubquery contributes
// only the scalar operands outside its nested select.
func Children(e Expression) []Expression {
	switch x := e.(type) {
	case *Unary:
		return []Expression{x.Operand}
	case *Binary:
		return []Expression{x.Left, x.Right}
	case *Case:
		out := make([]Expression, 0, 2*len(x.Whens)+2)
		if x.Operand != nil {
			out = append(out, x.Operand)
		}
		for _, w := range x.Whens {
			out = append(out, w.Test, w.Result)
		}
		if x.Else != nil {
			out = append(out, x.Else)
		}
		return out
	case *Like:
		if x.Escape != nil {
			return []Expression{x.Match, x.Pattern, x.Escape}
		}
		return []Expression{x.Match, x.Pattern}
	case *In:
		out := append([]Expression{x.Item}, x.Values...)
		if x.ValuesParameter != nil {
			out = append(out, x.ValuesParameter)
		}
		return out
	case *Distinct:
		return []Expression{x.Operand}
	case *Collate:
		return []Expression{x.Operand}
	case *RowNumber:
		out := append([]Expression(nil), x.Partitions...)
		for _, o := range x.Orderings {
			out = append(out, o.Expr)
		}
		return out
	case *RowValue:
		return x.Values
	case *Function:
		if x.Instance != nil {
			return append([]Expression{x.Instance}, x.Args...)
		}
		return x.Args
	}
	return nil
}

// Walk traverses e in pre-order. When fn returns false the children of the
// current node are skipped.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Describe returns a short human-readable label for a node, used in error
// messages and logs.
func Describe(node any) string {
	switch x := node.(type) {
	case nil:
		return "<nil>"
	case *Column:
		if x.Table == "" {
			return fmt.Sprintf("Column(%s)", x.Name)
		}
		return fmt.Sprintf("Column(%s.%s)", x.Table, x.Name)
	case *Constant:
		return fmt.Sprintf("Constant(%v)", x.Value)
	case *Parameter:
		return fmt.Sprintf("Parameter(%s)", x.Name)
	case *Unary:
		return fmt.Sprintf("Unary(%s)", x.Op)
	case *Binary:
		return fmt.Sprintf("Binary(%s)", x.Op)
	case *Function:
		return fmt.Sprintf("Function(%s)", x.Name)
	case *Table:
		return fmt.Sprintf("Table(%s)", x.Name)
	case *Join:
		return fmt.Sprintf("Join(%s %s)", x.Kind, Describe(x.Table))
	case *SetOperation:
		return fmt.Sprintf("SetOperation(%s)", x.Kind)
	case *Fragment:
		return fmt.Sprintf("Fragment(%s)", x.SQL)
	}
	name := fmt.Sprintf("%T", node)
	return strings.TrimPrefix(name, "*queryir.")
}
