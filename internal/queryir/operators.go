package queryir

import "fmt"

// UnaryOp identifies the operator of a Unary node.
type UnaryOp int

const (
	OpNot UnaryOp = iota + 1
	OpNegate
	OpConvert
	OpIsNull
	OpIsNotNull
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "NOT"
	case OpNegate:
		return "-"
	case OpConvert:
		return "CAST"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// BinaryOp identifies the operator of a Binary node.
type BinaryOp int

const (
	OpAnd BinaryOp = iota + 1
	OpOr
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpBitwiseAnd
	OpBitwiseOr
)

var binaryTokens = map[BinaryOp]string{
	OpAnd:                "AND",
	OpOr:                 "OR",
	OpEqual:              "=",
	OpNotEqual:           "<>",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpAdd:                "+",
	OpSubtract:           "-",
	OpMultiply:           "*",
	OpDivide:             "/",
	OpModulo:             "%",
	OpBitwiseAnd:         "&",
	OpBitwiseOr:          "|",
}

// String returns the standard SQL token for the operator.
func (op BinaryOp) String() string {
	if t, ok := binaryTokens[op]; ok {
		return t
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// IsLogical reports whether op is AND or OR.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsComparison reports whether op compares its operands and yields a boolean.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessThanOrEqual, OpGreaterThan, OpGreaterThanOrEqual:
		return true
	}
	return false
}

// IsArithmetic reports whether op is an arithmetic or bitwise operator.
func (op BinaryOp) IsArithmetic() bool {
	return !op.IsLogical() && !op.IsComparison()
}

// Negated returns the comparison that is true exactly when op is false for
// non-null operands (= ↔ <>, < ↔ >=, > ↔ <=). The second result is false for
// operators without such a dual.
func (op BinaryOp) Negated() (BinaryOp, bool) {
	switch op {
	case OpEqual:
		return OpNotEqual, true
	case OpNotEqual:
		return OpEqual, true
	case OpLessThan:
		return OpGreaterThanOrEqual, true
	case OpLessThanOrEqual:
		return OpGreaterThan, true
	case OpGreaterThan:
		return OpLessThanOrEqual, true
	case OpGreaterThanOrEqual:
		return OpLessThan, true
	}
	return op, false
}

// JoinKind identifies the flavor of a Join table source.
type JoinKind int

const (
	JoinInner JoinKind = iota + 1
	JoinLeft
	JoinCross
	JoinCrossApply
	JoinOuterApply
)

func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinCross:
		return "CROSS JOIN"
	case JoinCrossApply:
		return "CROSS APPLY"
	case JoinOuterApply:
		return "OUTER APPLY"
	}
	return fmt.Sprintf("JoinKind(%d)", int(k))
}

// HasPredicate reports whether joins of this kind carry an ON predicate.
func (k JoinKind) HasPredicate() bool {
	return k == JoinInner || k == JoinLeft
}

// SetOpKind identifies a set operation.
type SetOpKind int

const (
	SetUnion SetOpKind = iota + 1
	SetIntersect
	SetExcept
)

func (k SetOpKind) String() string {
	switch k {
	case SetUnion:
		return "UNION"
	case SetIntersect:
		return "INTERSECT"
	case SetExcept:
		return "EXCEPT"
	}
	return fmt.Sprintf("SetOpKind(%d)", int(k))
}
