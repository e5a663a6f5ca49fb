package queryir

import (
	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/typemap"
)

// Factory builds IR nodes with consistent type mappings. Rewriting passes use
// it for every node they synthesize (null probes, connectives, constants), so
// synthesized nodes never reach the generator untyped.
type Factory struct {
	source      typemap.Source
	boolMapping *typemap.TypeMapping
}

// NewFactory returns a Factory resolving mappings through source.
func NewFactory(source typemap.Source) *Factory {
	m, ok := source.FindMapping(typemap.KindBool)
	if !ok {
		m = typemap.New("boolean", typemap.KindBool)
	}
	return &Factory{source: source, boolMapping: m}
}

// DefaultFactory returns a Factory over typemap.NewDefaultSource.
func DefaultFactory() *Factory {
	return NewFactory(typemap.NewDefaultSource())
}

// Source returns the mapping source the factory resolves through.
func (f *Factory) Source() typemap.Source { return f.source }

// BoolMapping is the mapping of predicates and boolean constants.
func (f *Factory) BoolMapping() *typemap.TypeMapping { return f.boolMapping }

// Constant returns a literal. A nil mapping is inferred from the value.
func (f *Factory) Constant(v ir.IRValue, m *typemap.TypeMapping) *Constant {
	if m == nil {
		m, _ = f.source.ForValue(v)
	}
	return &Constant{Value: v, Mapping: m}
}

// Bool returns the boolean literal b.
func (f *Factory) Bool(b bool) *Constant {
	return &Constant{Value: ir.IRBool(b), Mapping: f.boolMapping}
}

// True returns the TRUE literal.
func (f *Factory) True() *Constant { return f.Bool(true) }

// False returns the FALSE literal.
func (f *Factory) False() *Constant { return f.Bool(false) }

// Null returns a NULL literal carrying mapping m.
func (f *Factory) Null(m *typemap.TypeMapping) *Constant {
	return &Constant{Value: ir.IRNull{}, Mapping: m}
}

// Column returns a column reference.
func (f *Factory) Column(table, name string, nullable bool, m *typemap.TypeMapping) *Column {
	return &Column{Table: table, Name: name, Nullable: nullable, Mapping: m}
}

// Parameter returns a parameter reference.
func (f *Factory) Parameter(name string, m *typemap.TypeMapping) *Parameter {
	return &Parameter{Name: name, Mapping: m}
}

// Binary returns left op right. Comparisons and connectives are typed as
// booleans; arithmetic takes the first typed operand's mapping.
func (f *Factory) Binary(op BinaryOp, left, right Expression) *Binary {
	var m *typemap.TypeMapping
	if op.IsArithmetic() {
		m = left.Type()
		if m == nil {
			m = right.Type()
		}
	} else {
		m = f.boolMapping
	}
	return &Binary{Op: op, Left: left, Right: right, Mapping: m}
}

// Equal returns left = right.
func (f *Factory) Equal(left, right Expression) *Binary { return f.Binary(OpEqual, left, right) }

// NotEqual returns left <> right.
func (f *Factory) NotEqual(left, right Expression) *Binary {
	return f.Binary(OpNotEqual, left, right)
}

// And returns left AND right.
func (f *Factory) And(left, right Expression) *Binary { return f.Binary(OpAnd, left, right) }

// Or returns left OR right.
func (f *Factory) Or(left, right Expression) *Binary { return f.Binary(OpOr, left, right) }

// AndAll folds the operands left to right with AND. It returns nil for no operands.
func (f *Factory) AndAll(operands ...Expression) Expression {
	return f.fold(OpAnd, operands)
}

// OrAll folds the operands left to right with OR. It returns nil for no operands.
func (f *Factory) OrAll(operands ...Expression) Expression {
	return f.fold(OpOr, operands)
}

func (f *Factory) fold(op BinaryOp, operands []Expression) Expression {
	var out Expression
	for _, o := range operands {
		if out == nil {
			out = o
			continue
		}
		out = f.Binary(op, out, o)
	}
	return out
}

// Not returns NOT operand.
func (f *Factory) Not(operand Expression) *Unary {
	m := operand.Type()
	if m == nil || m.Kind != typemap.KindBool {
		m = f.boolMapping
	}
	return &Unary{Op: OpNot, Operand: operand, Mapping: m}
}

// Negate returns -operand.
func (f *Factory) Negate(operand Expression) *Unary {
	return &Unary{Op: OpNegate, Operand: operand, Mapping: operand.Type()}
}

// Convert returns CAST(operand AS m).
func (f *Factory) Convert(operand Expression, m *typemap.TypeMapping) *Unary {
	return &Unary{Op: OpConvert, Operand: operand, Mapping: m}
}

// IsNull returns operand IS NULL.
func (f *Factory) IsNull(operand Expression) *Unary {
	return &Unary{Op: OpIsNull, Operand: operand, Mapping: f.boolMapping}
}

// IsNotNull returns operand IS NOT NULL.
func (f *Factory) IsNotNull(operand Expression) *Unary {
	return &Unary{Op: OpIsNotNull, Operand: operand, Mapping: f.boolMapping}
}

// Like returns match LIKE pattern [ESCAPE escape].
func (f *Factory) Like(match, pattern, escape Expression) *Like {
	return &Like{Match: match, Pattern: pattern, Escape: escape, Mapping: f.boolMapping}
}

// InValues returns item [NOT] IN (values...).
func (f *Factory) InValues(item Expression, values []Expression, negated bool) *In {
	return &In{Item: item, Values: values, Negated: negated, Mapping: f.boolMapping}
}

// InParameter returns item [NOT] IN (expanded list parameter).
func (f *Factory) InParameter(item Expression, list *Parameter, negated bool) *In {
	return &In{Item: item, ValuesParameter: list, Negated: negated, Mapping: f.boolMapping}
}

// InSubquery returns item [NOT] IN (subquery).
func (f *Factory) InSubquery(item Expression, subquery *Select, negated bool) *In {
	return &In{Item: item, Subquery: subquery, Negated: negated, Mapping: f.boolMapping}
}

// Exists returns [NOT] EXISTS (subquery).
func (f *Factory) Exists(subquery *Select, negated bool) *Exists {
	return &Exists{Subquery: subquery, Negated: negated, Mapping: f.boolMapping}
}

// Case returns a CASE expression typed by its first result.
func (f *Factory) Case(operand Expression, whens []CaseWhen, elseResult Expression) *Case {
	var m *typemap.TypeMapping
	for _, w := range whens {
		if m = w.Result.Type(); m != nil {
			break
		}
	}
	if m == nil && elseResult != nil {
		m = elseResult.Type()
	}
	return &Case{Operand: operand, Whens: whens, Else: elseResult, Mapping: m}
}

// Coalesce returns COALESCE(left, right), typed by left.
func (f *Factory) Coalesce(left, right Expression) *Function {
	m := left.Type()
	if m == nil {
		m = right.Type()
	}
	return &Function{
		Name:              "COALESCE",
		Args:              []Expression{left, right},
		ArgsPropagateNull: []bool{false, false},
		Nullable:          true,
		BuiltIn:           true,
		Mapping:           m,
	}
}

// Function returns a call of a built-in function using its catalog
// signature when known. Unknown names produce a nullable function whose
// arguments all propagate null.
func (f *Factory) Function(name string, args []Expression, m *typemap.TypeMapping) *Function {
	fn := &Function{Name: name, Args: args, Mapping: m}
	sig, ok := typemap.LookupFunction(name)
	if !ok {
		fn.Nullable = true
		fn.ArgsPropagateNull = make([]bool, len(args))
		for i := range fn.ArgsPropagateNull {
			fn.ArgsPropagateNull[i] = true
		}
		if fn.Mapping == nil && len(args) > 0 {
			fn.Mapping = args[0].Type()
		}
		return fn
	}
	fn.Name = sig.Name
	fn.Nullable = sig.Nullable
	fn.BuiltIn = sig.BuiltIn
	fn.Niladic = sig.Niladic
	fn.ArgsPropagateNull = make([]bool, len(args))
	for i := range args {
		fn.ArgsPropagateNull[i] = sig.Propagates(i)
	}
	if fn.Mapping == nil {
		if rm, ok := f.source.FindMapping(sig.Return); ok && sig.Return != typemap.KindUnknown {
			fn.Mapping = rm
		} else if len(args) > 0 {
			fn.Mapping = args[0].Type()
		}
	}
	return fn
}
