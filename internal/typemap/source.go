package typemap

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/ir"
)

// Source resolves type mappings for catalog columns and untyped literals.
type Source interface {
	// FindMapping returns the default mapping for a logical kind.
	FindMapping(kind Kind) (*TypeMapping, bool)
	// ForColumn returns the mapping for a catalog column.
	ForColumn(col ir.ColumnSpec) (*TypeMapping, error)
	// ForValue infers a mapping from a literal value.
	ForValue(v ir.IRValue) (*TypeMapping, bool)
}

// DefaultSource maps each Kind to a standard store type.
type DefaultSource struct {
	mappings map[Kind]*TypeMapping
}

// NewDefaultSource returns a Source with standard store type names.
// Overrides replace the mapping for their Kind.
func NewDefaultSource(overrides ...*TypeMapping) *DefaultSource {
	s := &DefaultSource{mappings: map[Kind]*TypeMapping{
		KindBool:     New("boolean", KindBool),
		KindInt:      New("int", KindInt),
		KindBigInt:   New("bigint", KindBigInt),
		KindDecimal:  New("decimal(18,2)", KindDecimal),
		KindFloat:    New("float", KindFloat),
		KindString:   New("varchar(max)", KindString),
		KindBytes:    New("varbinary(max)", KindBytes),
		KindDateTime: New("timestamp", KindDateTime),
		KindGUID:     New("uuid", KindGUID),
	}}
	for _, o := range overrides {
		s.mappings[o.Kind] = o
	}
	return s
}

func (s *DefaultSource) FindMapping(kind Kind) (*TypeMapping, bool) {
	m, ok := s.mappings[kind]
	return m, ok
}

func (s *DefaultSource) ForColumn(col ir.ColumnSpec) (*TypeMapping, error) {
	kind, ok := KindFromName(col.Type)
	if !ok {
		return nil, errors.Newf("column %q: unknown type %q", col.Name, col.Type)
	}
	m, ok := s.FindMapping(kind)
	if !ok {
		return nil, errors.Newf("column %q: no mapping for kind %s", col.Name, kind)
	}
	if col.StoreType != "" {
		m = m.WithStoreType(col.StoreType)
	}
	return m, nil
}

func (s *DefaultSource) ForValue(v ir.IRValue) (*TypeMapping, bool) {
	switch v.(type) {
	case ir.IRBool:
		return s.FindMapping(KindBool)
	case ir.IRInt:
		return s.FindMapping(KindInt)
	case ir.IRDecimal:
		return s.FindMapping(KindDecimal)
	case ir.IRString:
		return s.FindMapping(KindString)
	}
	return nil, false
}

// BoolToStringConverter stores booleans as two string codes, e.g. "Y"/"N".
func BoolToStringConverter(trueValue, falseValue string) *ValueConverter {
	return &ValueConverter{
		Name:         "BoolToString(" + trueValue + "," + falseValue + ")",
		ProviderKind: KindString,
		ToProvider: func(v ir.IRValue) (ir.IRValue, error) {
			b, ok := v.(ir.IRBool)
			if !ok {
				return nil, errors.Newf("expected bool, got %T", v)
			}
			if b {
				return ir.IRString(trueValue), nil
			}
			return ir.IRString(falseValue), nil
		},
	}
}

// BoolToZeroOneConverter stores booleans as integers 0 and 1.
var BoolToZeroOneConverter = &ValueConverter{
	Name:         "BoolToZeroOne",
	ProviderKind: KindInt,
	ToProvider: func(v ir.IRValue) (ir.IRValue, error) {
		b, ok := v.(ir.IRBool)
		if !ok {
			return nil, errors.Newf("expected bool, got %T", v)
		}
		if b {
			return ir.IRInt(1), nil
		}
		return ir.IRInt(0), nil
	},
}

// FunctionSignature is the null-propagation metadata of a function.
// A function is nullable when Nullable is set; its result is null whenever an
// argument whose ArgsPropagateNull entry is true is null.
type FunctionSignature struct {
	Name              string
	Nullable          bool
	ArgsPropagateNull []bool
	// VariadicPropagate applies to arguments beyond len(ArgsPropagateNull).
	VariadicPropagate bool
	Return            Kind
	BuiltIn           bool
	Niladic           bool
}

// Propagates reports whether argument i propagates null.
func (f *FunctionSignature) Propagates(i int) bool {
	if i < len(f.ArgsPropagateNull) {
		return f.ArgsPropagateNull[i]
	}
	return f.VariadicPropagate
}

// builtinFunctions lists functions known to the standard function catalog.
// Return KindUnknown means the result takes the first argument's mapping.
var builtinFunctions = []FunctionSignature{
	{Name: "COALESCE", Nullable: true, VariadicPropagate: false, BuiltIn: true},
	{Name: "SUM", Nullable: true, ArgsPropagateNull: []bool{false}, BuiltIn: true},
	{Name: "COUNT", Nullable: false, ArgsPropagateNull: []bool{false}, Return: KindInt, BuiltIn: true},
	{Name: "MAX", Nullable: true, ArgsPropagateNull: []bool{false}, BuiltIn: true},
	{Name: "MIN", Nullable: true, ArgsPropagateNull: []bool{false}, BuiltIn: true},
	{Name: "AVG", Nullable: true, ArgsPropagateNull: []bool{false}, Return: KindDecimal, BuiltIn: true},
	{Name: "ABS", Nullable: true, ArgsPropagateNull: []bool{true}, BuiltIn: true},
	{Name: "UPPER", Nullable: true, ArgsPropagateNull: []bool{true}, Return: KindString, BuiltIn: true},
	{Name: "LOWER", Nullable: true, ArgsPropagateNull: []bool{true}, Return: KindString, BuiltIn: true},
	{Name: "LENGTH", Nullable: true, ArgsPropagateNull: []bool{true}, Return: KindInt, BuiltIn: true},
	{Name: "ROUND", Nullable: true, ArgsPropagateNull: []bool{true, true}, BuiltIn: true},
	{Name: "REPLACE", Nullable: true, ArgsPropagateNull: []bool{true, true, true}, Return: KindString, BuiltIn: true},
	{Name: "CURRENT_TIMESTAMP", Nullable: false, Return: KindDateTime, BuiltIn: true, Niladic: true},
}

// LookupFunction finds a built-in function signature by case-insensitive name.
func LookupFunction(name string) (FunctionSignature, bool) {
	for _, f := range builtinFunctions {
		if strings.EqualFold(f.Name, name) {
			sig := f
			sig.ArgsPropagateNull = append([]bool(nil), f.ArgsPropagateNull...)
			return sig, true
		}
	}
	return FunctionSignature{}, false
}
