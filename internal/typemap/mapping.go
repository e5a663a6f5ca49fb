package typemap

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/ir"
)

// Kind is the logical type of a mapped value.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindInt
	KindBigInt
	KindDecimal
	KindFloat
	KindString
	KindBytes
	KindDateTime
	KindGUID
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindBool:     "bool",
	KindInt:      "int",
	KindBigInt:   "bigint",
	KindDecimal:  "decimal",
	KindFloat:    "float",
	KindString:   "string",
	KindBytes:    "bytes",
	KindDateTime: "datetime",
	KindGUID:     "guid",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindFromName maps a catalog type name to its Kind.
func KindFromName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && k != KindUnknown {
			return k, true
		}
	}
	return KindUnknown, false
}

// IsNumeric reports whether arithmetic on the kind is numeric.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt, KindBigInt, KindDecimal, KindFloat:
		return true
	}
	return false
}

// ValueConverter converts logical values into the representation stored in
// the database. Two converters are considered the same when their names match.
type ValueConverter struct {
	Name         string
	ProviderKind Kind
	ToProvider   func(ir.IRValue) (ir.IRValue, error)
}

// Convert applies the converter; null passes through unchanged.
func (c *ValueConverter) Convert(v ir.IRValue) (ir.IRValue, error) {
	if c == nil || ir.IsNull(v) {
		return v, nil
	}
	out, err := c.ToProvider(v)
	if err != nil {
		return nil, errors.Wrapf(err, "converter %s", c.Name)
	}
	return out, nil
}

// TypeMapping is the resolved target type of a scalar node.
// Mappings are immutable; the With helpers return copies.
type TypeMapping struct {
	StoreType string
	Kind      Kind
	Converter *ValueConverter
}

// New creates a mapping without a converter.
func New(storeType string, kind Kind) *TypeMapping {
	return &TypeMapping{StoreType: storeType, Kind: kind}
}

// WithStoreType returns a copy of the mapping with a different store type.
func (m *TypeMapping) WithStoreType(storeType string) *TypeMapping {
	cp := *m
	cp.StoreType = storeType
	return &cp
}

// WithConverter returns a copy of the mapping that converts values with c.
func (m *TypeMapping) WithConverter(c *ValueConverter) *TypeMapping {
	cp := *m
	cp.Converter = c
	return &cp
}

// Equal reports whether two mappings encode values identically: same store
// type, same kind and the same converter. go-cmp uses this method as well.
func (m *TypeMapping) Equal(o *TypeMapping) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.StoreType != o.StoreType || m.Kind != o.Kind {
		return false
	}
	switch {
	case m.Converter == nil && o.Converter == nil:
		return true
	case m.Converter == nil || o.Converter == nil:
		return false
	}
	return m.Converter.Name == o.Converter.Name
}

// IsFloatingPoint reports whether arithmetic on values of this mapping rounds.
func (m *TypeMapping) IsFloatingPoint() bool {
	return m != nil && m.Kind == KindFloat
}

// ProviderKind is the kind of values after conversion.
func (m *TypeMapping) ProviderKind() Kind {
	if m.Converter != nil && m.Converter.ProviderKind != KindUnknown {
		return m.Converter.ProviderKind
	}
	return m.Kind
}

func (m *TypeMapping) String() string {
	if m == nil {
		return "<untyped>"
	}
	if m.Converter != nil {
		return fmt.Sprintf("%s(%s via %s)", m.StoreType, m.Kind, m.Converter.Name)
	}
	return fmt.Sprintf("%s(%s)", m.StoreType, m.Kind)
}

// GenerateLiteral renders v as a standard SQL literal of this mapping.
// The converter is applied first. Dialects override individual kinds.
func (m *TypeMapping) GenerateLiteral(v ir.IRValue) (string, error) {
	v, err := m.Converter.Convert(v)
	if err != nil {
		return "", err
	}
	if ir.IsNull(v) {
		return "NULL", nil
	}
	return FormatLiteral(m.ProviderKind(), v)
}

// FormatLiteral renders a non-null provider value of the given kind.
func FormatLiteral(kind Kind, v ir.IRValue) (string, error) {
	switch kind {
	case KindBool:
		b, ok := v.(ir.IRBool)
		if !ok {
			return "", literalMismatch(kind, v)
		}
		if b {
			return "TRUE", nil
		}
		return "FALSE", nil

	case KindInt, KindBigInt:
		n, ok := v.(ir.IRInt)
		if !ok {
			return "", literalMismatch(kind, v)
		}
		return strconv.FormatInt(int64(n), 10), nil

	case KindDecimal, KindFloat:
		d, err := toDecimal(v)
		if err != nil {
			return "", err
		}
		text := d.Text('f')
		if kind == KindFloat && !strings.ContainsAny(text, ".") {
			text += "E0"
		}
		return text, nil

	case KindString, KindDateTime, KindGUID:
		s, ok := v.(ir.IRString)
		if !ok {
			return "", literalMismatch(kind, v)
		}
		return QuoteString(string(s)), nil

	case KindBytes:
		s, ok := v.(ir.IRString)
		if !ok {
			return "", literalMismatch(kind, v)
		}
		return "X'" + strings.ToUpper(hex.EncodeToString([]byte(s))) + "'", nil
	}
	return "", errors.Newf("no literal format for kind %s", kind)
}

// QuoteString renders s as a single-quoted SQL string with quotes doubled.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func toDecimal(v ir.IRValue) (*apd.Decimal, error) {
	switch val := v.(type) {
	case ir.IRDecimal:
		return val.Decimal(), nil
	case ir.IRInt:
		return apd.New(int64(val), 0), nil
	}
	return nil, literalMismatch(KindDecimal, v)
}

func literalMismatch(kind Kind, v ir.IRValue) error {
	return errors.Newf("value of type %T cannot be formatted as a %s literal", v, kind)
}
