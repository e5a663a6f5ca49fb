package querydoc

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/relq/internal/ir"
)

// Document is the YAML form of one statement plus the tables and parameter
// values it runs against. Exactly one of Select, Update and Delete is set.
type Document struct {
	Tables     []ir.TableSpec           `yaml:"tables"`
	Parameters map[string]ParameterSpec `yaml:"parameters"`
	// Subqueries are named selects referenced as $name by exists, scalar
	// and in-select expressions.
	Subqueries map[string]*SelectSpec `yaml:"subqueries"`

	Select *SelectSpec `yaml:"select"`
	Update *UpdateSpec `yaml:"update"`
	Delete *DeleteSpec `yaml:"delete"`
}

// ParameterSpec declares a parameter's type and the value it is bound to.
// A list value declares an expanded list parameter of the element type.
type ParameterSpec struct {
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// SelectSpec is a select, or a set operation when one of Union, Intersect
// or Except lists its operands.
type SelectSpec struct {
	Distinct bool             `yaml:"distinct"`
	Project  []ProjectionSpec `yaml:"project"`
	From     []SourceSpec     `yaml:"from"`
	Where    string           `yaml:"where"`
	GroupBy  []string         `yaml:"group_by"`
	Having   string           `yaml:"having"`
	OrderBy  []OrderSpec      `yaml:"order_by"`
	Limit    string           `yaml:"limit"`
	Offset   string           `yaml:"offset"`

	Union     []*SelectSpec `yaml:"union"`
	Intersect []*SelectSpec `yaml:"intersect"`
	Except    []*SelectSpec `yaml:"except"`
	// All keeps duplicates in a set operation.
	All bool `yaml:"all"`
	// As names the set operation's table source. Default "s".
	As string `yaml:"as"`
}

// ProjectionSpec is "expr" or {expr: ..., as: ...}.
type ProjectionSpec struct {
	Expr string `yaml:"expr"`
	As   string `yaml:"as"`
}

func (p *ProjectionSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Expr = value.Value
		return nil
	}
	type plain ProjectionSpec
	return value.Decode((*plain)(p))
}

// OrderSpec is "expr" or {expr: ..., desc: true}.
type OrderSpec struct {
	Expr string `yaml:"expr"`
	Desc bool   `yaml:"desc"`
}

func (o *OrderSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		o.Expr = value.Value
		return nil
	}
	type plain OrderSpec
	return value.Decode((*plain)(o))
}

// SourceSpec is one FROM entry: a table name, or a mapping naming a table,
// a nested select, a set operation, a VALUES list, raw SQL or a table-valued
// function. Join turns the entry into a join of that kind.
type SourceSpec struct {
	Table  string `yaml:"table"`
	Schema string `yaml:"schema"`
	As     string `yaml:"as"`

	// Join is inner, left, cross, cross-apply or outer-apply.
	Join string `yaml:"join"`
	On   string `yaml:"on"`

	Select *SelectSpec `yaml:"select"`

	// Rows are VALUES rows, each a space-separated list of expressions.
	Rows []string `yaml:"rows"`

	SQL      string   `yaml:"sql"`
	Function string   `yaml:"function"`
	Args     []string `yaml:"args"`

	// Columns names VALUES columns, or declares the columns of raw SQL and
	// table-valued function sources as name:type, with a trailing ? for a
	// nullable column.
	Columns []string `yaml:"columns"`
}

func (s *SourceSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Table = value.Value
		return nil
	}
	type plain SourceSpec
	return value.Decode((*plain)(s))
}

// SetterSpec is one SET assignment.
type SetterSpec struct {
	Column string `yaml:"column"`
	Value  string `yaml:"value"`
}

// UpdateSpec describes UPDATE table SET ... FROM ... WHERE .... From lists
// every table source including the target; it defaults to the target alone.
type UpdateSpec struct {
	Table string       `yaml:"table"`
	As    string       `yaml:"as"`
	Set   []SetterSpec `yaml:"set"`
	From  []SourceSpec `yaml:"from"`
	Where string       `yaml:"where"`
}

// DeleteSpec describes DELETE FROM table WHERE .... The remaining fields
// let a document express selects the generator must refuse.
type DeleteSpec struct {
	Table   string       `yaml:"table"`
	As      string       `yaml:"as"`
	From    []SourceSpec `yaml:"from"`
	Where   string       `yaml:"where"`
	OrderBy []OrderSpec  `yaml:"order_by"`
	Limit   string       `yaml:"limit"`
}

// Parse decodes a document. Unknown keys are errors.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty query document")
		}
		return nil, errors.Wrap(err, "decode query document")
	}

	n := 0
	for _, set := range []bool{doc.Select != nil, doc.Update != nil, doc.Delete != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return nil, errors.Newf("query document needs exactly one of select, update or delete (found %d)", n)
	}
	return &doc, nil
}
