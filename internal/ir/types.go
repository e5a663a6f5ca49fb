package ir

import (
	"fmt"
	"slices"
)

// Catalog is a compiled set of table definitions.
// Tables are kept in definition order; use Table for lookups.
type Catalog struct {
	Tables []TableSpec `json:"tables" yaml:"tables"`
}

// TableSpec describes one base table: its name, optional schema, and columns.
type TableSpec struct {
	Name    string       `json:"name" yaml:"name"`
	Schema  string       `json:"schema,omitempty" yaml:"schema,omitempty"`
	Columns []ColumnSpec `json:"columns" yaml:"columns"`
}

// ColumnSpec describes a column. Type is a logical type name (see ValidTypes);
// StoreType optionally overrides the store type the mapping source would pick.
type ColumnSpec struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Nullable  bool   `json:"nullable" yaml:"nullable"`
	StoreType string `json:"store_type,omitempty" yaml:"store_type,omitempty"`
}

// ValidTypes defines the logical column types a catalog may use.
var ValidTypes = map[string]bool{
	"bool":     true,
	"int":      true,
	"bigint":   true,
	"decimal":  true,
	"float":    true,
	"string":   true,
	"bytes":    true,
	"datetime": true,
	"guid":     true,
}

// ValidationError represents a catalog validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Table looks up a table by name.
func (c *Catalog) Table(name string) (*TableSpec, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i], true
		}
	}
	return nil, false
}

// Column looks up a column by name.
func (t *TableSpec) Column(name string) (*ColumnSpec, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Validate checks the table against catalog rules.
// Returns all errors (not fail-fast).
func (t *TableSpec) Validate() []ValidationError {
	var errs []ValidationError

	if t.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "table name is required"})
	}
	if len(t.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   t.Name + ".columns",
			Message: "at least one column is required",
		})
	}

	seen := make(map[string]bool, len(t.Columns))
	for i, col := range t.Columns {
		field := fmt.Sprintf("%s.columns[%d]", t.Name, i)
		if col.Name == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "column name is required"})
		}
		if seen[col.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate column name: %q", col.Name),
			})
		}
		seen[col.Name] = true
		if !ValidTypes[col.Type] {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("invalid type %q (valid: %v)", col.Type, validTypeNames()),
			})
		}
	}

	return errs
}

func validTypeNames() []string {
	names := make([]string, 0, len(ValidTypes))
	for n := range ValidTypes {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
