// Package sqlerr defines the translation errors raised while normalizing and
// rendering statements. None of them is retried: each reports either a defect
// in upstream IR construction or a query shape that cannot be expressed.
package sqlerr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// TranslationError represents an error detected while compiling a statement.
//
// Translation errors include:
//   - Unsupported shape: an UPDATE/DELETE whose underlying select cannot be rendered
//   - Missing type mapping: a scalar node reached rendering without a mapping
//   - Unhandled node: a node variant no visitor or extension handles
//   - Unsafe raw SQL: a raw fragment that cannot be composed as a subquery
//   - Invalid IR: the statement violates a structural invariant
type TranslationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Operation names the user-facing operation that failed (ExecuteDelete, ...).
	Operation string

	// Node describes the offending node, when there is one.
	Node string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes translation errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedShape indicates a statement shape the generator cannot render.
	ErrCodeUnsupportedShape ErrorCode = "UNSUPPORTED_SHAPE"

	// ErrCodeMissingTypeMapping indicates a scalar node without a resolved type mapping.
	ErrCodeMissingTypeMapping ErrorCode = "MISSING_TYPE_MAPPING"

	// ErrCodeUnhandledNode indicates a node variant no visitor handles.
	ErrCodeUnhandledNode ErrorCode = "UNHANDLED_NODE"

	// ErrCodeUnsafeRawSQL indicates a raw SQL fragment that is not composable.
	ErrCodeUnsafeRawSQL ErrorCode = "UNSAFE_RAW_SQL"

	// ErrCodeInvalidIR indicates a statement that violates an IR invariant.
	ErrCodeInvalidIR ErrorCode = "INVALID_IR"
)

// Error implements the error interface.
func (e *TranslationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Operation != "" {
		fmt.Fprintf(&b, " (operation=%s)", e.Operation)
	}
	if e.Node != "" {
		fmt.Fprintf(&b, " (node=%s)", e.Node)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
		}
	}
	return b.String()
}

func hasCode(err error, code ErrorCode) bool {
	var te *TranslationError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// CodeOf returns the code of the first TranslationError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var te *TranslationError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsUnsupportedShape returns true if the error is an unsupported-shape error.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedShape(err error) bool { return hasCode(err, ErrCodeUnsupportedShape) }

// IsMissingTypeMapping returns true if the error is a missing-type-mapping error.
func IsMissingTypeMapping(err error) bool { return hasCode(err, ErrCodeMissingTypeMapping) }

// IsUnhandledNode returns true if the error is an unhandled-node error.
func IsUnhandledNode(err error) bool { return hasCode(err, ErrCodeUnhandledNode) }

// IsUnsafeRawSQL returns true if the error is an unsafe raw SQL error.
func IsUnsafeRawSQL(err error) bool { return hasCode(err, ErrCodeUnsafeRawSQL) }

// IsInvalidIR returns true if the error is an invalid IR error.
func IsInvalidIR(err error) bool { return hasCode(err, ErrCodeInvalidIR) }

// NewUnsupportedShape creates a TranslationError for a statement the generator
// cannot render, naming the operation that must be reformulated.
func NewUnsupportedShape(operation, reason string) *TranslationError {
	return &TranslationError{
		Code:      ErrCodeUnsupportedShape,
		Message:   fmt.Sprintf("the query could not be translated for %s: %s", operation, reason),
		Operation: operation,
	}
}

// NewMissingTypeMapping creates a TranslationError for an untyped scalar node.
func NewMissingTypeMapping(node string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeMissingTypeMapping,
		Message: "null type mapping",
		Node:    node,
	}
}

// NewUnhandledNode creates a TranslationError for a node no visitor handles.
func NewUnhandledNode(component, node string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeUnhandledNode,
		Message: fmt.Sprintf("unhandled expression kind in %s", component),
		Node:    node,
	}
}

// NewUnsafeRawSQL creates a TranslationError for a raw SQL fragment that may
// not be nested, carrying a hint for the caller.
func NewUnsafeRawSQL(sql string) error {
	te := &TranslationError{
		Code:    ErrCodeUnsafeRawSQL,
		Message: "raw SQL is not composable",
		Details: map[string]string{"sql": truncate(sql, 60)},
	}
	return errors.WithHint(te,
		"only a statement starting with SELECT or WITH can be used as a subquery; "+
			"materialize the raw query or rewrite it as a SELECT")
}

// NewInvalidIR creates a TranslationError listing IR invariant violations.
func NewInvalidIR(issues []string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeInvalidIR,
		Message: strings.Join(issues, "; "),
		Details: map[string]string{"issues": fmt.Sprintf("%d", len(issues))},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
