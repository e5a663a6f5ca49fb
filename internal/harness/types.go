package harness

import (
	"github.com/roach88/relq/internal/store"
)

// StepResult is what one step produced.
type StepResult struct {
	Name    string
	Dialect string

	SQL       string
	Bindings  []string
	Cacheable bool
	CacheHit  bool

	// Rows is nil unless the step was executed.
	Rows []store.Row

	// Err is the compilation error text, empty on success.
	Err string
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step met its expectations.
	Pass bool

	// Steps holds one entry per scenario step, in order.
	Steps []StepResult

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
