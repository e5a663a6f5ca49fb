package nullsem

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/queryir"
)

// Result is the outcome of normalizing one statement.
type Result struct {
	// Statement is the rewritten statement, of the same kind as the input.
	Statement queryir.Statement

	// Cacheable is false when the rewrite depended on parameter values and
	// not only on their nullness.
	Cacheable bool

	// Parameters is the input environment plus any synthesized entries.
	Parameters Parameters
}

// Visitor is the view of an in-progress normalization given to extensions.
type Visitor interface {
	// Visit normalizes e and reports whether the result may be null.
	Visit(e queryir.Expression, optimize bool) (queryir.Expression, bool)
	// Factory builds typed nodes for rewrites.
	Factory() *queryir.Factory
	// Fail aborts the normalization with err.
	Fail(err error)
}

// Extension lets a provider take over normalization of selected nodes. It is
// consulted before the built-in rules; returning handled=false declines.
type Extension interface {
	VisitExpression(v Visitor, e queryir.Expression, optimize bool) (out queryir.Expression, nullable, handled bool)
}

// ExtensionFunc adapts a function to the Extension interface.
type ExtensionFunc func(v Visitor, e queryir.Expression, optimize bool) (queryir.Expression, bool, bool)

func (f ExtensionFunc) VisitExpression(v Visitor, e queryir.Expression, optimize bool) (queryir.Expression, bool, bool) {
	return f(v, e, optimize)
}

// Normalizer rewrites statements so that three-valued evaluation matches
// two-valued comparison semantics. A Normalizer holds no per-statement state
// and is safe for concurrent use.
type Normalizer struct {
	factory         *queryir.Factory
	relationalNulls bool
	extension       Extension
	logger          *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithRelationalNulls disables compensation entirely: comparisons keep plain
// SQL null semantics.
func WithRelationalNulls(enabled bool) Option {
	return func(n *Normalizer) { n.relationalNulls = enabled }
}

// WithExtension installs a provider hook for node handling.
func WithExtension(ext Extension) Option {
	return func(n *Normalizer) { n.extension = ext }
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = logger }
}

// WithFactory sets the factory used for synthesized nodes.
func WithFactory(f *queryir.Factory) Option {
	return func(n *Normalizer) { n.factory = f }
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		factory: queryir.DefaultFactory(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize rewrites stmt using params to decide parameter nullness.
func (n *Normalizer) Normalize(stmt queryir.Statement, params Parameters) (*Result, error) {
	if stmt == nil {
		return nil, errors.New("normalize: nil statement")
	}

	p := &processor{
		n:           n,
		f:           n.factory,
		params:      params,
		synthesized: Parameters{},
		cacheable:   true,
	}

	out := p.statement(stmt)
	if p.err != nil {
		return nil, p.err
	}

	n.logger.Debug("statement normalized",
		"cacheable", p.cacheable,
		"synthesized_params", len(p.synthesized),
		"relational_nulls", n.relationalNulls)

	return &Result{
		Statement:  out,
		Cacheable:  p.cacheable,
		Parameters: params.With(p.synthesized),
	}, nil
}
