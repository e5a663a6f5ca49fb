package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/cmdcache"
	"github.com/roach88/relq/internal/nullsem"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/querysql"
	"github.com/roach88/relq/internal/sqlerr"
)

// Compiled is the result of one compilation.
type Compiled struct {
	// ID identifies this compilation in logs.
	ID string

	SQL      string
	Bindings []querysql.Binding

	// Parameters is the execution environment for Bindings: the caller's
	// parameters plus any the normalizer synthesized.
	Parameters nullsem.Parameters

	// ShapeHash is the canonical hash of the input statement.
	ShapeHash string

	// Cacheable is false when the rendered text depends on parameter values
	// and not only on their nullness.
	Cacheable bool

	// CacheHit is true when the text came from the command cache.
	CacheHit bool
}

// Engine compiles Query IR statements into statement text for one dialect:
// validate, look up the cache, normalize null semantics, render, store.
//
// Thread-safety: Compile is safe for concurrent use. Options must not be
// applied after New returns.
type Engine struct {
	dialect    querysql.Dialect
	factory    *queryir.Factory
	normalizer *nullsem.Normalizer
	generator  *querysql.Generator
	cache      *cmdcache.Cache
	ids        IDGenerator
	logger     *slog.Logger

	normalize       bool
	relationalNulls bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger passed to every stage. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCache replaces the command cache. nil disables caching.
func WithCache(c *cmdcache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithIDGenerator sets the compilation ID source. Default is UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithFactory sets the factory the normalizer builds nodes with.
func WithFactory(f *queryir.Factory) Option {
	return func(e *Engine) { e.factory = f }
}

// WithRelationalNulls keeps plain SQL null semantics: comparisons are not
// compensated.
func WithRelationalNulls(enabled bool) Option {
	return func(e *Engine) { e.relationalNulls = enabled }
}

// WithNormalization turns the null-semantics pass on or off. Default on.
// Without it statements render exactly as given and are always cacheable.
func WithNormalization(enabled bool) Option {
	return func(e *Engine) { e.normalize = enabled }
}

// New creates an Engine rendering for dialect d.
//
// By default the engine caches up to cmdcache.DefaultMaxEntries commands,
// normalizes null semantics and stamps compilations with UUIDv7 IDs.
func New(d querysql.Dialect, opts ...Option) *Engine {
	e := &Engine{
		dialect:   d,
		factory:   queryir.DefaultFactory(),
		cache:     cmdcache.New(cmdcache.DefaultMaxEntries),
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
		normalize: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.normalizer = nullsem.New(
		nullsem.WithFactory(e.factory),
		nullsem.WithRelationalNulls(e.relationalNulls),
		nullsem.WithLogger(e.logger),
	)
	e.generator = querysql.NewGenerator(d, querysql.WithGeneratorLogger(e.logger))
	return e
}

// Dialect returns the engine's dialect.
func (e *Engine) Dialect() querysql.Dialect { return e.dialect }

// Cache returns the command cache, nil when caching is disabled.
func (e *Engine) Cache() *cmdcache.Cache { return e.cache }

// mode names how the engine treats null semantics: "raw" renders the
// statement as given, "relational" keeps three-valued comparisons, and
// "normalized" compensates them.
func (e *Engine) mode() string {
	switch {
	case !e.normalize:
		return "raw"
	case e.relationalNulls:
		return "relational"
	}
	return "normalized"
}

// Compile renders stmt for the engine's dialect with params deciding
// parameter nullness.
//
// Errors:
//   - ctx.Err() when ctx is done before compilation starts
//   - sqlerr INVALID_IR when stmt violates IR invariants
//   - the normalizer's and generator's sqlerr translation errors
func (e *Engine) Compile(ctx context.Context, stmt queryir.Statement, params nullsem.Parameters) (*Compiled, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, errors.New("compile: nil statement")
	}

	start := time.Now()
	id := e.ids.Generate()
	logger := e.logger.With("compile_id", id, "dialect", e.dialect.Name())

	if res := queryir.Validate(stmt); !res.Valid {
		logger.Debug("statement rejected", "issues", len(res.Issues))
		return nil, sqlerr.NewInvalidIR(res.Issues)
	}

	shapeHash, err := queryir.ShapeHash(stmt)
	if err != nil {
		return nil, errors.Wrap(err, "compile: shape hash")
	}
	key := cmdcache.Key{
		ShapeHash:     shapeHash,
		NullSignature: cmdcache.NullSignature(params),
		Dialect:       e.dialect.Name(),
		Mode:          e.mode(),
	}

	if e.cache != nil {
		if entry, ok := e.cache.Get(key); ok {
			logger.Debug("command cache hit",
				"shape_hash", shapeHash,
				"origin", entry.CompileID)
			return &Compiled{
				ID:         id,
				SQL:        entry.Command.SQL,
				Bindings:   entry.Command.Bindings,
				Parameters: params,
				ShapeHash:  shapeHash,
				Cacheable:  true,
				CacheHit:   true,
			}, nil
		}
	}

	out, env, cacheable := stmt, params, true
	if e.normalize {
		res, err := e.normalizer.Normalize(stmt, params)
		if err != nil {
			return nil, err
		}
		out, env, cacheable = res.Statement, res.Parameters, res.Cacheable
	}

	cmd, err := e.generator.Generate(out)
	if err != nil {
		return nil, err
	}

	if cacheable && e.cache != nil {
		e.cache.Add(key, &cmdcache.Entry{Command: cmd, CompileID: id})
	}

	logger.Debug("statement compiled",
		"shape_hash", shapeHash,
		"cacheable", cacheable,
		"bindings", len(cmd.Bindings),
		"elapsed", time.Since(start))

	return &Compiled{
		ID:         id,
		SQL:        cmd.SQL,
		Bindings:   cmd.Bindings,
		Parameters: env,
		ShapeHash:  shapeHash,
		Cacheable:  cacheable,
	}, nil
}
