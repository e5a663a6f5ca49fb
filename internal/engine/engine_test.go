package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/cmdcache"
	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/nullsem"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/querysql"
	"github.com/roach88/relq/internal/sqlerr"
	"github.com/roach88/relq/internal/typemap"
)

var (
	f       = queryir.DefaultFactory()
	intType = typemap.New("int", typemap.KindInt)
	a       = f.Column("t", "a", true, intType)
	p       = f.Parameter("p", intType)
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(quietLogger()),
		WithIDGenerator(NewFixedGenerator("c-1", "c-2", "c-3", "c-4")),
	}
	return New(querysql.Standard{}, append(base, opts...)...)
}

func selectWhere(pred queryir.Expression) *queryir.Select {
	return &queryir.Select{
		Projection: []queryir.Projection{{Expr: a}},
		Tables:     []queryir.TableSource{&queryir.Table{Name: "t", Alias: "t"}},
		Predicate:  pred,
	}
}

const selectPrefix = "SELECT \"t\".\"a\"\nFROM \"t\"\nWHERE "

func TestEngine_Compile(t *testing.T) {
	tests := []struct {
		name   string
		pred   queryir.Expression
		params nullsem.Parameters
		want   string
	}{
		{
			name:   "non-null parameter keeps equality",
			pred:   f.Equal(a, p),
			params: nullsem.Parameters{"p": ir.IRInt(3)},
			want:   `"t"."a" = @p`,
		},
		{
			name:   "null parameter becomes a null probe",
			pred:   f.Equal(a, p),
			params: nullsem.Parameters{"p": ir.IRNull{}},
			want:   `"t"."a" IS NULL`,
		},
		{
			name:   "inequality compensates the nullable column",
			pred:   f.NotEqual(a, p),
			params: nullsem.Parameters{"p": ir.IRInt(3)},
			want:   `"t"."a" <> @p OR "t"."a" IS NULL`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			got, err := e.Compile(context.Background(), selectWhere(tt.pred), tt.params)
			require.NoError(t, err)
			assert.Equal(t, selectPrefix+tt.want, got.SQL)
			assert.Equal(t, "c-1", got.ID)
			assert.True(t, got.Cacheable)
			assert.False(t, got.CacheHit)
			assert.NotEmpty(t, got.ShapeHash)
		})
	}
}

func TestEngine_CacheByNullSignature(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	stmt := selectWhere(f.Equal(a, p))

	first, err := e.Compile(ctx, stmt, nullsem.Parameters{"p": ir.IRInt(1)})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := e.Compile(ctx, stmt, nullsem.Parameters{"p": ir.IRInt(2)})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, "c-2", second.ID)
	assert.Equal(t, first.SQL, second.SQL)
	assert.Equal(t, ir.IRInt(2), second.Parameters["p"])

	nulled, err := e.Compile(ctx, stmt, nullsem.Parameters{"p": ir.IRNull{}})
	require.NoError(t, err)
	assert.False(t, nulled.CacheHit)
	assert.NotEqual(t, first.SQL, nulled.SQL)

	assert.Equal(t, 2, e.Cache().Len())
}

func TestEngine_ListParameterIsNotCached(t *testing.T) {
	e := newEngine(t)
	stmt := selectWhere(f.InParameter(a, f.Parameter("ids", intType), false))
	params := nullsem.Parameters{"ids": ir.IRArray{ir.IRInt(1), ir.IRInt(2)}}

	got, err := e.Compile(context.Background(), stmt, params)
	require.NoError(t, err)
	assert.False(t, got.Cacheable)
	assert.Greater(t, len(got.Parameters), len(params))
	assert.Equal(t, 0, e.Cache().Len())
	for _, b := range got.Bindings {
		_, ok := got.Parameters[b.Name]
		assert.True(t, ok, "binding %s has a value", b.Name)
	}
}

func TestEngine_WithoutCache(t *testing.T) {
	e := newEngine(t, WithCache(nil))
	stmt := selectWhere(f.Equal(a, p))
	params := nullsem.Parameters{"p": ir.IRInt(1)}

	for range 2 {
		got, err := e.Compile(context.Background(), stmt, params)
		require.NoError(t, err)
		assert.False(t, got.CacheHit)
	}
	assert.Nil(t, e.Cache())
}

func TestEngine_SharedCache(t *testing.T) {
	cache := cmdcache.New(8)
	stmt := selectWhere(f.Equal(a, p))
	params := nullsem.Parameters{"p": ir.IRInt(1)}

	_, err := newEngine(t, WithCache(cache)).Compile(context.Background(), stmt, params)
	require.NoError(t, err)

	sqlite := New(querysql.SQLite{}, WithCache(cache), WithLogger(quietLogger()))
	got, err := sqlite.Compile(context.Background(), stmt, params)
	require.NoError(t, err)
	assert.False(t, got.CacheHit, "the dialect is part of the key")
	assert.Equal(t, 2, cache.Len())
}

func TestEngine_SharedCacheAcrossModes(t *testing.T) {
	cache := cmdcache.New(8)
	ctx := context.Background()
	stmt := selectWhere(f.NotEqual(a, p))
	params := nullsem.Parameters{"p": ir.IRInt(3)}

	normalized, err := newEngine(t, WithCache(cache)).Compile(ctx, stmt, params)
	require.NoError(t, err)
	assert.Equal(t, selectPrefix+`"t"."a" <> @p OR "t"."a" IS NULL`, normalized.SQL)

	tests := []struct {
		name string
		opts []Option
		want string
		hit  bool
	}{
		{"raw", []Option{WithNormalization(false)}, `"t"."a" <> @p`, false},
		{"relational", []Option{WithRelationalNulls(true)}, `"t"."a" <> @p`, false},
		{"normalized", nil, `"t"."a" <> @p OR "t"."a" IS NULL`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newEngine(t, append(tt.opts, WithCache(cache))...).Compile(ctx, stmt, params)
			require.NoError(t, err)
			assert.Equal(t, selectPrefix+tt.want, got.SQL)
			assert.Equal(t, tt.hit, got.CacheHit)
		})
	}
	assert.Equal(t, 3, cache.Len())
}

func TestEngine_WithoutNormalization(t *testing.T) {
	e := newEngine(t, WithNormalization(false))
	got, err := e.Compile(context.Background(), selectWhere(f.NotEqual(a, p)), nullsem.Parameters{"p": ir.IRInt(3)})
	require.NoError(t, err)
	assert.Equal(t, selectPrefix+`"t"."a" <> @p`, got.SQL)
}

func TestEngine_RelationalNulls(t *testing.T) {
	e := newEngine(t, WithRelationalNulls(true))
	got, err := e.Compile(context.Background(), selectWhere(f.NotEqual(a, p)), nullsem.Parameters{"p": ir.IRInt(3)})
	require.NoError(t, err)
	assert.Equal(t, selectPrefix+`"t"."a" <> @p`, got.SQL)
}

func TestEngine_Errors(t *testing.T) {
	t.Run("invalid IR", func(t *testing.T) {
		untyped := &queryir.Column{Table: "t", Name: "b"}
		_, err := newEngine(t).Compile(context.Background(), selectWhere(f.Equal(a, untyped)), nil)
		require.Error(t, err)
		assert.True(t, sqlerr.IsInvalidIR(err), "got %v", err)
	})

	t.Run("unsupported shape", func(t *testing.T) {
		del := &queryir.Delete{
			Table: &queryir.Table{Name: "t", Alias: "t"},
			Select: &queryir.Select{
				Tables:    []queryir.TableSource{&queryir.Table{Name: "t", Alias: "t"}},
				Orderings: []queryir.Ordering{{Expr: a, Ascending: true}},
			},
		}
		_, err := newEngine(t).Compile(context.Background(), del, nil)
		require.Error(t, err)
		assert.True(t, sqlerr.IsUnsupportedShape(err), "got %v", err)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newEngine(t).Compile(ctx, selectWhere(nil), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("nil statement", func(t *testing.T) {
		_, err := newEngine(t).Compile(context.Background(), nil, nil)
		assert.Error(t, err)
	})
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("x", "y")
	assert.Equal(t, "x", g.Generate())
	assert.Equal(t, "y", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	first, second := g.Generate(), g.Generate()
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
	assert.Equal(t, byte('7'), first[14], "version nibble")
}
