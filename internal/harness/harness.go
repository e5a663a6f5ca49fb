package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"

	"github.com/roach88/relq/internal/compiler"
	"github.com/roach88/relq/internal/engine"
	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/nullsem"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/querydoc"
	"github.com/roach88/relq/internal/querysql"
	"github.com/roach88/relq/internal/store"
	"github.com/roach88/relq/internal/testutil"
)

// Harness runs the steps of one scenario.
type Harness struct {
	store   *store.Store
	catalog *ir.Catalog
	factory *queryir.Factory
	ids     *testutil.SequentialIDs
	logger  *slog.Logger

	relationalNulls bool
	engines         map[engineKey]*engine.Engine
}

// engineKey selects one engine. Each engine owns its command cache, so
// normalized and raw renderings never share entries.
type engineKey struct {
	dialect   string
	normalize bool
}

// Option configures a harness run.
type Option func(*Harness)

// WithLogger routes engine logs to logger. By default they are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, and
// compile IDs come from a sequential generator so reruns are identical.
//
// Execution flow:
//  1. Compile the catalog and create its tables
//  2. Seed tables
//  3. Compile each step's query, check the text, and execute it on SQLite
//     when rows are expected
//
// The returned error reports a broken scenario (bad catalog, failed seed);
// unmet expectations are reported through Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	ctx := context.Background()

	catalog, err := compiler.LoadCatalog(scenario.Catalog...)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	catalog.Tables = append(catalog.Tables, scenario.Tables...)

	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:           st,
		catalog:         catalog,
		factory:         queryir.DefaultFactory(),
		ids:             testutil.NewSequentialIDs("compile"),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		relationalNulls: scenario.RelationalNulls,
		engines:         make(map[engineKey]*engine.Engine),
	}
	for _, opt := range opts {
		opt(h)
	}

	for _, t := range catalog.Tables {
		if err := st.CreateTable(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}
	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	result := NewResult()
	for i := range scenario.Steps {
		h.runStep(ctx, &scenario.Steps[i], result)
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, seeds []SeedStep) error {
	for i, s := range seeds {
		spec, ok := h.catalog.Table(s.Table)
		if !ok {
			return fmt.Errorf("seed[%d]: unknown table %q", i, s.Table)
		}

		if s.Combinations != nil {
			domain := make(map[string][]ir.IRValue, len(s.Combinations))
			for typ, vals := range s.Combinations {
				converted, err := fromGoAll(vals)
				if err != nil {
					return fmt.Errorf("seed[%d]: %s domain: %w", i, typ, err)
				}
				domain[typ] = converted
			}
			n, err := h.store.SeedCombinations(ctx, *spec, domain)
			if err != nil {
				return fmt.Errorf("seed[%d]: %w", i, err)
			}
			h.logger.Debug("seeded combinations", "table", s.Table, "rows", n)
			continue
		}

		columns := make([]string, len(spec.Columns))
		for j, c := range spec.Columns {
			columns[j] = c.Name
		}
		rows := make([][]ir.IRValue, len(s.Rows))
		for j, r := range s.Rows {
			converted, err := fromGoAll(r)
			if err != nil {
				return fmt.Errorf("seed[%d] row %d: %w", i, j, err)
			}
			rows[j] = converted
		}
		if err := h.store.Insert(ctx, s.Table, columns, rows); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}
	return nil
}

// engine returns the engine for dialect, creating it on first use.
func (h *Harness) engine(dialect string, normalize bool) (*engine.Engine, error) {
	key := engineKey{dialect: dialect, normalize: normalize}
	if e, ok := h.engines[key]; ok {
		return e, nil
	}
	d, err := querysql.DialectByName(dialect)
	if err != nil {
		return nil, err
	}
	e := engine.New(d,
		engine.WithFactory(h.factory),
		engine.WithIDGenerator(h.ids),
		engine.WithLogger(h.logger),
		engine.WithNormalization(normalize),
		engine.WithRelationalNulls(h.relationalNulls),
	)
	h.engines[key] = e
	return e, nil
}

// runStep compiles one step and records its outcome. Every failure, load
// errors included, becomes a Result error.
func (h *Harness) runStep(ctx context.Context, step *Step, result *Result) {
	sr := StepResult{Name: step.Name, Dialect: step.Dialect}
	fail := func(format string, args ...any) {
		result.AddError(fmt.Sprintf("step %q: ", step.Name) + fmt.Sprintf(format, args...))
	}
	defer func() { result.Steps = append(result.Steps, sr) }()

	compiled, err := h.compile(ctx, step)
	if err != nil {
		sr.Err = err.Error()
		switch {
		case step.Expect.Error == "":
			fail("unexpected error: %v", err)
		case !strings.Contains(sr.Err, step.Expect.Error):
			fail("expected error containing %q, got %q", step.Expect.Error, sr.Err)
		}
		return
	}

	sr.SQL = compiled.SQL
	sr.Bindings = bindingNames(compiled.Bindings)
	sr.Cacheable = compiled.Cacheable
	sr.CacheHit = compiled.CacheHit

	exp := &step.Expect
	if exp.Error != "" {
		fail("expected error containing %q, compiled to:\n%s", exp.Error, compiled.SQL)
		return
	}
	if exp.SQL != "" && strings.TrimSpace(exp.SQL) != strings.TrimSpace(compiled.SQL) {
		fail("sql mismatch\n  Expected:\n%s\n  Actual:\n%s", strings.TrimSpace(exp.SQL), compiled.SQL)
	}
	for _, frag := range exp.SQLContains {
		if !strings.Contains(compiled.SQL, frag) {
			fail("sql does not contain %q:\n%s", frag, compiled.SQL)
		}
	}
	if exp.Cacheable != nil && *exp.Cacheable != compiled.Cacheable {
		fail("expected cacheable=%t, got %t", *exp.Cacheable, compiled.Cacheable)
	}
	if exp.CacheHit != nil && *exp.CacheHit != compiled.CacheHit {
		fail("expected cache_hit=%t, got %t", *exp.CacheHit, compiled.CacheHit)
	}
	if exp.Bindings != nil {
		if diff := cmp.Diff(exp.Bindings, sr.Bindings, cmpopts.EquateEmpty()); diff != "" {
			fail("bindings mismatch (-want +got):\n%s", diff)
		}
	}

	if !exp.executes() {
		return
	}
	rows, err := h.store.Query(ctx, compiled.SQL, compiled.Bindings, compiled.Parameters)
	if err != nil {
		fail("execution failed: %v", err)
		return
	}
	sr.Rows = rows
	if sr.Rows == nil {
		sr.Rows = []store.Row{}
	}
	if exp.RowCount != nil && *exp.RowCount != len(rows) {
		fail("expected %d rows, got %d", *exp.RowCount, len(rows))
	}
	if exp.Rows != nil {
		if err := checkRows(exp.Rows, exp.Ordered, rows); err != nil {
			fail("%v", err)
		}
	}
}

func (h *Harness) compile(ctx context.Context, step *Step) (*engine.Compiled, error) {
	q, err := h.loadQuery(step)
	if err != nil {
		return nil, err
	}
	params, err := overrideParams(q.Parameters, step.Params)
	if err != nil {
		return nil, err
	}
	eng, err := h.engine(step.Dialect, !step.NoNormalize)
	if err != nil {
		return nil, err
	}
	return eng.Compile(ctx, q.Statement, params)
}

func (h *Harness) loadQuery(step *Step) (*querydoc.Query, error) {
	var (
		data []byte
		err  error
	)
	if step.QueryFile != "" {
		data, err = os.ReadFile(step.QueryFile)
	} else {
		data, err = yaml.Marshal(&step.Query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read query: %w", err)
	}
	return querydoc.Load(data, h.factory, h.catalog)
}

// overrideParams replaces declared parameter values. Overrides may not
// introduce parameters the query does not declare.
func overrideParams(declared nullsem.Parameters, overrides map[string]any) (nullsem.Parameters, error) {
	if len(overrides) == 0 {
		return declared, nil
	}
	extra := make(nullsem.Parameters, len(overrides))
	for name, v := range overrides {
		if _, ok := declared[name]; !ok {
			return nil, fmt.Errorf("params: %q is not declared by the query", name)
		}
		irv, err := ir.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("params: %s: %w", name, err)
		}
		extra[name] = irv
	}
	return declared.With(extra), nil
}

func bindingNames(bindings []querysql.Binding) []string {
	return (&querysql.Command{Bindings: bindings}).BindingNames()
}

func fromGoAll(vals []any) ([]ir.IRValue, error) {
	out := make([]ir.IRValue, len(vals))
	for i, v := range vals {
		irv, err := ir.FromGo(v)
		if err != nil {
			return nil, err
		}
		out[i] = irv
	}
	return out, nil
}

// checkRows compares result rows by their text rendering, so an expected
// 10 matches an INTEGER 10 and a NUMERIC 10.
func checkRows(want [][]any, ordered bool, got []store.Row) error {
	wantText := make([][]string, len(want))
	for i, r := range want {
		vals, err := fromGoAll(r)
		if err != nil {
			return fmt.Errorf("expected row %d: %w", i, err)
		}
		wantText[i] = renderRow(vals)
	}
	gotText := make([][]string, len(got))
	for i, r := range got {
		gotText[i] = renderRow(r)
	}
	if !ordered {
		sortRows(wantText)
		sortRows(gotText)
	}
	if diff := cmp.Diff(wantText, gotText, cmpopts.EquateEmpty()); diff != "" {
		return fmt.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	return nil
}

func sortRows(rows [][]string) {
	sort.Slice(rows, func(i, j int) bool {
		return strings.Join(rows[i], "\x00") < strings.Join(rows[j], "\x00")
	})
}

func renderRow(vals []ir.IRValue) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = FormatValue(v)
	}
	return out
}

// FormatValue renders a result value: NULL, a number or bool in Go
// notation, or a string as is.
func FormatValue(v ir.IRValue) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return "NULL"
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10)
	case ir.IRBool:
		return strconv.FormatBool(bool(val))
	case ir.IRDecimal:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
