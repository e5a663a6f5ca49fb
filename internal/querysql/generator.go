package querysql

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/typemap"
)

// Command is rendered statement text plus the parameters it references.
type Command struct {
	SQL      string
	Bindings []Binding
}

// Binding associates a placeholder in Command.SQL with the IR parameter that
// supplies its value and the mapping used to encode it.
type Binding struct {
	Placeholder string
	Name        string
	Type        *typemap.TypeMapping
}

// BindingNames returns the parameter names in binding order.
func (c *Command) BindingNames() []string {
	names := make([]string, len(c.Bindings))
	for i, b := range c.Bindings {
		names[i] = b.Name
	}
	return names
}

// Generator renders Query IR statements to SQL text for one dialect.
// It holds no per-statement state and is safe for concurrent use.
type Generator struct {
	dialect Dialect
	logger  *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorLogger sets the logger. Default is slog.Default().
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a Generator for dialect d.
func NewGenerator(d Dialect, opts ...GeneratorOption) *Generator {
	g := &Generator{dialect: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dialect returns the generator's dialect.
func (g *Generator) Dialect() Dialect { return g.dialect }

// Generate renders stmt.
//
// Errors are sqlerr.TranslationErrors: an UPDATE or DELETE whose select has
// an unsupported shape, an untyped scalar, an unknown node variant or a raw
// SQL source that cannot be nested.
func (g *Generator) Generate(stmt queryir.Statement) (*Command, error) {
	if stmt == nil {
		return nil, errors.New("generate: nil statement")
	}

	b := &commandBuilder{d: g.dialect, sb: &strings.Builder{}}
	b.statement(stmt)
	if b.err != nil {
		return nil, b.err
	}

	cmd := &Command{SQL: b.sb.String(), Bindings: b.bindings}
	g.logger.Debug("statement rendered",
		"dialect", g.dialect.Name(),
		"bindings", len(cmd.Bindings),
		"length", len(cmd.SQL))
	return cmd, nil
}

const indentUnit = "    "

// commandBuilder accumulates the text and bindings of one Generate call.
// The first error stops all further output.
type commandBuilder struct {
	d        Dialect
	sb       *strings.Builder
	indent   int
	bindings []Binding
	// usedNames holds the names placeholders were rendered from.
	usedNames map[string]bool
	err       error
}

func (b *commandBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *commandBuilder) WriteString(s string) {
	if b.err == nil {
		b.sb.WriteString(s)
	}
}

func (b *commandBuilder) Expression(e queryir.Expression) { b.value(e) }

// capture renders into a separate buffer and returns the text. Bindings are
// still registered on b.
func (b *commandBuilder) capture(render func()) string {
	saved := b.sb
	b.sb = &strings.Builder{}
	render()
	out := b.sb.String()
	b.sb = saved
	return out
}

func (b *commandBuilder) newline() {
	b.WriteString("\n" + strings.Repeat(indentUnit, b.indent))
}

func (b *commandBuilder) ident(name string) {
	b.WriteString(b.d.QuoteIdentifier(name))
}

// qualifiedName renders [schema.]name.
func (b *commandBuilder) qualifiedName(schema, name string) {
	if schema != "" {
		b.ident(schema)
		b.WriteString(".")
	}
	b.ident(name)
}

func (b *commandBuilder) alias(alias string) {
	if alias != "" {
		b.WriteString(" AS ")
		b.ident(alias)
	}
}

// list renders items separated by ", ".
func list[T any](b *commandBuilder, items []T, render func(T)) {
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		render(it)
	}
}

// parameter registers a binding for p and writes its placeholder. A name
// already bound with an equal mapping reuses the placeholder; a different
// mapping gets a suffixed placeholder of its own.
func (b *commandBuilder) parameter(p *queryir.Parameter) {
	for _, existing := range b.bindings {
		if existing.Name == p.Name && existing.Type.Equal(p.Mapping) {
			b.WriteString(existing.Placeholder)
			return
		}
	}

	name := p.Name
	for n := 1; b.usedNames[name]; n++ {
		name = p.Name + "_" + strconv.Itoa(n)
	}
	if b.usedNames == nil {
		b.usedNames = make(map[string]bool)
	}
	b.usedNames[name] = true

	placeholder := b.d.ParameterPlaceholder(name, len(b.bindings))
	b.bindings = append(b.bindings, Binding{Placeholder: placeholder, Name: p.Name, Type: p.Mapping})
	b.WriteString(placeholder)
}
