package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relq/internal/engine"
	"github.com/roach88/relq/internal/queryir"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Catalog     []string
	Params      []string
	NoNormalize bool
}

// BindingResult is one parameter binding of a rendered command.
type BindingResult struct {
	Placeholder string `json:"placeholder"`
	Name        string `json:"name"`
	StoreType   string `json:"store_type,omitempty"`
}

// RenderResult is the output of render.
type RenderResult struct {
	Dialect   string          `json:"dialect"`
	SQL       string          `json:"sql"`
	Bindings  []BindingResult `json:"bindings"`
	Cacheable bool            `json:"cacheable"`
	ShapeHash string          `json:"shape_hash"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <query.yaml>",
		Short: "Render a query document as SQL",
		Long: `Compile a query document against a catalog and print the statement text,
its parameter bindings and whether the text may be cached.

Exit codes:
  0 - Rendered
  1 - The query cannot be translated
  2 - Command error (missing files, bad catalog, bad flags)

Examples:
  relq render orders.yaml --catalog schema.cue
  relq render orders.yaml --catalog schema.cue --dialect postgres --param c=null
  relq render orders.yaml --catalog ./schema --no-normalize --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Catalog, "catalog", "c", nil, "CUE catalog files or directories")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "override a parameter value (name=value)")
	cmd.Flags().BoolVar(&opts.NoNormalize, "no-normalize", false, "render without null-semantics rewriting")

	return cmd
}

func runRender(opts *RenderOptions, docPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions, cmd.Flags())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCommand, err)
	}
	if err := checkPaths(append([]string{docPath}, opts.Catalog...)...); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCommand, err)
	}

	catalog, err := loadCatalog(opts.Catalog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err)
	}
	formatter.VerboseLog("Loaded %d table(s)", len(catalog.Tables))

	f := queryir.DefaultFactory()
	query, err := loadDocument(docPath, f, catalog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoad, err)
	}
	params, err := applyParams(query.Parameters, opts.Params)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCommand, err)
	}

	eng, err := newEngine(cfg, opts.Verbose, formatter.GetErrWriter(),
		engine.WithFactory(f),
		engine.WithNormalization(!opts.NoNormalize))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCommand, err)
	}

	compiled, err := eng.Compile(cmd.Context(), query.Statement, params)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCompile, err)
	}

	result := RenderResult{
		Dialect:   eng.Dialect().Name(),
		SQL:       compiled.SQL,
		Bindings:  make([]BindingResult, len(compiled.Bindings)),
		Cacheable: compiled.Cacheable,
		ShapeHash: compiled.ShapeHash,
	}
	for i, b := range compiled.Bindings {
		result.Bindings[i] = BindingResult{Placeholder: b.Placeholder, Name: b.Name}
		if b.Type != nil {
			result.Bindings[i].StoreType = b.Type.StoreType
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(formatRenderText(result))
}

func formatRenderText(r RenderResult) string {
	var sb strings.Builder
	sb.WriteString(r.SQL)
	if len(r.Bindings) > 0 {
		sb.WriteString("\n-- bindings:")
		for _, b := range r.Bindings {
			fmt.Fprintf(&sb, " %s=%s", b.Placeholder, b.Name)
		}
	}
	fmt.Fprintf(&sb, "\n-- cacheable: %t", r.Cacheable)
	return sb.String()
}
