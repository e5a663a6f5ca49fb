package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relq/internal/queryir"
)

// DocumentResult holds the validation result of one query document.
type DocumentResult struct {
	Path   string   `json:"path"`
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Tables    int              `json:"tables"`
	Documents []DocumentResult `json:"documents"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var catalogPaths []string

	cmd := &cobra.Command{
		Use:   "validate [query.yaml...]",
		Short: "Validate a catalog and query documents without rendering",
		Long: `Compile the catalog and check each query document against the
expression IR rules (typed expressions, unique projection aliases, known
tables) without rendering any statement text.

Exit codes:
  0 - Everything is valid
  1 - The catalog or a document is invalid
  2 - Command error (missing files, nothing to validate)`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, catalogPaths, args, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&catalogPaths, "catalog", "c", nil, "CUE catalog files or directories")

	return cmd
}

func runValidate(opts *RootOptions, catalogPaths, docs []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if len(catalogPaths) == 0 && len(docs) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeCommand, fmt.Errorf("nothing to validate: pass query documents or --catalog"))
	}
	if err := checkPaths(append(append([]string{}, catalogPaths...), docs...)...); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCommand, err)
	}

	catalog, err := loadCatalog(catalogPaths)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCatalog, err)
	}
	formatter.VerboseLog("Compiled %d table(s)", len(catalog.Tables))

	result := ValidationResult{
		Valid:     true,
		Tables:    len(catalog.Tables),
		Documents: make([]DocumentResult, 0, len(docs)),
	}
	f := queryir.DefaultFactory()
	for _, path := range docs {
		formatter.VerboseLog("Validating %s", path)
		doc := DocumentResult{Path: path, Valid: true}

		query, err := loadDocument(path, f, catalog)
		if err != nil {
			doc.Valid = false
			doc.Issues = []string{err.Error()}
		} else if res := queryir.Validate(query.Statement); !res.Valid {
			doc.Valid = false
			doc.Issues = res.Issues
		}

		result.Valid = result.Valid && doc.Valid
		result.Documents = append(result.Documents, doc)
	}

	if opts.Format == "json" {
		if !result.Valid {
			if err := formatter.Error(ErrCodeLoad, "validation failed", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "validation failed")
		}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if len(catalogPaths) > 0 {
		fmt.Fprintf(w, "✓ catalog: %d table(s)\n", result.Tables)
	}
	for _, doc := range result.Documents {
		if doc.Valid {
			fmt.Fprintf(w, "✓ %s\n", doc.Path)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", doc.Path)
		for _, issue := range doc.Issues {
			fmt.Fprintf(w, "  %s\n", issue)
		}
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
