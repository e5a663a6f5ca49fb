package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigFile names a config file; empty searches for relq.yaml.
	ConfigFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the relq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relq",
		Short: "relq - relational query compiler",
		Long: `Compile relational query documents to SQL statement text.

Queries are rewritten so that comparisons involving nulls behave the way
application code expects, then rendered for a target dialect.

Configuration is read from relq.yaml in the working directory (or --config),
RELQ_* environment variables, and flags, flags taking precedence:
  dialect            standard | sqlite | sqlserver | postgres
  relational_nulls   keep database null semantics
  cache_size         command cache entries`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./relq.yaml)")
	cmd.PersistentFlags().String(flagDialect, "", "target dialect (standard|sqlite|sqlserver|postgres)")
	cmd.PersistentFlags().Bool(flagRelationalNulls, false, "keep database null semantics")

	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
