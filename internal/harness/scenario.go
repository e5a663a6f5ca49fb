package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/querysql"
)

// Scenario is a conformance scenario: a catalog, seed data, and a list of
// query documents to compile and, for SQLite, execute.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialect is the default dialect for steps. Default "sqlite".
	Dialect string `yaml:"dialect,omitempty"`

	// RelationalNulls leaves comparisons with the database's three-valued
	// null semantics instead of normalizing them.
	RelationalNulls bool `yaml:"relational_nulls,omitempty"`

	// Catalog lists CUE files or directories declaring tables.
	// Relative paths resolve against the scenario file's directory.
	Catalog []string `yaml:"catalog,omitempty"`

	// Tables declares tables inline, in addition to Catalog.
	Tables []ir.TableSpec `yaml:"tables,omitempty"`

	// Seed fills tables before the steps run.
	Seed []SeedStep `yaml:"seed,omitempty"`

	// Steps run in order against one engine per dialect, so later steps
	// observe the command cache left by earlier ones.
	Steps []Step `yaml:"steps"`
}

// SeedStep inserts rows into one table. Rows lists values in column order.
// Combinations instead maps a column type to its domain and inserts every
// combination, with NULL added for nullable columns.
type SeedStep struct {
	Table        string           `yaml:"table"`
	Rows         [][]any          `yaml:"rows,omitempty"`
	Combinations map[string][]any `yaml:"combinations,omitempty"`
}

// Step compiles one query document.
type Step struct {
	Name string `yaml:"name"`

	// Query is an inline query document.
	Query yaml.Node `yaml:"query,omitempty"`

	// QueryFile names a query document file, relative to the scenario.
	QueryFile string `yaml:"query_file,omitempty"`

	// Params overrides parameter values declared by the document.
	Params map[string]any `yaml:"params,omitempty"`

	// Dialect overrides the scenario dialect.
	Dialect string `yaml:"dialect,omitempty"`

	// NoNormalize renders the statement without null-semantics rewriting.
	NoNormalize bool `yaml:"no_normalize,omitempty"`

	Expect Expect `yaml:"expect,omitempty"`
}

// Expect lists the checks for one step. Unset fields are not checked.
type Expect struct {
	// SQL is the exact statement text. Surrounding whitespace is ignored.
	SQL string `yaml:"sql,omitempty"`

	// SQLContains lists fragments the statement text must contain.
	SQLContains []string `yaml:"sql_contains,omitempty"`

	// Error is a fragment of the expected error. A step with Error set
	// fails when compilation succeeds.
	Error string `yaml:"error,omitempty"`

	Cacheable *bool `yaml:"cacheable,omitempty"`
	CacheHit  *bool `yaml:"cache_hit,omitempty"`

	// Bindings lists the bound parameter names in placeholder order.
	Bindings []string `yaml:"bindings,omitempty"`

	// Rows are the expected result rows. Order is ignored unless Ordered.
	Rows     [][]any `yaml:"rows,omitempty"`
	Ordered  bool    `yaml:"ordered,omitempty"`
	RowCount *int    `yaml:"row_count,omitempty"`
}

func (e *Expect) executes() bool {
	return e.Rows != nil || e.RowCount != nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Catalog and query file paths are resolved against the directory of path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving relative paths against
// basePath when it is not empty.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict decoding catches typos like "step:" vs "steps:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if basePath != "" {
		for i, p := range scenario.Catalog {
			scenario.Catalog[i] = resolve(basePath, p)
		}
		for i := range scenario.Steps {
			if f := scenario.Steps[i].QueryFile; f != "" {
				scenario.Steps[i].QueryFile = resolve(basePath, f)
			}
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Dialect == "" {
		s.Dialect = querysql.SQLite{}.Name()
	}
	d, err := querysql.DialectByName(s.Dialect)
	if err != nil {
		return err
	}
	s.Dialect = d.Name()

	for _, p := range s.Catalog {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", p)
		}
	}

	for i, seed := range s.Seed {
		if seed.Table == "" {
			return fmt.Errorf("seed[%d]: table is required", i)
		}
		if (seed.Rows == nil) == (seed.Combinations == nil) {
			return fmt.Errorf("seed[%d]: exactly one of rows and combinations is required", i)
		}
	}

	names := make(map[string]bool, len(s.Steps))
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if names[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		names[step.Name] = true

		hasQuery := !step.Query.IsZero()
		if hasQuery == (step.QueryFile != "") {
			return fmt.Errorf("steps[%d]: exactly one of query and query_file is required", i)
		}
		if step.QueryFile != "" {
			if _, err := os.Stat(step.QueryFile); os.IsNotExist(err) {
				return fmt.Errorf("steps[%d]: query file not found: %s", i, step.QueryFile)
			}
		}

		if step.Dialect == "" {
			step.Dialect = s.Dialect
		}
		d, err := querysql.DialectByName(step.Dialect)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		step.Dialect = d.Name()
		if step.Expect.executes() && step.Dialect != (querysql.SQLite{}).Name() {
			return fmt.Errorf("steps[%d]: rows can only be checked for the sqlite dialect", i)
		}
		if step.Expect.Error != "" && (step.Expect.SQL != "" || step.Expect.executes()) {
			return fmt.Errorf("steps[%d]: expect.error excludes sql and rows", i)
		}
	}
	return nil
}
