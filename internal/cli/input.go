package cli

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relq/internal/compiler"
	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/nullsem"
	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/querydoc"
)

// checkPaths reports the first path that does not exist.
func checkPaths(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("not found: %s", p)
		}
	}
	return nil
}

// loadCatalog compiles the --catalog inputs. No inputs is an empty catalog.
func loadCatalog(paths []string) (*ir.Catalog, error) {
	return compiler.LoadCatalog(paths...)
}

func loadDocument(path string, f *queryir.Factory, catalog *ir.Catalog) (*querydoc.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return querydoc.Load(data, f, catalog)
}

// applyParams overrides declared parameter values with name=value pairs.
// Values are YAML scalars or flow sequences: 3, 2.5, true, null, abc, [1, 2].
func applyParams(declared nullsem.Parameters, pairs []string) (nullsem.Parameters, error) {
	if len(pairs) == 0 {
		return declared, nil
	}
	extra := make(nullsem.Parameters, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--param %q: expected name=value", pair)
		}
		if _, declaredName := declared[name]; !declaredName {
			return nil, fmt.Errorf("--param %q: parameter is not declared by the document", name)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("--param %q: %w", name, err)
		}
		irv, err := ir.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("--param %q: %w", name, err)
		}
		extra[name] = irv
	}
	return declared.With(extra), nil
}
