package nullsem

import (
	"fmt"
	"sort"

	"github.com/roach88/relq/internal/ir"
)

// Parameters maps parameter names to their execution values. The normalizer
// never writes to a Parameters value it is given; expansions produce a new
// environment in Result.Parameters.
type Parameters map[string]ir.IRValue

// Lookup returns the value bound to name.
func (p Parameters) Lookup(name string) (ir.IRValue, bool) {
	v, ok := p[name]
	return v, ok
}

// IsNull reports whether name is bound to null. Unbound names are null.
func (p Parameters) IsNull(name string) bool {
	return ir.IsNull(p[name])
}

// Names returns the bound names in sorted order.
func (p Parameters) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of p extended with extra. Entries in extra win.
func (p Parameters) With(extra Parameters) Parameters {
	out := make(Parameters, len(p)+len(extra))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// freshName returns base_i, adding underscores until the name is unused by
// both p and synthesized.
func freshName(base string, i int, p, synthesized Parameters) string {
	name := fmt.Sprintf("%s_%d", base, i)
	for {
		_, taken := p[name]
		_, made := synthesized[name]
		if !taken && !made {
			return name
		}
		name += "_"
	}
}
