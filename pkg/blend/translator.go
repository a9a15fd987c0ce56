package blend

import (
	"strings"

	"github.com/rubiojr/meld/pkg/core"
)

// QueryTranslator converts a query expressed for the primary backend into
// an equivalent query for the secondary backend.
type QueryTranslator interface {
	Translate(query core.Query) core.Query
}

// IdentityTranslator passes queries through unchanged. It is the default
// when the configuration does not customize translation.
type IdentityTranslator struct{}

func (IdentityTranslator) Translate(query core.Query) core.Query {
	return query
}

// RewriteTranslator adapts queries for secondary backends whose dialect
// differs from the primary's: extra terms can be prepended or appended and
// params overridden. Zero values leave the query untouched.
type RewriteTranslator struct {
	Prepend string
	Append  string
	Params  map[string]string
}

func (t RewriteTranslator) Translate(query core.Query) core.Query {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.Prepend, query.Terms, t.Append} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	out := query
	out.Terms = strings.Join(parts, " ")
	for key, value := range t.Params {
		out = out.WithParam(key, value)
	}
	return out
}
