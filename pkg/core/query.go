package core

import "strings"

// Query is a backend-opaque search expression. Terms carries the user's
// search string; Params carries backend-specific knobs (field restrictions,
// sort hints) that the blend engine passes through untouched.
type Query struct {
	Terms  string
	Params map[string]string
}

// NewQuery creates a query with the given search terms and no params.
func NewQuery(terms string) Query {
	return Query{Terms: terms}
}

// WithParam returns a copy of the query with one param set. The receiver is
// not modified, so translated queries never leak params back into the
// original.
func (q Query) WithParam(key, value string) Query {
	params := make(map[string]string, len(q.Params)+1)
	for k, v := range q.Params {
		params[k] = v
	}
	params[key] = value
	q.Params = params
	return q
}

// IsEmpty reports whether the query has no search terms.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Terms) == ""
}
