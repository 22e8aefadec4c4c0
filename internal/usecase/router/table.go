package router

import (
	"slices"
	"sort"
)

// table holds the routes in match order: descending prefix length, ties
// keep declaration order.
type table struct {
	routes []*route
}

func newTable(routes []*route) *table {
	sorted := slices.Clone(routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].rule.Prefix) > len(sorted[j].rule.Prefix)
	})
	return &table{routes: sorted}
}

// match returns the first route whose prefix covers path.
func (t *table) match(path string) (*route, bool) {
	for _, rt := range t.routes {
		if rt.rule.Matches(path) {
			return rt, true
		}
	}
	return nil, false
}

// redirect returns the slash-terminated location when path is the bare
// prefix of a stripping route.
func (t *table) redirect(path string) (string, bool) {
	for _, rt := range t.routes {
		if bare := rt.rule.BarePrefix(); bare != "" && path == bare {
			return rt.rule.Prefix, true
		}
	}
	return "", false
}
