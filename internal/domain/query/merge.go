package query

import "strings"

// MergeFilters joins filter queries into one conjunctive clause,
// "(f1) AND (f2) AND ...", preserving order.
func MergeFilters(fqs []string) string {
	var b strings.Builder
	for i, fq := range fqs {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteByte('(')
		b.WriteString(fq)
		b.WriteByte(')')
	}
	return b.String()
}

// MergeFilterQueries collapses two or more fq values into a single merged value.
// It returns the merged value and true when it rewrote p; zero or one value is left as is.
func MergeFilterQueries(p *Params) (string, bool) {
	fqs := p.FilterQueries()
	if len(fqs) < 2 {
		return "", false
	}
	merged := MergeFilters(fqs)
	p.SetFilterQueries(merged)
	return merged, true
}
