package filter

import "strings"

// Sort is a single-field sort instruction. A leading '-' in the wire form
// means descending ("-created").
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort parses a sort parameter. Empty input sorts by creation time
// ascending, matching insertion order.
func ParseSort(s string) Sort {
	s = strings.TrimSpace(s)
	if s == "" {
		return Sort{Field: "created"}
	}
	if strings.HasPrefix(s, "-") {
		return Sort{Field: strings.TrimPrefix(s, "-"), Desc: true}
	}
	return Sort{Field: s}
}

// Less compares two flattened records under the sort. Numbers compare
// numerically, everything else lexically.
func (s Sort) Less(a, b map[string]any) bool {
	av, bv := a[s.Field], b[s.Field]

	var less bool
	an, aok := toFloat(av)
	bn, bok := toFloat(bv)
	if aok && bok {
		less = an < bn
	} else {
		less = toString(av) < toString(bv)
	}

	if s.Desc {
		return !less && !looseEqual(av, bv)
	}
	return less
}
