package phonetic

import (
	"fmt"
	"strings"
)

// UnitKind names the context width of the units built from a mora sequence.
type UnitKind string

const (
	Monophones UnitKind = "monophones"
	Diphones   UnitKind = "diphones"
	Triphones  UnitKind = "triphones"
)

// ParseUnitKind validates a unit kind name.
func ParseUnitKind(s string) (UnitKind, error) {
	switch k := UnitKind(s); k {
	case Monophones, Diphones, Triphones:
		return k, nil
	}
	return "", fmt.Errorf("unknown unit kind %q", s)
}

// Order returns the n-gram order of the kind.
func (k UnitKind) Order() int {
	switch k {
	case Monophones:
		return 1
	case Triphones:
		return 3
	default:
		return 2
	}
}

// Build turns a mora sequence into units of kind k.
func (k UnitKind) Build(seq []string) []string {
	return NGrams(seq, k.Order())
}

// NGrams joins every window of n consecutive symbols with "-".
func NGrams(seq []string, n int) []string {
	if n <= 0 || len(seq) < n {
		return nil
	}
	out := make([]string, 0, len(seq)-n+1)
	for i := 0; i+n <= len(seq); i++ {
		out = append(out, strings.Join(seq[i:i+n], "-"))
	}
	return out
}
